// Package sqlite is the pure Go vector backend. Distances are computed in
// process after scanning the collection.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/0x5457/oas-index/internal/storage/sqlstore"
	_ "modernc.org/sqlite"
)

type Store struct {
	*sqlstore.Store
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	st, err := sqlstore.New(db, sqlstore.Options{})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: st}, nil
}

// dsn waits on locks held by other processes instead of failing at once.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path, sep)
}
