// Package sqlvec is the vector backend built on sqlite-vec. Cosine
// distances are computed inside SQLite with vec_distance_cosine.
package sqlvec

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/0x5457/oas-index/internal/storage/sqlstore"
	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	*sqlstore.Store
}

func New(path string) (*Store, error) {
	// enable sqlite-vec for all future connections
	sqlite_vec.Auto()
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, err
	}
	var version string
	if err := db.QueryRow(`SELECT vec_version()`).Scan(&version); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}
	st, err := sqlstore.New(db, sqlstore.Options{
		Encode:       sqlite_vec.SerializeFloat32,
		DistanceFunc: "vec_distance_cosine",
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: st}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_busy_timeout=5000&_journal_mode=WAL"
}
