// Package sqlstore implements storage.Backend on top of a SQLite database.
// The driver and the way distances are computed are supplied by the caller.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/0x5457/oas-index/internal/errs"
	"github.com/0x5457/oas-index/internal/models"
	"github.com/0x5457/oas-index/internal/storage"
	"github.com/0x5457/oas-index/internal/util"
)

type Options struct {
	// Encode serializes an embedding to a little-endian float32 blob.
	// Defaults to EncodeFloat32.
	Encode func([]float32) ([]byte, error)
	// DistanceFunc names a SQL function computing cosine distance between two
	// blobs. Empty means distances are computed in Go.
	DistanceFunc string
}

type Store struct {
	db   *sql.DB
	opts Options
}

func New(db *sql.DB, opts Options) (*Store, error) {
	if opts.Encode == nil {
		opts.Encode = EncodeFloat32
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, opts: opts}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`); err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		document TEXT NOT NULL,
		metadata TEXT NOT NULL,
		embedding BLOB NOT NULL,
		UNIQUE(collection, id)
	);`); err != nil {
		return err
	}
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);`)
	return err
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) CreateCollection(ctx context.Context, name string) (models.Collection, error) {
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO collections(name, id, created_at) VALUES(?, ?, ?) ON CONFLICT(name) DO NOTHING`,
		name, util.NewID(), now.UnixNano(),
	); err != nil {
		return models.Collection{}, fmt.Errorf("create collection %s: %w", name, err)
	}
	return s.collection(ctx, s.db, name)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) collection(ctx context.Context, q queryer, name string) (models.Collection, error) {
	var (
		c       models.Collection
		created int64
	)
	err := q.QueryRowContext(ctx, `SELECT name, id, created_at FROM collections WHERE name = ?`, name).
		Scan(&c.Name, &c.ID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
	}
	if err != nil {
		return c, err
	}
	c.CreatedAt = time.Unix(0, created).UTC()
	return c, nil
}

func (s *Store) Add(ctx context.Context, collection string, records []models.Record) error {
	return s.write(ctx, collection, records, `INSERT INTO records(collection, id, document, metadata, embedding)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO NOTHING`)
}

func (s *Store) Upsert(ctx context.Context, collection string, records []models.Record) error {
	return s.write(ctx, collection, records, `INSERT INTO records(collection, id, document, metadata, embedding)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
		document=excluded.document,
		metadata=excluded.metadata,
		embedding=excluded.embedding`)
}

func (s *Store) write(ctx context.Context, collection string, records []models.Record, query string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := s.collection(ctx, tx, collection); err != nil {
		_ = tx.Rollback()
		return err
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		md, err := json.Marshal(r.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode metadata of %s: %w", r.ID, err)
		}
		blob, err := s.opts.Encode(r.Embedding)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode embedding of %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, collection, r.ID, r.Document, string(md), blob); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Query(ctx context.Context, collection string, embedding []float32, n int) ([]models.Match, error) {
	if _, err := s.collection(ctx, s.db, collection); err != nil {
		return nil, err
	}
	if n <= 0 {
		return []models.Match{}, nil
	}
	if err := s.checkDimension(ctx, collection, len(embedding)); err != nil {
		return nil, err
	}
	if s.opts.DistanceFunc != "" {
		return s.querySQL(ctx, collection, embedding, n)
	}
	return s.queryScan(ctx, collection, embedding, n)
}

// checkDimension fails when any stored embedding of collection has a length
// other than dim.
func (s *Store) checkDimension(ctx context.Context, collection string, dim int) error {
	var (
		id     string
		length int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, length(embedding) FROM records WHERE collection = ? AND length(embedding) != ? LIMIT 1`,
		collection, 4*dim,
	).Scan(&id, &length)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("query %s record %s: %w", collection, id,
		&errs.ContractMismatchError{Field: "embedding dimension", Want: length / 4, Got: dim})
}

func (s *Store) querySQL(ctx context.Context, collection string, embedding []float32, n int) ([]models.Match, error) {
	blob, err := s.opts.Encode(embedding)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, document, metadata, %s(embedding, ?) AS distance
		FROM records
		WHERE collection = ?
		ORDER BY distance ASC, seq ASC
		LIMIT ?`, s.opts.DistanceFunc), blob, collection, n)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	matches := []models.Match{}
	for rows.Next() {
		var (
			m        models.Match
			md       string
			distance float64
		)
		if err := rows.Scan(&m.ID, &m.Document, &md, &distance); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(md), &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", m.ID, err)
		}
		m.Distance = float32(distance)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *Store) queryScan(ctx context.Context, collection string, embedding []float32, n int) ([]models.Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document, metadata, embedding FROM records WHERE collection = ? ORDER BY seq ASC`,
		collection,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	matches := []models.Match{}
	for rows.Next() {
		var (
			m    models.Match
			md   string
			blob []byte
		)
		if err := rows.Scan(&m.ID, &m.Document, &md, &blob); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(md), &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", m.ID, err)
		}
		vec, err := DecodeFloat32(blob)
		if err != nil {
			return nil, fmt.Errorf("decode embedding of %s: %w", m.ID, err)
		}
		m.Distance = storage.CosineDistance(vec, embedding)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return storage.Nearest(matches, n), nil
}

func (s *Store) DeleteAll(ctx context.Context, collection string) error {
	if _, err := s.collection(ctx, s.db, collection); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, collection)
	return err
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := s.collection(ctx, tx, name); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, name); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) ListCollections(ctx context.Context) ([]models.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, id, created_at FROM collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []models.Collection
	for rows.Next() {
		var (
			c       models.Collection
			created int64
		)
		if err := rows.Scan(&c.Name, &c.ID, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	if _, err := s.collection(ctx, s.db, collection); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE collection = ?`, collection).Scan(&n)
	return n, err
}

// EncodeFloat32 writes v as little-endian float32s, the layout sqlite-vec reads.
func EncodeFloat32(v []float32) ([]byte, error) {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf, nil
}

func DecodeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
