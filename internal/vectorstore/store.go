// Package vectorstore keeps named collections of embedded documents in a
// storage backend and answers similarity queries against them.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/0x5457/oas-index/internal/embeddings"
	"github.com/0x5457/oas-index/internal/errs"
	"github.com/0x5457/oas-index/internal/logging"
	"github.com/0x5457/oas-index/internal/models"
	"github.com/0x5457/oas-index/internal/storage"
	"github.com/0x5457/oas-index/internal/util"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const DefaultResults = 5

type Options struct {
	// QueryCacheSize bounds the memo of query embeddings; zero disables it.
	QueryCacheSize int
	QueryCacheTTL  time.Duration
}

type Store struct {
	backend  storage.Backend
	embedder embeddings.Embedder
	log      *zap.Logger

	mu      sync.Mutex
	handles map[string]models.Collection
	queries *expirable.LRU[string, []float32]
}

func New(backend storage.Backend, embedder embeddings.Embedder, opts Options, log *zap.Logger) *Store {
	log = logging.OrNop(log)
	s := &Store{
		backend:  backend,
		embedder: embedder,
		log:      log.Named("vectorstore"),
		handles:  make(map[string]models.Collection),
	}
	if opts.QueryCacheSize > 0 && opts.QueryCacheTTL > 0 {
		s.queries = expirable.NewLRU[string, []float32](opts.QueryCacheSize, nil, opts.QueryCacheTTL)
	}
	return s
}

// Collection returns the handle for name, creating or loading the
// collection on first use.
func (s *Store) Collection(ctx context.Context, name string) (models.Collection, error) {
	if name == "" {
		return models.Collection{}, errors.New("collection name must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.handles[name]; ok {
		return c, nil
	}
	c, err := s.backend.CreateCollection(ctx, name)
	if err != nil {
		return models.Collection{}, err
	}
	s.log.Info("collection loaded", zap.String("collection", name), zap.String("id", c.ID))
	s.handles[name] = c
	return c, nil
}

func (s *Store) evict(name string) {
	s.mu.Lock()
	delete(s.handles, name)
	s.mu.Unlock()
}

// Add stores documents with precomputed embeddings. All given slices must
// have one entry per document; metadatas and ids may be nil. Returns the ids
// used, generating random ones when ids is nil.
func (s *Store) Add(
	ctx context.Context,
	collection string,
	documents []string,
	vectors [][]float32,
	metadatas []models.Metadata,
	ids []string,
) ([]string, error) {
	if len(vectors) != len(documents) {
		return nil, &errs.ContractMismatchError{Field: "embeddings", Want: len(documents), Got: len(vectors)}
	}
	records, err := buildRecords(documents, metadatas, ids)
	if err != nil {
		return nil, err
	}
	if _, err := s.Collection(ctx, collection); err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Embedding = vectors[i]
	}
	if err := s.backend.Add(ctx, collection, records); err != nil {
		return nil, fmt.Errorf("add to %s: %w", collection, err)
	}
	s.log.Info("added documents", zap.String("collection", collection), zap.Int("count", len(records)))
	return recordIDs(records), nil
}

// Upsert embeds documents with the store's embedder and overwrites records
// that share an id.
func (s *Store) Upsert(
	ctx context.Context,
	collection string,
	documents []string,
	metadatas []models.Metadata,
	ids []string,
) ([]string, error) {
	if len(documents) == 0 {
		s.log.Warn("no documents provided for upsert", zap.String("collection", collection))
		return nil, nil
	}
	records, err := buildRecords(documents, metadatas, ids)
	if err != nil {
		return nil, err
	}
	vectors, err := s.embedder.EmbedTexts(ctx, documents)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(documents) {
		return nil, &errs.ContractMismatchError{Field: "embeddings", Want: len(documents), Got: len(vectors)}
	}
	if _, err := s.Collection(ctx, collection); err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Embedding = vectors[i]
	}
	if err := s.backend.Upsert(ctx, collection, records); err != nil {
		return nil, fmt.Errorf("upsert into %s: %w", collection, err)
	}
	s.log.Info("upserted documents", zap.String("collection", collection), zap.Int("count", len(records)))
	return recordIDs(records), nil
}

// Query returns up to n matches per query text, nearest first.
func (s *Store) Query(ctx context.Context, collection string, queryTexts []string, n int) ([]models.QueryResult, error) {
	if n <= 0 {
		n = DefaultResults
	}
	if _, err := s.Collection(ctx, collection); err != nil {
		return nil, err
	}
	vectors, err := s.queryVectors(ctx, queryTexts)
	if err != nil {
		return nil, err
	}
	out := make([]models.QueryResult, 0, len(queryTexts))
	for i, q := range queryTexts {
		matches, err := s.backend.Query(ctx, collection, vectors[i], n)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", collection, err)
		}
		if matches == nil {
			matches = []models.Match{}
		}
		out = append(out, models.QueryResult{Query: q, Matches: matches})
	}
	return out, nil
}

func (s *Store) queryVectors(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missing []int
		pending []string
	)
	for i, t := range texts {
		if s.queries != nil {
			if v, ok := s.queries.Get(s.memoKey(t)); ok {
				out[i] = v
				continue
			}
		}
		missing = append(missing, i)
		pending = append(pending, t)
	}
	if len(pending) == 0 {
		return out, nil
	}
	vecs, err := s.embedder.EmbedTexts(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("embed queries: %w", err)
	}
	if len(vecs) != len(pending) {
		return nil, &errs.ContractMismatchError{Field: "query embeddings", Want: len(pending), Got: len(vecs)}
	}
	for j, i := range missing {
		out[i] = vecs[j]
		if s.queries != nil {
			s.queries.Add(s.memoKey(texts[i]), vecs[j])
		}
	}
	return out, nil
}

func (s *Store) memoKey(text string) string {
	return s.embedder.ModelName() + "\x00" + text
}

// Clear removes every record but keeps the collection identity.
func (s *Store) Clear(ctx context.Context, collection string) error {
	if _, err := s.Collection(ctx, collection); err != nil {
		return err
	}
	if err := s.backend.DeleteAll(ctx, collection); err != nil {
		return fmt.Errorf("clear %s: %w", collection, err)
	}
	s.log.Warn("cleared collection", zap.String("collection", collection))
	return nil
}

// Reset drops the collection and recreates it with a new identity.
func (s *Store) Reset(ctx context.Context, collection string) (models.Collection, error) {
	s.log.Warn("resetting collection", zap.String("collection", collection))
	s.evict(collection)
	if err := s.backend.DeleteCollection(ctx, collection); err != nil &&
		!errors.Is(err, storage.ErrCollectionNotFound) {
		return models.Collection{}, fmt.Errorf("reset %s: %w", collection, err)
	}
	return s.Collection(ctx, collection)
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	cols, err := s.backend.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}
	return names, nil
}

func (s *Store) Size(ctx context.Context, collection string) (int, error) {
	if _, err := s.Collection(ctx, collection); err != nil {
		return 0, err
	}
	return s.backend.Count(ctx, collection)
}

func defaultMetadata() models.Metadata {
	return models.NewMetadata(
		models.MetaType, string(models.ChunkText),
		models.MetaOrigin, string(models.OriginUnknown),
		models.MetaFilename, "unknown",
		models.MetaHash, util.NewID(),
	)
}

func buildRecords(documents []string, metadatas []models.Metadata, ids []string) ([]models.Record, error) {
	if ids != nil && len(ids) != len(documents) {
		return nil, &errs.ContractMismatchError{Field: "ids", Want: len(documents), Got: len(ids)}
	}
	if metadatas != nil && len(metadatas) != len(documents) {
		return nil, &errs.ContractMismatchError{Field: "metadatas", Want: len(documents), Got: len(metadatas)}
	}
	records := make([]models.Record, len(documents))
	for i, doc := range documents {
		id := util.NewID()
		if ids != nil {
			id = ids[i]
		}
		md := defaultMetadata()
		if metadatas != nil {
			md = md.Merge(metadatas[i])
		}
		records[i] = models.Record{ID: id, Document: doc, Metadata: md}
	}
	return records, nil
}

func recordIDs(records []models.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
