package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/0x5457/oas-index/internal/models"
	"github.com/0x5457/oas-index/internal/storage"
	"github.com/0x5457/oas-index/internal/util"
)

type collection struct {
	info    models.Collection
	records []models.Record
	index   map[string]int // id -> position in records
}

// Store keeps every collection in process memory.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) CreateCollection(_ context.Context, name string) (models.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c.info, nil
	}
	c := &collection{
		info:  models.Collection{Name: name, ID: util.NewID(), CreatedAt: time.Now().UTC()},
		index: make(map[string]int),
	}
	s.collections[name] = c
	return c.info, nil
}

func (s *Store) get(name string) (*collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
	}
	return c, nil
}

func (s *Store) Add(_ context.Context, name string, records []models.Record) error {
	return s.write(name, records, false)
}

func (s *Store) Upsert(_ context.Context, name string, records []models.Record) error {
	return s.write(name, records, true)
}

func (s *Store) write(name string, records []models.Record, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return err
	}
	for _, r := range records {
		r = clone(r)
		if i, ok := c.index[r.ID]; ok {
			if overwrite {
				c.records[i] = r
			}
			continue
		}
		c.index[r.ID] = len(c.records)
		c.records = append(c.records, r)
	}
	return nil
}

func (s *Store) Query(_ context.Context, name string, embedding []float32, n int) ([]models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.get(name)
	if err != nil {
		return nil, err
	}
	matches := make([]models.Match, 0, len(c.records))
	for _, r := range c.records {
		if err := storage.CheckDimension(len(r.Embedding), len(embedding)); err != nil {
			return nil, fmt.Errorf("query %s record %s: %w", name, r.ID, err)
		}
		matches = append(matches, models.Match{
			ID:       r.ID,
			Document: r.Document,
			Metadata: r.Metadata.Clone(),
			Distance: storage.CosineDistance(r.Embedding, embedding),
		})
	}
	return storage.Nearest(matches, n), nil
}

func (s *Store) DeleteAll(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return err
	}
	c.records = nil
	c.index = make(map[string]int)
	return nil
}

func (s *Store) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.get(name); err != nil {
		return err
	}
	delete(s.collections, name)
	return nil
}

func (s *Store) ListCollections(_ context.Context) ([]models.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Collection, 0, len(s.collections))
	for _, c := range s.collections {
		out = append(out, c.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.get(name)
	if err != nil {
		return 0, err
	}
	return len(c.records), nil
}

func (s *Store) Close() error { return nil }

func clone(r models.Record) models.Record {
	emb := make([]float32, len(r.Embedding))
	copy(emb, r.Embedding)
	return models.Record{ID: r.ID, Document: r.Document, Embedding: emb, Metadata: r.Metadata.Clone()}
}
