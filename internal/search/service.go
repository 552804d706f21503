package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/0x5457/oas-index/internal/models"
	"github.com/0x5457/oas-index/internal/vectorstore"
	"go.uber.org/zap"
)

const DefaultTopK = 5

// Request describes one semantic lookup.
type Request struct {
	Query      string
	Collection string // defaults to the service's default collection
	TopK       int
	Type       models.ChunkType // optional chunk type filter
}

type CollectionInfo struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// Service answers retrieval queries against the vector store.
type Service struct {
	Store             *vectorstore.Store
	DefaultCollection string
	Logger            *zap.Logger
}

func (s *Service) collection(name string) string {
	if name != "" {
		return name
	}
	if s.DefaultCollection != "" {
		return s.DefaultCollection
	}
	return models.CollectionSwagger
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Search returns up to TopK matches nearest to the query, optionally
// restricted to one chunk type.
func (s *Service) Search(ctx context.Context, req Request) ([]models.Match, error) {
	if req.Query == "" {
		return nil, errors.New("query must not be empty")
	}
	if req.Type != "" {
		if _, ok := models.ParseChunkType(string(req.Type)); !ok {
			return nil, fmt.Errorf("unknown chunk type %q", req.Type)
		}
	}
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	collection := s.collection(req.Collection)

	n := topK
	if req.Type != "" {
		// filtering happens after ranking, so rank the whole collection
		size, err := s.Store.Size(ctx, collection)
		if err != nil {
			return nil, err
		}
		n = max(size, topK)
	}
	res, err := s.Store.Query(ctx, collection, []string{req.Query}, n)
	if err != nil {
		return nil, err
	}
	matches := res[0].Matches
	if req.Type != "" {
		filtered := make([]models.Match, 0, topK)
		for _, m := range matches {
			if m.Metadata.Value(models.MetaType) == string(req.Type) {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
	}
	if len(matches) > topK {
		matches = matches[:topK]
	}
	s.log().Debug("search",
		zap.String("collection", collection),
		zap.String("query", req.Query),
		zap.Int("hits", len(matches)),
	)
	return matches, nil
}

// Collections lists every collection with its record count.
func (s *Service) Collections(ctx context.Context) ([]CollectionInfo, error) {
	names, err := s.Store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CollectionInfo, 0, len(names))
	for _, name := range names {
		size, err := s.Store.Size(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("size of %s: %w", name, err)
		}
		out = append(out, CollectionInfo{Name: name, Size: size})
	}
	return out, nil
}
