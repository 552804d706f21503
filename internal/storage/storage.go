package storage

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/0x5457/oas-index/internal/errs"
	"github.com/0x5457/oas-index/internal/models"
)

var ErrCollectionNotFound = errors.New("collection not found")

// Backend is a vector database holding named collections of records.
// Distances are cosine distances (1 - cosine similarity), smaller is closer.
type Backend interface {
	// CreateCollection creates the collection or loads the existing one.
	CreateCollection(ctx context.Context, name string) (models.Collection, error)
	// Add inserts records; records whose id already exists are left unchanged.
	Add(ctx context.Context, collection string, records []models.Record) error
	// Upsert inserts records, overwriting existing ids.
	Upsert(ctx context.Context, collection string, records []models.Record) error
	// Query fails with an errs.ContractMismatchError when a stored embedding
	// and the query embedding differ in dimension.
	Query(ctx context.Context, collection string, embedding []float32, n int) ([]models.Match, error)
	DeleteAll(ctx context.Context, collection string) error
	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]models.Collection, error)
	Count(ctx context.Context, collection string) (int, error)
	Close() error
}

// CheckDimension reports a stored embedding whose length differs from the
// query's.
func CheckDimension(stored, query int) error {
	if stored != query {
		return &errs.ContractMismatchError{Field: "embedding dimension", Want: stored, Got: query}
	}
	return nil
}

// CosineDistance returns 1 - cos(a, b). Zero vectors are at distance 1.
// Callers check dimensions first; only the common prefix is compared.
func CosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	den := math.Sqrt(na) * math.Sqrt(nb)
	if den == 0 {
		return 1
	}
	return float32(1 - dot/den)
}

// Nearest orders matches by ascending distance, insertion order breaking
// ties, and keeps the first n.
func Nearest(matches []models.Match, n int) []models.Match {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if n >= 0 && len(matches) > n {
		matches = matches[:n]
	}
	return matches
}
