package indexer

import (
	"context"

	"github.com/0x5457/oas-index/internal/models"
)

// Result summarizes one indexed document.
type Result struct {
	File        string
	Chunks      int
	Cached      int
	Computed    int
	Collections map[string]int // collection -> chunks written
}

type Indexer interface {
	IndexFile(ctx context.Context, path string) (Result, error)
	IndexDir(ctx context.Context, root string) ([]Result, error)
	IndexDirProgress(ctx context.Context, root string) (<-chan models.IngestProgress, <-chan error)
}
