package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/0x5457/oas-index/internal/chunker"
	"github.com/0x5457/oas-index/internal/embeddings"
	"github.com/0x5457/oas-index/internal/errs"
	"github.com/0x5457/oas-index/internal/indexer"
	"github.com/0x5457/oas-index/internal/logging"
	"github.com/0x5457/oas-index/internal/models"
	"github.com/0x5457/oas-index/internal/openapi"
	"github.com/0x5457/oas-index/internal/vectorstore"
	"go.uber.org/zap"
)

type Options struct {
	// Collection overrides origin-based routing when set.
	Collection string
}

type Indexer struct {
	extractor chunker.Extractor
	gateway   *embeddings.Gateway
	store     *vectorstore.Store
	opt       Options
	log       *zap.Logger
}

var _ indexer.Indexer = (*Indexer)(nil)

func New(
	extractor chunker.Extractor,
	gateway *embeddings.Gateway,
	store *vectorstore.Store,
	opt Options,
	log *zap.Logger,
) *Indexer {
	log = logging.OrNop(log)
	return &Indexer{extractor: extractor, gateway: gateway, store: store, opt: opt, log: log.Named("pipeline")}
}

// IndexFile loads one document, extracts its chunks, embeds them through the
// cache and adds them to the vector store. Nothing is stored when any step
// before the store fails.
func (i *Indexer) IndexFile(ctx context.Context, path string) (indexer.Result, error) {
	return i.indexFile(ctx, path, func(models.IngestProgress) {})
}

func (i *Indexer) indexFile(
	ctx context.Context,
	path string,
	report func(models.IngestProgress),
) (indexer.Result, error) {
	res := indexer.Result{File: path, Collections: map[string]int{}}

	report(models.IngestProgress{Stage: models.IngestStageExtract, CurrentFile: path})
	doc, err := openapi.Load(path)
	if err != nil {
		return res, err
	}
	chunks, err := i.extractor.Extract(doc)
	if err != nil {
		return res, fmt.Errorf("extract %s: %w", path, err)
	}
	if len(chunks) == 0 {
		i.log.Info("no chunks extracted", zap.String("file", path))
		return res, nil
	}

	report(models.IngestProgress{Stage: models.IngestStageEmbed, CurrentFile: path, TotalChunks: len(chunks)})
	before := i.gateway.Stats()
	embedded, err := i.gateway.Embed(ctx, chunks)
	if err != nil {
		return res, fmt.Errorf("embed %s: %w", path, err)
	}
	after := i.gateway.Stats()
	res.Cached = int(after.Cached - before.Cached)
	res.Computed = int(after.Computed - before.Computed)
	res.Chunks = len(embedded)

	report(models.IngestProgress{
		Stage:          models.IngestStageStore,
		CurrentFile:    path,
		TotalChunks:    len(chunks),
		EmbeddedChunks: len(embedded),
	})
	for _, b := range i.route(embedded) {
		if _, err := i.store.Add(ctx, b.collection, b.documents, b.vectors, b.metadatas, b.ids); err != nil {
			return res, fmt.Errorf("store %s: %w", path, err)
		}
		res.Collections[b.collection] += len(b.ids)
	}

	i.log.Info("indexed document",
		zap.String("file", path),
		zap.Int("chunks", res.Chunks),
		zap.Int("cached", res.Cached),
		zap.Int("computed", res.Computed),
	)
	return res, nil
}

type batch struct {
	collection string
	documents  []string
	vectors    [][]float32
	metadatas  []models.Metadata
	ids        []string
}

// route groups chunks by target collection, keeping chunk order inside each
// group and ordering groups by first appearance.
func (i *Indexer) route(chunks []models.EmbeddedChunk) []*batch {
	var (
		out   []*batch
		index = map[string]*batch{}
	)
	for _, ch := range chunks {
		name := i.opt.Collection
		if name == "" {
			name = models.CollectionFor(models.Origin(ch.Metadata.Value(models.MetaOrigin)))
		}
		b, ok := index[name]
		if !ok {
			b = &batch{collection: name}
			index[name] = b
			out = append(out, b)
		}
		md := ch.Metadata.Clone()
		md.Set(models.MetaHash, ch.ID)
		b.documents = append(b.documents, ch.Text)
		b.vectors = append(b.vectors, ch.Embedding)
		b.metadatas = append(b.metadatas, md)
		b.ids = append(b.ids, ch.ID)
	}
	return out
}

// IndexDir indexes every specification document under root, one at a time.
// A root that is a file is indexed on its own.
func (i *Indexer) IndexDir(ctx context.Context, root string) ([]indexer.Result, error) {
	files, err := listSpecFiles(root)
	if err != nil {
		return nil, err
	}
	results := make([]indexer.Result, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := i.IndexFile(ctx, f)
		if i.skippable(f, err) {
			continue
		}
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// IndexDirProgress runs IndexDir in the background and streams progress.
// Both channels are closed when indexing ends; the error channel yields at
// most one error.
func (i *Indexer) IndexDirProgress(
	ctx context.Context,
	root string,
) (<-chan models.IngestProgress, <-chan error) {
	progCh := make(chan models.IngestProgress, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(progCh)
		defer close(errCh)

		var (
			total   int
			indexed int
			chunks  int
		)
		send := func(p models.IngestProgress) {
			p.TotalFiles = total
			p.IndexedFiles = indexed
			if p.TotalChunks == 0 {
				p.TotalChunks = chunks
			}
			if total > 0 {
				p.Percent = float32(indexed) / float32(total)
			}
			select {
			case progCh <- p:
			case <-ctx.Done():
			}
		}

		send(models.IngestProgress{Stage: models.IngestStageScan, CurrentFile: root})
		files, err := listSpecFiles(root)
		if err != nil {
			errCh <- err
			return
		}
		total = len(files)

		for _, f := range files {
			if err := ctx.Err(); err != nil {
				errCh <- err
				return
			}
			res, err := i.indexFile(ctx, f, send)
			if i.skippable(f, err) {
				indexed++
				continue
			}
			if err != nil {
				errCh <- err
				return
			}
			indexed++
			chunks += res.Chunks
		}
		send(models.IngestProgress{
			Stage:          models.IngestStageDone,
			TotalChunks:    chunks,
			EmbeddedChunks: chunks,
			Message:        fmt.Sprintf("indexed %d files", indexed),
		})
	}()
	return progCh, errCh
}

// skippable reports whether a directory walk should move past err. JSON and
// YAML files that are not specification documents are skipped.
func (i *Indexer) skippable(path string, err error) bool {
	if err == nil || !errors.Is(err, errs.ErrUnsupportedInputFormat) {
		return false
	}
	i.log.Warn("skipping file", zap.String("file", path), zap.Error(err))
	return true
}

func listSpecFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}
	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name == ".git" || name == "node_modules" || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if openapi.IsSpecFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, walkErr
}
