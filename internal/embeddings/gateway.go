package embeddings

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/0x5457/oas-index/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize = 8
	MaxBatchSize     = 256
)

// VectorCache is the part of the embedding cache the gateway needs.
type VectorCache interface {
	Get(text string, metadata map[string]string) ([]float32, bool)
	Put(ctx context.Context, text string, vector []float32, metadata map[string]string) error
}

type Stats struct {
	Cached       int64
	Computed     int64
	Dropped      int64
	ServiceCalls int64
}

// Gateway embeds chunks through the cache, calling the embedder only for
// misses.
type Gateway struct {
	embedder  Embedder
	cache     VectorCache
	batchSize int
	log       *zap.Logger

	cached       atomic.Int64
	computed     atomic.Int64
	dropped      atomic.Int64
	serviceCalls atomic.Int64
}

func NewGateway(embedder Embedder, cache VectorCache, batchSize int, log *zap.Logger) *Gateway {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{embedder: embedder, cache: cache, batchSize: batchSize, log: log.Named("embeddings")}
}

func (g *Gateway) BatchSize() int { return g.batchSize }

func (g *Gateway) Stats() Stats {
	return Stats{
		Cached:       g.cached.Load(),
		Computed:     g.computed.Load(),
		Dropped:      g.dropped.Load(),
		ServiceCalls: g.serviceCalls.Load(),
	}
}

func cacheKey(t models.ChunkType) map[string]string {
	return map[string]string{"type": string(t)}
}

// Embed returns one embedded chunk per valid input chunk, in input order.
// Chunks without id, type or text are dropped. Unknown types become text.
// A failed service batch fails the whole call and caches nothing from it.
func (g *Gateway) Embed(ctx context.Context, chunks []models.Chunk) ([]models.EmbeddedChunk, error) {
	out := make([]models.EmbeddedChunk, 0, len(chunks))
	var missing []int
	for _, ch := range chunks {
		if ch.ID == "" || ch.Type == "" || ch.Text == "" {
			g.dropped.Add(1)
			g.log.Warn("dropping invalid chunk",
				zap.String("id", ch.ID),
				zap.String("type", string(ch.Type)),
				zap.Bool("has_text", ch.Text != ""),
			)
			continue
		}
		if t := models.CoerceChunkType(string(ch.Type)); t != ch.Type {
			g.log.Warn("unknown chunk type, using text", zap.String("id", ch.ID), zap.String("type", string(ch.Type)))
			ch.Type = t
		}
		ec := models.EmbeddedChunk{Chunk: ch}
		if vec, ok := g.cache.Get(ch.Text, cacheKey(ch.Type)); ok {
			ec.Embedding = vec
			g.cached.Add(1)
		} else {
			missing = append(missing, len(out))
		}
		out = append(out, ec)
	}

	for start := 0; start < len(missing); start += g.batchSize {
		end := min(start+g.batchSize, len(missing))
		batch := missing[start:end]
		texts := make([]string, len(batch))
		for i, idx := range batch {
			texts[i] = out[idx].Text
		}

		g.serviceCalls.Add(1)
		vecs, err := g.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch of %d chunks: %w", len(texts), err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
		}

		for i, idx := range batch {
			out[idx].Embedding = vecs[i]
			g.computed.Add(1)
			if err := g.cache.Put(ctx, out[idx].Text, vecs[i], cacheKey(out[idx].Type)); err != nil {
				g.log.Warn("failed to cache embedding", zap.String("id", out[idx].ID), zap.Error(err))
			}
		}
	}

	g.log.Debug("embedded chunks",
		zap.Int("total", len(out)),
		zap.Int("computed", len(missing)),
		zap.Int("cached", len(out)-len(missing)),
	)
	return out, nil
}
