package embeddingsfx

import (
	"fmt"

	"github.com/0x5457/oas-index/internal/cache"
	"github.com/0x5457/oas-index/internal/config/configfx"
	"github.com/0x5457/oas-index/internal/embeddings"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for embeddings components
type Params struct {
	fx.In

	Config *configfx.Config
	Logger *zap.Logger `optional:"true"`
}

// NewEmbedder creates the embedder selected by the configured provider
func NewEmbedder(params Params) (embeddings.Embedder, error) {
	cfg := params.Config
	switch cfg.EmbedProvider {
	case configfx.ProviderAPI:
		return embeddings.NewApi(cfg.EmbedURL, cfg.EmbedTimeout), nil
	case configfx.ProviderOllama:
		return embeddings.NewOllama(cfg.EmbedURL, cfg.EmbedModel, cfg.EmbedTimeout), nil
	case configfx.ProviderLocal:
		return embeddings.NewLocal(cfg.VectorDimension), nil
	default:
		return nil, fmt.Errorf("unsupported embed provider %q", cfg.EmbedProvider)
	}
}

// GatewayParams represents dependencies for the embedding gateway
type GatewayParams struct {
	fx.In

	Config   *configfx.Config
	Embedder embeddings.Embedder
	Cache    *cache.Cache
	Logger   *zap.Logger `optional:"true"`
}

// NewGateway creates the cache-backed embedding gateway
func NewGateway(params GatewayParams) *embeddings.Gateway {
	return embeddings.NewGateway(params.Embedder, params.Cache, params.Config.EmbedBatchSize, params.Logger)
}

// Module provides embeddings components
var Module = fx.Module("embeddings",
	fx.Provide(
		NewEmbedder,
		NewGateway,
	),
)
