package vectorstorefx

import (
	"github.com/0x5457/oas-index/internal/config/configfx"
	"github.com/0x5457/oas-index/internal/embeddings"
	"github.com/0x5457/oas-index/internal/storage"
	"github.com/0x5457/oas-index/internal/vectorstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for the vector store
type Params struct {
	fx.In

	Config   *configfx.Config
	Backend  storage.Backend
	Embedder embeddings.Embedder
	Logger   *zap.Logger `optional:"true"`
}

// NewStore creates the collection-aware vector store
func NewStore(params Params) *vectorstore.Store {
	return vectorstore.New(params.Backend, params.Embedder, vectorstore.Options{
		QueryCacheSize: params.Config.QueryCacheSize,
		QueryCacheTTL:  params.Config.QueryCacheTTL,
	}, params.Logger)
}

// Module provides the vector store
var Module = fx.Module("vectorstore",
	fx.Provide(NewStore),
)
