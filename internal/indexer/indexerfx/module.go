package indexerfx

import (
	"github.com/0x5457/oas-index/internal/chunker"
	"github.com/0x5457/oas-index/internal/config/configfx"
	"github.com/0x5457/oas-index/internal/embeddings"
	"github.com/0x5457/oas-index/internal/indexer"
	"github.com/0x5457/oas-index/internal/indexer/pipeline"
	"github.com/0x5457/oas-index/internal/vectorstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for the indexing pipeline
type Params struct {
	fx.In

	Config    *configfx.Config
	Extractor chunker.Extractor
	Gateway   *embeddings.Gateway
	Store     *vectorstore.Store
	Logger    *zap.Logger `optional:"true"`
}

// NewIndexer creates the document indexing pipeline
func NewIndexer(params Params) indexer.Indexer {
	return pipeline.New(
		params.Extractor,
		params.Gateway,
		params.Store,
		pipeline.Options{Collection: params.Config.Collection},
		params.Logger,
	)
}

// Module provides indexer components
var Module = fx.Module("indexer",
	fx.Provide(NewIndexer),
)
