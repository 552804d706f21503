package searchfx

import (
	"github.com/0x5457/oas-index/internal/config/configfx"
	"github.com/0x5457/oas-index/internal/search"
	"github.com/0x5457/oas-index/internal/vectorstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for search service
type Params struct {
	fx.In

	Config *configfx.Config
	Store  *vectorstore.Store
	Logger *zap.Logger `optional:"true"`
}

// NewSearchService creates a new search service instance
func NewSearchService(params Params) *search.Service {
	return &search.Service{
		Store:             params.Store,
		DefaultCollection: params.Config.Collection,
		Logger:            params.Logger,
	}
}

// Module provides search components
var Module = fx.Module("search",
	fx.Provide(NewSearchService),
)
