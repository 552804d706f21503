package cachefx

import (
	"github.com/0x5457/oas-index/internal/cache"
	"github.com/0x5457/oas-index/internal/config/configfx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for the embedding cache
type Params struct {
	fx.In

	Config *configfx.Config
	Logger *zap.Logger `optional:"true"`
}

// NewCache opens the on-disk embedding cache
func NewCache(params Params) (*cache.Cache, error) {
	return cache.New(cache.Options{
		Dir:         params.Config.CacheDir,
		LockTimeout: params.Config.LockTimeout,
	}, params.Logger)
}

// Module provides the embedding cache
var Module = fx.Module("cache",
	fx.Provide(NewCache),
)
