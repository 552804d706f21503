package appfx

import (
	"github.com/0x5457/oas-index/cmd/cmdsfx"
	"github.com/0x5457/oas-index/internal/cache/cachefx"
	"github.com/0x5457/oas-index/internal/chunker/chunkerfx"
	"github.com/0x5457/oas-index/internal/config/configfx"
	"github.com/0x5457/oas-index/internal/embeddings/embeddingsfx"
	"github.com/0x5457/oas-index/internal/indexer/indexerfx"
	"github.com/0x5457/oas-index/internal/logging/loggingfx"
	"github.com/0x5457/oas-index/internal/mcp/mcpfx"
	"github.com/0x5457/oas-index/internal/search/searchfx"
	"github.com/0x5457/oas-index/internal/storage/storagefx"
	"github.com/0x5457/oas-index/internal/vectorstore/vectorstorefx"
	"go.uber.org/fx"
)

// Module combines all application modules
var Module = fx.Options(
	configfx.Module,
	loggingfx.Module,
	chunkerfx.Module,
	cachefx.Module,
	embeddingsfx.Module,
	storagefx.Module,
	vectorstorefx.Module,
	searchfx.Module,
	indexerfx.Module,
	mcpfx.Module,
	cmdsfx.Module,
)

// Flags carries command line values; empty values leave the configuration
// to the file, environment and defaults.
type Flags struct {
	ConfigPath    string
	DataDir       string
	DBPath        string
	Backend       string
	CacheDir      string
	EmbedProvider string
	EmbedURL      string
	EmbedModel    string
	Collection    string
	LogLevel      string
	Granular      bool
}

// Supply exposes the flag values under the names configfx expects
func (f Flags) Supply() fx.Option {
	return fx.Supply(
		fx.Annotate(f.ConfigPath, fx.ResultTags(`name:"configPath"`)),
		fx.Annotate(f.DataDir, fx.ResultTags(`name:"dataDir"`)),
		fx.Annotate(f.DBPath, fx.ResultTags(`name:"dbPath"`)),
		fx.Annotate(f.Backend, fx.ResultTags(`name:"backend"`)),
		fx.Annotate(f.CacheDir, fx.ResultTags(`name:"cacheDir"`)),
		fx.Annotate(f.EmbedProvider, fx.ResultTags(`name:"embedProvider"`)),
		fx.Annotate(f.EmbedURL, fx.ResultTags(`name:"embedURL"`)),
		fx.Annotate(f.EmbedModel, fx.ResultTags(`name:"embedModel"`)),
		fx.Annotate(f.Collection, fx.ResultTags(`name:"collection"`)),
		fx.Annotate(f.LogLevel, fx.ResultTags(`name:"logLevel"`)),
		fx.Annotate(f.Granular, fx.ResultTags(`name:"granular"`)),
	)
}

// NewApp creates an Fx app from command line values. fx's own events are
// logged through the application logger.
func NewApp(flags Flags, opts ...fx.Option) *fx.App {
	return fx.New(
		Module,
		flags.Supply(),
		fx.WithLogger(loggingfx.EventLogger),
		fx.Options(opts...),
	)
}
