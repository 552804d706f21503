package chunkerfx

import (
	"github.com/0x5457/oas-index/internal/chunker"
	"github.com/0x5457/oas-index/internal/chunker/oaschunker"
	"github.com/0x5457/oas-index/internal/config/configfx"
	"go.uber.org/fx"
)

// NewExtractor creates the OpenAPI chunk extractor
func NewExtractor(config *configfx.Config) chunker.Extractor {
	return oaschunker.New(oaschunker.Options{Granular: config.Granular})
}

// Module provides chunk extraction
var Module = fx.Module("chunker",
	fx.Provide(NewExtractor),
)
