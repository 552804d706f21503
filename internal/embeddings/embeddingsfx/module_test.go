package embeddingsfx

import (
	"context"
	"testing"

	"github.com/0x5457/oas-index/internal/cache/cachefx"
	"github.com/0x5457/oas-index/internal/config/configfx"
	"github.com/0x5457/oas-index/internal/embeddings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestEmbeddingsModule(t *testing.T) {
	var (
		embedder embeddings.Embedder
		gateway  *embeddings.Gateway
	)
	app := fx.New(
		configfx.Module,
		cachefx.Module,
		Module,
		fx.Supply(fx.Annotate(t.TempDir(), fx.ResultTags(`name:"cacheDir"`))),
		fx.Populate(&embedder, &gateway),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.Equal(t, "local-fixed", embedder.ModelName())
	assert.Equal(t, configfx.DefaultBatchSize, gateway.BatchSize())
}

func TestNewEmbedderProviders(t *testing.T) {
	for provider, model := range map[string]string{
		configfx.ProviderAPI:    "api",
		configfx.ProviderOllama: "nomic-embed-text",
		configfx.ProviderLocal:  "local-fixed",
	} {
		cfg, err := configfx.NewConfig(configfx.Params{EmbedProvider: provider})
		require.NoError(t, err)
		emb, err := NewEmbedder(Params{Config: cfg})
		require.NoError(t, err)
		assert.Equal(t, model, emb.ModelName(), provider)
	}
}
