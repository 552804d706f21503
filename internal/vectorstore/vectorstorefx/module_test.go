package vectorstorefx

import (
	"context"
	"testing"

	"github.com/0x5457/oas-index/internal/cache/cachefx"
	"github.com/0x5457/oas-index/internal/config/configfx"
	"github.com/0x5457/oas-index/internal/embeddings/embeddingsfx"
	"github.com/0x5457/oas-index/internal/storage/storagefx"
	"github.com/0x5457/oas-index/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestVectorStoreModule(t *testing.T) {
	var store *vectorstore.Store
	app := fx.New(
		configfx.Module,
		storagefx.Module,
		cachefx.Module,
		embeddingsfx.Module,
		Module,
		fx.Supply(
			fx.Annotate(configfx.BackendMemory, fx.ResultTags(`name:"backend"`)),
			fx.Annotate(t.TempDir(), fx.ResultTags(`name:"dataDir"`)),
		),
		fx.Populate(&store),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	require.NotNil(t, store)
	_, err := store.Upsert(ctx, "text", []string{"hello"}, nil, nil)
	require.NoError(t, err)
	size, err := store.Size(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}
