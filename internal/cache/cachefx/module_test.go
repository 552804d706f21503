package cachefx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/0x5457/oas-index/internal/cache"
	"github.com/0x5457/oas-index/internal/config/configfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestCacheModule(t *testing.T) {
	dir := t.TempDir()
	var c *cache.Cache
	app := fx.New(
		configfx.Module,
		Module,
		fx.Supply(fx.Annotate(dir, fx.ResultTags(`name:"cacheDir"`))),
		fx.Populate(&c),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	require.NotNil(t, c)
	assert.Equal(t, filepath.Join(dir, cache.IndexFile), c.Path())
}
