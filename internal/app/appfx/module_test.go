package appfx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/0x5457/oas-index/cmd/cmdsfx"
	"github.com/0x5457/oas-index/internal/config/configfx"
	"github.com/0x5457/oas-index/internal/indexer"
	"github.com/0x5457/oas-index/internal/vectorstore"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestAppModule(t *testing.T) {
	// all modules load together
	tmpDir := t.TempDir()

	var (
		runner *cmdsfx.CommandRunner
		config *configfx.Config
		idx    indexer.Indexer
		store  *vectorstore.Store
		mcpSrv *server.MCPServer
	)
	app := NewApp(
		Flags{DataDir: tmpDir, LogLevel: "error"},
		fx.Populate(&runner, &config, &idx, &store, &mcpSrv),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.NotNil(t, runner)
	assert.NotNil(t, idx)
	assert.NotNil(t, store)
	assert.NotNil(t, mcpSrv)
	assert.Equal(t, filepath.Join(tmpDir, "index.db"), config.DBPath)
	assert.FileExists(t, config.DBPath)
}

func TestNewAppFlagsOverride(t *testing.T) {
	tmpDir := t.TempDir()

	var config *configfx.Config
	app := NewApp(Flags{
		DataDir:       tmpDir,
		Backend:       configfx.BackendMemory,
		EmbedProvider: configfx.ProviderAPI,
		EmbedURL:      "http://localhost:9000/embed",
		Collection:    "custom",
		LogLevel:      "error",
		Granular:      true,
	}, fx.Populate(&config))

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.Equal(t, configfx.BackendMemory, config.Backend)
	assert.Equal(t, configfx.ProviderAPI, config.EmbedProvider)
	assert.Equal(t, "http://localhost:9000/embed", config.EmbedURL)
	assert.Equal(t, "custom", config.Collection)
	assert.True(t, config.Granular)
}
