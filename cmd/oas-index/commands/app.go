package commands

import (
	"context"
	"fmt"

	"github.com/0x5457/oas-index/cmd/cmdsfx"
	"github.com/0x5457/oas-index/internal/app/appfx"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// RegisterGlobalFlags binds the configuration flags shared by every command
func RegisterGlobalFlags(cmd *cobra.Command, flags *appfx.Flags) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.ConfigPath, "config", "c", "", "YAML config file (env OAS_INDEX_CONFIG)")
	pf.StringVar(&flags.DataDir, "data-dir", "", "Data directory for the database and cache")
	pf.StringVar(&flags.DBPath, "db", "", "Vector database path")
	pf.StringVar(&flags.Backend, "backend", "", "Vector store backend (memory, sqlite, sqlvec)")
	pf.StringVar(&flags.CacheDir, "cache-dir", "", "Embedding cache directory")
	pf.StringVar(&flags.EmbedProvider, "embed-provider", "", "Embedding provider (api, ollama, local)")
	pf.StringVar(&flags.EmbedURL, "embed-url", "", "Embedding service URL")
	pf.StringVar(&flags.EmbedModel, "embed-model", "", "Embedding model (ollama)")
	pf.StringVar(&flags.Collection, "collection", "", "Collection to write to and search in")
	pf.StringVar(&flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// runWithApp starts the application, hands its command runner to fn and
// stops the application afterwards.
func runWithApp(
	ctx context.Context,
	flags *appfx.Flags,
	fn func(ctx context.Context, runner *cmdsfx.CommandRunner) error,
) error {
	var runner *cmdsfx.CommandRunner
	app := appfx.NewApp(*flags, fx.Populate(&runner))

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	runErr := fn(ctx, runner)

	stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}
	return runErr
}
