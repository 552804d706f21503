package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/0x5457/oas-index/cmd/oas-index/commands"
	"github.com/0x5457/oas-index/internal/app/appfx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	var flags appfx.Flags
	rootCmd := &cobra.Command{
		Use:          "oas-index",
		Short:        "Index OpenAPI/Swagger documents into a searchable vector store",
		SilenceUsage: true,
	}
	commands.RegisterGlobalFlags(rootCmd, &flags)
	rootCmd.AddCommand(
		commands.NewIndexCommand(&flags),
		commands.NewSearchCommand(&flags),
		commands.NewCollectionsCommand(&flags),
		commands.NewCacheCommand(&flags),
		commands.NewMCPServeCommand(&flags),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
