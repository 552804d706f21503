package commands

import (
	"context"

	"github.com/0x5457/oas-index/cmd/cmdsfx"
	"github.com/0x5457/oas-index/internal/app/appfx"
	"github.com/spf13/cobra"
)

func NewCacheCommand(flags *appfx.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the embedding cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache location and entry count",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), flags, func(_ context.Context, r *cmdsfx.CommandRunner) error {
				return r.RunCacheStats()
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached embedding",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), flags, func(ctx context.Context, r *cmdsfx.CommandRunner) error {
				return r.RunCacheClear(ctx)
			})
		},
	}

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
