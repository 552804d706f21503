package commands

import (
	"context"

	"github.com/0x5457/oas-index/cmd/cmdsfx"
	"github.com/0x5457/oas-index/internal/app/appfx"
	"github.com/spf13/cobra"
)

func NewCollectionsCommand(flags *appfx.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Inspect and maintain vector store collections",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List collections with their sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), flags, func(ctx context.Context, r *cmdsfx.CommandRunner) error {
				return r.RunCollectionsList(ctx)
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear [name]",
		Short: "Delete every record of a collection, keeping the collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), flags, func(ctx context.Context, r *cmdsfx.CommandRunner) error {
				return r.RunCollectionsClear(ctx, args[0])
			})
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset [name]",
		Short: "Drop a collection and recreate it empty",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), flags, func(ctx context.Context, r *cmdsfx.CommandRunner) error {
				return r.RunCollectionsReset(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(listCmd, clearCmd, resetCmd)
	return cmd
}
