package commands

import (
	"context"

	"github.com/0x5457/oas-index/cmd/cmdsfx"
	"github.com/0x5457/oas-index/internal/app/appfx"
	"github.com/0x5457/oas-index/internal/search"
	"github.com/spf13/cobra"
)

func NewSearchCommand(flags *appfx.Flags) *cobra.Command {
	var opts cmdsfx.SearchOptions

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Semantic search over indexed API chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			opts.Collection = flags.Collection
			return runWithApp(cmd.Context(), flags, func(ctx context.Context, r *cmdsfx.CommandRunner) error {
				return r.RunSearch(ctx, query, opts)
			})
		},
	}

	cmd.Flags().IntVarP(&opts.TopK, "top-k", "k", search.DefaultTopK, "Top K results")
	cmd.Flags().StringVar(&opts.Type, "type", "", "Only return chunks of this type, e.g. operation")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print matches as JSON")

	return cmd
}
