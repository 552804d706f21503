package commands

import (
	"context"
	"fmt"

	"github.com/0x5457/oas-index/cmd/cmdsfx"
	"github.com/0x5457/oas-index/internal/app/appfx"
	"github.com/spf13/cobra"
)

func NewIndexCommand(flags *appfx.Flags) *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index an OpenAPI/Swagger document or a directory of documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			if spec == "" {
				return fmt.Errorf("--spec is required")
			}
			return runWithApp(cmd.Context(), flags, func(ctx context.Context, r *cmdsfx.CommandRunner) error {
				return r.RunIndex(ctx, spec)
			})
		},
	}

	cmd.Flags().StringVarP(&spec, "spec", "s", "", "Path to a .json/.yaml/.yml document or a directory")
	cmd.Flags().BoolVar(&flags.Granular, "granular", false, "Also emit parameter, schema and test-case chunks")

	return cmd
}
