package commands

import (
	"context"

	"github.com/0x5457/oas-index/cmd/cmdsfx"
	"github.com/0x5457/oas-index/internal/app/appfx"
	"github.com/spf13/cobra"
)

// NewMCPServeCommand starts an MCP server that exposes the retrieval tools.
func NewMCPServeCommand(flags *appfx.Flags) *cobra.Command {
	var (
		spec      string
		transport string
		address   string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run MCP server",
		Long:  "Run MCP server, provide search_operations, list_collections and collection_size tools.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd.Context(), flags, func(ctx context.Context, r *cmdsfx.CommandRunner) error {
				return r.RunMCPServer(ctx, transport, address, spec)
			})
		},
	}

	cmd.Flags().StringVarP(&spec, "spec", "s", "", "Document or directory to index before serving")
	cmd.Flags().
		StringVarP(&transport, "transport", "t", "stdio", "transport (stdio, http, sse)")
	cmd.Flags().StringVarP(&address, "address", "a", "", "server address (http modes), e.g. :8080")

	return cmd
}
