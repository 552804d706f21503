package cmdsfx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/0x5457/oas-index/internal/cache"
	"github.com/0x5457/oas-index/internal/config/configfx"
	"github.com/0x5457/oas-index/internal/indexer"
	"github.com/0x5457/oas-index/internal/models"
	"github.com/0x5457/oas-index/internal/search"
	"github.com/0x5457/oas-index/internal/vectorstore"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const DefaultAddress = ":8080"

// CommandRunner provides methods to run different application commands
type CommandRunner struct {
	config        *configfx.Config
	searchService *search.Service
	indexer       indexer.Indexer
	store         *vectorstore.Store
	cache         *cache.Cache
	mcpServer     *server.MCPServer
	log           *zap.Logger
	out           io.Writer
}

// Params represents dependencies for command runner
type Params struct {
	fx.In

	Config        *configfx.Config
	SearchService *search.Service    `optional:"true"`
	Indexer       indexer.Indexer    `optional:"true"`
	Store         *vectorstore.Store `optional:"true"`
	Cache         *cache.Cache       `optional:"true"`
	MCPServer     *server.MCPServer  `optional:"true"`
	Logger        *zap.Logger        `optional:"true"`
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(params Params) *CommandRunner {
	log := params.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &CommandRunner{
		config:        params.Config,
		searchService: params.SearchService,
		indexer:       params.Indexer,
		store:         params.Store,
		cache:         params.Cache,
		mcpServer:     params.MCPServer,
		log:           log,
		out:           os.Stdout,
	}
}

// SetOutput redirects command output, stdout by default.
func (r *CommandRunner) SetOutput(w io.Writer) { r.out = w }

// RunIndex indexes a specification file or every specification under a directory
func (r *CommandRunner) RunIndex(ctx context.Context, specPath string) error {
	if r.indexer == nil {
		return fmt.Errorf("indexer not available")
	}

	progCh, errCh := r.indexer.IndexDirProgress(ctx, specPath)
	var last models.IngestProgress
	for progCh != nil || errCh != nil {
		select {
		case p, ok := <-progCh:
			if !ok {
				progCh = nil
				continue
			}
			last = p
			_, _ = fmt.Fprintf(r.out, "\r[%3.0f%%] stage=%-7s files:%d/%d chunks:%d/%d %-40s",
				p.Percent*100,
				p.Stage,
				p.IndexedFiles, p.TotalFiles,
				p.EmbeddedChunks, p.TotalChunks,
				p.CurrentFile,
			)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				_, _ = fmt.Fprintln(r.out)
				return err
			}
		case <-ctx.Done():
			_, _ = fmt.Fprintln(r.out)
			return ctx.Err()
		}
	}
	_, _ = fmt.Fprintln(r.out)
	_, _ = fmt.Fprintf(r.out, "index completed: %d files, %d chunks\n", last.IndexedFiles, last.TotalChunks)
	return nil
}

// SearchOptions holds the search command's flags
type SearchOptions struct {
	TopK       int
	Collection string
	Type       string
	JSON       bool
}

// RunSearch executes semantic search
func (r *CommandRunner) RunSearch(ctx context.Context, query string, opts SearchOptions) error {
	if r.searchService == nil {
		return fmt.Errorf("search service not available")
	}

	hits, err := r.searchService.Search(ctx, search.Request{
		Query:      query,
		Collection: opts.Collection,
		TopK:       opts.TopK,
		Type:       models.ChunkType(opts.Type),
	})
	if err != nil {
		return err
	}
	if opts.JSON {
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	for i, hit := range hits {
		_, _ = fmt.Fprintf(r.out, "Result %d (distance: %.4f):\n", i+1, hit.Distance)
		_, _ = fmt.Fprintf(r.out, "Type: %s\n", hit.Metadata.Value(models.MetaType))
		if file := hit.Metadata.Value(models.MetaFilename); file != "" {
			_, _ = fmt.Fprintf(r.out, "File: %s\n", file)
		}
		_, _ = fmt.Fprintf(r.out, "%s\n\n", hit.Document)
	}
	return nil
}

// RunCollectionsList prints every collection with its size
func (r *CommandRunner) RunCollectionsList(ctx context.Context) error {
	if r.searchService == nil {
		return fmt.Errorf("search service not available")
	}
	infos, err := r.searchService.Collections(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		_, _ = fmt.Fprintln(r.out, "no collections")
		return nil
	}
	for _, info := range infos {
		_, _ = fmt.Fprintf(r.out, "%-24s %d\n", info.Name, info.Size)
	}
	return nil
}

// RunCollectionsClear deletes every record of a collection
func (r *CommandRunner) RunCollectionsClear(ctx context.Context, name string) error {
	if r.store == nil {
		return fmt.Errorf("vector store not available")
	}
	if err := r.store.Clear(ctx, name); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(r.out, "cleared %s\n", name)
	return nil
}

// RunCollectionsReset drops and recreates a collection
func (r *CommandRunner) RunCollectionsReset(ctx context.Context, name string) error {
	if r.store == nil {
		return fmt.Errorf("vector store not available")
	}
	c, err := r.store.Reset(ctx, name)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(r.out, "reset %s (id %s)\n", c.Name, c.ID)
	return nil
}

// RunCacheStats prints the embedding cache location and entry count
func (r *CommandRunner) RunCacheStats() error {
	if r.cache == nil {
		return fmt.Errorf("embedding cache not available")
	}
	_, _ = fmt.Fprintf(r.out, "path:    %s\nentries: %d\n", r.cache.Path(), r.cache.Size())
	return nil
}

// RunCacheClear empties the embedding cache
func (r *CommandRunner) RunCacheClear(ctx context.Context) error {
	if r.cache == nil {
		return fmt.Errorf("embedding cache not available")
	}
	if err := r.cache.Clear(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(r.out, "cache cleared")
	return nil
}

// RunMCPServer executes the MCP server, indexing specPath first when given
func (r *CommandRunner) RunMCPServer(ctx context.Context, transport, address, specPath string) error {
	if r.mcpServer == nil {
		return fmt.Errorf("MCP server not available")
	}
	if specPath != "" {
		if r.indexer == nil {
			return fmt.Errorf("indexer not available")
		}
		results, err := r.indexer.IndexDir(ctx, specPath)
		if err != nil {
			return fmt.Errorf("pre-index %s: %w", specPath, err)
		}
		r.log.Info("pre-index completed", zap.String("spec", specPath), zap.Int("files", len(results)))
	}

	addr := address
	if addr == "" {
		addr = DefaultAddress
	}
	switch strings.ToLower(transport) {
	case "stdio":
		return server.ServeStdio(r.mcpServer)
	case "http":
		httpSrv := server.NewStreamableHTTPServer(r.mcpServer)
		return httpSrv.Start(addr)
	case "sse":
		// SSE server exposes two endpoints under base path "/mcp"
		sseSrv := server.NewSSEServer(r.mcpServer,
			server.WithBaseURL(""),
			server.WithStaticBasePath("/mcp"),
		)
		return sseSrv.Start(addr)
	default:
		return fmt.Errorf(
			"unsupported transport: %s (supported: stdio, http, sse)",
			transport,
		)
	}
}

// Module provides command runner
var Module = fx.Module("commands",
	fx.Provide(NewCommandRunner),
)
