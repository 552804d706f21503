package mcp

import (
	"context"

	"github.com/0x5457/oas-index/internal/logging"
	"github.com/0x5457/oas-index/internal/models"
	"github.com/0x5457/oas-index/internal/search"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	ServerName    = "oas-index/mcp"
	ServerVersion = "0.1.0"
)

// Server exposes the retrieval service as MCP tools.
type Server struct {
	search *search.Service
	log    *zap.Logger
}

// New returns an MCP server with the retrieval tools registered. Indexing is
// not exposed; a nil service makes every tool report an error.
func New(svc *search.Service, log *zap.Logger) *server.MCPServer {
	log = logging.OrNop(log)
	srv := &Server{search: svc, log: log.Named("mcp")}

	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
	)
	s.AddTool(newSearchOperationsTool(), srv.handleSearchOperations)
	s.AddTool(newListCollectionsTool(), srv.handleListCollections)
	s.AddTool(newCollectionSizeTool(), srv.handleCollectionSize)
	return s
}

// Tool definitions
func newSearchOperationsTool() mcp.Tool {
	return mcp.NewTool(
		"search_operations",
		mcp.WithDescription("Semantic search over indexed API operations by natural language query"),
		mcp.WithString("query", mcp.Description("Natural language query"), mcp.Required()),
		mcp.WithNumber("top_k", mcp.Description("Top K results"), mcp.DefaultNumber(search.DefaultTopK)),
		mcp.WithString("collection", mcp.Description("Collection to search, e.g. swagger_embeddings")),
		mcp.WithString("type", mcp.Description("Only return chunks of this type, e.g. operation")),
	)
}

func newListCollectionsTool() mcp.Tool {
	return mcp.NewTool(
		"list_collections",
		mcp.WithDescription("List vector store collections with their sizes"),
	)
}

func newCollectionSizeTool() mcp.Tool {
	return mcp.NewTool(
		"collection_size",
		mcp.WithDescription("Number of records stored in a collection"),
		mcp.WithString("collection", mcp.Description("Collection name"), mcp.Required()),
	)
}

type searchResult struct {
	Query      string         `json:"query"`
	Collection string         `json:"collection,omitempty"`
	Matches    []models.Match `json:"matches"`
}

type collectionsResult struct {
	Collections []search.CollectionInfo `json:"collections"`
}

// Handlers
func (srv *Server) handleSearchOperations(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if srv.search == nil {
		return mcp.NewToolResultError("search service not initialized"), nil
	}
	collection := req.GetString("collection", "")
	matches, err := srv.search.Search(ctx, search.Request{
		Query:      query,
		Collection: collection,
		TopK:       req.GetInt("top_k", search.DefaultTopK),
		Type:       models.ChunkType(req.GetString("type", "")),
	})
	if err != nil {
		srv.log.Warn("search failed", zap.String("query", query), zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(searchResult{
		Query:      query,
		Collection: collection,
		Matches:    matches,
	}), nil
}

func (srv *Server) handleListCollections(
	ctx context.Context,
	_ mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	if srv.search == nil {
		return mcp.NewToolResultError("search service not initialized"), nil
	}
	infos, err := srv.search.Collections(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(collectionsResult{Collections: infos}), nil
}

func (srv *Server) handleCollectionSize(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if srv.search == nil {
		return mcp.NewToolResultError("search service not initialized"), nil
	}
	size, err := srv.search.Store.Size(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(search.CollectionInfo{Name: name, Size: size}), nil
}
