package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initialize(ctx context.Context, t *testing.T, cli *client.Client) {
	t.Helper()
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "test", Version: "0.0.1"}
	initReq.Params.Capabilities = mcp.ClientCapabilities{}
	_, err := cli.Initialize(ctx, initReq)
	require.NoError(t, err)
}

func assertTools(ctx context.Context, t *testing.T, cli *client.Client) {
	t.Helper()
	res, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"search_operations", "list_collections", "collection_size"}, names)
}

// TestStreamableHTTPTransport verifies initialize and list-tools via streamable-http
func TestStreamableHTTPTransport(t *testing.T) {
	h := server.NewStreamableHTTPServer(New(nil, nil))
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	cliTr, err := transport.NewStreamableHTTP(ts.URL)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	require.NoError(t, cliTr.Start(ctx))
	cli := client.NewClient(cliTr)
	require.NoError(t, cli.Start(ctx))
	defer func() { _ = cli.Close() }()

	initialize(ctx, t, cli)
	assertTools(ctx, t, cli)
}

// TestSSETransport verifies initialize and list-tools via SSE
func TestSSETransport(t *testing.T) {
	sse := server.NewSSEServer(New(nil, nil),
		server.WithStaticBasePath("/mcp"),
	)
	mux := http.NewServeMux()
	mux.Handle("/mcp/sse", sse.SSEHandler())
	mux.Handle("/mcp/message", sse.MessageHandler())
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	cliTr, err := transport.NewSSE(ts.URL + "/mcp/sse")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	cli := client.NewClient(cliTr)
	require.NoError(t, cli.Start(ctx))
	defer func() { _ = cli.Close() }()

	initialize(ctx, t, cli)
	assertTools(ctx, t, cli)
}

// TestInProcessCallTool lists tools and runs a search through the in-process transport
func TestInProcessCallTool(t *testing.T) {
	tr := transport.NewInProcessTransport(New(seededService(t), nil))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	require.NoError(t, tr.Start(ctx))
	cli := client.NewClient(tr)
	require.NoError(t, cli.Start(ctx))
	defer func() { _ = cli.Close() }()

	initialize(ctx, t, cli)
	assertTools(ctx, t, cli)

	res, err := cli.CallTool(ctx, mcp.CallToolRequest{Params: mcp.CallToolParams{
		Name:      "collection_size",
		Arguments: map[string]any{"collection": "swagger_embeddings"},
	}})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.NotNil(t, res.StructuredContent)
}
