package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/oas-index/internal/cache"
	"github.com/0x5457/oas-index/internal/chunker/oaschunker"
	"github.com/0x5457/oas-index/internal/embeddings"
	"github.com/0x5457/oas-index/internal/errs"
	"github.com/0x5457/oas-index/internal/indexer/pipeline"
	"github.com/0x5457/oas-index/internal/models"
	"github.com/0x5457/oas-index/internal/storage"
	"github.com/0x5457/oas-index/internal/storage/memory"
	"github.com/0x5457/oas-index/internal/storage/sqlite"
	"github.com/0x5457/oas-index/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const usersSpec = `openapi: 3.0.0
paths:
  /users/{id}:
    get:
      operationId: getUser
      summary: Get a user
      parameters:
        - name: id
          in: path
          required: true
          schema: {type: string}
      responses:
        '200':
          description: OK
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/User'
        '404':
          description: Not found
components:
  schemas:
    User:
      type: object
      properties:
        id: {type: string}
`

type countingEmbedder struct {
	inner embeddings.Embedder
	calls int
	fail  error
}

func (c *countingEmbedder) ModelName() string { return "counting" }

func (c *countingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	if c.fail != nil {
		return nil, c.fail
	}
	return c.inner.EmbedTexts(ctx, texts)
}

func (c *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.inner.EmbedQuery(ctx, text)
}

type env struct {
	indexer  *pipeline.Indexer
	store    *vectorstore.Store
	embedder *countingEmbedder
}

func newEnv(t *testing.T, cacheDir string, backend storage.Backend, opts pipeline.Options, granular bool) env {
	t.Helper()
	log := zaptest.NewLogger(t)
	c, err := cache.New(cache.Options{Dir: cacheDir}, log)
	require.NoError(t, err)
	emb := &countingEmbedder{inner: embeddings.NewLocal(16)}
	gw := embeddings.NewGateway(emb, c, 4, log)
	store := vectorstore.New(backend, emb, vectorstore.Options{}, log)
	idx := pipeline.New(oaschunker.New(oaschunker.Options{Granular: granular}), gw, store, opts, log)
	return env{indexer: idx, store: store, embedder: emb}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func Test_IndexFile_SecondRunHitsCache(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	spec := filepath.Join(tmp, "users.yaml")
	writeFile(t, spec, usersSpec)
	cacheDir := filepath.Join(tmp, "cache")

	db, err := sqlite.New(filepath.Join(tmp, "index.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	first := newEnv(t, cacheDir, db, pipeline.Options{}, false)
	res, err := first.indexer.IndexFile(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, 1, res.Computed)
	assert.Equal(t, 0, res.Cached)
	assert.Equal(t, map[string]int{models.CollectionSwagger: 1}, res.Collections)
	assert.Equal(t, 1, first.embedder.calls)

	// a fresh process sharing the cache directory and database
	second := newEnv(t, cacheDir, db, pipeline.Options{}, false)
	res, err = second.indexer.IndexFile(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cached)
	assert.Equal(t, 0, res.Computed)
	assert.Zero(t, second.embedder.calls)

	size, err := second.store.Size(ctx, models.CollectionSwagger)
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	out, err := second.store.Query(ctx, models.CollectionSwagger, []string{"get user by id"}, 5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0].Matches, 1)
	m := out[0].Matches[0]
	assert.Contains(t, m.Document, "GET /users/{id}")
	assert.Equal(t, m.ID, m.Metadata.Value(models.MetaHash))
	assert.Equal(t, "operation", m.Metadata.Value(models.MetaType))
	assert.Equal(t, "swagger", m.Metadata.Value(models.MetaOrigin))
	assert.Equal(t, "users.yaml", m.Metadata.Value(models.MetaFilename))
	assert.Equal(t, "getUser", m.Metadata.Value(models.MetaOperationID))
}

func Test_IndexFile_Granular(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	spec := filepath.Join(tmp, "users.yaml")
	writeFile(t, spec, usersSpec)

	e := newEnv(t, filepath.Join(tmp, "cache"), memory.New(), pipeline.Options{}, true)
	res, err := e.indexer.IndexFile(ctx, spec)
	require.NoError(t, err)
	assert.Greater(t, res.Chunks, 1)

	size, err := e.store.Size(ctx, models.CollectionSwagger)
	require.NoError(t, err)
	assert.Equal(t, res.Chunks, size)
}

func Test_IndexFile_CollectionOverride(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	spec := filepath.Join(tmp, "users.json")
	writeFile(t, spec, `{"openapi":"3.0.0","paths":{"/ping":{"get":{"responses":{"200":{"description":"pong"}}}}}}`)

	e := newEnv(t, filepath.Join(tmp, "cache"), memory.New(), pipeline.Options{Collection: "custom"}, false)
	res, err := e.indexer.IndexFile(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"custom": 1}, res.Collections)

	names, err := e.store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"custom"}, names)
}

func Test_IndexFile_EmbeddingFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	spec := filepath.Join(tmp, "users.yaml")
	writeFile(t, spec, usersSpec)

	e := newEnv(t, filepath.Join(tmp, "cache"), memory.New(), pipeline.Options{}, false)
	e.embedder.fail = errors.New("service unavailable")
	_, err := e.indexer.IndexFile(ctx, spec)
	require.Error(t, err)
	assert.ErrorContains(t, err, "service unavailable")

	names, err := e.store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func Test_IndexFile_Errors(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	e := newEnv(t, filepath.Join(tmp, "cache"), memory.New(), pipeline.Options{}, false)

	txt := filepath.Join(tmp, "notes.txt")
	writeFile(t, txt, "hello")
	_, err := e.indexer.IndexFile(ctx, txt)
	assert.ErrorIs(t, err, errs.ErrUnsupportedInputFormat)

	broken := filepath.Join(tmp, "broken.yaml")
	writeFile(t, broken, `openapi: 3.0.0
paths:
  /a:
    get:
      responses:
        '200':
          $ref: '#/components/responses/Missing'
`)
	_, err = e.indexer.IndexFile(ctx, broken)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrReferenceResolution)
	assert.Zero(t, e.embedder.calls)
}

func Test_IndexDir(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	root := filepath.Join(tmp, "specs")
	writeFile(t, filepath.Join(root, "users.yaml"), usersSpec)
	writeFile(t, filepath.Join(root, "nested", "ping.json"),
		`{"openapi":"3.0.0","paths":{"/ping":{"get":{"responses":{"200":{"description":"pong"}}}}}}`)
	writeFile(t, filepath.Join(root, "package.json"), `{"name":"not-a-spec"}`)
	writeFile(t, filepath.Join(root, "node_modules", "dep", "api.yaml"), usersSpec)
	writeFile(t, filepath.Join(root, "README.md"), "docs")

	e := newEnv(t, filepath.Join(tmp, "cache"), memory.New(), pipeline.Options{}, false)
	results, err := e.indexer.IndexDir(ctx, root)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(root, "nested", "ping.json"), results[0].File)
	assert.Equal(t, filepath.Join(root, "users.yaml"), results[1].File)

	size, err := e.store.Size(ctx, models.CollectionSwagger)
	require.NoError(t, err)
	assert.Equal(t, 2, size)
}

func Test_IndexDirProgress(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	root := filepath.Join(tmp, "specs")
	writeFile(t, filepath.Join(root, "users.yaml"), usersSpec)

	e := newEnv(t, filepath.Join(tmp, "cache"), memory.New(), pipeline.Options{}, false)
	progCh, errCh := e.indexer.IndexDirProgress(ctx, root)

	var stages []models.IngestStage
	var last models.IngestProgress
	for p := range progCh {
		stages = append(stages, p.Stage)
		last = p
	}
	for err := range errCh {
		require.NoError(t, err)
	}

	require.NotEmpty(t, stages)
	assert.Equal(t, models.IngestStageScan, stages[0])
	assert.Contains(t, stages, models.IngestStageEmbed)
	assert.Equal(t, models.IngestStageDone, last.Stage)
	assert.Equal(t, 1, last.TotalFiles)
	assert.Equal(t, 1, last.IndexedFiles)
	assert.InDelta(t, 1.0, last.Percent, 1e-6)
}

func Test_IndexDirProgress_MissingRoot(t *testing.T) {
	e := newEnv(t, filepath.Join(t.TempDir(), "cache"), memory.New(), pipeline.Options{}, false)
	progCh, errCh := e.indexer.IndexDirProgress(context.Background(), filepath.Join(t.TempDir(), "absent"))
	for range progCh {
	}
	err := <-errCh
	assert.Error(t, err)
}
