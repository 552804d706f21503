// Package storagetest holds the behavior every storage.Backend must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/0x5457/oas-index/internal/errs"
	"github.com/0x5457/oas-index/internal/models"
	"github.com/0x5457/oas-index/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id, doc string, emb ...float32) models.Record {
	return models.Record{
		ID:        id,
		Document:  doc,
		Embedding: emb,
		Metadata:  models.NewMetadata(models.MetaType, "operation", models.MetaHash, id),
	}
}

// Run exercises a fresh backend returned by open.
func Run(t *testing.T, open func(t *testing.T) storage.Backend) {
	t.Run("create is idempotent", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		first, err := b.CreateCollection(ctx, "swagger_embeddings")
		require.NoError(t, err)
		again, err := b.CreateCollection(ctx, "swagger_embeddings")
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, "swagger_embeddings", again.Name)
		assert.False(t, again.CreatedAt.IsZero())
	})

	t.Run("add keeps existing ids", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		_, err := b.CreateCollection(ctx, "c")
		require.NoError(t, err)
		require.NoError(t, b.Add(ctx, "c", []models.Record{record("a", "first", 1, 0)}))
		require.NoError(t, b.Add(ctx, "c", []models.Record{record("a", "second", 0, 1), record("b", "other", 0, 1)}))

		n, err := b.Count(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := b.Query(ctx, "c", []float32{1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a", got[0].ID)
		assert.Equal(t, "first", got[0].Document)
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		_, err := b.CreateCollection(ctx, "c")
		require.NoError(t, err)
		require.NoError(t, b.Upsert(ctx, "c", []models.Record{record("a", "first", 1, 0)}))
		require.NoError(t, b.Upsert(ctx, "c", []models.Record{record("a", "second", 0, 1)}))

		got, err := b.Query(ctx, "c", []float32{0, 1}, 5)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "second", got[0].Document)
		assert.InDelta(t, 0, got[0].Distance, 1e-5)
		assert.Equal(t, []string{models.MetaType, models.MetaHash}, got[0].Metadata.Keys())
	})

	t.Run("query orders by cosine distance", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		_, err := b.CreateCollection(ctx, "c")
		require.NoError(t, err)
		require.NoError(t, b.Add(ctx, "c", []models.Record{
			record("far", "far", -1, 0),
			record("near", "near", 1, 0.1),
			record("mid", "mid", 0, 1),
		}))

		got, err := b.Query(ctx, "c", []float32{1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "near", got[0].ID)
		assert.Equal(t, "mid", got[1].ID)
		assert.InDelta(t, 1.0, got[1].Distance, 1e-5)
		assert.LessOrEqual(t, got[0].Distance, got[1].Distance)
	})

	t.Run("query rejects a different dimension", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		_, err := b.CreateCollection(ctx, "c")
		require.NoError(t, err)
		require.NoError(t, b.Add(ctx, "c", []models.Record{record("a", "a", 1, 0, 0, 0)}))

		_, err = b.Query(ctx, "c", []float32{1, 0}, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrContractMismatch)
		var mismatch *errs.ContractMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "embedding dimension", mismatch.Field)
		assert.Equal(t, 4, mismatch.Want)
		assert.Equal(t, 2, mismatch.Got)

		got, err := b.Query(ctx, "c", []float32{1, 0, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.InDelta(t, 0, got[0].Distance, 1e-5)
	})

	t.Run("empty collection returns no matches", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		_, err := b.CreateCollection(ctx, "c")
		require.NoError(t, err)
		got, err := b.Query(ctx, "c", []float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("delete all keeps identity", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		col, err := b.CreateCollection(ctx, "c")
		require.NoError(t, err)
		require.NoError(t, b.Add(ctx, "c", []models.Record{record("a", "a", 1, 0)}))
		require.NoError(t, b.DeleteAll(ctx, "c"))

		n, err := b.Count(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		again, err := b.CreateCollection(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, col.ID, again.ID)
	})

	t.Run("delete collection", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		col, err := b.CreateCollection(ctx, "c")
		require.NoError(t, err)
		_, err = b.CreateCollection(ctx, "b")
		require.NoError(t, err)
		require.NoError(t, b.Add(ctx, "c", []models.Record{record("a", "a", 1, 0)}))

		require.NoError(t, b.DeleteCollection(ctx, "c"))
		assert.ErrorIs(t, b.DeleteCollection(ctx, "c"), storage.ErrCollectionNotFound)
		_, err = b.Count(ctx, "c")
		assert.ErrorIs(t, err, storage.ErrCollectionNotFound)

		list, err := b.ListCollections(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "b", list[0].Name)

		fresh, err := b.CreateCollection(ctx, "c")
		require.NoError(t, err)
		assert.NotEqual(t, col.ID, fresh.ID)
		n, err := b.Count(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("unknown collection", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		err := b.Add(ctx, "missing", []models.Record{record("a", "a", 1)})
		assert.ErrorIs(t, err, storage.ErrCollectionNotFound)
		_, err = b.Query(ctx, "missing", []float32{1}, 1)
		assert.ErrorIs(t, err, storage.ErrCollectionNotFound)
	})
}
