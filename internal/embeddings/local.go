package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// LocalEmbedder derives unit-length vectors from a hash of the text. It has
// no semantic quality and exists for offline runs and tests.
type LocalEmbedder struct {
	dim int
}

func NewLocal(dim int) *LocalEmbedder { return &LocalEmbedder{dim: dim} }

func (e *LocalEmbedder) ModelName() string { return "local-fixed" }

func (e *LocalEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = hashToVector(t, e.dim)
	}
	return vecs, nil
}

func (e *LocalEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return hashToVector(text, e.dim), nil
}

func hashToVector(s string, dim int) []float32 {
	vec := make([]float32, dim)
	var block [sha256.Size]byte
	var norm float64
	for i := 0; i < dim; i++ {
		if i%len(block) == 0 {
			var seed [4]byte
			binary.LittleEndian.PutUint32(seed[:], uint32(i/len(block)))
			block = sha256.Sum256(append(seed[:], s...))
		}
		v := float32(int8(block[i%len(block)])) / 127.0
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
