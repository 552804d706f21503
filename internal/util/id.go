package util

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// ChunkID derives the content id of a chunk: the first 8 bytes of the
// SHA-256 of its text, hex encoded. Equal text yields equal ids.
func ChunkID(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:8])
}

// NewID returns a random record id.
func NewID() string {
	return uuid.NewString()
}
