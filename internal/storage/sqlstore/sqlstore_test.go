package sqlstore_test

import (
	"testing"

	"github.com/0x5457/oas-index/internal/storage/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Float32Blob(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	blob, err := sqlstore.EncodeFloat32(in)
	require.NoError(t, err)
	assert.Len(t, blob, 16)
	assert.Equal(t, []byte{0, 0, 0xc0, 0xbf}, blob[4:8])

	out, err := sqlstore.DecodeFloat32(blob)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = sqlstore.DecodeFloat32([]byte{1, 2, 3})
	assert.Error(t, err)
}
