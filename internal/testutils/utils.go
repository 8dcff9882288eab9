package testutils

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hazelco/bramble/internal/crypto"
	"github.com/hazelco/bramble/internal/runtime"
)

func RandomHash(t *testing.T) crypto.Hash {
	hash := make([]byte, crypto.HashSize)
	_, err := rand.Read(hash)
	require.NoError(t, err)
	return crypto.Hash(hash)
}

func RandomBytes(t *testing.T, n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

// ProgramBlob builds a well-formed program blob carrying the given payload.
func ProgramBlob(payload ...byte) []byte {
	blob := append([]byte{}, runtime.BlobMagic[:]...)
	blob = append(blob, runtime.BlobVersionV1)
	return append(blob, payload...)
}
