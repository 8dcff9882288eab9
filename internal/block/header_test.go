package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazelco/bramble/internal/crypto"
)

func Test_HeaderHashDeterministic(t *testing.T) {
	header := Header{
		ParentHash: crypto.Hash{1},
		Number:     42,
		StateRoot:  crypto.Hash{2},
	}

	h1, err := header.Hash()
	require.NoError(t, err)
	h2, err := header.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.False(t, h1.IsZero())
}

func Test_HeaderHashChangesWithFields(t *testing.T) {
	header := Header{Number: 1}
	h1, err := header.Hash()
	require.NoError(t, err)

	header.Number = 2
	h2, err := header.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func Test_HeaderRoundTrip(t *testing.T) {
	header := Header{
		ParentHash:     crypto.Hash{1},
		Number:         7,
		StateRoot:      crypto.Hash{2},
		ExtrinsicsRoot: crypto.Hash{3},
		Digest:         [][]byte{[]byte("seal")},
	}

	encoded, err := header.Bytes()
	require.NoError(t, err)
	decoded, err := HeaderFromBytes(encoded)
	require.NoError(t, err)
	assert.Equal(t, header, decoded)
}

func Test_BlockRoundTrip(t *testing.T) {
	b := Block{
		Header: Header{ParentHash: crypto.Hash{1}, Number: 3},
		Body:   Body{Extrinsics: [][]byte{[]byte("a"), []byte("b")}},
	}

	encoded, err := b.Bytes()
	require.NoError(t, err)
	decoded, err := BlockFromBytes(encoded)
	require.NoError(t, err)
	assert.Equal(t, b, decoded)
}
