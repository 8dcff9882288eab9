package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazelco/bramble/internal/crypto"
)

func newTestSnapshot(entries map[string][]byte) *Snapshot {
	return NewSnapshot(crypto.Hash{1}, crypto.Hash{}, entries)
}

func Test_SnapshotGet(t *testing.T) {
	snap := newTestSnapshot(map[string][]byte{
		"a": []byte("1"),
		"b": {},
	})

	value, ok, err := snap.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), value)

	// Empty values are stored, not treated as absent.
	value, ok, err = snap.Get([]byte("b"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, value)

	_, ok, err = snap.Get([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_SnapshotGetReturnsCopy(t *testing.T) {
	snap := newTestSnapshot(map[string][]byte{"a": []byte("abc")})

	value, _, err := snap.Get([]byte("a"))
	require.NoError(t, err)
	value[0] = 'x'

	again, _, err := snap.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func Test_SnapshotKeysOrdered(t *testing.T) {
	snap := newTestSnapshot(map[string][]byte{
		"b":  []byte("2"),
		"a":  []byte("1"),
		"ab": []byte("3"),
	})

	keys, err := snap.Keys(nil)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("ab"), []byte("b")}, keys)
}

func Test_SnapshotKeysPrefix(t *testing.T) {
	snap := newTestSnapshot(map[string][]byte{
		"acc:alice": []byte("10"),
		"acc:bob":   []byte("20"),
		"code":      []byte("blob"),
		"sys:epoch": []byte("1"),
	})

	keys, err := snap.Keys([]byte("acc:"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("acc:alice"), []byte("acc:bob")}, keys)

	keys, err = snap.Keys([]byte("zzz"))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func Test_SnapshotNextKey(t *testing.T) {
	snap := newTestSnapshot(map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
		"d": []byte("3"),
	})

	next, ok, err := snap.NextKey([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("b"), next)

	// Strictly greater, also for keys not present.
	next, ok, err = snap.NextKey([]byte("c"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("d"), next)

	// Before the first key.
	next, ok, err = snap.NextKey(nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("a"), next)

	_, ok, err = snap.NextKey([]byte("d"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_SnapshotDerive(t *testing.T) {
	parent := newTestSnapshot(map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	})

	childHash := crypto.Hash{2}
	child := parent.Derive(childHash, DeltaSet{
		"a": []byte("10"), // overwrite
		"b": nil,          // delete
		"c": []byte("3"),  // insert
	})

	assert.Equal(t, childHash, child.BlockHash())
	assert.Equal(t, parent.BlockHash(), child.ParentHash())

	value, ok, err := child.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("10"), value)

	_, ok, err = child.Get([]byte("b"))
	require.NoError(t, err)
	assert.False(t, ok)

	value, ok, err = child.Get([]byte("c"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("3"), value)

	// Parent is untouched.
	value, ok, err = parent.Get([]byte("b"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("2"), value)
	assert.Equal(t, 2, parent.Len())
}

func Test_SnapshotRetire(t *testing.T) {
	snap := newTestSnapshot(map[string][]byte{"a": []byte("1")})
	snap.Retire()

	_, _, err := snap.Get([]byte("a"))
	require.ErrorIs(t, err, ErrSnapshotStale)
	_, err = snap.Keys(nil)
	require.ErrorIs(t, err, ErrSnapshotStale)
	_, _, err = snap.NextKey(nil)
	require.ErrorIs(t, err, ErrSnapshotStale)
}

func Test_DeltaSetTouches(t *testing.T) {
	deltas := DeltaSet{":code": []byte("new"), "gone": nil}
	assert.True(t, deltas.Touches([]byte(":code")))
	// A deletion still touches the key.
	assert.True(t, deltas.Touches([]byte("gone")))
	assert.False(t, deltas.Touches([]byte("other")))
}
