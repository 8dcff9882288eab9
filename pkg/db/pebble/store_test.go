package pebble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *KVStore {
	t.Helper()
	store, err := NewMemKVStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func Test_PutGetDelete(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Put([]byte("key"), []byte("value")))
	value, err := store.Get([]byte("key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), value)

	require.NoError(t, store.Delete([]byte("key")))
	_, err = store.Get([]byte("key"))
	require.ErrorIs(t, err, ErrNotFound)
}

func Test_GetNotFound(t *testing.T) {
	store := newStore(t)
	_, err := store.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)
}

func Test_ClosedStore(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Close())
	// Closing twice has no effect.
	require.NoError(t, store.Close())

	_, err := store.Get([]byte("key"))
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, store.Put([]byte("key"), nil), ErrClosed)
	require.ErrorIs(t, store.Delete([]byte("key")), ErrClosed)
	_, err = store.NewIterator(nil, nil)
	require.ErrorIs(t, err, ErrClosed)
}

func Test_BatchCommit(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Put([]byte("stale"), []byte("x")))

	batch := store.NewBatch()
	require.NoError(t, batch.Put([]byte("a"), []byte("1")))
	require.NoError(t, batch.Put([]byte("b"), []byte("2")))
	require.NoError(t, batch.Delete([]byte("stale")))

	// Nothing visible before commit.
	_, err := store.Get([]byte("a"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, batch.Commit())
	require.NoError(t, batch.Close())

	value, err := store.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), value)
	_, err = store.Get([]byte("stale"))
	require.ErrorIs(t, err, ErrNotFound)

	// A committed batch rejects further use.
	require.ErrorIs(t, batch.Put([]byte("c"), nil), ErrBatchDone)
	require.ErrorIs(t, batch.Commit(), ErrBatchDone)
}

func Test_IteratorRange(t *testing.T) {
	store := newStore(t)
	for _, key := range []string{"a1", "a2", "b1", "b2", "c1"} {
		require.NoError(t, store.Put([]byte(key), []byte("v:"+key)))
	}

	iter, err := store.NewIterator([]byte("b"), []byte("c"))
	require.NoError(t, err)
	defer iter.Close()

	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
		value, err := iter.Value()
		require.NoError(t, err)
		assert.Equal(t, "v:"+string(iter.Key()), string(value))
	}
	assert.Equal(t, []string{"b1", "b2"}, keys)
	assert.False(t, iter.Valid())
}
