package state

import (
	"errors"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/hazelco/bramble/internal/crypto"
)

// ErrSnapshotStale is returned by read accessors after the owning store has
// retired the snapshot. Verification must never observe this while the
// coordinator honours its no-mutation-during-verify contract.
var ErrSnapshotStale = errors.New("snapshot has been evicted")

// Reader is the read-only view of one snapshot handed to the verifier.
// All three accessors observe the same immutable point in time for the
// whole duration of a verification call.
type Reader interface {
	// Get returns the value stored under key, or ok=false if absent.
	Get(key []byte) (value []byte, ok bool, err error)
	// Keys returns, in ascending order, every key that starts with prefix.
	// An empty prefix enumerates all keys.
	Keys(prefix []byte) ([][]byte, error)
	// NextKey returns the smallest key strictly greater than key,
	// or ok=false if none exists.
	NextKey(key []byte) (next []byte, ok bool, err error)
}

// Snapshot is the complete key/value storage state belonging to one block.
// It is immutable once built; new states are produced by Derive.
type Snapshot struct {
	blockHash  crypto.Hash
	parentHash crypto.Hash
	entries    map[string][]byte
	sorted     []string
	retired    atomic.Bool
}

// NewSnapshot builds a snapshot owned by blockHash from the given entries.
// The entries map is copied; the caller keeps ownership of its copy.
// parentHash is a lookup-only back-reference, not an ownership edge.
func NewSnapshot(blockHash, parentHash crypto.Hash, entries map[string][]byte) *Snapshot {
	s := &Snapshot{
		blockHash:  blockHash,
		parentHash: parentHash,
		entries:    maps.Clone(entries),
	}
	if s.entries == nil {
		s.entries = make(map[string][]byte)
	}
	s.sorted = make([]string, 0, len(s.entries))
	for key := range s.entries {
		s.sorted = append(s.sorted, key)
	}
	sort.Strings(s.sorted)
	return s
}

// Derive produces the child snapshot for childHash by applying deltas on top
// of this snapshot. A present value inserts or overwrites; a nil value
// removes the key.
func (s *Snapshot) Derive(childHash crypto.Hash, deltas DeltaSet) *Snapshot {
	entries := maps.Clone(s.entries)
	for key, value := range deltas {
		if value == nil {
			delete(entries, key)
			continue
		}
		entries[key] = slices.Clone(value)
	}
	return NewSnapshot(childHash, s.blockHash, entries)
}

func (s *Snapshot) BlockHash() crypto.Hash {
	return s.blockHash
}

func (s *Snapshot) ParentHash() crypto.Hash {
	return s.parentHash
}

// Len returns the number of stored keys.
func (s *Snapshot) Len() int {
	return len(s.sorted)
}

func (s *Snapshot) Get(key []byte) ([]byte, bool, error) {
	if s.retired.Load() {
		return nil, false, ErrSnapshotStale
	}
	value, ok := s.entries[string(key)]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(value), true, nil
}

func (s *Snapshot) Keys(prefix []byte) ([][]byte, error) {
	if s.retired.Load() {
		return nil, ErrSnapshotStale
	}
	p := string(prefix)
	start := sort.SearchStrings(s.sorted, p)

	var keys [][]byte
	for _, key := range s.sorted[start:] {
		if !strings.HasPrefix(key, p) {
			break
		}
		keys = append(keys, []byte(key))
	}
	return keys, nil
}

func (s *Snapshot) NextKey(key []byte) ([]byte, bool, error) {
	if s.retired.Load() {
		return nil, false, ErrSnapshotStale
	}
	k := string(key)
	idx := sort.Search(len(s.sorted), func(i int) bool {
		return s.sorted[i] > k
	})
	if idx == len(s.sorted) {
		return nil, false, nil
	}
	return []byte(s.sorted[idx]), true, nil
}

// Retire marks the snapshot stale so that any accessor still holding it
// fails instead of reading freed state. Called only by the snapshot store
// on eviction.
func (s *Snapshot) Retire() {
	s.retired.Store(true)
}
