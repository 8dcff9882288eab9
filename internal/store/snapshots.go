package store

import (
	"errors"
	"fmt"

	"github.com/hazelco/bramble/internal/crypto"
	"github.com/hazelco/bramble/internal/state"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrMissingParent    = errors.New("parent snapshot not found")
	ErrSnapshotExists   = errors.New("snapshot already exists")
)

// Snapshots is the hash-addressed registry of per-block storage snapshots.
// It holds exactly the live snapshots needed by in-flight or retained
// blocks. At most one snapshot exists per block hash, and a child can only
// be derived once its parent is present.
//
// The registry is confined to the coordinator goroutine: request
// serialization replaces locking, so no mutex guards the maps.
type Snapshots struct {
	snaps  map[crypto.Hash]*state.Snapshot
	pinned map[crypto.Hash]struct{}

	// Number of committed ancestors kept behind the newest snapshot.
	// Zero reproduces evict-parent-on-commit behaviour.
	retainAncestors int
}

// NewSnapshots creates an empty registry retaining the given number of
// ancestors behind each newly committed snapshot.
func NewSnapshots(retainAncestors int) *Snapshots {
	return &Snapshots{
		snaps:           make(map[crypto.Hash]*state.Snapshot),
		pinned:          make(map[crypto.Hash]struct{}),
		retainAncestors: retainAncestors,
	}
}

// Insert registers an externally built snapshot, typically genesis state.
func (s *Snapshots) Insert(snap *state.Snapshot) error {
	hash := snap.BlockHash()
	if _, ok := s.snaps[hash]; ok {
		return fmt.Errorf("%w: %s", ErrSnapshotExists, hash)
	}
	s.snaps[hash] = snap
	return nil
}

// Get returns the snapshot owned by the given block hash.
func (s *Snapshots) Get(hash crypto.Hash) (*state.Snapshot, error) {
	snap, ok := s.snaps[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, hash)
	}
	return snap, nil
}

// Has reports whether a snapshot exists for the given block hash.
func (s *Snapshots) Has(hash crypto.Hash) bool {
	_, ok := s.snaps[hash]
	return ok
}

// Len returns the number of live snapshots.
func (s *Snapshots) Len() int {
	return len(s.snaps)
}

// DeriveChild commits the snapshot for childHash by applying deltas on top
// of the parent's state. The child becomes visible only once fully built,
// so readers never observe a partial old-parent/new-child view.
func (s *Snapshots) DeriveChild(parentHash, childHash crypto.Hash, deltas state.DeltaSet) (*state.Snapshot, error) {
	parent, ok := s.snaps[parentHash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingParent, parentHash)
	}
	if _, ok := s.snaps[childHash]; ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotExists, childHash)
	}

	child := parent.Derive(childHash, deltas)
	s.snaps[childHash] = child
	return child, nil
}

// Evict removes the snapshot and retires it so that outstanding read
// accessors fail instead of observing freed state.
func (s *Snapshots) Evict(hash crypto.Hash) error {
	snap, ok := s.snaps[hash]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, hash)
	}
	snap.Retire()
	delete(s.snaps, hash)
	delete(s.pinned, hash)
	return nil
}

// Pin exempts a snapshot from pruning until Unpin is called. Used to keep a
// fork parent or a re-verification target alive past the retention window.
func (s *Snapshots) Pin(hash crypto.Hash) error {
	if _, ok := s.snaps[hash]; !ok {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, hash)
	}
	s.pinned[hash] = struct{}{}
	return nil
}

// Unpin makes a pinned snapshot prunable again.
func (s *Snapshots) Unpin(hash crypto.Hash) {
	delete(s.pinned, hash)
}

// Prune applies the retention policy after head has been committed: the
// newest retainAncestors ancestors of head stay live, everything older on
// that ancestry line is evicted unless pinned. Returns the evicted hashes.
func (s *Snapshots) Prune(head crypto.Hash) []crypto.Hash {
	snap, ok := s.snaps[head]
	if !ok {
		return nil
	}

	// Walk past the retained window first.
	current := snap
	for i := 0; i < s.retainAncestors; i++ {
		parent, ok := s.snaps[current.ParentHash()]
		if !ok {
			return nil
		}
		current = parent
	}

	var evicted []crypto.Hash
	next := current.ParentHash()
	for {
		ancestor, ok := s.snaps[next]
		if !ok {
			break
		}
		next = ancestor.ParentHash()
		if _, ok := s.pinned[ancestor.BlockHash()]; ok {
			continue
		}
		ancestor.Retire()
		delete(s.snaps, ancestor.BlockHash())
		evicted = append(evicted, ancestor.BlockHash())
	}
	return evicted
}
