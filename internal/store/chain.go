package store

import (
	"errors"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hazelco/bramble/internal/block"
	"github.com/hazelco/bramble/internal/crypto"
	"github.com/hazelco/bramble/pkg/db"
	"github.com/hazelco/bramble/pkg/db/pebble"
)

var (
	ErrBlockNotFound  = errors.New("block not found")
	ErrHeaderNotFound = errors.New("header not found")
	ErrChainClosed    = errors.New("chain store is closed")
)

// Number of decoded blocks kept in memory in front of the key-value store.
const blockCacheSize = 256

// Chain persists accepted blocks and headers in a key-value store, with a
// small LRU of decoded blocks in front of it.
type Chain struct {
	db     db.KVStore
	cache  *lru.Cache[crypto.Hash, block.Block]
	closed atomic.Bool
}

// NewChain creates a new chain store on top of the given KVStore.
func NewChain(kv db.KVStore) *Chain {
	cache, _ := lru.New[crypto.Hash, block.Block](blockCacheSize)
	return &Chain{db: kv, cache: cache}
}

// PutBlock stores a block and its header atomically.
func (c *Chain) PutBlock(b block.Block) error {
	if c.closed.Load() {
		return ErrChainClosed
	}

	headerHash, err := b.Header.Hash()
	if err != nil {
		return fmt.Errorf("hash header: %w", err)
	}

	headerBytes, err := b.Header.Bytes()
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	blockBytes, err := b.Bytes()
	if err != nil {
		return fmt.Errorf("marshal block: %w", err)
	}

	batch := c.db.NewBatch()
	defer batch.Close()

	if err := batch.Put(makeKey(prefixHeader, headerHash[:]), headerBytes); err != nil {
		return fmt.Errorf("store header: %w", err)
	}
	if err := batch.Put(makeKey(prefixBlock, headerHash[:]), blockBytes); err != nil {
		return fmt.Errorf("store block: %w", err)
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	c.cache.Add(headerHash, b)
	return nil
}

// GetBlock retrieves a block by its header hash.
func (c *Chain) GetBlock(hash crypto.Hash) (block.Block, error) {
	if c.closed.Load() {
		return block.Block{}, ErrChainClosed
	}

	if b, ok := c.cache.Get(hash); ok {
		return b, nil
	}

	blockBytes, err := c.db.Get(makeKey(prefixBlock, hash[:]))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return block.Block{}, ErrBlockNotFound
		}
		return block.Block{}, fmt.Errorf("get block: %w", err)
	}

	b, err := block.BlockFromBytes(blockBytes)
	if err != nil {
		return block.Block{}, err
	}
	c.cache.Add(hash, b)
	return b, nil
}

// PutHeader stores a header on its own, for blocks whose body is not kept.
func (c *Chain) PutHeader(h block.Header) error {
	if c.closed.Load() {
		return ErrChainClosed
	}

	headerHash, err := h.Hash()
	if err != nil {
		return fmt.Errorf("hash header: %w", err)
	}
	headerBytes, err := h.Bytes()
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	if err := c.db.Put(makeKey(prefixHeader, headerHash[:]), headerBytes); err != nil {
		return fmt.Errorf("store header: %w", err)
	}
	return nil
}

// GetHeader retrieves a header by its hash.
func (c *Chain) GetHeader(hash crypto.Hash) (block.Header, error) {
	if c.closed.Load() {
		return block.Header{}, ErrChainClosed
	}

	headerBytes, err := c.db.Get(makeKey(prefixHeader, hash[:]))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return block.Header{}, ErrHeaderNotFound
		}
		return block.Header{}, fmt.Errorf("get header: %w", err)
	}
	return block.HeaderFromBytes(headerBytes)
}

// FindChildren finds all immediate child blocks for a given block hash.
func (c *Chain) FindChildren(parentHash crypto.Hash) ([]block.Block, error) {
	if c.closed.Load() {
		return nil, ErrChainClosed
	}

	iter, err := c.db.NewIterator([]byte{prefixBlock}, []byte{prefixBlock + 1})
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()

	var children []block.Block
	for iter.Next() {
		blockBytes, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read block value: %w", err)
		}
		b, err := block.BlockFromBytes(blockBytes)
		if err != nil {
			return nil, fmt.Errorf("parse block: %w", err)
		}
		if b.Header.ParentHash == parentHash {
			children = append(children, b)
		}
	}
	return children, nil
}

// Close closes the chain store and its underlying KVStore.
func (c *Chain) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.db.Close()
}
