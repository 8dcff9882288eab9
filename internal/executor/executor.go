// Package executor drives block execution: one serialized task that turns
// execution requests into verified state transitions, backed by a compiled
// program cache and a hash-addressed registry of per-block storage
// snapshots.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hazelco/bramble/internal/block"
	"github.com/hazelco/bramble/internal/crypto"
	"github.com/hazelco/bramble/internal/runtime"
	"github.com/hazelco/bramble/internal/state"
	"github.com/hazelco/bramble/internal/store"
)

// Config wires a Coordinator.
type Config struct {
	// Requests is the ingress queue. The coordinator is its single consumer.
	Requests <-chan Request
	// Snapshots holds the live per-block storage snapshots.
	Snapshots *store.Snapshots
	// Chain, when set, persists every accepted block. Optional.
	Chain *store.Chain
	// Verifier checks candidate blocks against state-transition rules.
	Verifier Verifier
	// Compiler builds runtime programs from source bytes. Defaults to
	// runtime.BlobCompiler.
	Compiler runtime.Compiler
	Logger   zerolog.Logger
}

// Coordinator processes execution requests strictly in arrival order, one
// at a time. Serialization is the concurrency control: all snapshot and
// cache mutation happens on the coordinator goroutine, between
// verifications, so none of it needs locking.
//
// A verifier call that never resolves stalls the coordinator and everything
// queued behind it; callers that need a bound should cancel the request
// context they pass in.
type Coordinator struct {
	requests  <-chan Request
	snapshots *store.Snapshots
	chain     *store.Chain
	verifier  Verifier
	cache     *runtime.Cache
	log       zerolog.Logger
}

func New(cfg Config) *Coordinator {
	compiler := cfg.Compiler
	if compiler == nil {
		compiler = runtime.BlobCompiler{}
	}
	return &Coordinator{
		requests:  cfg.Requests,
		snapshots: cfg.Snapshots,
		chain:     cfg.Chain,
		verifier:  cfg.Verifier,
		cache:     runtime.NewCache(compiler),
		log:       cfg.Logger,
	}
}

// Run consumes the request queue until ctx is canceled or the queue is
// closed. Every request resolves to exactly one outcome on its reply
// channel; a failed request never stops the loop.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-c.requests:
			if !ok {
				return nil
			}
			c.process(req)
		}
	}
}

func (c *Coordinator) process(req Request) {
	ctx := req.context()
	if ctx.Err() != nil {
		// Caller gone before we started: skip without any verification
		// or storage work.
		c.log.Debug().Msg("discarding canceled execution request")
		return
	}

	outcome := c.execute(ctx, req.Block)
	if outcome.Err != nil {
		c.log.Warn().Err(outcome.Err).
			Uint64("number", req.Block.Header.Number).
			Msg("block execution failed")
	}

	if req.Reply == nil {
		return
	}
	select {
	case req.Reply <- outcome:
	case <-ctx.Done():
		// Caller stopped listening mid-flight; the outcome is dropped but
		// any committed state stays.
	}
}

func (c *Coordinator) execute(ctx context.Context, b block.Block) Outcome {
	blockHash, err := b.Header.Hash()
	if err != nil {
		return Outcome{Block: b, Err: fmt.Errorf("hash header: %w", err)}
	}

	parent, err := c.snapshots.Get(b.Header.ParentHash)
	if err != nil {
		if errors.Is(err, store.ErrSnapshotNotFound) {
			err = fmt.Errorf("%w: %s", store.ErrMissingParent, b.Header.ParentHash)
		}
		return Outcome{Block: b, Err: fmt.Errorf("fetch parent snapshot: %w", err)}
	}

	program, err := c.resolveProgram(parent)
	if err != nil {
		return Outcome{Block: b, Err: err}
	}

	deltas, err := c.verifier.Verify(ctx, program, b.Header, b.Body, parent)
	if err != nil {
		return Outcome{Block: b, Err: fmt.Errorf("%w: %w", ErrVerificationRejected, err)}
	}

	if err := c.commit(b, blockHash, deltas); err != nil {
		return Outcome{Block: b, Err: err}
	}

	c.log.Info().
		Stringer("block", blockHash).
		Uint64("number", b.Header.Number).
		Int("changes", len(deltas)).
		Msg("block executed")
	return Outcome{Block: b, Deltas: deltas}
}

// resolveProgram loads the runtime code stored in the parent snapshot and
// resolves it through the program cache. The cache key is always the code
// of the block about to supply the parent state, never an older block's.
func (c *Coordinator) resolveProgram(parent *state.Snapshot) (*runtime.Program, error) {
	code, ok, err := parent.Get(runtime.CodeKey)
	if err != nil {
		return nil, fmt.Errorf("read runtime code: %w", err)
	}
	if !ok {
		return nil, runtime.ErrCodeMissing
	}
	return c.cache.Resolve(code)
}

func (c *Coordinator) commit(b block.Block, blockHash crypto.Hash, deltas state.DeltaSet) error {
	if c.chain != nil {
		if err := c.chain.PutBlock(b); err != nil {
			return fmt.Errorf("persist block: %w", err)
		}
	}

	if _, err := c.snapshots.DeriveChild(b.Header.ParentHash, blockHash, deltas); err != nil {
		return fmt.Errorf("commit child snapshot: %w", err)
	}

	// A runtime upgrade in this block means the next verification must
	// compile the new code, even before any byte comparison would notice.
	if deltas.Touches(runtime.CodeKey) {
		c.cache.Invalidate()
		c.log.Info().Stringer("block", blockHash).Msg("runtime code changed, program cache invalidated")
	}

	for _, evicted := range c.snapshots.Prune(blockHash) {
		c.log.Debug().Stringer("snapshot", evicted).Msg("pruned ancestor snapshot")
	}
	return nil
}
