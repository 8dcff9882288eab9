package executor

import (
	"context"

	"github.com/hazelco/bramble/internal/block"
	"github.com/hazelco/bramble/internal/state"
)

// Request asks the coordinator to execute one block against the snapshot of
// its parent. Each request is consumed exactly once; a request whose
// Context is already canceled when it reaches the front of the queue is
// discarded without any verification work.
type Request struct {
	// Context carries caller cancellation. Nil means never canceled.
	Context context.Context
	Block   block.Block
	// Reply receives exactly one Outcome, unless the caller canceled first.
	// Callers that want a non-blocking coordinator should buffer it.
	Reply chan<- Outcome
}

func (r Request) context() context.Context {
	if r.Context == nil {
		return context.Background()
	}
	return r.Context
}

// Outcome is the terminal result of one execution request. Err is nil for
// accepted blocks, in which case Deltas holds the storage changes the block
// produced.
type Outcome struct {
	Block  block.Block
	Deltas state.DeltaSet
	Err    error
}

// Accepted reports whether the block passed verification and was committed.
func (o Outcome) Accepted() bool {
	return o.Err == nil
}
