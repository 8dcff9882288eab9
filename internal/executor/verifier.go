package executor

import (
	"context"
	"errors"

	"github.com/hazelco/bramble/internal/block"
	"github.com/hazelco/bramble/internal/runtime"
	"github.com/hazelco/bramble/internal/state"
)

// ErrVerificationRejected wraps any verifier error: the block violates the
// chain's state-transition rules. It is a per-request outcome, never a
// reason to stop the coordinator.
var ErrVerificationRejected = errors.New("block verification rejected")

// Verifier decides whether a block is a valid state transition on top of
// its parent's storage, and if so which storage changes it produces.
//
// The reader stays valid and consistent for the full duration of the call:
// the coordinator mutates no storage while a Verify call is outstanding,
// however many reads the verifier issues before resolving.
type Verifier interface {
	Verify(
		ctx context.Context,
		program *runtime.Program,
		header block.Header,
		body block.Body,
		parent state.Reader,
	) (state.DeltaSet, error)
}
