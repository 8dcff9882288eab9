// Command bramble runs the block execution coordinator against a local
// chain store. It executes a short self-generated chain with a pass-through
// verifier, which makes it useful as a smoke test of the full pipeline:
// snapshot store, program cache, verification, commit and persistence.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hazelco/bramble/internal/block"
	"github.com/hazelco/bramble/internal/crypto"
	"github.com/hazelco/bramble/internal/executor"
	"github.com/hazelco/bramble/internal/runtime"
	"github.com/hazelco/bramble/internal/state"
	"github.com/hazelco/bramble/internal/store"
	"github.com/hazelco/bramble/pkg/db/pebble"
	"github.com/hazelco/bramble/pkg/log"
)

// kvVerifier accepts every block and turns each "key=value" extrinsic into
// a storage write ("key=" deletes the key). Stands in for a real
// state-transition verifier.
type kvVerifier struct{}

func (kvVerifier) Verify(
	_ context.Context,
	_ *runtime.Program,
	_ block.Header,
	body block.Body,
	_ state.Reader,
) (state.DeltaSet, error) {
	deltas := make(state.DeltaSet)
	for _, extrinsic := range body.Extrinsics {
		key, value, ok := bytes.Cut(extrinsic, []byte("="))
		if !ok {
			return nil, fmt.Errorf("malformed extrinsic %q", extrinsic)
		}
		if len(value) == 0 {
			deltas[string(key)] = nil
			continue
		}
		deltas[string(key)] = value
	}
	return deltas, nil
}

func run() error {
	datadir := flag.String("datadir", "", "chain database directory (empty for in-memory)")
	loglevel := flag.String("loglevel", "info", "minimum log level")
	blocks := flag.Int("blocks", 8, "number of blocks to execute")
	retain := flag.Int("retain", 1, "ancestor snapshots to retain")
	flag.Parse()

	level, err := log.ParseLogLevel(*loglevel)
	if err != nil {
		return err
	}
	log.Init(log.Options{LogLevel: level, Type: log.ConsoleLogger})

	var kv *pebble.KVStore
	if *datadir == "" {
		kv, err = pebble.NewMemKVStore()
	} else {
		kv, err = pebble.NewKVStore(*datadir)
	}
	if err != nil {
		return fmt.Errorf("open chain database: %w", err)
	}
	chain := store.NewChain(kv)
	defer chain.Close()

	code := append(append([]byte{}, runtime.BlobMagic[:]...), runtime.BlobVersionV1)
	genesisHeader := block.Header{Number: 0}
	genesisHash, err := genesisHeader.Hash()
	if err != nil {
		return err
	}
	if err := chain.PutHeader(genesisHeader); err != nil {
		return err
	}

	snapshots := store.NewSnapshots(*retain)
	if err := snapshots.Insert(state.NewSnapshot(genesisHash, crypto.Hash{}, map[string][]byte{
		string(runtime.CodeKey): code,
	})); err != nil {
		return err
	}

	requests := make(chan executor.Request, *blocks)
	coordinator := executor.New(executor.Config{
		Requests:  requests,
		Snapshots: snapshots,
		Chain:     chain,
		Verifier:  kvVerifier{},
		Logger:    log.Executor,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- coordinator.Run(ctx) }()

	replies := make(chan executor.Outcome, 1)
	parent := genesisHash
	for i := 1; i <= *blocks; i++ {
		b := block.Block{
			Header: block.Header{ParentHash: parent, Number: uint64(i)},
			Body: block.Body{Extrinsics: [][]byte{
				[]byte(fmt.Sprintf("height=%d", i)),
			}},
		}
		requests <- executor.Request{Context: ctx, Block: b, Reply: replies}
		outcome := <-replies
		if !outcome.Accepted() {
			return fmt.Errorf("block %d: %w", i, outcome.Err)
		}
		parent, err = b.Header.Hash()
		if err != nil {
			return err
		}
	}

	close(requests)
	if err := <-done; err != nil {
		return err
	}
	log.Root.Info().Int("blocks", *blocks).Stringer("head", parent).Msg("chain executed")
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bramble:", err)
		os.Exit(1)
	}
}
