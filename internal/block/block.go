package block

import (
	"fmt"

	"github.com/hazelco/bramble/pkg/serialization"
)

// Block is an immutable header/body pair. The body is a sequence of opaque
// extrinsics; the coordinator never interprets them, only the verifier does.
type Block struct {
	Header Header
	Body   Body
}

// Body holds the block's extrinsics in order.
type Body struct {
	Extrinsics [][]byte
}

// Bytes returns the canonical encoding of the block.
func (b Block) Bytes() ([]byte, error) {
	return serialization.Marshal(b)
}

// BlockFromBytes decodes a block from its canonical encoding.
func BlockFromBytes(data []byte) (Block, error) {
	var b Block
	if err := serialization.Unmarshal(data, &b); err != nil {
		return Block{}, fmt.Errorf("unmarshal block: %w", err)
	}
	return b, nil
}
