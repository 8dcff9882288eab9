package block

import (
	"fmt"

	"github.com/hazelco/bramble/internal/crypto"
	"github.com/hazelco/bramble/pkg/serialization"
)

// Header identifies a block and links it to its parent. The block hash is
// derived from the encoded header, so any field change yields a new identity.
type Header struct {
	ParentHash     crypto.Hash
	Number         uint64
	StateRoot      crypto.Hash
	ExtrinsicsRoot crypto.Hash
	Digest         [][]byte
}

// Hash returns the blake2b digest of the canonically encoded header.
func (h Header) Hash() (crypto.Hash, error) {
	encoded, err := serialization.Marshal(h)
	if err != nil {
		return crypto.Hash{}, fmt.Errorf("marshal header: %w", err)
	}
	return crypto.HashData(encoded), nil
}

// Bytes returns the canonical encoding of the header.
func (h Header) Bytes() ([]byte, error) {
	return serialization.Marshal(h)
}

// HeaderFromBytes decodes a header from its canonical encoding.
func HeaderFromBytes(data []byte) (Header, error) {
	var h Header
	if err := serialization.Unmarshal(data, &h); err != nil {
		return Header{}, fmt.Errorf("unmarshal header: %w", err)
	}
	return h, nil
}
