package runtime

import (
	"bytes"
	"errors"
	"fmt"
)

// CodeKey is the reserved storage key under which the chain keeps the source
// bytes of its state-transition program.
var CodeKey = []byte(":code")

var (
	ErrCompileFailed = errors.New("runtime compile failed")
	ErrCodeMissing   = errors.New("runtime code missing from storage")
)

// BlobMagic is the magic bytes every program blob must start with.
var BlobMagic = [4]byte{'P', 'V', 'M', 0}

const BlobVersionV1 byte = 1

// Program is the compiled form of the chain's state-transition logic.
// Equality for caching purposes is by source bytes.
type Program struct {
	source []byte
	code   []byte
}

// Source returns the program's source bytes.
func (p *Program) Source() []byte {
	return p.source
}

// Code returns the executable section of the compiled program.
func (p *Program) Code() []byte {
	return p.code
}

// Compiler turns program source bytes into an executable Program.
// Compilation failures fail only the request that triggered them.
type Compiler interface {
	Compile(source []byte) (*Program, error)
}

// BlobCompiler compiles program blobs in the standard container format:
// magic, version byte, then the executable payload.
type BlobCompiler struct{}

func (BlobCompiler) Compile(source []byte) (*Program, error) {
	if len(source) < len(BlobMagic)+1 {
		return nil, fmt.Errorf("blob too short: %d bytes", len(source))
	}
	if !bytes.Equal(source[:len(BlobMagic)], BlobMagic[:]) {
		return nil, fmt.Errorf("blob doesn't start with the expected magic bytes")
	}
	version := source[len(BlobMagic)]
	if version != BlobVersionV1 {
		return nil, fmt.Errorf("unsupported version: %d", version)
	}

	code := make([]byte, len(source)-len(BlobMagic)-1)
	copy(code, source[len(BlobMagic)+1:])
	src := make([]byte, len(source))
	copy(src, source)
	return &Program{source: src, code: code}, nil
}
