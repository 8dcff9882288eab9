package runtime

import (
	"bytes"
	"fmt"
	"slices"
)

// Cache memoizes the single most recently compiled program, keyed by its
// source bytes, so the chain's state-transition program is not recompiled
// for every block. It is owned by the coordinator and confined to its
// goroutine; the lookup key is always the code currently stored in the
// parent snapshot of the block about to be verified.
type Cache struct {
	compiler Compiler
	source   []byte
	program  *Program
}

func NewCache(compiler Compiler) *Cache {
	return &Cache{compiler: compiler}
}

// Resolve returns the compiled program for the given source bytes, reusing
// the cached entry when the bytes match and compiling otherwise.
func (c *Cache) Resolve(source []byte) (*Program, error) {
	if c.program != nil && bytes.Equal(c.source, source) {
		return c.program, nil
	}

	program, err := c.compiler.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}
	c.source = slices.Clone(source)
	c.program = program
	return program, nil
}

// Invalidate drops the cached entry, forcing a recompile on the next
// Resolve. Called after a delta set touches CodeKey: the program stored in
// chain state changed, so the next block must verify against fresh code.
func (c *Cache) Invalidate() {
	c.source = nil
	c.program = nil
}
