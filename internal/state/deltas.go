package state

// DeltaSet maps storage keys to replacement values produced by block
// verification. A nil value marks the key for deletion; a non-nil empty
// value stores an empty entry.
type DeltaSet map[string][]byte

// Touches reports whether the delta set modifies the given key.
func (d DeltaSet) Touches(key []byte) bool {
	_, ok := d[string(key)]
	return ok
}
