package store

// Prefix constants for all persisted record types
const (
	prefixHeader byte = iota + 1
	prefixBlock
)

// PrefixToString converts a prefix byte to a string
func PrefixToString(p byte) string {
	switch p {
	case prefixHeader:
		return "header"
	case prefixBlock:
		return "block"
	default:
		return "unknown"
	}
}

// makeKey creates a key from a prefix and hash
func makeKey(prefix byte, hash []byte) []byte {
	key := make([]byte, 1+len(hash))
	key[0] = prefix
	copy(key[1:], hash)
	return key
}
