package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Size is the length of a fingerprint in hex characters.
const Size = sha256.Size * 2

// Hash returns the lowercase hex SHA-256 digest of normalized text.
func Hash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Compute normalizes a raw traceback and hashes it.
func Compute(raw string) string {
	return Hash(Normalize(raw))
}
