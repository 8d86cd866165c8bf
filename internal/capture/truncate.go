package capture

import (
	"crypto/sha256"
	"encoding/hex"
)

// truncateBody cuts s to at most maxBytes bytes. It reports whether it cut,
// the original length, and the SHA-256 of the full payload when it did.
func truncateBody(s string, maxBytes int) (string, bool, int, string) {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s, false, len(s), ""
	}
	sum := sha256.Sum256([]byte(s))
	return s[:maxBytes], true, len(s), hex.EncodeToString(sum[:])
}
