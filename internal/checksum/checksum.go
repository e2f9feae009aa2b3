// Package checksum fingerprints vault files so unchanged ones are not re-imported.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Changed reports whether data differs from the file last recorded as known.
// An empty known means the file was never recorded.
func Changed(known string, data []byte) bool {
	return known == "" || known != Sum(data)
}
