// Package sha256 digests archived page snapshots.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/JakeFAU/availmon/internal/monitor"
)

var _ monitor.Hasher = Hasher{}

// Hasher returns hex-encoded SHA-256 digests.
type Hasher struct{}

// New returns a Hasher.
func New() Hasher {
	return Hasher{}
}

// Hash never fails.
func (Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
