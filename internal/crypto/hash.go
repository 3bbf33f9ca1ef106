package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Hash32Size is the length in bytes of a Hash32 digest.
const Hash32Size = 32

// Hash32 is a deterministic, collision-resistant SHA3-256 digest.
type Hash32 [Hash32Size]byte

// Hash computes the SHA3-256 digest of data.
func Hash(data []byte) Hash32 {
	return Hash32(sha3.Sum256(data))
}

// Bytes returns the digest as a byte slice.
func (h Hash32) Bytes() []byte {
	return h[:]
}

// String renders the digest as lowercase hex, for logging.
func (h Hash32) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero digest (never a valid hash output,
// used as a sentinel for "no value").
func (h Hash32) IsZero() bool {
	return h == Hash32{}
}
