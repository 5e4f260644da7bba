// Package coinhash provides the fixed-size digest type shared by every other
// package: blocks, transactions and UTXO keys are all identified by the
// SHA-256 hash of their canonical serialization.
package coinhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash is a 32-byte SHA-256 digest.
type Hash [32]byte

// Sum256 hashes message and returns the digest.
func Sum256(message []byte) Hash {
	return sha256.Sum256(message)
}

// SumJSON canonically serializes v (Go's encoding/json sorts map keys, giving
// a deterministic encoding across peers) and hashes the result.
func SumJSON(v interface{}) (Hash, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Hash{}, err
	}
	return Sum256(b), nil
}

// String returns the lowercase hex encoding of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero digest.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// MarshalJSON encodes h as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes h from a hex string.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	copy(h[:], decoded)
	return nil
}

// FromHex decodes a hex string into a Hash.
func FromHex(s string) (Hash, error) {
	var h Hash
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	copy(h[:], decoded)
	return h, nil
}
