// Package keys wraps the node's signing identity: a secp256k1 keypair used to
// sign transaction inputs and to receive mining rewards. The signature
// primitive itself is treated as an abstract service (sign/verify/SEC1
// encode); this package is the thin adapter onto
// github.com/decred/dcrd/dcrec/secp256k1/v4.
package keys

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/clownfish733/coin-net-go/internal/coinhash"
)

// User owns a secp256k1 keypair and can sign and be verified against.
type User struct {
	private *secp256k1.PrivateKey
	public  *secp256k1.PublicKey
}

// hexUser is the on-disk / wire representation of a User.
type hexUser struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// New generates a fresh random keypair.
func New() (*User, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &User{private: priv, public: priv.PubKey()}, nil
}

// PubKey returns the SEC1-compressed public key bytes.
func (u *User) PubKey() []byte {
	return u.public.SerializeCompressed()
}

// PubKeyHash is SHA-256 over the lossy-UTF8 re-encoding of the public key
// bytes — the same hash the script VM's SHA256 opcode would produce over a
// pushed public key, so a P2PKH locking script built with this hash matches
// what SHA256+EQUALVERIFY checks during unlocking (see internal/tx).
func (u *User) PubKeyHash() coinhash.Hash {
	return coinhash.SumLossyUTF8(u.PubKey())
}

// Sign signs a pre-hashed 32-byte digest directly, the same digest Verify
// expects — callers pass tx.SigHash(...)'s output, never raw message bytes.
func (u *User) Sign(digest []byte) []byte {
	sig := ecdsa.Sign(u.private, digest)
	return sig.Serialize()
}

// Verify checks a DER-encoded ECDSA signature against a SEC1-compressed
// public key and a pre-hashed message digest.
func Verify(pubKey []byte, digest coinhash.Hash, sig []byte) bool {
	pk, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(digest[:], pk)
}

// MarshalJSON serializes the User as hex-encoded keys.
func (u *User) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexUser{
		PublicKey:  hex.EncodeToString(u.public.SerializeCompressed()),
		PrivateKey: hex.EncodeToString(u.private.Serialize()),
	})
}

// UnmarshalJSON restores a User from its hex-encoded form.
func (u *User) UnmarshalJSON(data []byte) error {
	var hu hexUser
	if err := json.Unmarshal(data, &hu); err != nil {
		return err
	}
	privBytes, err := hex.DecodeString(hu.PrivateKey)
	if err != nil {
		return fmt.Errorf("decode private key: %w", err)
	}
	pubBytes, err := hex.DecodeString(hu.PublicKey)
	if err != nil {
		return fmt.Errorf("decode public key: %w", err)
	}
	priv := secp256k1.PrivKeyFromBytes(privBytes)
	pub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}
	u.private = priv
	u.public = pub
	return nil
}
