package keys

import (
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/clownfish733/coin-net-go/internal/coinhash"
)

// Address returns the Base58 encoding of u's public-key hash: the
// human-shareable string a sender pastes into the API to pay this identity.
func (u *User) Address() string {
	return EncodeAddress(u.PubKeyHash())
}

// EncodeAddress renders a pubkey hash as the Base58 string used throughout
// the external API and the address book.
func EncodeAddress(pubKeyHash coinhash.Hash) string {
	return base58.Encode(pubKeyHash[:])
}

// DecodeAddress parses a Base58 address back into a pubkey hash, e.g. to
// build the locking script for a payment to it.
func DecodeAddress(address string) (coinhash.Hash, error) {
	decoded, err := base58.Decode(address)
	if err != nil {
		return coinhash.Hash{}, fmt.Errorf("decode address: %w", err)
	}
	var hash coinhash.Hash
	if len(decoded) != len(hash) {
		return coinhash.Hash{}, fmt.Errorf("decode address: expected %d bytes, got %d", len(hash), len(decoded))
	}
	copy(hash[:], decoded)
	return hash, nil
}
