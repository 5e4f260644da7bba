// Package chain holds the consensus state machine: blocks, the UTXO set, the
// mempool, the wallet view and the Node that ties them together. It depends
// only on internal/tx, internal/keys and internal/coinhash, never on internal/p2p or
// internal/miner, so it can be exercised directly in tests without a network
// or a miner running.
package chain

import (
	"crypto/rand"
	"time"

	"github.com/clownfish733/coin-net-go/internal/coinhash"
	"github.com/clownfish733/coin-net-go/internal/tx"
)

// Nonce is the 16-byte value miners vary while searching for a block hash
// that meets the difficulty target.
type Nonce [16]byte

// RandomNonce returns a fresh random nonce for a miner to try.
func RandomNonce() (Nonce, error) {
	var n Nonce
	_, err := rand.Read(n[:])
	return n, err
}

// BlockHeader is the portion of a block that gets hashed and chained.
type BlockHeader struct {
	PrevHash   coinhash.Hash `json:"prev_hash"`
	MerkleRoot coinhash.Hash `json:"merkle_root"`
	Timestamp  int64         `json:"timestamp"`
	Difficulty int           `json:"difficulty"`
	Nonce      Nonce         `json:"nonce"`
	Version    int           `json:"version"`
	Height     uint64        `json:"height"`
}

// Block is a batch of transactions committed under a header meeting the
// network's proof-of-work difficulty.
type Block struct {
	Header           BlockHeader      `json:"block_header"`
	Transactions     []tx.Transaction `json:"transactions"`
	TransactionCount int              `json:"transaction_count"`
}

// NewBlock builds a block over transactions at height, deriving its Merkle
// root and stamping the current time. The nonce starts zeroed; a miner fills
// it in while searching for a hash meeting difficulty.
func NewBlock(transactions []tx.Transaction, prevHash coinhash.Hash, difficulty int, version int, height uint64) (Block, error) {
	root, err := merkleRoot(transactions)
	if err != nil {
		return Block{}, err
	}
	return Block{
		Header: BlockHeader{
			PrevHash:   prevHash,
			MerkleRoot: root,
			Timestamp:  time.Now().Unix(),
			Difficulty: difficulty,
			Version:    version,
			Height:     height,
		},
		Transactions:     transactions,
		TransactionCount: len(transactions),
	}, nil
}

// WithNonce returns a copy of b with its header nonce replaced.
func (b Block) WithNonce(n Nonce) Block {
	b.Header.Nonce = n
	return b
}

// Hash is the SHA-256 digest of b's canonical serialization, chained into
// the next block's PrevHash.
func (b Block) Hash() (coinhash.Hash, error) {
	return coinhash.SumJSON(b)
}

// MeetsDifficulty reports whether hash, re-encoded the lossy-UTF8 way, has
// target leading '0' bytes. Reproduces the original miner's behavior of
// testing the hash's lossy string form rather than its hex encoding.
func MeetsDifficulty(hash coinhash.Hash, target int) bool {
	lossy := coinhash.LossyUTF8(hash[:])
	if len(lossy) < target {
		return false
	}
	for i := 0; i < target; i++ {
		if lossy[i] != '0' {
			return false
		}
	}
	return true
}

// merkleRoot serializes each transaction to canonical JSON and folds them
// down to a single digest. Unlike a conventional Merkle tree, each fold step
// hashes the raw concatenation of the prior level's strings and carries the
// digest forward as its lossy-UTF8 re-encoding, not as hex or raw bytes — so
// that the next fold step operates on a string again. This must match the
// source's rec_merkle_root bit for bit or independently built blocks will
// never agree on a root.
func merkleRoot(transactions []tx.Transaction) (coinhash.Hash, error) {
	items := make([]string, len(transactions))
	for i, t := range transactions {
		b, err := t.Serialize()
		if err != nil {
			return coinhash.Hash{}, err
		}
		items[i] = string(b)
	}
	return foldMerkle(items), nil
}

func foldMerkle(items []string) coinhash.Hash {
	switch len(items) {
	case 0:
		return coinhash.Sum256([]byte("0000"))
	case 1:
		return coinhash.Sum256([]byte(items[0] + items[0]))
	case 2:
		return coinhash.Sum256([]byte(items[0] + items[1]))
	default:
		next := make([]string, 0, (len(items)+1)/2)
		for i := 0; i < len(items); i += 2 {
			var message string
			if i+1 < len(items) {
				message = items[i] + items[i+1]
			} else {
				message = items[i] + items[i]
			}
			h := coinhash.Sum256([]byte(message))
			next = append(next, string(coinhash.LossyUTF8(h[:])))
		}
		return foldMerkle(next)
	}
}
