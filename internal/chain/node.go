package chain

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/clownfish733/coin-net-go/internal/coinhash"
	"github.com/clownfish733/coin-net-go/internal/keys"
	"github.com/clownfish733/coin-net-go/internal/tx"
)

// DefaultDifficulty is the number of leading '0' characters a mined block's
// lossy-UTF8 hash must carry.
const DefaultDifficulty = 3

// DefaultReward is the coinbase value minted by each block.
const DefaultReward = 10

// Node is a full node's consensus state: its identity, the chain it has
// accepted, the mempool of pending transactions, the UTXO index used to
// validate them, and the derived view of its own spendable wallet.
type Node struct {
	User       *keys.User    `json:"user"`
	Height     uint64        `json:"height"`
	Version    int           `json:"version"`
	Mempool    *Mempool      `json:"mempool"`
	Headers    []BlockHeader `json:"headers"`
	BlockChain []Block       `json:"block_chain"`
	Difficulty int           `json:"difficulty"`
	Reward     uint64        `json:"reward"`
	UTXOs      *UTXOSet      `json:"utxos"`
	Wallet     *Wallet       `json:"wallet"`
}

// NewNode creates a fresh node with a newly generated identity and an empty
// chain.
func NewNode() (*Node, error) {
	user, err := keys.New()
	if err != nil {
		return nil, fmt.Errorf("new node identity: %w", err)
	}
	return &Node{
		User:       user,
		Height:     0,
		Version:    0,
		Mempool:    NewMempool(),
		Difficulty: DefaultDifficulty,
		Reward:     DefaultReward,
		UTXOs:      NewUTXOSet(),
		Wallet:     NewWallet(user.PubKey(), user.PubKeyHash()),
	}, nil
}

// LoadNode restores a node's full state from a JSON document on disk.
func LoadNode(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read node state: %w", err)
	}
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode node state: %w", err)
	}
	return &n, nil
}

// Store persists the node's full state as a JSON document.
func (n *Node) Store(path string) error {
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return fmt.Errorf("encode node state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write node state: %w", err)
	}
	return nil
}

// GetPrevHash is the hash new blocks chain onto: the tip of the accepted
// chain, or a fixed genesis predecessor hash when the chain is empty.
func (n *Node) GetPrevHash() (coinhash.Hash, error) {
	if len(n.BlockChain) == 0 {
		return coinhash.Sum256([]byte("00")), nil
	}
	return n.BlockChain[len(n.BlockChain)-1].Hash()
}

// GetNextTransactions pulls a candidate batch from the mempool, drops any
// that no longer validate against the current UTXO set, and retries until
// the batch it returns is entirely valid.
func (n *Node) GetNextTransactions() []tx.Transaction {
	candidates := n.Mempool.GetNextTransactions()
	allValid := true
	for _, t := range candidates {
		if !n.UTXOs.ValidateTransaction(t) {
			n.Mempool.Remove(t)
			allValid = false
		}
	}
	if allValid {
		return candidates
	}
	return n.GetNextTransactions()
}

// GetNextBlock assembles a candidate block over the next valid mempool
// batch plus this node's own coinbase reward.
func (n *Node) GetNextBlock() (Block, error) {
	transactions := n.GetNextTransactions()
	transactions = append(transactions, tx.Reward(n.Reward, n.Wallet.PubKeyHash, n.Version, time.Now().Unix()))

	prevHash, err := n.GetPrevHash()
	if err != nil {
		return Block{}, err
	}
	return NewBlock(transactions, prevHash, n.Difficulty, n.Version, n.Height+1)
}

// AddBlock admits block if it extends the chain at the expected height,
// meets its declared proof-of-work difficulty, and every one of its
// transactions validates against the current UTXO set. It reports whether
// the block was accepted.
func (n *Node) AddBlock(block Block) bool {
	if block.Header.Height != n.Height+1 {
		return false
	}
	if !blockMeetsOwnDifficulty(block) {
		return false
	}
	if !n.UTXOs.AddBlock(block) {
		return false
	}
	n.commitBlock(block)
	return true
}

// UpdateBlocks applies a contiguous catch-up batch starting at startHeight,
// stopping at the first block that fails to validate.
func (n *Node) UpdateBlocks(startHeight uint64, blocks []Block) {
	if startHeight != n.Height+1 {
		return
	}
	for _, block := range blocks {
		if !blockMeetsOwnDifficulty(block) {
			break
		}
		if !n.UTXOs.AddBlock(block) {
			break
		}
		n.commitBlock(block)
	}
}

// blockMeetsOwnDifficulty re-verifies a received block's proof of work
// against the difficulty it declares in its own header. The original
// prototype never re-checked this on receipt; accepting a peer's block
// without it would let a peer skip mining entirely.
func blockMeetsOwnDifficulty(block Block) bool {
	hash, err := block.Hash()
	if err != nil {
		return false
	}
	return MeetsDifficulty(hash, block.Header.Difficulty)
}

func (n *Node) commitBlock(block Block) {
	n.BlockChain = append(n.BlockChain, block)
	n.Headers = append(n.Headers, block.Header)
	n.Height++
	n.Wallet.Update(block)
	for _, t := range block.Transactions {
		if !t.IsCoinbase() {
			n.Mempool.Remove(t)
		}
	}
}
