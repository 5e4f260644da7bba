// Package tx holds the transaction and script types shared by the UTXO set,
// mempool, wallet and script VM: a Transaction's inputs carry unlocking
// Scripts, its outputs carry locking Scripts, and identity is the SHA-256 of
// the transaction's canonical JSON encoding.
package tx

import (
	"encoding/json"

	"github.com/clownfish733/coin-net-go/internal/coinhash"
)

// Transaction is the on-chain unit of value transfer. A Transaction with no
// inputs is a coinbase (block reward).
type Transaction struct {
	Timestamp   int64      `json:"timestamp"`
	Version     int        `json:"version"`
	InputCount  int        `json:"input_count"`
	Inputs      []TxInput  `json:"inputs"`
	OutputCount int        `json:"output_count"`
	Outputs     []TxOutput `json:"outputs"`
}

// TxInput names the UTXO it spends and carries an unlocking script.
type TxInput struct {
	Prev        coinhash.Hash `json:"prev"`
	OutputIndex uint64        `json:"output_index"`
	Script      Script        `json:"script"`
}

// TxOutput carries a locking script gating who may spend its value.
type TxOutput struct {
	Value  uint64 `json:"value"`
	Script Script `json:"script"`
}

// IsCoinbase reports whether tx creates new value rather than spending
// existing outputs.
func (t Transaction) IsCoinbase() bool {
	return t.InputCount == 0
}

// Serialize returns the transaction's canonical JSON encoding. Equality and
// hashing over transactions are always computed over this form.
func (t Transaction) Serialize() ([]byte, error) {
	return json.Marshal(t)
}

// Hash returns the SHA-256 digest of t's canonical serialization. It is the
// transaction's identity and the key under which its outputs are recorded in
// the UTXO set.
func (t Transaction) Hash() coinhash.Hash {
	b, err := t.Serialize()
	if err != nil {
		// Transaction fields are all JSON-safe; Marshal cannot fail here.
		panic(err)
	}
	return coinhash.Sum256(b)
}

// Equal compares two transactions by serialized identity.
func (t Transaction) Equal(other Transaction) bool {
	return t.Hash() == other.Hash()
}

// NewTransaction builds a regular (non-coinbase) transaction.
func NewTransaction(version int, timestamp int64, inputs []TxInput, outputs []TxOutput) Transaction {
	return Transaction{
		Timestamp:   timestamp,
		Version:     version,
		InputCount:  len(inputs),
		Inputs:      inputs,
		OutputCount: len(outputs),
		Outputs:     outputs,
	}
}

// Reward builds the coinbase transaction paying reward units to pubKeyHash.
func Reward(reward uint64, pubKeyHash coinhash.Hash, version int, timestamp int64) Transaction {
	return Transaction{
		Timestamp:   timestamp,
		Version:     version,
		InputCount:  0,
		Inputs:      nil,
		OutputCount: 1,
		Outputs: []TxOutput{
			{
				Value:  reward,
				Script: P2PKHLockingScript(pubKeyHash),
			},
		},
	}
}
