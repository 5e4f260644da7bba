package chain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clownfish733/coin-net-go/internal/coinhash"
	"github.com/clownfish733/coin-net-go/internal/tx"
)

// ErrInsufficientInputs is returned by GetFee when a transaction's inputs
// don't cover its outputs, or when an input names a UTXO that doesn't exist.
var ErrInsufficientInputs = errors.New("chain: inputs do not cover outputs")

// outpointKey identifies a transaction output the way the UTXO set indexes
// it: the hex hash of the transaction that created it, plus the output
// index within that transaction.
func outpointKey(txHash coinhash.Hash, index uint64) string {
	return fmt.Sprintf("%s:%d", txHash, index)
}

// UTXOSet is the set of currently spendable transaction outputs, keyed by
// the outpoint that created them.
type UTXOSet struct {
	outputs map[string]tx.TxOutput
}

// NewUTXOSet returns an empty UTXO set.
func NewUTXOSet() *UTXOSet {
	return &UTXOSet{outputs: make(map[string]tx.TxOutput)}
}

// Get looks up the output spent by an input.
func (u *UTXOSet) Get(prev coinhash.Hash, index uint64) (tx.TxOutput, bool) {
	out, ok := u.outputs[outpointKey(prev, index)]
	return out, ok
}

// GetFee returns total_in - total_out for transaction, or
// ErrInsufficientInputs if any input's UTXO is missing or outputs exceed
// inputs.
func (u *UTXOSet) GetFee(transaction tx.Transaction) (uint64, error) {
	var totalIn uint64
	for _, in := range transaction.Inputs {
		out, ok := u.Get(in.Prev, in.OutputIndex)
		if !ok {
			return 0, ErrInsufficientInputs
		}
		totalIn += out.Value
	}
	var totalOut uint64
	for _, out := range transaction.Outputs {
		totalOut += out.Value
	}
	if totalOut > totalIn {
		return 0, ErrInsufficientInputs
	}
	return totalIn - totalOut, nil
}

// ValidateTransaction reports whether every input of transaction unlocks
// the UTXO it spends. A coinbase transaction (no inputs) is always valid
// here; the mempool and block assembly paths never admit coinbases from
// peers. VM success on every input means the spend is authorized.
func (u *UTXOSet) ValidateTransaction(transaction tx.Transaction) bool {
	if transaction.IsCoinbase() {
		return true
	}
	if _, err := u.GetFee(transaction); err != nil {
		return false
	}
	for i, in := range transaction.Inputs {
		utxo, ok := u.Get(in.Prev, in.OutputIndex)
		if !ok {
			return false
		}
		program := tx.Concat(in.Script, utxo.Script)
		if !tx.Validate(program, transaction, i, utxo) {
			return false
		}
	}
	return true
}

// AddTransaction records transaction's outputs as spendable. It does not
// remove the outputs its inputs consumed — callers that rebuild a UTXO set
// from a full block should remove spent outputs themselves via AddBlock.
func (u *UTXOSet) AddTransaction(transaction tx.Transaction) {
	hash := transaction.Hash()
	for i, out := range transaction.Outputs {
		u.outputs[outpointKey(hash, uint64(i))] = out
	}
}

// AddBlock validates every transaction in block against the current set,
// then — only if all validate — removes spent outputs and adds new ones.
// Returns false without mutating the set if any transaction is invalid.
func (u *UTXOSet) AddBlock(block Block) bool {
	for _, t := range block.Transactions {
		if !u.ValidateTransaction(t) {
			return false
		}
	}
	for _, t := range block.Transactions {
		for _, in := range t.Inputs {
			delete(u.outputs, outpointKey(in.Prev, in.OutputIndex))
		}
		u.AddTransaction(t)
	}
	return true
}

// MarshalJSON encodes the UTXO set as its outpoint-to-output map.
func (u *UTXOSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.outputs)
}

// UnmarshalJSON restores a UTXO set from its outpoint-to-output map.
func (u *UTXOSet) UnmarshalJSON(data []byte) error {
	outputs := make(map[string]tx.TxOutput)
	if err := json.Unmarshal(data, &outputs); err != nil {
		return err
	}
	u.outputs = outputs
	return nil
}
