package chain

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/clownfish733/coin-net-go/internal/coinhash"
	"github.com/clownfish733/coin-net-go/internal/tx"
)

// Wallet tracks the subset of the UTXO set a node's own key can spend: the
// outputs locked to its public-key hash, and their running total value.
type Wallet struct {
	PubKey     []byte
	PubKeyHash coinhash.Hash
	utxos      map[string]tx.TxOutput
	Value      uint64
}

// NewWallet returns an empty wallet for the given identity.
func NewWallet(pubKey []byte, pubKeyHash coinhash.Hash) *Wallet {
	return &Wallet{
		PubKey:     pubKey,
		PubKeyHash: pubKeyHash,
		utxos:      make(map[string]tx.TxOutput),
	}
}

// Update folds a newly accepted block into the wallet: outputs paying this
// wallet's pubkey hash are added, and outputs this wallet's own inputs just
// spent are removed.
func (w *Wallet) Update(block Block) {
	for _, t := range block.Transactions {
		hash := t.Hash()
		for i, out := range t.Outputs {
			pkHash, ok := tx.ExtractP2PKHHash(out.Script)
			if !ok || pkHash != w.PubKeyHash {
				continue
			}
			key := outpointKey(hash, uint64(i))
			if _, exists := w.utxos[key]; exists {
				continue
			}
			w.utxos[key] = out
			w.Value += out.Value
		}
		for _, in := range t.Inputs {
			key := outpointKey(in.Prev, in.OutputIndex)
			if out, exists := w.utxos[key]; exists {
				delete(w.utxos, key)
				w.Value -= out.Value
			}
		}
	}
}

// GetInputs greedily selects owned UTXOs until their combined value covers
// amount, returning the spendable inputs (with empty, not-yet-signed
// scripts) and their total value. The third return is false if the wallet
// doesn't hold enough value, in which case inputs is nil.
func (w *Wallet) GetInputs(amount uint64) ([]tx.TxInput, uint64, bool) {
	if amount > w.Value {
		return nil, 0, false
	}
	var inputs []tx.TxInput
	var total uint64
	for key, out := range w.utxos {
		if total >= amount {
			break
		}
		prev, index, err := parseOutpointKey(key)
		if err != nil {
			continue
		}
		inputs = append(inputs, tx.TxInput{Prev: prev, OutputIndex: index, Script: tx.Empty()})
		total += out.Value
	}
	return inputs, total, true
}

// walletJSON is the on-disk representation of a Wallet.
type walletJSON struct {
	PubKey     []byte                   `json:"pub_key"`
	PubKeyHash coinhash.Hash            `json:"pub_key_hash"`
	UTXOs      map[string]tx.TxOutput   `json:"utxos"`
	Value      uint64                   `json:"value"`
}

// MarshalJSON encodes the wallet's identity, owned outputs and value.
func (w *Wallet) MarshalJSON() ([]byte, error) {
	return json.Marshal(walletJSON{
		PubKey:     w.PubKey,
		PubKeyHash: w.PubKeyHash,
		UTXOs:      w.utxos,
		Value:      w.Value,
	})
}

// UnmarshalJSON restores a wallet from its encoded form.
func (w *Wallet) UnmarshalJSON(data []byte) error {
	var wj walletJSON
	if err := json.Unmarshal(data, &wj); err != nil {
		return err
	}
	w.PubKey = wj.PubKey
	w.PubKeyHash = wj.PubKeyHash
	w.utxos = wj.UTXOs
	if w.utxos == nil {
		w.utxos = make(map[string]tx.TxOutput)
	}
	w.Value = wj.Value
	return nil
}

func parseOutpointKey(key string) (coinhash.Hash, uint64, error) {
	hashPart, indexPart, _ := strings.Cut(key, ":")
	hash, err := coinhash.FromHex(hashPart)
	if err != nil {
		return coinhash.Hash{}, 0, err
	}
	index, err := strconv.ParseUint(indexPart, 10, 64)
	if err != nil {
		return coinhash.Hash{}, 0, err
	}
	return hash, index, nil
}
