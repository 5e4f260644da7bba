package chain

import (
	"container/heap"
	"encoding/json"

	"github.com/clownfish733/coin-net-go/internal/coinhash"
	"github.com/clownfish733/coin-net-go/internal/tx"
)

// TxPerBlock bounds how many mempool transactions GetNextTransactions
// returns for a candidate block.
const TxPerBlock = 10

// TransactionWithFee pairs a transaction with the fee it was admitted to
// the mempool at, which is what the mempool orders by.
type TransactionWithFee struct {
	Tx  tx.Transaction `json:"tx"`
	Fee uint64         `json:"fee"`
}

// txHeap is a max-heap over TransactionWithFee ordered by Fee: the
// highest-fee transaction is always popped first.
type txHeap []TransactionWithFee

func (h txHeap) Len() int            { return len(h) }
func (h txHeap) Less(i, j int) bool  { return h[i].Fee > h[j].Fee }
func (h txHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *txHeap) Push(x interface{}) { *h = append(*h, x.(TransactionWithFee)) }
func (h *txHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Mempool is the fee-ordered pool of transactions waiting to be mined,
// paired with an identity set so the same transaction is never admitted
// twice.
type Mempool struct {
	heap    txHeap
	present map[coinhash.Hash]bool
}

// NewMempool returns an empty mempool.
func NewMempool() *Mempool {
	return &Mempool{present: make(map[coinhash.Hash]bool)}
}

// Add admits transaction at fee, returning false if it is already present.
func (m *Mempool) Add(transaction tx.Transaction, fee uint64) bool {
	h := transaction.Hash()
	if m.present[h] {
		return false
	}
	m.present[h] = true
	heap.Push(&m.heap, TransactionWithFee{Tx: transaction, Fee: fee})
	return true
}

// Update admits every entry not already present, ignoring duplicates.
func (m *Mempool) Update(entries []TransactionWithFee) {
	for _, e := range entries {
		m.Add(e.Tx, e.Fee)
	}
}

// Remove drops transaction from the pool, if present.
func (m *Mempool) Remove(transaction tx.Transaction) {
	h := transaction.Hash()
	if !m.present[h] {
		return
	}
	delete(m.present, h)
	for i, item := range m.heap {
		if item.Tx.Hash() == h {
			heap.Remove(&m.heap, i)
			return
		}
	}
}

// Size returns the number of transactions currently pooled.
func (m *Mempool) Size() int {
	return len(m.heap)
}

// ToVec returns every pooled transaction, in no particular order — used to
// answer a peer's GetInv.
func (m *Mempool) ToVec() []tx.Transaction {
	out := make([]tx.Transaction, len(m.heap))
	for i, item := range m.heap {
		out[i] = item.Tx
	}
	return out
}

// GetNextTransactions returns up to TxPerBlock transactions in descending
// fee order, without removing them from the pool. The caller is expected to
// validate them against the current UTXO set and Remove any that no longer
// apply before assembling a block.
func (m *Mempool) GetNextTransactions() []tx.Transaction {
	tmp := make(txHeap, len(m.heap))
	copy(tmp, m.heap)
	heap.Init(&tmp)

	var out []tx.Transaction
	for i := 0; i < TxPerBlock && tmp.Len() > 0; i++ {
		item := heap.Pop(&tmp).(TransactionWithFee)
		out = append(out, item.Tx)
	}
	return out
}

// MarshalJSON encodes the mempool as its list of pooled entries.
func (m *Mempool) MarshalJSON() ([]byte, error) {
	entries := make([]TransactionWithFee, len(m.heap))
	copy(entries, m.heap)
	return json.Marshal(entries)
}

// UnmarshalJSON restores a mempool from a list of pooled entries.
func (m *Mempool) UnmarshalJSON(data []byte) error {
	var entries []TransactionWithFee
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	m.heap = nil
	m.present = make(map[coinhash.Hash]bool)
	m.Update(entries)
	return nil
}
