package chain

import (
	"testing"

	"github.com/clownfish733/coin-net-go/internal/tx"
)

func TestMempoolOrdersByFeeDescending(t *testing.T) {
	mkTx := func(v int) tx.Transaction {
		return tx.NewTransaction(v, int64(v), nil, nil)
	}

	m := NewMempool()
	m.Add(mkTx(1), 5)
	m.Add(mkTx(2), 50)
	m.Add(mkTx(3), 20)

	next := m.GetNextTransactions()
	if len(next) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(next))
	}
	if next[0].Version != 2 || next[1].Version != 3 || next[2].Version != 1 {
		t.Fatalf("expected fee-descending order 2,3,1, got %d,%d,%d",
			next[0].Version, next[1].Version, next[2].Version)
	}
}

func TestMempoolRejectsDuplicate(t *testing.T) {
	m := NewMempool()
	txn := tx.NewTransaction(1, 1, nil, nil)
	if !m.Add(txn, 1) {
		t.Fatal("expected first Add to succeed")
	}
	if m.Add(txn, 99) {
		t.Fatal("expected duplicate Add to be rejected")
	}
	if m.Size() != 1 {
		t.Fatalf("expected size 1, got %d", m.Size())
	}
}

func TestMempoolRemoveAndCap(t *testing.T) {
	m := NewMempool()
	for i := 0; i < TxPerBlock+3; i++ {
		m.Add(tx.NewTransaction(i, int64(i), nil, nil), uint64(i))
	}
	next := m.GetNextTransactions()
	if len(next) != TxPerBlock {
		t.Fatalf("expected GetNextTransactions capped at %d, got %d", TxPerBlock, len(next))
	}
	if m.Size() != TxPerBlock+3 {
		t.Fatal("GetNextTransactions must not remove entries on its own")
	}

	victim := tx.NewTransaction(0, 0, nil, nil)
	m.Remove(victim)
	if m.Size() != TxPerBlock+2 {
		t.Fatalf("expected size %d after remove, got %d", TxPerBlock+2, m.Size())
	}
}
