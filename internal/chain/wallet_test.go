package chain

import (
	"testing"

	"github.com/clownfish733/coin-net-go/internal/keys"
	"github.com/clownfish733/coin-net-go/internal/tx"
)

func TestWalletUpdateTracksOwnedOutputs(t *testing.T) {
	owner, err := keys.New()
	if err != nil {
		t.Fatalf("keys.New: %v", err)
	}
	stranger, err := keys.New()
	if err != nil {
		t.Fatalf("keys.New: %v", err)
	}

	wallet := NewWallet(owner.PubKey(), owner.PubKeyHash())

	reward := tx.Reward(50, owner.PubKeyHash(), 1, 1)
	other := tx.Reward(50, stranger.PubKeyHash(), 1, 2)
	block := Block{Transactions: []tx.Transaction{reward, other}, TransactionCount: 2}

	wallet.Update(block)

	if wallet.Value != 50 {
		t.Fatalf("expected wallet value 50, got %d", wallet.Value)
	}

	inputs, total, ok := wallet.GetInputs(30)
	if !ok {
		t.Fatal("expected enough funds to cover 30")
	}
	if total < 30 {
		t.Fatalf("expected selected inputs to total at least 30, got %d", total)
	}
	if len(inputs) != 1 {
		t.Fatalf("expected a single input to cover the amount, got %d", len(inputs))
	}

	if _, _, ok := wallet.GetInputs(1000); ok {
		t.Fatal("expected insufficient funds to be reported")
	}
}

func TestWalletUpdateRemovesSpentOutputs(t *testing.T) {
	owner, err := keys.New()
	if err != nil {
		t.Fatalf("keys.New: %v", err)
	}
	recipient, err := keys.New()
	if err != nil {
		t.Fatalf("keys.New: %v", err)
	}

	wallet := NewWallet(owner.PubKey(), owner.PubKeyHash())
	reward := tx.Reward(50, owner.PubKeyHash(), 1, 1)
	wallet.Update(Block{Transactions: []tx.Transaction{reward}, TransactionCount: 1})

	utxo := reward.Outputs[0]
	spend := tx.NewTransaction(1, 2,
		[]tx.TxInput{{Prev: reward.Hash(), OutputIndex: 0, Script: tx.Empty()}},
		[]tx.TxOutput{{Value: 50, Script: tx.P2PKHLockingScript(recipient.PubKeyHash())}},
	)
	sighash := tx.SigHash(spend, 0, utxo)
	sig := owner.Sign(sighash[:])
	spend.Inputs[0].Script = tx.P2PKHUnlockingScript(sig, owner.PubKey())

	wallet.Update(Block{Transactions: []tx.Transaction{spend}, TransactionCount: 1})

	if wallet.Value != 0 {
		t.Fatalf("expected wallet value 0 after spending its only output, got %d", wallet.Value)
	}
}
