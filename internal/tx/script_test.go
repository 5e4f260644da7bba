package tx

import (
	"testing"

	"github.com/clownfish733/coin-net-go/internal/keys"
)

func mustUser(t *testing.T) *keys.User {
	t.Helper()
	u, err := keys.New()
	if err != nil {
		t.Fatalf("keys.New: %v", err)
	}
	return u
}

// buildSpend returns a one-input transaction spending utxo, signed by
// signer.
func buildSpend(t *testing.T, signer *keys.User, utxo TxOutput) Transaction {
	t.Helper()
	spend := Transaction{
		Timestamp:   1,
		Version:     1,
		InputCount:  1,
		Inputs:      []TxInput{{Prev: [32]byte{}, OutputIndex: 0, Script: Empty()}},
		OutputCount: 1,
		Outputs:     []TxOutput{{Value: utxo.Value, Script: utxo.Script}},
	}
	sighash := SigHash(spend, 0, utxo)
	sig := signer.Sign(sighash[:])
	spend.Inputs[0].Script = P2PKHUnlockingScript(sig, signer.PubKey())
	return spend
}

func TestValidateP2PKHSuccess(t *testing.T) {
	a := mustUser(t)
	utxo := TxOutput{Value: 10, Script: P2PKHLockingScript(a.PubKeyHash())}
	spend := buildSpend(t, a, utxo)

	program := Concat(spend.Inputs[0].Script, utxo.Script)
	if !Validate(program, spend, 0, utxo) {
		t.Fatal("expected P2PKH validation to succeed")
	}
}

func TestValidateP2PKHRejectsMutatedSignature(t *testing.T) {
	a := mustUser(t)
	utxo := TxOutput{Value: 10, Script: P2PKHLockingScript(a.PubKeyHash())}
	spend := buildSpend(t, a, utxo)

	sig := append([]byte(nil), spend.Inputs[0].Script[0].Data...)
	sig[len(sig)-1] ^= 0xff
	spend.Inputs[0].Script[0].Data = sig

	program := Concat(spend.Inputs[0].Script, utxo.Script)
	if Validate(program, spend, 0, utxo) {
		t.Fatal("expected validation to fail on a mutated signature byte")
	}
}

func TestValidateP2PKHRejectsWrongPubKeyHash(t *testing.T) {
	a := mustUser(t)
	b := mustUser(t)
	utxo := TxOutput{Value: 10, Script: P2PKHLockingScript(b.PubKeyHash())}
	spend := buildSpend(t, a, utxo)

	program := Concat(spend.Inputs[0].Script, utxo.Script)
	if Validate(program, spend, 0, utxo) {
		t.Fatal("expected validation to fail when unlocking with the wrong key")
	}
}

func TestValidateEmptyProgramFails(t *testing.T) {
	if Validate(Empty(), Transaction{}, 0, TxOutput{}) {
		t.Fatal("expected empty program to fail")
	}
}
