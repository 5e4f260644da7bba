package tx

import (
	"github.com/clownfish733/coin-net-go/internal/coinhash"
	"github.com/clownfish733/coin-net-go/internal/keys"
)

// Op names one of the fixed opcodes the VM understands.
type Op string

const (
	OpPushBytes   Op = "PUSHBYTES"
	OpDup         Op = "DUP"
	OpSHA256      Op = "SHA256"
	OpEqualVerify Op = "EQUALVERIFY"
	OpCheckSig    Op = "CHECKSIG"
)

// OpCode is one instruction in a Script. Data is only meaningful for
// PUSHBYTES.
type OpCode struct {
	Op   Op     `json:"op"`
	Data []byte `json:"data,omitempty"`
}

// PushBytes pushes data onto the evaluation stack.
func PushBytes(data []byte) OpCode { return OpCode{Op: OpPushBytes, Data: data} }

// Dup duplicates the top stack entry.
func Dup() OpCode { return OpCode{Op: OpDup} }

// SHA256Op hashes the lossy-UTF8 re-encoding of the top stack entry.
func SHA256Op() OpCode { return OpCode{Op: OpSHA256} }

// EqualVerify pops two entries and fails evaluation if they differ.
func EqualVerify() OpCode { return OpCode{Op: OpEqualVerify} }

// CheckSig pops a pubkey then a signature and verifies against the
// transaction's signature hash.
func CheckSig() OpCode { return OpCode{Op: OpCheckSig} }

// Script is an ordered sequence of opcodes. The validation program is the
// byte-level concatenation of an unlocking script followed by a locking
// script.
type Script []OpCode

// Empty returns the zero-length script.
func Empty() Script { return Script{} }

// Concat returns the unlocking ∥ locking validation program.
func Concat(unlocking, locking Script) Script {
	out := make(Script, 0, len(unlocking)+len(locking))
	out = append(out, unlocking...)
	out = append(out, locking...)
	return out
}

// P2PKHLockingScript builds the standard pay-to-public-key-hash locking
// script: DUP, SHA256, PUSHBYTES(pkHash), EQUALVERIFY, CHECKSIG.
func P2PKHLockingScript(pkHash coinhash.Hash) Script {
	return Script{
		Dup(),
		SHA256Op(),
		PushBytes(pkHash[:]),
		EqualVerify(),
		CheckSig(),
	}
}

// P2PKHUnlockingScript builds the standard unlocking script:
// PUSHBYTES(sig), PUSHBYTES(pubkey).
func P2PKHUnlockingScript(sig, pubKey []byte) Script {
	return Script{
		PushBytes(sig),
		PushBytes(pubKey),
	}
}

// SigHash clones tx, blanks every input's script, overwrites input
// inputIndex's script with utxo's locking script, and hashes the result.
// Signers call this directly to produce the digest they sign; CHECKSIG
// recomputes the same digest to verify against.
func SigHash(transaction Transaction, inputIndex int, utxo TxOutput) coinhash.Hash {
	modified := transaction
	modified.Inputs = make([]TxInput, len(transaction.Inputs))
	for i, in := range transaction.Inputs {
		modified.Inputs[i] = TxInput{
			Prev:        in.Prev,
			OutputIndex: in.OutputIndex,
			Script:      Empty(),
		}
	}
	modified.Inputs[inputIndex].Script = utxo.Script
	b, err := modified.Serialize()
	if err != nil {
		panic(err)
	}
	return coinhash.Sum256(b)
}

// Validate evaluates script (an unlocking ∥ locking concatenation) against
// transaction input inputIndex and the UTXO it spends. It returns true when
// evaluation leaves a non-zero byte on top of the stack — VM success means
// the spend is authorized.
func Validate(script Script, transaction Transaction, inputIndex int, utxo TxOutput) bool {
	var stack [][]byte

	for _, op := range script {
		switch op.Op {
		case OpPushBytes:
			stack = append(stack, op.Data)

		case OpDup:
			if len(stack) == 0 {
				return false
			}
			stack = append(stack, stack[len(stack)-1])

		case OpSHA256:
			if len(stack) == 0 {
				return false
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			h := coinhash.SumLossyUTF8(top)
			stack = append(stack, h[:])

		case OpEqualVerify:
			if len(stack) < 2 {
				return false
			}
			x1 := stack[len(stack)-1]
			x2 := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			if !bytesEqual(x1, x2) {
				return false
			}

		case OpCheckSig:
			if len(stack) < 2 {
				return false
			}
			pk := stack[len(stack)-1]
			sig := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			sighash := SigHash(transaction, inputIndex, utxo)
			if !keys.Verify(pk, sighash, sig) {
				return false
			}
			stack = append(stack, []byte{1})

		default:
			return false
		}
	}

	if len(stack) == 0 {
		return false
	}
	top := stack[len(stack)-1]
	for _, b := range top {
		if b != 0 {
			return true
		}
	}
	return false
}

// ExtractP2PKHHash reports whether s has the canonical P2PKH locking shape
// (DUP, SHA256, PUSHBYTES(hash), EQUALVERIFY, CHECKSIG) and, if so, returns
// the hash it pays to.
func ExtractP2PKHHash(s Script) (coinhash.Hash, bool) {
	if len(s) != 5 {
		return coinhash.Hash{}, false
	}
	if s[0].Op != OpDup || s[1].Op != OpSHA256 || s[2].Op != OpPushBytes ||
		s[3].Op != OpEqualVerify || s[4].Op != OpCheckSig {
		return coinhash.Hash{}, false
	}
	if len(s[2].Data) != 32 {
		return coinhash.Hash{}, false
	}
	var h coinhash.Hash
	copy(h[:], s[2].Data)
	return h, true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
