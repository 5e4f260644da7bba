package p2p

import (
	"sync"
	"testing"
	"time"

	"github.com/clownfish733/coin-net-go/internal/chain"
	"github.com/clownfish733/coin-net-go/internal/miner"
	"github.com/clownfish733/coin-net-go/internal/tx"
)

type testNode struct {
	addr   string
	node   *chain.Node
	mu     sync.RWMutex
	router *Router
	peers  *PeerManager
}

func newTestNode(t *testing.T, addr string) *testNode {
	t.Helper()
	node, err := chain.NewNode()
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	tn := &testNode{addr: addr, node: node, peers: NewPeerManager()}
	cmdCh := make(chan miner.Command, 4)
	tn.router = NewRouter(addr, node, &tn.mu, tn.peers, cmdCh)
	return tn
}

func (tn *testNode) serve(t *testing.T) {
	t.Helper()
	go func() {
		_ = Serve(tn.addr, tn.router.Handle)
	}()
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// mineForTest brute-forces a nonce satisfying block's own difficulty,
// mirroring internal/chain's own test helper of the same name.
func mineForTest(t *testing.T, block chain.Block) chain.Block {
	t.Helper()
	for i := 0; i < 2_000_000; i++ {
		nonce, err := chain.RandomNonce()
		if err != nil {
			t.Fatalf("RandomNonce: %v", err)
		}
		candidate := block.WithNonce(nonce)
		hash, err := candidate.Hash()
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		if chain.MeetsDifficulty(hash, candidate.Header.Difficulty) {
			return candidate
		}
	}
	t.Fatal("failed to mine test block within iteration budget")
	return chain.Block{}
}

func TestHandshakeRegistersBothPeers(t *testing.T) {
	a := newTestNode(t, "127.0.0.1:19801")
	b := newTestNode(t, "127.0.0.1:19802")
	a.serve(t)
	b.serve(t)
	time.Sleep(50 * time.Millisecond) // let both listeners come up

	a.router.Connect(b.addr)

	waitFor(t, 2*time.Second, func() bool {
		return a.peers.Contains(b.addr) && b.peers.Contains(a.addr)
	})
}

func TestHandshakeTriggersCatchUp(t *testing.T) {
	a := newTestNode(t, "127.0.0.1:19811")
	b := newTestNode(t, "127.0.0.1:19812")

	a.node.Difficulty = 1
	block, err := a.node.GetNextBlock()
	if err != nil {
		t.Fatalf("GetNextBlock: %v", err)
	}
	mined := mineForTest(t, block)
	if !a.node.AddBlock(mined) {
		t.Fatal("expected a to accept its own mined block")
	}

	a.serve(t)
	b.serve(t)
	time.Sleep(50 * time.Millisecond)

	// b connects to a, whose Verack reports height 1; b should ask for and
	// receive the missing block.
	b.router.Connect(a.addr)

	waitFor(t, 2*time.Second, func() bool {
		b.mu.RLock()
		defer b.mu.RUnlock()
		return b.node.Height == 1
	})
}

// fundedPair returns two nodes that have both already synced the same
// single mined block, so a's wallet holds a spendable coinbase output and
// b's UTXO set can validate a transaction spending it.
func fundedPair(t *testing.T, addrA, addrB string) (*testNode, *testNode) {
	t.Helper()
	a := newTestNode(t, addrA)
	b := newTestNode(t, addrB)

	a.node.Difficulty = 1
	block, err := a.node.GetNextBlock()
	if err != nil {
		t.Fatalf("GetNextBlock: %v", err)
	}
	mined := mineForTest(t, block)
	if !a.node.AddBlock(mined) {
		t.Fatal("expected a to accept its own mined block")
	}
	b.node.Difficulty = a.node.Difficulty
	if !b.node.AddBlock(mined) {
		t.Fatal("expected b to accept the same block")
	}
	return a, b
}

// buildSelfSpend spends amount+fee of a's own coinbase output back to
// itself, signed with a's identity key.
func buildSelfSpend(t *testing.T, a *testNode, amount, fee uint64) tx.Transaction {
	t.Helper()
	inputs, total, ok := a.node.Wallet.GetInputs(amount + fee)
	if !ok {
		t.Fatalf("wallet does not hold enough to spend %d", amount+fee)
	}
	change := total - amount - fee

	outputs := []tx.TxOutput{{Value: amount, Script: tx.P2PKHLockingScript(a.node.Wallet.PubKeyHash)}}
	if change > 0 {
		outputs = append(outputs, tx.TxOutput{Value: change, Script: tx.P2PKHLockingScript(a.node.Wallet.PubKeyHash)})
	}

	transaction := tx.NewTransaction(a.node.Version, 1, inputs, outputs)
	for i, in := range transaction.Inputs {
		utxo, ok := a.node.UTXOs.Get(in.Prev, in.OutputIndex)
		if !ok {
			t.Fatalf("missing utxo for input %d", i)
		}
		sighash := tx.SigHash(transaction, i, utxo)
		sig := a.node.User.Sign(sighash[:])
		transaction.Inputs[i].Script = tx.P2PKHUnlockingScript(sig, a.node.User.PubKey())
	}
	return transaction
}

func TestTransactionMessagePropagatesAndValidates(t *testing.T) {
	a, b := fundedPair(t, "127.0.0.1:19831", "127.0.0.1:19832")
	c := newTestNode(t, "127.0.0.1:19833")
	c.node.Difficulty = a.node.Difficulty

	a.serve(t)
	b.serve(t)
	c.serve(t)
	time.Sleep(50 * time.Millisecond)

	b.peers.Add(c.addr)
	c.peers.Add(b.addr)

	spend := buildSelfSpend(t, a, 3, 1)

	if err := Send(b.addr, a.addr, NewTransaction(spend)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		b.mu.RLock()
		defer b.mu.RUnlock()
		return b.node.Mempool.Size() == 1
	})
}

func TestHandshakeCompletionRequestsMempoolInv(t *testing.T) {
	a, b := fundedPair(t, "127.0.0.1:19851", "127.0.0.1:19852")
	a.serve(t)
	b.serve(t)
	time.Sleep(50 * time.Millisecond)

	spend := buildSelfSpend(t, a, 3, 1)
	a.mu.Lock()
	if !a.router.admitTransactionLocked(spend) {
		a.mu.Unlock()
		t.Fatal("expected a to admit its own spend into its mempool")
	}
	a.mu.Unlock()

	// b opens the handshake; once a closes it (Verack index 1), b should ask
	// a for its mempool via GetInv and receive the pending spend back in Inv.
	b.router.Connect(a.addr)

	waitFor(t, 2*time.Second, func() bool {
		b.mu.RLock()
		defer b.mu.RUnlock()
		return b.node.Mempool.Size() == 1
	})
}

func TestHandleBlocksAppliesCatchUpBatch(t *testing.T) {
	a := newTestNode(t, "127.0.0.1:19861")
	b := newTestNode(t, "127.0.0.1:19862")

	a.node.Difficulty = 1
	block, err := a.node.GetNextBlock()
	if err != nil {
		t.Fatalf("GetNextBlock: %v", err)
	}
	mined := mineForTest(t, block)
	if !a.node.AddBlock(mined) {
		t.Fatal("expected a to accept its own mined block")
	}

	if b.node.Height != 0 {
		t.Fatalf("expected b to start at height 0, got %d", b.node.Height)
	}

	// b never dialed a; this simulates a peer that proactively sent a Blocks
	// batch instead of the usual paced NewBlock stream.
	b.router.Handle(a.addr, Message{
		Type: TypeBlocks,
		Blocks: &Blocks{
			StartHeight: 1,
			BlockChain:  a.node.BlockChain,
		},
	})

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.node.Height != 1 {
		t.Fatalf("expected handleBlocks to advance b to height 1, got %d", b.node.Height)
	}
}

func TestPingIsAcceptedByListener(t *testing.T) {
	a := newTestNode(t, "127.0.0.1:19841")
	b := newTestNode(t, "127.0.0.1:19842")
	a.serve(t)
	b.serve(t)
	time.Sleep(50 * time.Millisecond)

	if err := Send(b.addr, a.addr, NewPing()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	// Pong is a one-way reply under this scheme (a fresh connection dialed
	// back to a); there is nothing further for a to observe here beyond the
	// send succeeding without error, which confirms b's listener accepted
	// and routed the ping without panicking.
}
