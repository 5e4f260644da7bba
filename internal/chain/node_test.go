package chain

import "testing"

// mineForTest brute-forces a nonce satisfying block's own difficulty. Test
// difficulties are kept at 1 so this terminates quickly.
func mineForTest(t *testing.T, block Block) Block {
	t.Helper()
	for i := 0; i < 2_000_000; i++ {
		nonce, err := RandomNonce()
		if err != nil {
			t.Fatalf("RandomNonce: %v", err)
		}
		candidate := block.WithNonce(nonce)
		hash, err := candidate.Hash()
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		if MeetsDifficulty(hash, candidate.Header.Difficulty) {
			return candidate
		}
	}
	t.Fatal("failed to mine test block within iteration budget")
	return Block{}
}

func TestNodeAddBlockUpdatesHeightWalletAndChain(t *testing.T) {
	node, err := NewNode()
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	node.Difficulty = 1

	block, err := node.GetNextBlock()
	if err != nil {
		t.Fatalf("GetNextBlock: %v", err)
	}
	mined := mineForTest(t, block)

	if !node.AddBlock(mined) {
		t.Fatal("expected genesis-height block to be accepted")
	}
	if node.Height != 1 {
		t.Fatalf("expected height 1, got %d", node.Height)
	}
	if node.Wallet.Value != node.Reward {
		t.Fatalf("expected wallet value %d, got %d", node.Reward, node.Wallet.Value)
	}
	if len(node.BlockChain) != 1 {
		t.Fatalf("expected one block on chain, got %d", len(node.BlockChain))
	}
}

func TestNodeAddBlockRejectsWrongHeight(t *testing.T) {
	node, err := NewNode()
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	node.Difficulty = 1

	block, err := node.GetNextBlock()
	if err != nil {
		t.Fatalf("GetNextBlock: %v", err)
	}
	mined := mineForTest(t, block)
	mined.Header.Height = 5

	if node.AddBlock(mined) {
		t.Fatal("expected wrong-height block to be rejected")
	}
	if node.Height != 0 {
		t.Fatalf("expected height to stay 0, got %d", node.Height)
	}
}

func TestNodeAddBlockRejectsUnmetDifficulty(t *testing.T) {
	node, err := NewNode()
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	node.Difficulty = 32 // unreachable within this test's patience

	block, err := node.GetNextBlock()
	if err != nil {
		t.Fatalf("GetNextBlock: %v", err)
	}
	// block.Header.Nonce is still the zero value; it essentially never
	// meets a difficulty this high.
	if node.AddBlock(block) {
		t.Fatal("expected unmined block to be rejected")
	}
}
