package p2p

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/clownfish733/coin-net-go/internal/chain"
	"github.com/clownfish733/coin-net-go/internal/miner"
	"github.com/clownfish733/coin-net-go/internal/tx"
)

// blockStreamPace is the delay between successive NewBlock sends during
// catch-up streaming (handleGetBlocks).
const blockStreamPace = 100 * time.Millisecond

// connectDelay is how long Connect waits, after registering the peer and
// before sending its handshake Verack, for the peer's own listener goroutines
// to come up on the other end.
const connectDelay = 200 * time.Millisecond

// peerAddrsConnectDelay is the analogous delay used when dialing a peer
// freshly learned from a PeerAddrs message.
const peerAddrsConnectDelay = 100 * time.Millisecond

// Router holds everything a node needs to answer incoming gossip messages:
// the shared consensus state (guarded by mu, the same lock the miner
// coordinator takes), the set of known peers, and the channel used to tell
// the local miner to restart over a new candidate block.
type Router struct {
	SelfAddr string

	node  *chain.Node
	mu    *sync.RWMutex
	peers *PeerManager
	miner chan<- miner.Command
}

// NewRouter returns a router bound to node (guarded by mu), broadcasting
// discovered peers into peers and nudging the miner over minerCmd whenever
// the chain tip changes.
func NewRouter(selfAddr string, node *chain.Node, mu *sync.RWMutex, peers *PeerManager, minerCmd chan<- miner.Command) *Router {
	return &Router{SelfAddr: selfAddr, node: node, mu: mu, peers: peers, miner: minerCmd}
}

// Handle is the Handler passed to Serve: it dispatches msg from the peer at
// addr to the matching reaction, mirroring the original network handler's
// message table.
func (r *Router) Handle(addr string, msg Message) {
	switch msg.Type {
	case TypeVerack:
		r.handleVerack(addr, msg.Verack)
	case TypeGetInv:
		r.handleGetInv(addr)
	case TypeInv:
		r.handleInv(msg.Inv)
	case TypeGetPeerAddrs:
		r.handleGetPeerAddrs(addr)
	case TypePeerAddrs:
		r.handlePeerAddrs(msg.PeerAddrs)
	case TypePing:
		r.handlePing(addr)
	case TypePong:
		// nothing to do; receipt alone confirms liveness.
	case TypeTransaction:
		r.handleTransaction(addr, msg.Transaction)
	case TypeNewBlock:
		r.handleNewBlock(addr, msg.NewBlock)
	case TypeGetBlocks:
		r.handleGetBlocks(addr, msg.GetBlocks)
	case TypeBlocks:
		r.handleBlocks(msg.Blocks)
	default:
		log.WithField("type", msg.Type).Warn("p2p: unknown message type")
	}
}

// Connect performs the handshake a fresh outbound connection needs: remember
// the peer, wait for its listener to settle, then send our own Verack
// (index 0). The peer is registered before the delay, mirroring the
// register-then-sleep-then-send order the original dial handler uses.
func (r *Router) Connect(addr string) {
	r.connectAfter(addr, connectDelay)
}

func (r *Router) connectAfter(addr string, delay time.Duration) {
	r.peers.Add(addr)
	time.Sleep(delay)

	r.mu.RLock()
	version, height := r.node.Version, r.node.Height
	r.mu.RUnlock()

	Send(addr, r.SelfAddr, NewVerack(0, version, height))
}

func (r *Router) handleVerack(addr string, v *Verack) {
	if v == nil {
		return
	}
	r.peers.Add(addr)

	r.mu.RLock()
	version, height := r.node.Version, r.node.Height
	r.mu.RUnlock()

	if v.Index == 0 {
		// Close the handshake from our side.
		Send(addr, r.SelfAddr, NewVerack(1, version, height))
	} else {
		// The peer just closed a handshake we opened; now that it knows us,
		// ask for its mempool so gossip starts caught up on both sides, not
		// just the chain tip.
		Send(addr, r.SelfAddr, NewGetInv())
	}

	if v.Height > height {
		Send(addr, r.SelfAddr, NewGetBlocks(height+1))
	}
}

func (r *Router) handleGetInv(addr string) {
	r.mu.RLock()
	mempool := r.node.Mempool.ToVec()
	r.mu.RUnlock()

	Send(addr, r.SelfAddr, NewInv(mempool))
}

func (r *Router) handleInv(inv *Inv) {
	if inv == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range inv.Mempool {
		r.admitTransactionLocked(t)
	}
}

func (r *Router) handleGetPeerAddrs(addr string) {
	Send(addr, r.SelfAddr, NewPeerAddrs(r.peers.List()))
}

func (r *Router) handlePeerAddrs(pa *PeerAddrs) {
	if pa == nil {
		return
	}
	for _, addr := range pa.Addresses {
		if addr == r.SelfAddr || r.peers.Contains(addr) {
			continue
		}
		r.connectAfter(addr, peerAddrsConnectDelay)
	}
}

func (r *Router) handlePing(addr string) {
	Send(addr, r.SelfAddr, NewPong())
}

func (r *Router) handleTransaction(from string, t *tx.Transaction) {
	if t == nil {
		return
	}
	r.mu.Lock()
	admitted := r.admitTransactionLocked(*t)
	r.mu.Unlock()

	if admitted {
		r.peers.Broadcast(r.SelfAddr, NewTransaction(*t), from)
	}
}

func (r *Router) handleNewBlock(from string, nb *NewBlock) {
	if nb == nil {
		return
	}
	r.mu.Lock()
	accepted := r.node.AddBlock(nb.Block)
	r.mu.Unlock()

	if !accepted {
		return
	}
	r.peers.Broadcast(r.SelfAddr, Message{Type: TypeNewBlock, NewBlock: nb}, from)
	r.notifyMiner()
}

func (r *Router) handleGetBlocks(addr string, gb *GetBlocks) {
	if gb == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if gb.StartHeight == 0 || gb.StartHeight > uint64(len(r.node.BlockChain)) {
		return
	}
	blocks := r.node.BlockChain[gb.StartHeight-1:]
	for i, block := range blocks {
		if err := Send(addr, r.SelfAddr, NewNewBlock(block)); err != nil {
			return
		}
		if i < len(blocks)-1 {
			time.Sleep(blockStreamPace)
		}
	}
}

func (r *Router) handleBlocks(b *Blocks) {
	if b == nil {
		return
	}
	r.mu.Lock()
	r.node.UpdateBlocks(b.StartHeight, b.BlockChain)
	r.mu.Unlock()

	r.notifyMiner()
}

// admitTransactionLocked validates transaction against the current UTXO set
// and, if it is both valid and new, adds it to the mempool at its computed
// fee. Callers must already hold r.mu.
func (r *Router) admitTransactionLocked(transaction tx.Transaction) bool {
	if !r.node.UTXOs.ValidateTransaction(transaction) {
		return false
	}
	fee, err := r.node.UTXOs.GetFee(transaction)
	if err != nil {
		return false
	}
	return r.node.Mempool.Add(transaction, fee)
}

func (r *Router) notifyMiner() {
	select {
	case r.miner <- miner.CommandUpdateBlock:
	default:
	}
}
