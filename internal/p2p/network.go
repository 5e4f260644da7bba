package p2p

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/clownfish733/coin-net-go/internal/chain"
	"github.com/clownfish733/coin-net-go/internal/miner"
	"github.com/clownfish733/coin-net-go/internal/tx"
)

// peerRefreshInterval is how often a running node asks its known peers for
// addresses it doesn't have yet, so the network stays connected as nodes
// join after bootstrap.
const peerRefreshInterval = 30 * time.Second

// Network ties the listener, router and peer manager together into the one
// thing cmd/node needs to start and stop gossip.
type Network struct {
	Addr   string
	Router *Router
	Peers  *PeerManager
}

// Start builds a Network bound to node and begins listening on addr. It
// dials every address in bootstrap to join the network, then serves
// incoming connections until the process exits; Serve's error, if any, is
// returned on the channel once the listener stops.
func Start(addr string, node *chain.Node, mu *sync.RWMutex, minerCmd chan<- miner.Command, bootstrap []string) (*Network, <-chan error) {
	peers := NewPeerManager()
	router := NewRouter(addr, node, mu, peers, minerCmd)
	net := &Network{Addr: addr, Router: router, Peers: peers}

	for _, b := range bootstrap {
		if b == addr {
			continue
		}
		go router.Connect(b)
	}

	go net.refreshPeersPeriodically()

	errCh := make(chan error, 1)
	go func() {
		errCh <- Serve(addr, router.Handle)
	}()

	return net, errCh
}

// refreshPeersPeriodically asks every known peer for addresses we don't
// have yet, letting a node that joined after the bootstrap round discover
// the rest of the network transitively.
func (n *Network) refreshPeersPeriodically() {
	ticker := time.NewTicker(peerRefreshInterval)
	defer ticker.Stop()

	for range ticker.C {
		for _, addr := range n.Peers.List() {
			if err := Send(addr, n.Addr, NewGetPeerAddrs()); err != nil {
				log.WithField("addr", addr).Debug("p2p: peer refresh failed")
			}
		}
	}
}

// Broadcast is the miner's Found callback: it commits a locally mined block
// to the node, announces it to every known peer, and nudges the local miner
// to restart over the new tip.
func (n *Network) Broadcast(block chain.Block) error {
	n.Router.mu.Lock()
	accepted := n.Router.node.AddBlock(block)
	n.Router.mu.Unlock()

	if !accepted {
		log.WithField("height", block.Header.Height).Warn("p2p: locally mined block rejected by own node")
		return nil
	}

	n.Peers.Broadcast(n.Addr, NewNewBlock(block), "")
	n.Router.notifyMiner()
	return nil
}

// BroadcastTransaction gossips a transaction the local API accepted.
func (n *Network) BroadcastTransaction(t tx.Transaction) {
	n.Peers.Broadcast(n.Addr, NewTransaction(t), "")
}
