package p2p

import "sync"

// PeerManager tracks the set of peer addresses a node has exchanged
// handshakes with or learned about from others, guarded against concurrent
// access from the listener's per-connection goroutines.
type PeerManager struct {
	mu    sync.RWMutex
	peers map[string]struct{}
}

// NewPeerManager returns an empty peer manager.
func NewPeerManager() *PeerManager {
	return &PeerManager{peers: make(map[string]struct{})}
}

// Add records addr as a known peer. It is a no-op if addr is already known.
func (m *PeerManager) Add(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peers[addr] = struct{}{}
}

// Remove drops addr, e.g. after a send to it fails.
func (m *PeerManager) Remove(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.peers, addr)
}

// Contains reports whether addr is already known.
func (m *PeerManager) Contains(addr string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.peers[addr]
	return ok
}

// List returns a snapshot of the known peer addresses.
func (m *PeerManager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.peers))
	for addr := range m.peers {
		out = append(out, addr)
	}
	return out
}

// Broadcast sends msg to every known peer except skip (typically the peer
// a message was just received from), dropping any peer that is no longer
// reachable.
func (m *PeerManager) Broadcast(from string, msg Message, skip string) {
	for _, addr := range m.List() {
		if addr == skip {
			continue
		}
		if err := Send(addr, from, msg); err != nil {
			m.Remove(addr)
		}
	}
}
