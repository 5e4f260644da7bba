// Package p2p implements the gossip network: a one-message-per-connection
// JSON wire protocol (no length prefix — each connection carries exactly one
// document and is then closed), a peer manager, and the router that drives
// handshakes, block and transaction propagation, and chain catch-up between
// nodes.
package p2p

import (
	"github.com/clownfish733/coin-net-go/internal/chain"
	"github.com/clownfish733/coin-net-go/internal/tx"
)

// MessageType discriminates the payload carried by a Message.
type MessageType string

const (
	TypeVerack       MessageType = "verack"
	TypeTransaction  MessageType = "transaction"
	TypeGetInv       MessageType = "get_inv"
	TypeInv          MessageType = "inv"
	TypeGetPeerAddrs MessageType = "get_peer_addrs"
	TypePeerAddrs    MessageType = "peer_addrs"
	TypePing         MessageType = "ping"
	TypePong         MessageType = "pong"
	TypeNewBlock     MessageType = "new_block"
	TypeGetBlocks    MessageType = "get_blocks"
	TypeBlocks       MessageType = "blocks"
)

// Message is the tagged envelope every NetMessage variant rides in over the
// wire. Exactly one payload field is populated, matching Type. From carries
// the sender's own listening address — since each message is its own
// throwaway TCP connection, the dialer's ephemeral source port is useless
// for a reply, so senders report the address they can be reached back on.
type Message struct {
	Type MessageType `json:"type"`
	From string      `json:"from"`

	Verack       *Verack       `json:"verack,omitempty"`
	Transaction  *tx.Transaction `json:"transaction,omitempty"`
	GetInv       *GetInv       `json:"get_inv,omitempty"`
	Inv          *Inv          `json:"inv,omitempty"`
	GetPeerAddrs *GetPeerAddrs `json:"get_peer_addrs,omitempty"`
	PeerAddrs    *PeerAddrs    `json:"peer_addrs,omitempty"`
	Ping         *Ping         `json:"ping,omitempty"`
	Pong         *Pong         `json:"pong,omitempty"`
	NewBlock     *NewBlock     `json:"new_block,omitempty"`
	GetBlocks    *GetBlocks    `json:"get_blocks,omitempty"`
	Blocks       *Blocks       `json:"blocks,omitempty"`
}

// Verack is the handshake reply: index 0 opens the handshake, index 1
// closes it, and both sides report their version and height so either can
// ask the other for missing blocks.
type Verack struct {
	Index   int    `json:"index"`
	Version int    `json:"version"`
	Height  uint64 `json:"height"`
}

// NewVerack wraps a Verack in a Message.
func NewVerack(index, version int, height uint64) Message {
	return Message{Type: TypeVerack, Verack: &Verack{Index: index, Version: version, Height: height}}
}

// GetInv requests the peer's current mempool contents.
type GetInv struct{}

// NewGetInv wraps a GetInv in a Message.
func NewGetInv() Message { return Message{Type: TypeGetInv, GetInv: &GetInv{}} }

// Inv answers GetInv with the sender's mempool.
type Inv struct {
	Mempool []tx.Transaction `json:"mempool"`
}

// NewInv wraps an Inv in a Message.
func NewInv(mempool []tx.Transaction) Message {
	return Message{Type: TypeInv, Inv: &Inv{Mempool: mempool}}
}

// NewTransaction wraps a single transaction for gossip.
func NewTransaction(t tx.Transaction) Message {
	return Message{Type: TypeTransaction, Transaction: &t}
}

// GetPeerAddrs requests the peer's known peer addresses.
type GetPeerAddrs struct{}

// NewGetPeerAddrs wraps a GetPeerAddrs in a Message.
func NewGetPeerAddrs() Message {
	return Message{Type: TypeGetPeerAddrs, GetPeerAddrs: &GetPeerAddrs{}}
}

// PeerAddrs answers GetPeerAddrs with known dialable addresses.
type PeerAddrs struct {
	Addresses []string `json:"addresses"`
}

// NewPeerAddrs wraps a PeerAddrs in a Message.
func NewPeerAddrs(addresses []string) Message {
	return Message{Type: TypePeerAddrs, PeerAddrs: &PeerAddrs{Addresses: addresses}}
}

// Ping requests a Pong.
type Ping struct{}

// NewPing wraps a Ping in a Message.
func NewPing() Message { return Message{Type: TypePing, Ping: &Ping{}} }

// Pong answers a Ping.
type Pong struct{}

// NewPong wraps a Pong in a Message.
func NewPong() Message { return Message{Type: TypePong, Pong: &Pong{}} }

// NewBlock announces a newly mined or received block.
type NewBlock struct {
	Block chain.Block `json:"block"`
}

// NewNewBlock wraps a NewBlock in a Message.
func NewNewBlock(block chain.Block) Message {
	return Message{Type: TypeNewBlock, NewBlock: &NewBlock{Block: block}}
}

// GetBlocks requests every block from start_height onward.
type GetBlocks struct {
	StartHeight uint64 `json:"start_height"`
}

// NewGetBlocks wraps a GetBlocks in a Message.
func NewGetBlocks(startHeight uint64) Message {
	return Message{Type: TypeGetBlocks, GetBlocks: &GetBlocks{StartHeight: startHeight}}
}

// Blocks carries a contiguous run of the chain in one message. No handler in
// this router ever constructs one — handleGetBlocks answers catch-up
// requests by pacing individual NewBlock sends instead (matching the
// original network handler's active GetBlocks path) — but a peer built
// against the wire protocol's full message catalogue may still send one, and
// handleBlocks applies it the same way a paced NewBlock stream would.
type Blocks struct {
	StartHeight uint64        `json:"start_height"`
	BlockChain  []chain.Block `json:"blockchain"`
}
