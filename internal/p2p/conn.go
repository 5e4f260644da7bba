package p2p

import (
	"bytes"
	"encoding/json"
	"io"
	"net"

	log "github.com/sirupsen/logrus"
)

const protocol = "tcp"

// Send dials addr, writes msg as a single JSON document, and closes the
// connection. One message per connection, matching how this network's peers
// exchange gossip: there is no persistent session to multiplex over, so the
// framing problem disappears along with the connection. from is stamped
// onto msg.From so the receiver can reply; it is the sender's own listen
// address.
func Send(addr, from string, msg Message) error {
	msg.From = from
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	conn, err := net.Dial(protocol, addr)
	if err != nil {
		log.WithField("addr", addr).Warn("p2p: peer unreachable")
		return err
	}
	defer conn.Close()

	_, err = io.Copy(conn, bytes.NewReader(payload))
	return err
}

// Handler processes one fully-read incoming message. from is the sender's
// self-reported listen address (msg.From), not the TCP peer address, since
// the two are never the same for a dial-per-message connection.
type Handler func(from string, msg Message)

// Serve accepts connections on addr until the listener is closed, reading
// each connection to completion and handing the decoded message to handle.
// It blocks the calling goroutine.
func Serve(addr string, handle Handler) error {
	ln, err := net.Listen(protocol, addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	log.WithField("addr", addr).Info("p2p: listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.WithError(err).Error("p2p: accept failed")
			return err
		}
		go handleConnection(conn, handle)
	}
}

func handleConnection(conn net.Conn, handle Handler) {
	defer conn.Close()

	req, err := io.ReadAll(conn)
	if err != nil {
		log.WithError(err).Error("p2p: reading connection failed")
		return
	}

	var msg Message
	if err := json.Unmarshal(req, &msg); err != nil {
		log.WithError(err).Error("p2p: decoding message failed")
		return
	}

	log.WithFields(log.Fields{"type": msg.Type, "from": msg.From}).Info("p2p: received message")
	handle(msg.From, msg)
}
