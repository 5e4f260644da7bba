// Package api exposes the node's external HTTP surface: submitting a
// transaction, reading node and wallet status, and maintaining the address
// book the submit-transaction form resolves recipient names against.
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/clownfish733/coin-net-go/internal/chain"
	"github.com/clownfish733/coin-net-go/internal/config"
	"github.com/clownfish733/coin-net-go/internal/keys"
	"github.com/clownfish733/coin-net-go/internal/tx"
)

// Broadcaster is the subset of internal/p2p's Network this package depends
// on, kept as an interface so api tests don't need a live listener.
type Broadcaster interface {
	BroadcastTransaction(tx.Transaction)
}

// Server wires the HTTP handlers to a node's guarded consensus state.
type Server struct {
	node            *chain.Node
	mu              *sync.RWMutex
	network         Broadcaster
	nodeStatePath   string
	addressBookPath string
}

// NewServer returns a Server bound to node (guarded by mu), broadcasting
// accepted transactions through network and persisting the address book
// under addressBookPath.
func NewServer(node *chain.Node, mu *sync.RWMutex, network Broadcaster, nodeStatePath, addressBookPath string) *Server {
	return &Server{
		node:            node,
		mu:              mu,
		network:         network,
		nodeStatePath:   nodeStatePath,
		addressBookPath: addressBookPath,
	}
}

// Router builds the mux.Router serving every /api/... endpoint.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/transaction", s.submitTransaction).Methods(http.MethodPost)
	r.HandleFunc("/api/node_status", s.nodeStatus).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/api/user_status", s.userStatus).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/api/address_book", s.getAddressBook).Methods(http.MethodGet)
	r.HandleFunc("/api/address_book", s.postAddressBook).Methods(http.MethodPost)
	r.HandleFunc("/api/save_check", s.saveCheck).Methods(http.MethodGet)
	return r
}

// transactionRequest mirrors the original UI's submit form: parallel
// recipient/amount slices plus a single flat fee.
type transactionRequest struct {
	To       []string `json:"to"`
	ToAmount []uint64 `json:"to_amount"`
	Fee      uint64   `json:"fee"`
}

type transactionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) submitTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, transactionResponse{Message: "invalid request body"})
		return
	}
	if len(req.To) != len(req.ToAmount) {
		writeJSON(w, http.StatusBadRequest, transactionResponse{Message: "to and to_amount must be the same length"})
		return
	}

	var totalSpend uint64
	for _, amount := range req.ToAmount {
		totalSpend += amount
	}
	totalSpend += req.Fee

	s.mu.Lock()
	defer s.mu.Unlock()

	inputs, total, ok := s.node.Wallet.GetInputs(totalSpend)
	if !ok {
		log.WithFields(log.Fields{"requested": totalSpend, "available": s.node.Wallet.Value}).Warn("api: transaction requested more than the wallet holds")
		writeJSON(w, http.StatusUnprocessableEntity, transactionResponse{Message: "insufficient funds"})
		return
	}

	outputs := make([]tx.TxOutput, 0, len(req.To)+1)
	for i, to := range req.To {
		pubKeyHash, err := keys.DecodeAddress(to)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, transactionResponse{Message: "invalid recipient address: " + to})
			return
		}
		outputs = append(outputs, tx.TxOutput{Value: req.ToAmount[i], Script: tx.P2PKHLockingScript(pubKeyHash)})
	}
	if change := total - totalSpend; change > 0 {
		outputs = append(outputs, tx.TxOutput{Value: change, Script: tx.P2PKHLockingScript(s.node.Wallet.PubKeyHash)})
	}

	transaction := tx.NewTransaction(s.node.Version, time.Now().Unix(), inputs, outputs)
	for i, in := range transaction.Inputs {
		utxo, ok := s.node.UTXOs.Get(in.Prev, in.OutputIndex)
		if !ok {
			writeJSON(w, http.StatusInternalServerError, transactionResponse{Message: "wallet referenced a missing utxo"})
			return
		}
		sighash := tx.SigHash(transaction, i, utxo)
		sig := s.node.User.Sign(sighash[:])
		transaction.Inputs[i].Script = tx.P2PKHUnlockingScript(sig, s.node.User.PubKey())
	}

	if !s.node.UTXOs.ValidateTransaction(transaction) {
		writeJSON(w, http.StatusInternalServerError, transactionResponse{Message: "assembled transaction failed to validate"})
		return
	}
	fee, err := s.node.UTXOs.GetFee(transaction)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, transactionResponse{Message: "assembled transaction has no valid fee"})
		return
	}
	s.node.Mempool.Add(transaction, fee)
	s.network.BroadcastTransaction(transaction)

	writeJSON(w, http.StatusOK, transactionResponse{Success: true, Message: "submitted"})
}

type nodeStatusResponse struct {
	Height      uint64 `json:"height"`
	MempoolSize int    `json:"mempool_size"`
	Difficulty  int    `json:"difficulty"`
}

func (s *Server) nodeStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	writeJSON(w, http.StatusOK, nodeStatusResponse{
		Height:      s.node.Height,
		MempoolSize: s.node.Mempool.Size(),
		Difficulty:  s.node.Difficulty,
	})
}

type userStatusResponse struct {
	Amount  uint64 `json:"amount"`
	Address string `json:"address"`
}

func (s *Server) userStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	writeJSON(w, http.StatusOK, userStatusResponse{
		Amount:  s.node.Wallet.Value,
		Address: s.node.User.Address(),
	})
}

func (s *Server) getAddressBook(w http.ResponseWriter, r *http.Request) {
	book, err := config.LoadAddressBook(s.addressBookPath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) postAddressBook(w http.ResponseWriter, r *http.Request) {
	var entry map[string]string
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	book, err := config.LoadAddressBook(s.addressBookPath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	for name, addr := range entry {
		book[name] = addr
	}
	if err := book.Store(s.addressBookPath); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, book)
}

type saveCheckResponse struct {
	Dirty bool `json:"dirty"`
}

// saveCheck reports whether the in-memory node state differs from what is
// persisted on disk — the dirty flag the original UI polls before allowing
// a shutdown to proceed without losing state.
func (s *Server) saveCheck(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	current, err := json.Marshal(s.node)
	s.mu.RUnlock()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	onDisk, err := os.ReadFile(s.nodeStatePath)
	if err != nil {
		// No persisted copy yet counts as dirty: there is something to save.
		writeJSON(w, http.StatusOK, saveCheckResponse{Dirty: true})
		return
	}

	var onDiskNormalized, currentNormalized bytes.Buffer
	if err := json.Compact(&onDiskNormalized, onDisk); err != nil {
		writeJSON(w, http.StatusOK, saveCheckResponse{Dirty: true})
		return
	}
	if err := json.Compact(&currentNormalized, current); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, saveCheckResponse{Dirty: onDiskNormalized.String() != currentNormalized.String()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("api: encoding response failed")
	}
}
