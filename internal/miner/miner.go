// Package miner runs the CPU proof-of-work search: a pool of worker
// goroutines race to find a nonce whose block hash meets the network
// difficulty, coordinated by a small command loop that can restart the
// search on a fresh block or stop it entirely.
package miner

import (
	"runtime"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/clownfish733/coin-net-go/internal/chain"
)

// Command directs the coordinator's control loop.
type Command int

const (
	// CommandStop halts all mining workers and returns from Run.
	CommandStop Command = iota
	// CommandUpdateBlock restarts the worker pool over a freshly
	// assembled candidate block, e.g. because a new block arrived from
	// a peer or was mined locally.
	CommandUpdateBlock
)

// Found is called, from a worker goroutine, with a block whose nonce makes
// its hash meet the declared difficulty. The coordinator does not retry on
// error; it logs it, and the reporting worker returns either way.
type Found func(chain.Block) error

// Coordinator owns the worker pool mining against a shared node's next
// candidate block.
type Coordinator struct {
	node  *chain.Node
	mu    *sync.RWMutex
	cmdCh <-chan Command
	found Found
}

// New returns a coordinator that reads the next block from node (guarded by
// mu) and reports found blocks via found.
func New(node *chain.Node, mu *sync.RWMutex, cmdCh <-chan Command, found Found) *Coordinator {
	return &Coordinator{node: node, mu: mu, cmdCh: cmdCh, found: found}
}

// Run drives the mine/update/stop loop until a CommandStop is received or
// cmdCh is closed. It blocks the calling goroutine; callers typically run
// it in its own goroutine.
func (c *Coordinator) Run() {
	block, err := c.nextBlock()
	if err != nil {
		log.WithError(err).Error("miner: building initial block failed")
		return
	}

	stop, wg := c.spawnWorkers(block)

	for cmd := range c.cmdCh {
		switch cmd {
		case CommandStop:
			log.Info("miner: shutting down worker pool")
			stop.Store(true)
			wg.Wait()
			return

		case CommandUpdateBlock:
			log.Info("miner: updating candidate block")
			stop.Store(true)
			wg.Wait()

			block, err = c.nextBlock()
			if err != nil {
				log.WithError(err).Error("miner: building candidate block failed")
				return
			}
			stop, wg = c.spawnWorkers(block)
		}
	}
	stop.Store(true)
	wg.Wait()
}

func (c *Coordinator) nextBlock() (chain.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.node.GetNextBlock()
}

func (c *Coordinator) spawnWorkers(block chain.Block) (*atomic.Bool, *sync.WaitGroup) {
	stop := new(atomic.Bool)
	var wg sync.WaitGroup

	workers := runtime.NumCPU()
	log.Infof("miner: spawning %d workers for block height %d", workers, block.Header.Height)

	for id := 0; id < workers; id++ {
		wg.Add(1)
		go c.mine(block, stop, id, &wg)
	}
	return stop, &wg
}

// mine searches random nonces until stop is set or a hash meets the block's
// declared difficulty, then reports the winning block through c.found and
// returns — it does not keep racing its siblings once one has won.
func (c *Coordinator) mine(block chain.Block, stop *atomic.Bool, id int, wg *sync.WaitGroup) {
	defer wg.Done()

	var attempts uint64
	for !stop.Load() {
		nonce, err := chain.RandomNonce()
		if err != nil {
			log.WithError(err).Error("miner: generating nonce failed")
			return
		}
		candidate := block.WithNonce(nonce)

		hash, err := candidate.Hash()
		if err != nil {
			log.WithError(err).Error("miner: hashing candidate block failed")
			return
		}

		attempts++
		if attempts%250000 == 0 && id == 0 {
			log.Infof("miner: each worker tried %d blocks", attempts)
		}

		if chain.MeetsDifficulty(hash, candidate.Header.Difficulty) {
			log.WithField("height", candidate.Header.Height).Info("miner: found block")
			if err := c.found(candidate); err != nil {
				log.WithError(err).Error("miner: reporting found block failed")
			}
			return
		}
	}
}
