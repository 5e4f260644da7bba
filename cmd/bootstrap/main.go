// Command bootstrap runs a gossip node that never dials out: other nodes
// list its address in configs/Bootstrap.json and connect to it first,
// giving a fresh network a fixed point to discover peers through.
package main

import (
	"net/http"
	"os"
	"sync"
	"syscall"

	death "github.com/vrecan/death/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/clownfish733/coin-net-go/internal/api"
	"github.com/clownfish733/coin-net-go/internal/chain"
	"github.com/clownfish733/coin-net-go/internal/config"
	"github.com/clownfish733/coin-net-go/internal/miner"
	"github.com/clownfish733/coin-net-go/internal/p2p"
)

const (
	netAddr       = "0.0.0.0:8081"
	apiAddr       = "0.0.0.0:8091"
	nodeStatePath = "configs/bootstrap_node.json"
)

func main() {
	root := &cobra.Command{
		Use:   "bootstrap",
		Short: "Run a coin-net-go bootstrap node",
		Args:  cobra.NoArgs,
		RunE:  run,
	}

	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("bootstrap: exiting")
	}
}

func run(cmd *cobra.Command, args []string) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.Info("bootstrap: starting")

	node, err := chain.NewNode()
	if err != nil {
		return err
	}

	var mu sync.RWMutex
	minerCmd := make(chan miner.Command, 10)

	// A bootstrap node never dials out; it only ever accepts connections
	// from regular nodes bootstrapping themselves against it.
	net, netErrCh := p2p.Start(netAddr, node, &mu, minerCmd, nil)

	coordinator := miner.New(node, &mu, minerCmd, net.Broadcast)
	go coordinator.Run()

	server := api.NewServer(node, &mu, net, nodeStatePath, config.AddressBookPath)
	go func() {
		if err := http.ListenAndServe(apiAddr, server.Router()); err != nil {
			log.WithError(err).Error("bootstrap: api server stopped")
		}
	}()

	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	go func() {
		if err := <-netErrCh; err != nil {
			log.WithError(err).Error("bootstrap: network listener stopped")
		}
	}()

	d.WaitForDeathWithFunc(func() {
		log.Info("bootstrap: shutting down")
		minerCmd <- miner.CommandStop

		mu.RLock()
		defer mu.RUnlock()
		if err := node.Store(nodeStatePath); err != nil {
			log.WithError(err).Error("bootstrap: failed to persist state on shutdown")
		}
	})

	return nil
}
