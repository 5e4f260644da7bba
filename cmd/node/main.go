// Command node runs a full gossip-connected coin-net-go node: it mines,
// answers peer requests, and serves the external HTTP API, persisting its
// state to configs/node.json on a clean shutdown.
package main

import (
	"fmt"
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
	netAddr = "0.0.0.0:8080"
	apiAddr = "0.0.0.0:8090"
)

func main() {
	root := &cobra.Command{
		Use:       "node [new|load]",
		Short:     "Run a coin-net-go full node",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"new", "load"},
		RunE:      run,
	}

	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("node: exiting")
	}
}

func run(cmd *cobra.Command, args []string) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	node, err := loadOrCreateNode(args[0])
	if err != nil {
		return err
	}
	log.WithField("mode", args[0]).Info("node: starting")

	var mu sync.RWMutex
	minerCmd := make(chan miner.Command, 10)

	bootstrap, err := config.LoadBootstrap(config.BootstrapPath)
	if err != nil {
		log.WithError(err).Warn("node: failed to read bootstrap list, starting with no peers")
	}

	net, netErrCh := p2p.Start(netAddr, node, &mu, minerCmd, bootstrap)

	coordinator := miner.New(node, &mu, minerCmd, net.Broadcast)
	go coordinator.Run()

	server := api.NewServer(node, &mu, net, config.NodeStatePath, config.AddressBookPath)
	go func() {
		if err := http.ListenAndServe(apiAddr, server.Router()); err != nil {
			log.WithError(err).Error("node: api server stopped")
		}
	}()

	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	go func() {
		if err := <-netErrCh; err != nil {
			log.WithError(err).Error("node: network listener stopped")
		}
	}()

	d.WaitForDeathWithFunc(func() {
		log.Info("node: shutting down")
		minerCmd <- miner.CommandStop

		mu.RLock()
		defer mu.RUnlock()
		if err := node.Store(config.NodeStatePath); err != nil {
			log.WithError(err).Error("node: failed to persist state on shutdown")
		}
	})

	return nil
}

func loadOrCreateNode(mode string) (*chain.Node, error) {
	switch mode {
	case "load":
		return chain.LoadNode(config.NodeStatePath)
	case "new":
		return chain.NewNode()
	default:
		return nil, fmt.Errorf("invalid argument %q: expected 'new' or 'load'", mode)
	}
}
