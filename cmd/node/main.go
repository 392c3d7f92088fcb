// Command node starts a tolnode peer: it loads or creates a local chain
// file, brings up the gossip/discovery/DHT swarm, and drives the
// cooperative event loop until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tolelom/tolnode/config"
	"github.com/tolelom/tolnode/crypto/certgen"
	"github.com/tolelom/tolnode/events"
	"github.com/tolelom/tolnode/indexer"
	"github.com/tolelom/tolnode/network"
	"github.com/tolelom/tolnode/rpc"
	"github.com/tolelom/tolnode/storage"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to config file")
	genCerts := flag.String("gencerts", "", "generate CA + node TLS certs for the RPC inspector into the given directory and exit")
	flag.Parse()

	// ---- generate certs mode ----
	if *genCerts != "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if err := certgen.GenerateAll(*genCerts, cfg.NodeID, nil); err != nil {
			log.Fatalf("gencerts: %v", err)
		}
		fmt.Printf("Certificates generated in %s for node %q\n", *genCerts, cfg.NodeID)
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.Printf("node_id=%s (informational only, not the libp2p identity)", cfg.NodeID)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("mkdir data dir: %v", err)
	}

	// ---- chain store ----
	store := storage.NewChainStore(cfg.ChainFile, cfg.Difficulty)
	if err := store.EnsureGenesis(); err != nil {
		log.Fatalf("ensure genesis: %v", err)
	}
	tip, err := store.Latest()
	if err != nil {
		log.Fatalf("read chain tip: %v", err)
	}
	log.Printf("chain loaded, tip #%d hash=%s", tip.ID, tip.Hash)

	// ---- indexer (secondary, non-authoritative state) ----
	idxDB, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "indexer"))
	if err != nil {
		log.Fatalf("open indexer db: %v", err)
	}
	defer idxDB.Close()

	emitter := events.NewEmitter()
	idx := indexer.New(idxDB, emitter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- internal miner channel: the Miner's only link to the Node ----
	minerIn, minerOut := events.NewEventChannel()

	// ---- network: identity, transport, gossip, mDNS, DHT ----
	dhtDataDir := filepath.Join(cfg.DataDir, "dht")
	node, err := network.NewNode(ctx, store, emitter, idx, minerIn, cfg.ListenAddr, dhtDataDir)
	if err != nil {
		log.Fatalf("start network: %v", err)
	}
	defer node.Close()

	bootstrapAddr := cfg.BootstrapAddr
	if flag.NArg() > 0 {
		bootstrapAddr = flag.Arg(0)
	}
	if err := node.Start(ctx, bootstrapAddr); err != nil {
		log.Fatalf("network start: %v", err)
	}

	// ---- RPC inspector (optional, strictly read-only) ----
	if cfg.RPCAddr != "" {
		rpcHandler := rpc.NewHandler(store, idx)
		rpcServer := rpc.NewServer(cfg.RPCAddr, rpcHandler, cfg.RPCAuthToken)
		if err := rpcServer.Start(); err != nil {
			log.Fatalf("rpc start: %v", err)
		}
		defer rpcServer.Stop()
		log.Printf("RPC inspector listening on %s", cfg.RPCAddr)
		if cfg.RPCAuthToken != "" {
			log.Println("RPC Bearer token authentication enabled")
		}
	}

	// ---- graceful shutdown wiring ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down...")
		cancel()
	}()

	// ---- the cooperative event loop: sole writer of the chain file ----
	node.Run(ctx, minerOut)
	log.Println("shutdown complete")
}
