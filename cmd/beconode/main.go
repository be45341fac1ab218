// Command beconode starts a single identity-protocol node.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/beco/beconode/config"
	"github.com/beco/beconode/crypto/certgen"
	"github.com/beco/beconode/nodekey"
	"github.com/beco/beconode/node"
	"github.com/beco/beconode/rpc"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to config file")
	keyPath := flag.String("key", "", "path to keystore file (defaults to config's keystore_path)")
	genKey := flag.Bool("genkey", false, "generate a new node identity key and exit")
	genCerts := flag.String("gencerts", "", "generate CA + node TLS certs into the given directory and exit (requires node ID from config)")
	flag.Parse()

	// Read keystore password from environment, not CLI flags — they leak via ps.
	password := os.Getenv("BECONODE_PASSWORD")
	if password == "" {
		log.Println("WARNING: BECONODE_PASSWORD not set — keystore will use an empty password")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	path := *keyPath
	if path == "" {
		path = cfg.KeystorePath
	}

	// ---- generate key mode ----
	if *genKey {
		id, err := nodekey.LoadOrCreate(path, password)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Generated identity. Peer ID: %s\n", id.PeerID())
		fmt.Printf("Saved to: %s\n", path)
		return
	}

	// ---- generate certs mode ----
	if *genCerts != "" {
		if err := certgen.GenerateAll(*genCerts, cfg.NodeID, nil); err != nil {
			log.Fatalf("gencerts: %v", err)
		}
		fmt.Printf("Certificates generated in %s for node %q\n", *genCerts, cfg.NodeID)
		return
	}

	cfg.KeystorePath = path
	n, err := node.New(cfg, password)
	if err != nil {
		log.Fatalf("node: %v", err)
	}

	if err := n.Start(); err != nil {
		log.Fatalf("node start: %v", err)
	}
	defer n.Stop()
	log.Printf("Gossip listening on :%d (role: %s)", cfg.GossipPort, cfg.Role)

	// ---- RPC ----
	rpcAddr := fmt.Sprintf(":%d", cfg.RPCPort)
	rpcHandler := rpc.NewHandler(n)
	rpcServer := rpc.NewServer(rpcAddr, rpcHandler, cfg.RPCAuthToken)
	if err := rpcServer.Start(); err != nil {
		log.Fatalf("rpc start: %v", err)
	}
	defer rpcServer.Stop()
	log.Printf("RPC listening on %s", rpcAddr)
	if cfg.RPCAuthToken != "" {
		log.Println("RPC Bearer token authentication enabled")
	}

	// ---- graceful shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")

	// Deferred calls run in LIFO: rpcServer.Stop → n.Stop (gossip, then db)
	log.Println("Shutdown complete.")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config file not found at %s, using defaults.", path)
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}
