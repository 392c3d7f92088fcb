package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tolelom/tolnode/storage"
)

// TLSConfig holds paths to PEM files for TLS. Validate checks them and
// LoadTLSConfig turns them into a *tls.Config; the RPC server does not use
// them, and the inspector serves plain HTTP whatever this holds. The P2P
// transport never consults this — libp2p's own Noise handshake covers that.
type TLSConfig struct {
	CACert   string `json:"ca_cert"`   // CA certificate PEM path
	NodeCert string `json:"node_cert"` // node certificate PEM path
	NodeKey  string `json:"node_key"`  // node private key PEM path
}

// Config holds all node configuration.
type Config struct {
	NodeID        string     `json:"node_id"` // informational/log-only, not the libp2p identity
	DataDir       string     `json:"data_dir"`
	ChainFile     string     `json:"chain_file"`
	Difficulty    int        `json:"difficulty"`
	ListenAddr    string     `json:"listen_addr"`              // default /ip4/0.0.0.0/tcp/0
	BootstrapAddr string     `json:"bootstrap_addr,omitempty"` // overridable by the first CLI argument
	RPCAddr       string     `json:"rpc_addr,omitempty"`        // empty → inspector disabled
	RPCAuthToken  string     `json:"rpc_auth_token,omitempty"`  // empty → no auth
	TLS           *TLSConfig `json:"tls,omitempty"`             // validated only; the inspector serves plain HTTP
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:     "node0",
		DataDir:    "./data",
		ChainFile:  storage.DefaultChainFile,
		Difficulty: 4,
		ListenAddr: "/ip4/0.0.0.0/tcp/0",
	}
}

// Load reads a JSON config file from path and validates required fields.
// A missing file is not an error: the default configuration is returned
// as-is, since a node can run standalone with no config file at all.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.ChainFile == "" {
		return fmt.Errorf("chain_file must not be empty")
	}
	if c.Difficulty < 0 {
		return fmt.Errorf("difficulty must not be negative, got %d", c.Difficulty)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.TLS != nil {
		t := c.TLS
		allSet := t.CACert != "" && t.NodeCert != "" && t.NodeKey != ""
		allEmpty := t.CACert == "" && t.NodeCert == "" && t.NodeKey == ""
		if !allSet && !allEmpty {
			return fmt.Errorf("tls: all three paths (ca_cert, node_cert, node_key) must be set or all empty")
		}
		if c.RPCAddr == "" {
			return fmt.Errorf("tls configured but rpc_addr is empty")
		}
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
