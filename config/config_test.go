package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidateRejectsEmptyRequiredFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty node id", func(c *Config) { c.NodeID = "" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"empty chain file", func(c *Config) { c.ChainFile = "" }},
		{"negative difficulty", func(c *Config) { c.Difficulty = -1 }},
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestValidateTLSRequiresAllOrNone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RPCAddr = ":8080"
	cfg.TLS = &TLSConfig{CACert: "ca.pem"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for a partially specified tls block")
	}

	cfg.TLS = &TLSConfig{CACert: "ca.pem", NodeCert: "node.pem", NodeKey: "node.key"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("fully specified tls block should validate: %v", err)
	}
}

func TestValidateTLSRequiresRPCAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TLS = &TLSConfig{CACert: "ca.pem", NodeCert: "node.pem", NodeKey: "node.key"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error when tls is set but rpc_addr is empty")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NodeID != DefaultConfig().NodeID {
		t.Errorf("expected default config, got %+v", cfg)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NodeID = "node1"
	cfg.Difficulty = 5
	path := filepath.Join(t.TempDir(), "config.json")

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.NodeID != "node1" || loaded.Difficulty != 5 {
		t.Errorf("round-trip mismatch: %+v", loaded)
	}
}
