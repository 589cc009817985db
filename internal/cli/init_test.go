package cli

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

type testKeysFile struct {
	DefaultPolicy struct {
		AllowLocalhostWithoutAuth bool `yaml:"allow_localhost_without_auth"`
	} `yaml:"default_policy"`
	Keys []string `yaml:"keys"`
}

func TestInitKeysFileCreatesKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")
	key, err := InitKeysFile(path)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if key == "" {
		t.Fatalf("expected generated key")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read keys file: %v", err)
	}
	var cfg testKeysFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if len(cfg.Keys) != 1 || cfg.Keys[0] != key {
		t.Fatalf("expected key %q, got %+v", key, cfg.Keys)
	}
	if !cfg.DefaultPolicy.AllowLocalhostWithoutAuth {
		t.Error("expected localhost policy default true")
	}
}

func TestInitKeysFileAppendsToExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")

	first, err := InitKeysFile(path)
	if err != nil {
		t.Fatalf("first init: %v", err)
	}
	second, err := InitKeysFile(path)
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct keys")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read keys file: %v", err)
	}
	var cfg testKeysFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if len(cfg.Keys) != 2 {
		t.Fatalf("expected 2 keys, got %+v", cfg.Keys)
	}
}
