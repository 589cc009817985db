package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestInitKeysCommandCreatesKey(t *testing.T) {
	tmp := t.TempDir()
	keyPath := filepath.Join(tmp, "slotscheduler.keys.yaml")

	cmd := initKeysCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--keys-file", keyPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute init-keys: %v", err)
	}

	data, err := os.ReadFile(keyPath)
	if err != nil {
		t.Fatalf("read keys file: %v", err)
	}
	if !bytes.Contains(data, []byte("keys:")) {
		t.Fatalf("expected keys section to be written, got:\n%s", data)
	}
	if !bytes.Contains(out.Bytes(), []byte(keyPath)) {
		t.Fatalf("expected output to mention keys file, got %q", out.String())
	}
}

func TestServeCommandRejectsBadConfig(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("resources: [mill, mill]\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := serveCmd()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"--config", cfgPath})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for duplicate resources")
	}
}
