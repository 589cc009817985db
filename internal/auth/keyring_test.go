package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadKeyringParsesKeysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")
	content := []byte(`default_policy:
  allow_localhost_without_auth: false
keys:
  - alpha
  - beta
  - ""
`)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	ring, err := LoadKeyring(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ring.AllowLocalhostWithoutAuth {
		t.Error("expected localhost bypass disabled")
	}
	if !ring.ValidKey("alpha") || !ring.ValidKey("beta") {
		t.Error("expected listed keys to validate")
	}
	if ring.ValidKey("") || ring.ValidKey("gamma") {
		t.Error("unexpected key validated")
	}
}

func TestLoadKeyringBootstrapsMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")

	ring, err := LoadKeyring(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ring.AllowLocalhostWithoutAuth {
		t.Error("bootstrapped ring should allow localhost")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("keys file not created: %v", err)
	}

	// Second bootstrap is a no-op.
	res, err := BootstrapDevKey(path)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if res.Created {
		t.Error("existing file must not be recreated")
	}
}

func TestGenerateKeyUnique(t *testing.T) {
	a, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct keys")
	}
}
