// Package auth gates transport access to the scheduler with API keys
// from a YAML keys file. It authenticates clients, not owners: the owner
// string on a booking stays an unverified display name.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultKeysFile = "slotscheduler.keys.yaml"

type keysFile struct {
	DefaultPolicy struct {
		AllowLocalhostWithoutAuth *bool `yaml:"allow_localhost_without_auth"`
	} `yaml:"default_policy"`
	Keys []string `yaml:"keys"`
}

type Keyring struct {
	AllowLocalhostWithoutAuth bool
	keys                      map[string]struct{}
}

func ResolveKeysPath() string {
	if v := strings.TrimSpace(os.Getenv("SLOTSCHEDULER_KEYS_FILE")); v != "" {
		return v
	}
	return filepath.Join(".", defaultKeysFile)
}

func LoadKeyringFromEnv() (*Keyring, error) {
	return LoadKeyring(ResolveKeysPath())
}

// LoadKeyring reads the keys file, bootstrapping one with a generated dev
// key when it does not exist yet.
func LoadKeyring(path string) (*Keyring, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return defaultKeyring(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if _, err := BootstrapDevKey(path); err != nil {
				return nil, fmt.Errorf("bootstrap dev key: %w", err)
			}
			data, err = os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read keys file: %w", err)
			}
		} else {
			return nil, fmt.Errorf("read keys file: %w", err)
		}
	}
	var cfg keysFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse keys file: %w", err)
	}
	ring := &Keyring{
		AllowLocalhostWithoutAuth: true,
		keys:                      make(map[string]struct{}),
	}
	if cfg.DefaultPolicy.AllowLocalhostWithoutAuth != nil {
		ring.AllowLocalhostWithoutAuth = *cfg.DefaultPolicy.AllowLocalhostWithoutAuth
	}
	for _, key := range cfg.Keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		ring.keys[key] = struct{}{}
	}
	return ring, nil
}

func defaultKeyring() *Keyring {
	return &Keyring{AllowLocalhostWithoutAuth: true, keys: make(map[string]struct{})}
}

func NewKeyring(allowLocalhost bool, keys []string) *Keyring {
	ring := &Keyring{AllowLocalhostWithoutAuth: allowLocalhost, keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		ring.keys[k] = struct{}{}
	}
	return ring
}

func (k *Keyring) ValidKey(key string) bool {
	if k == nil {
		return false
	}
	_, ok := k.keys[key]
	return ok
}

// BootstrapResult contains info about a bootstrapped dev key.
type BootstrapResult struct {
	KeysFile string
	Key      string
	Created  bool
}

// BootstrapDevKey creates the keys file with a generated dev key if it
// does not exist, so a fresh checkout works without manual setup.
func BootstrapDevKey(keysPath string) (*BootstrapResult, error) {
	if keysPath == "" {
		keysPath = ResolveKeysPath()
	}

	if _, err := os.Stat(keysPath); err == nil {
		return &BootstrapResult{KeysFile: keysPath, Created: false}, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("check keys file: %w", err)
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	cfg := keysFile{Keys: []string{key}}
	allowLocalhost := true
	cfg.DefaultPolicy.AllowLocalhostWithoutAuth = &allowLocalhost

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal keys file: %w", err)
	}
	if err := os.WriteFile(keysPath, data, 0600); err != nil {
		return nil, fmt.Errorf("write keys file: %w", err)
	}

	return &BootstrapResult{KeysFile: keysPath, Key: key, Created: true}, nil
}

// GenerateKey returns a new random API key.
func GenerateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
