// Package config loads server configuration from a YAML file with
// environment overrides. The resource list is the closed set of bookable
// machines; bookings against anything else are rejected.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeewonyang/TCSlotScheduler/internal/core"
)

const (
	DefaultAddr   = ":7440"
	DefaultDBPath = "slotscheduler.db"
)

type Config struct {
	Addr       string          `yaml:"addr"`
	SocketPath string          `yaml:"socket_path"`
	DBPath     string          `yaml:"db_path"`
	KeysFile   string          `yaml:"keys_file"`
	Resources  []core.Resource `yaml:"resources"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Addr:      DefaultAddr,
		DBPath:    DefaultDBPath,
		Resources: core.DefaultResources,
	}
}

// Load reads the config file at path. A missing file yields defaults;
// a present file is merged over them. SLOTSCHEDULER_ADDR and
// SLOTSCHEDULER_DB override both.
func Load(path string) (Config, error) {
	cfg := Default()

	path = strings.TrimSpace(path)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("SLOTSCHEDULER_ADDR")); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("SLOTSCHEDULER_DB")); v != "" {
		cfg.DBPath = v
	}

	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	if len(cfg.Resources) == 0 {
		cfg.Resources = core.DefaultResources
	}
	if err := validateResources(cfg.Resources); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateResources(resources []core.Resource) error {
	seen := make(map[core.Resource]struct{}, len(resources))
	for _, r := range resources {
		if strings.TrimSpace(string(r)) == "" {
			return fmt.Errorf("empty resource name in config")
		}
		if _, ok := seen[r]; ok {
			return fmt.Errorf("duplicate resource %q in config", r)
		}
		seen[r] = struct{}{}
	}
	return nil
}
