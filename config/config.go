// ABOUTME: Configuration for the dashboard data layer
// ABOUTME: JSON file at the XDG data dir with .env and environment overrides
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const (
	// AppName names the XDG data directory.
	AppName = "backhaul"

	// ConfigFileName is where local settings live.
	ConfigFileName = "config.json"

	defaultClientCount = 45
	defaultWorkers     = 4
	defaultCallTimeout = 5 * time.Second
)

// Config holds the data-layer settings. Zero fields fall back to
// defaults at load time.
type Config struct {
	// BackendAddr is the live server's host:port. Empty means no live
	// backend: everything is served synthetically.
	BackendAddr string `json:"backend_addr,omitempty"`

	// SnapshotPath is the synthetic dataset's JSON snapshot file.
	SnapshotPath string `json:"snapshot_path,omitempty"`

	// JournalDir is the activity journal's badger directory.
	JournalDir string `json:"journal_dir,omitempty"`

	// ClientCount is how many synthetic clients to generate.
	ClientCount int `json:"client_count,omitempty"`

	// Workers bounds the dispatcher's pool for blocking backend calls.
	Workers int `json:"workers,omitempty"`

	// CallTimeout caps each mediated backend call.
	CallTimeout time.Duration `json:"call_timeout,omitempty"`
}

// Default returns a config with sensible defaults.
func Default() *Config {
	dataDir := filepath.Join(xdg.DataHome, AppName)
	return &Config{
		SnapshotPath: filepath.Join(dataDir, "synthetic.json"),
		JournalDir:   filepath.Join(dataDir, "journal"),
		ClientCount:  defaultClientCount,
		Workers:      defaultWorkers,
		CallTimeout:  defaultCallTimeout,
	}
}

// Load reads the config file, overlaying .env and BACKHAUL_* environment
// variables. Missing or invalid files yield defaults, never an error.
func Load() *Config {
	_ = godotenv.Load() // a missing .env is fine

	cfg := Default()
	if path, err := configPath(); err == nil {
		cfg = LoadFile(path)
	}
	applyEnv(cfg)
	return cfg
}

// LoadFile reads one config file, returning defaults when it is missing
// or unreadable.
func LoadFile(path string) *Config {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		// Invalid config, use defaults
		return cfg
	}

	if loaded.BackendAddr != "" {
		cfg.BackendAddr = loaded.BackendAddr
	}
	if loaded.SnapshotPath != "" {
		cfg.SnapshotPath = loaded.SnapshotPath
	}
	if loaded.JournalDir != "" {
		cfg.JournalDir = loaded.JournalDir
	}
	if loaded.ClientCount > 0 {
		cfg.ClientCount = loaded.ClientCount
	}
	if loaded.Workers > 0 {
		cfg.Workers = loaded.Workers
	}
	if loaded.CallTimeout > 0 {
		cfg.CallTimeout = loaded.CallTimeout
	}
	return cfg
}

// Save persists the config to the XDG data dir.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	dataDir := filepath.Join(xdg.DataHome, AppName)
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dataDir, ConfigFileName), nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BACKHAUL_BACKEND"); v != "" {
		cfg.BackendAddr = v
	}
	if v := os.Getenv("BACKHAUL_SNAPSHOT"); v != "" {
		cfg.SnapshotPath = v
	}
	if v := os.Getenv("BACKHAUL_JOURNAL"); v != "" {
		cfg.JournalDir = v
	}
	if v := os.Getenv("BACKHAUL_CLIENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ClientCount = n
		}
	}
	if v := os.Getenv("BACKHAUL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("BACKHAUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CallTimeout = d
		}
	}
}
