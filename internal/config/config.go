// Package config loads the daemon's directories-to-watch configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSocketPath is used when SOCKET_PATH is not set in the environment.
const DefaultSocketPath = "/tmp/kidex.sock"

// WatchDir describes one configured root: where to watch, what to ignore
// under it, and whether to recurse into subdirectories.
type WatchDir struct {
	Path    string   `json:"path"`
	Ignored []string `json:"ignored"`
	Recurse bool     `json:"recurse"`
}

// Config is the top-level configuration document.
type Config struct {
	Directories []WatchDir `json:"directories"`
	Ignored     []string   `json:"ignored"`
}

// Default returns an empty configuration (no directories configured).
func Default() *Config {
	return &Config{
		Directories: []WatchDir{},
		Ignored:     []string{},
	}
}

// Load reads configuration from a JSON file at path. There is no built-in
// fallback for a missing file: per the wire contract, config read/parse
// failure at startup is fatal, and it is up to the caller (cmd/kidexd) to
// report that and exit.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	for i := range cfg.Directories {
		cfg.Directories[i].Path = expandTilde(cfg.Directories[i].Path)
	}

	return cfg, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// DefaultConfigPath returns $HOME/.config/kidex.json. Absence of HOME is
// treated by callers as a fatal startup error.
func DefaultConfigPath() (string, error) {
	home, ok := os.LookupEnv("HOME")
	if !ok || home == "" {
		return "", os.ErrNotExist
	}
	return filepath.Join(home, ".config", "kidex.json"), nil
}

// SocketPath returns SOCKET_PATH from the environment, or DefaultSocketPath
// if it is unset.
func SocketPath() string {
	if p, ok := os.LookupEnv("SOCKET_PATH"); ok && p != "" {
		return p
	}
	return DefaultSocketPath
}

// EffectiveIgnored returns wd's own ignore patterns merged with the global
// ignore list from Config. The merge happens here, at index time, rather
// than being baked into wd at load time, so the same WatchDir value can be
// reused across full-index and incremental operations without mutation.
func (c *Config) EffectiveIgnored(wd WatchDir) []string {
	merged := make([]string, 0, len(wd.Ignored)+len(c.Ignored))
	merged = append(merged, wd.Ignored...)
	merged = append(merged, c.Ignored...)
	return merged
}
