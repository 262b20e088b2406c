// Package config loads proxy configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

var (
	ErrNoListenAddr   = errors.New("listen address is required")
	ErrNoUpstreamAddr = errors.New("upstream address is required")
	ErrNoKeystorePath = errors.New("keystore path is required")
)

// Config holds the runtime settings of the proxy.
type Config struct {
	// ListenAddr is the address client connections arrive on.
	ListenAddr string
	// UpstreamAddr is the PostgreSQL server the proxy forwards to.
	UpstreamAddr string
	// KeystorePath is the SQLite database holding encryption keys.
	KeystorePath string
	// AdminAddr is the HTTP admin API address; empty disables it.
	AdminAddr string
	// ProtectedColumns lists result column names to decrypt in flight.
	ProtectedColumns []string
	// SealParams encrypts bind parameters on the way to the server.
	SealParams bool
	// ConnectTimeout bounds upstream dial attempts.
	ConnectTimeout time.Duration
}

// Default returns the baseline configuration a file overlays.
func Default() Config {
	return Config{
		ListenAddr:     "127.0.0.1:6432",
		UpstreamAddr:   "127.0.0.1:5432",
		KeystorePath:   "./pgproxy-keys.db",
		AdminAddr:      "127.0.0.1:8080",
		ConnectTimeout: 10 * time.Second,
	}
}

// fileConfig maps config.toml keys onto runtime settings.
type fileConfig struct {
	Listen            string   `toml:"listen"`
	Upstream          string   `toml:"upstream"`
	Keystore          string   `toml:"keystore"`
	AdminListen       string   `toml:"admin_listen"`
	ProtectedColumns  []string `toml:"protected_columns"`
	SealParams        bool     `toml:"seal_params"`
	ConnectTimeoutSec int      `toml:"connect_timeout_seconds"`
}

// Load reads path and overlays it onto the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("listen") {
		cfg.ListenAddr = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("upstream") {
		cfg.UpstreamAddr = strings.TrimSpace(raw.Upstream)
	}
	if meta.IsDefined("keystore") {
		cfg.KeystorePath = strings.TrimSpace(raw.Keystore)
	}
	if meta.IsDefined("admin_listen") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminListen)
	}
	if meta.IsDefined("protected_columns") {
		cfg.ProtectedColumns = raw.ProtectedColumns
	}
	if meta.IsDefined("seal_params") {
		cfg.SealParams = raw.SealParams
	}
	if meta.IsDefined("connect_timeout_seconds") {
		cfg.ConnectTimeout = time.Duration(raw.ConnectTimeoutSec) * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return ErrNoListenAddr
	}
	if c.UpstreamAddr == "" {
		return ErrNoUpstreamAddr
	}
	if c.KeystorePath == "" {
		return ErrNoKeystorePath
	}
	return nil
}
