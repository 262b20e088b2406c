// Package main runs the PostgreSQL proxy and its management API.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/loochek/pgproxy/pkg/admin"
	"github.com/loochek/pgproxy/pkg/config"
	"github.com/loochek/pgproxy/pkg/keystore"
	"github.com/loochek/pgproxy/pkg/proxy"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	listenAddr := flag.String("listen", "", "Client listen address (overrides config)")
	upstreamAddr := flag.String("upstream", "", "Upstream server address (overrides config)")
	keystorePath := flag.String("keystore", "", "Key database path (overrides config)")
	adminAddr := flag.String("admin", "", "Management API listen address (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("cannot load configuration")
		}
		cfg = loaded
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *upstreamAddr != "" {
		cfg.UpstreamAddr = *upstreamAddr
	}
	if *keystorePath != "" {
		cfg.KeystorePath = *keystorePath
	}
	if *adminAddr != "" {
		cfg.AdminAddr = *adminAddr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	store, err := keystore.Open(cfg.KeystorePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.KeystorePath).Msg("cannot open keystore")
	}
	defer store.Close()

	// A fresh keystore gets its first sealing key automatically.
	if _, err := store.ActiveKey(); err != nil {
		if !errors.Is(err, keystore.ErrNoActiveKey) {
			log.Fatal().Err(err).Msg("cannot read keystore")
		}
		key, err := store.CreateKey()
		if err != nil {
			log.Fatal().Err(err).Msg("cannot create initial key")
		}
		log.Info().Uint32("key", key.ID).Str("fingerprint", key.Fingerprint).
			Msg("created initial encryption key")
	}

	p := proxy.New(cfg, store, log)
	if err := p.ReloadKeys(); err != nil {
		log.Fatal().Err(err).Msg("cannot load encryption keys")
	}
	if err := p.Start(); err != nil {
		log.Fatal().Err(err).Msg("cannot start proxy")
	}

	adminCtx, adminCancel := context.WithCancel(context.Background())
	defer adminCancel()

	if cfg.AdminAddr != "" {
		adminConfig := admin.DefaultConfig()
		adminConfig.Addr = cfg.AdminAddr
		adminServer := admin.NewServer(p, store, log, adminConfig)
		go func() {
			if err := adminServer.Start(adminCtx); err != nil {
				log.Error().Err(err).Msg("admin API shutdown failed")
			}
		}()
	} else {
		log.Info().Msg("admin API disabled")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	adminCancel()
	if err := p.Close(); err != nil {
		log.Error().Err(err).Msg("proxy shutdown failed")
	}
}
