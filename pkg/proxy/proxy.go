// Package proxy accepts PostgreSQL client connections and pumps their
// traffic to an upstream server, decrypting protected columns on the way
// back and optionally encrypting bind parameters on the way in.
package proxy

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/loochek/pgproxy/pkg/config"
	"github.com/loochek/pgproxy/pkg/keystore"
	"github.com/loochek/pgproxy/pkg/tde"
)

// Proxy is the TCP front of the system.
type Proxy struct {
	cfg     config.Config
	store   *keystore.Store
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
	stats   *Stats

	mu       sync.RWMutex
	active   *tde.Codec
	retired  []*tde.Codec
	listener net.Listener
	closed   bool

	wg sync.WaitGroup
}

// New creates a proxy. ReloadKeys must succeed before Start so every session
// has a sealing key available.
func New(cfg config.Config, store *keystore.Store, log zerolog.Logger) *Proxy {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "upstream",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Proxy{
		cfg:     cfg,
		store:   store,
		breaker: breaker,
		log:     log,
		stats:   &Stats{},
	}
}

// Stats returns the proxy's activity counters.
func (p *Proxy) Stats() *Stats {
	return p.stats
}

// ReloadKeys rebuilds the codec set from the keystore. It is called at
// startup and again after the admin API rotates or retires a key.
func (p *Proxy) ReloadKeys() error {
	activeKey, err := p.store.ActiveKey()
	if err != nil {
		return fmt.Errorf("load active key: %w", err)
	}
	active, err := tde.NewCodec(activeKey.ID, activeKey.Material)
	if err != nil {
		return fmt.Errorf("init active codec: %w", err)
	}

	keys, err := p.store.Keys()
	if err != nil {
		return fmt.Errorf("load keys: %w", err)
	}
	var retired []*tde.Codec
	for _, key := range keys {
		if key.ID == activeKey.ID {
			continue
		}
		codec, err := tde.NewCodec(key.ID, key.Material)
		if err != nil {
			return fmt.Errorf("init codec for key %d: %w", key.ID, err)
		}
		retired = append(retired, codec)
	}

	p.mu.Lock()
	p.active = active
	p.retired = retired
	p.mu.Unlock()

	p.log.Info().
		Uint32("active_key", activeKey.ID).
		Int("retired_keys", len(retired)).
		Msg("encryption keys loaded")
	return nil
}

// newTransformer builds a session transformer over the current codec set.
func (p *Proxy) newTransformer() *tde.Transformer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return tde.NewTransformer(p.active, p.retired, tde.TransformerConfig{
		Columns:    p.cfg.ProtectedColumns,
		SealParams: p.cfg.SealParams,
	})
}

// Start begins accepting client connections.
func (p *Proxy) Start() error {
	p.mu.RLock()
	ready := p.active != nil
	p.mu.RUnlock()
	if !ready {
		return errors.New("no encryption keys loaded")
	}

	listener, err := net.Listen("tcp", p.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", p.cfg.ListenAddr, err)
	}

	p.mu.Lock()
	p.listener = listener
	p.mu.Unlock()

	p.log.Info().
		Str("listen", p.cfg.ListenAddr).
		Str("upstream", p.cfg.UpstreamAddr).
		Msg("proxy started")

	p.wg.Add(1)
	go p.acceptLoop(listener)
	return nil
}

// Addr returns the address the proxy is listening on, or nil before Start.
func (p *Proxy) Addr() net.Addr {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Close stops the listener and waits for running sessions to finish.
func (p *Proxy) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	listener := p.listener
	p.mu.Unlock()

	if listener != nil {
		listener.Close()
	}
	p.wg.Wait()
	return nil
}

func (p *Proxy) acceptLoop(listener net.Listener) {
	defer p.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			p.mu.RLock()
			closed := p.closed
			p.mu.RUnlock()
			if !closed {
				p.log.Error().Err(err).Msg("accept failed")
			}
			return
		}

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.handleConn(conn)
		}()
	}
}

func (p *Proxy) handleConn(client net.Conn) {
	defer client.Close()

	log := p.log.With().Str("client", client.RemoteAddr().String()).Logger()
	log.Info().Msg("client connected")

	upstream, err := p.dialUpstream()
	if err != nil {
		p.stats.upstreamFailures.Add(1)
		log.Error().Err(err).Msg("upstream unavailable")
		return
	}
	defer upstream.Close()

	p.stats.totalSessions.Add(1)
	p.stats.activeSessions.Add(1)
	defer p.stats.activeSessions.Add(-1)

	s := &session{
		proxy:       p,
		client:      client,
		upstream:    upstream,
		transformer: p.newTransformer(),
		log:         log,
	}
	s.run()

	log.Info().Msg("session closed")
}

func (p *Proxy) dialUpstream() (net.Conn, error) {
	conn, err := p.breaker.Execute(func() (interface{}, error) {
		return net.DialTimeout("tcp", p.cfg.UpstreamAddr, p.cfg.ConnectTimeout)
	})
	if err != nil {
		return nil, err
	}
	return conn.(net.Conn), nil
}
