package proxy

import (
	"errors"
	"io"
	"net"

	"github.com/rs/zerolog"

	"github.com/loochek/pgproxy/pkg/protocol"
	"github.com/loochek/pgproxy/pkg/tde"
	"github.com/loochek/pgproxy/pkg/wire"
)

var errProtocolViolation = errors.New("protocol violation")

const readBufferSize = 32 * 1024

// session pumps one client connection and its upstream counterpart. Each
// direction runs its own decoder in its own goroutine; the transformer is
// shared because row description state flows from the backend while bind
// parameters flow from the frontend, and its methods are only entered by one
// direction at a time per message kind.
type session struct {
	proxy       *Proxy
	client      net.Conn
	upstream    net.Conn
	transformer *tde.Transformer
	log         zerolog.Logger
}

func (s *session) run() {
	done := make(chan struct{}, 2)

	go func() {
		s.pumpDirection(protocol.DirectionFrontend, s.client, s.upstream)
		done <- struct{}{}
	}()
	go func() {
		s.pumpDirection(protocol.DirectionBackend, s.upstream, s.client)
		done <- struct{}{}
	}()

	// Whichever side finishes first, closing both connections unblocks the
	// other pump.
	<-done
	s.client.Close()
	s.upstream.Close()
	<-done
}

func (s *session) pumpDirection(direction protocol.Direction, src, dst net.Conn) {
	decoder := protocol.NewDecoder(direction)
	buf := make([]byte, readBufferSize)

	for {
		n, err := src.Read(buf)
		if n > 0 {
			decoder.Push(buf[:n])
			if perr := s.drain(decoder, direction, src, dst); perr != nil {
				s.proxy.stats.protocolViolations.Add(1)
				s.log.Warn().Err(perr).
					Str("direction", directionName(direction)).
					Msg("aborting session")
				return
			}
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				s.log.Debug().Err(err).
					Str("direction", directionName(direction)).
					Msg("read ended")
			}
			return
		}
	}
}

// drain decodes every complete message buffered by the decoder, transforms
// it and forwards it.
func (s *session) drain(decoder *protocol.Decoder, direction protocol.Direction, src, dst net.Conn) error {
	for {
		msg, result := decoder.Next()
		switch result {
		case protocol.ResultNeedMoreData:
			return nil
		case protocol.ResultFailed:
			return errProtocolViolation
		}

		s.countMessage(direction)

		// The proxy does not terminate TLS: refuse encryption negotiation
		// so the client proceeds in the clear and never forward the probe
		// upstream.
		if msg.Startup && (msg.Name == "SSLRequest" || msg.Name == "GSSENCRequest") {
			if _, err := src.Write([]byte{'N'}); err != nil {
				return err
			}
			continue
		}

		modified, err := s.transformer.Apply(direction, msg)
		if err != nil {
			return err
		}

		var out []byte
		if modified {
			s.proxy.stats.transformedValues.Add(1)
			frame := wire.NewBuffer()
			msg.Message.Write(frame)
			out = frame.Bytes()
		} else {
			out = msg.Raw
		}

		if _, err := dst.Write(out); err != nil {
			return err
		}
	}
}

func (s *session) countMessage(direction protocol.Direction) {
	if direction == protocol.DirectionFrontend {
		s.proxy.stats.frontendMessages.Add(1)
	} else {
		s.proxy.stats.backendMessages.Add(1)
	}
}

func directionName(direction protocol.Direction) string {
	if direction == protocol.DirectionFrontend {
		return "frontend"
	}
	return "backend"
}
