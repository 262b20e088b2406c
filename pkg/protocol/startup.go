package protocol

import "github.com/loochek/pgproxy/pkg/wire"

// Messages sent before the session is established carry no identifier byte:
// the frame is a 4-byte length followed by a 32-bit code that names the
// request.
const (
	// ProtocolVersion is the protocol 3.0 version code carried by a
	// StartupMessage.
	ProtocolVersion uint32 = 196608

	// SSLRequestCode asks the server to switch to TLS.
	SSLRequestCode uint32 = 80877103

	// GSSEncRequestCode asks the server to switch to GSSAPI encryption.
	GSSEncRequestCode uint32 = 80877104

	// CancelRequestCode cancels a query running on another connection.
	CancelRequestCode uint32 = 80877102
)

// startupMessage builds the handshake-phase message introduced by code.
// These messages are receive-only: the handshake is never echoed back.
func startupMessage(code uint32) Builder {
	switch code {
	case SSLRequestCode:
		return Builder{"SSLRequest", func() wire.Message {
			return wire.NewMessage(wire.NewInt32(0))
		}}
	case GSSEncRequestCode:
		return Builder{"GSSENCRequest", func() wire.Message {
			return wire.NewMessage(wire.NewInt32(0))
		}}
	case CancelRequestCode:
		return Builder{"CancelRequest", func() wire.Message {
			return wire.NewMessage(wire.NewInt32(0), wire.NewInt32(0), wire.NewInt32(0))
		}}
	default:
		// Protocol version plus parameter name/value pairs terminated by
		// a single zero byte; the repetition is bounded by the frame
		// length.
		return Builder{"Startup", func() wire.Message {
			return wire.NewMessage(
				wire.NewInt32(0),
				wire.NewRepeated(func() wire.Field { return wire.NewString("") }),
			)
		}}
	}
}
