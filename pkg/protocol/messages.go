// Package protocol defines the PostgreSQL frontend/backend message catalog
// and a streaming decoder on top of the wire framework. Message layouts
// follow the official protocol documentation:
// https://www.postgresql.org/docs/current/protocol-message-formats.html
package protocol

import "github.com/loochek/pgproxy/pkg/wire"

// Builder names a message type and produces empty instances of it for the
// decoder to validate against.
type Builder struct {
	Name string
	New  func() wire.Message
}

func newInt16() wire.Field { return wire.NewInt16(0) }
func newInt32() wire.Field { return wire.NewInt32(0) }
func newString() wire.Field { return wire.NewString("") }
func newVarByteN() wire.Field { return wire.NewNullVarByteN() }

// rowColumn is the per-column tuple of a RowDescription: name, table OID,
// attribute number, type OID, type length, type modifier, format code.
func rowColumn() wire.Field {
	return wire.NewSequence(
		wire.NewString(""),
		wire.NewInt32(0),
		wire.NewInt16(0),
		wire.NewInt32(0),
		wire.NewInt16(0),
		wire.NewInt32(0),
		wire.NewInt16(0),
	)
}

// FrontendMessages maps a leading tag byte to the client-to-server message
// it introduces.
var FrontendMessages = map[byte]Builder{
	'B': {"Bind", func() wire.Message {
		return wire.NewTypedMessage('B',
			wire.NewString(""),
			wire.NewString(""),
			wire.NewArray(newInt16),
			wire.NewArray(newVarByteN),
			wire.NewArray(newInt16),
		)
	}},
	'C': {"Close", func() wire.Message {
		return wire.NewTypedMessage('C', wire.NewByte1(0), wire.NewString(""))
	}},
	'd': {"CopyData", func() wire.Message {
		return wire.NewTypedMessage('d', wire.NewByteN(nil))
	}},
	'c': {"CopyDone", func() wire.Message {
		return wire.NewTypedMessage('c')
	}},
	'f': {"CopyFail", func() wire.Message {
		return wire.NewTypedMessage('f', wire.NewString(""))
	}},
	'D': {"Describe", func() wire.Message {
		return wire.NewTypedMessage('D', wire.NewByte1(0), wire.NewString(""))
	}},
	'E': {"Execute", func() wire.Message {
		return wire.NewTypedMessage('E', wire.NewString(""), wire.NewInt32(0))
	}},
	'H': {"Flush", func() wire.Message {
		return wire.NewTypedMessage('H')
	}},
	'F': {"FunctionCall", func() wire.Message {
		return wire.NewTypedMessage('F',
			wire.NewInt32(0),
			wire.NewArray(newInt16),
			wire.NewArray(newVarByteN),
			wire.NewInt16(0),
		)
	}},
	'P': {"Parse", func() wire.Message {
		return wire.NewTypedMessage('P',
			wire.NewString(""),
			wire.NewString(""),
			wire.NewArray(newInt32),
		)
	}},
	'p': {"PasswordMessage", func() wire.Message {
		// Also carries GSSAPI/SASL responses; the payload layout depends
		// on the authentication exchange, so it stays opaque here.
		return wire.NewTypedMessage('p', wire.NewByteN(nil))
	}},
	'Q': {"Query", func() wire.Message {
		return wire.NewTypedMessage('Q', wire.NewString(""))
	}},
	'S': {"Sync", func() wire.Message {
		return wire.NewTypedMessage('S')
	}},
	'X': {"Terminate", func() wire.Message {
		return wire.NewTypedMessage('X')
	}},
}

// BackendMessages maps a leading tag byte to the server-to-client message it
// introduces.
var BackendMessages = map[byte]Builder{
	'R': {"Authentication", func() wire.Message {
		return wire.NewTypedMessage('R', wire.NewInt32(0), wire.NewByteN(nil))
	}},
	'K': {"BackendKeyData", func() wire.Message {
		return wire.NewTypedMessage('K', wire.NewInt32(0), wire.NewInt32(0))
	}},
	'2': {"BindComplete", func() wire.Message {
		return wire.NewTypedMessage('2')
	}},
	'3': {"CloseComplete", func() wire.Message {
		return wire.NewTypedMessage('3')
	}},
	'C': {"CommandComplete", func() wire.Message {
		return wire.NewTypedMessage('C', wire.NewString(""))
	}},
	'd': {"CopyData", func() wire.Message {
		return wire.NewTypedMessage('d', wire.NewByteN(nil))
	}},
	'c': {"CopyDone", func() wire.Message {
		return wire.NewTypedMessage('c')
	}},
	'G': {"CopyInResponse", func() wire.Message {
		return wire.NewTypedMessage('G', wire.NewInt8(0), wire.NewArray(newInt16))
	}},
	'H': {"CopyOutResponse", func() wire.Message {
		return wire.NewTypedMessage('H', wire.NewInt8(0), wire.NewArray(newInt16))
	}},
	'W': {"CopyBothResponse", func() wire.Message {
		return wire.NewTypedMessage('W', wire.NewInt8(0), wire.NewArray(newInt16))
	}},
	'D': {"DataRow", func() wire.Message {
		return wire.NewTypedMessage('D', wire.NewArray(newVarByteN))
	}},
	'I': {"EmptyQueryResponse", func() wire.Message {
		return wire.NewTypedMessage('I')
	}},
	'E': {"ErrorResponse", func() wire.Message {
		return wire.NewTypedMessage('E', wire.NewRepeated(newString))
	}},
	'V': {"FunctionCallResponse", func() wire.Message {
		return wire.NewTypedMessage('V', wire.NewNullVarByteN())
	}},
	'v': {"NegotiateProtocolVersion", func() wire.Message {
		return wire.NewTypedMessage('v',
			wire.NewInt32(0),
			wire.NewInt32(0),
			wire.NewRepeated(newString),
		)
	}},
	'n': {"NoData", func() wire.Message {
		return wire.NewTypedMessage('n')
	}},
	'N': {"NoticeResponse", func() wire.Message {
		return wire.NewTypedMessage('N', wire.NewRepeated(newString))
	}},
	'A': {"NotificationResponse", func() wire.Message {
		return wire.NewTypedMessage('A',
			wire.NewInt32(0),
			wire.NewString(""),
			wire.NewString(""),
		)
	}},
	't': {"ParameterDescription", func() wire.Message {
		return wire.NewTypedMessage('t', wire.NewArray(newInt32))
	}},
	'S': {"ParameterStatus", func() wire.Message {
		return wire.NewTypedMessage('S', wire.NewString(""), wire.NewString(""))
	}},
	'1': {"ParseComplete", func() wire.Message {
		return wire.NewTypedMessage('1')
	}},
	's': {"PortalSuspended", func() wire.Message {
		return wire.NewTypedMessage('s')
	}},
	'Z': {"ReadyForQuery", func() wire.Message {
		return wire.NewTypedMessage('Z', wire.NewByte1(0))
	}},
	'T': {"RowDescription", func() wire.Message {
		return wire.NewTypedMessage('T', wire.NewArray(rowColumn))
	}},
}

// unknownMessage keeps the decoder resilient to tags added by newer protocol
// revisions: the payload is consumed opaquely and passed through.
func unknownMessage(tag byte) Builder {
	return Builder{
		Name: "Unknown",
		New: func() wire.Message {
			return wire.NewTypedMessage(tag, wire.NewByteN(nil))
		},
	}
}
