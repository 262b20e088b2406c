package protocol

import "github.com/loochek/pgproxy/pkg/wire"

// Direction tells a decoder which half of the conversation it is parsing.
type Direction int

const (
	// DirectionFrontend parses client-to-server traffic.
	DirectionFrontend Direction = iota
	// DirectionBackend parses server-to-client traffic.
	DirectionBackend
)

// Result is the outcome of a decode attempt.
type Result int

const (
	// ResultNeedMoreData means no complete message is buffered yet; push
	// more bytes and retry.
	ResultNeedMoreData Result = iota
	// ResultReady means a message was decoded and consumed.
	ResultReady
	// ResultFailed means the stream violates the protocol; the caller
	// should abort the connection.
	ResultFailed
)

// String returns a displayable name for the result.
func (r Result) String() string {
	switch r {
	case ResultNeedMoreData:
		return "NeedMoreData"
	case ResultReady:
		return "Ready"
	case ResultFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// DecodedMessage is one fully materialized protocol message together with the
// exact frame bytes it was decoded from, so unmodified messages can be
// forwarded without re-serialization.
type DecodedMessage struct {
	// Tag is the wire identifier, or zero for handshake-phase messages.
	Tag     byte
	Name    string
	Message wire.Message
	Raw     []byte
	// Startup marks messages of the initial handshake phase.
	Startup bool
}

// Decoder incrementally parses one direction of a session. Bytes are pushed
// as they arrive from the network; Next repeatedly validates the leading
// message against the accumulated buffer and materializes it once complete.
type Decoder struct {
	direction   Direction
	buf         *wire.Buffer
	startupDone bool
}

// NewDecoder creates a decoder for the given direction. Frontend decoders
// begin in the handshake phase; backend messages are always tagged.
func NewDecoder(direction Direction) *Decoder {
	return &Decoder{
		direction:   direction,
		buf:         wire.NewBuffer(),
		startupDone: direction == DirectionBackend,
	}
}

// Push appends bytes that arrived from the network.
func (d *Decoder) Push(data []byte) {
	d.buf.Append(data)
}

// Buffered returns the number of bytes awaiting decoding.
func (d *Decoder) Buffered() uint64 {
	return d.buf.Len()
}

// Next attempts to decode the leading message. It returns ResultReady with
// the message, ResultNeedMoreData if the buffer is still incomplete, or
// ResultFailed on a protocol violation. Callers drain a session by looping
// until the result is not ResultReady.
func (d *Decoder) Next() (*DecodedMessage, Result) {
	if !d.startupDone {
		return d.nextStartup()
	}
	return d.nextTagged()
}

func (d *Decoder) nextTagged() (*DecodedMessage, Result) {
	if d.buf.Len() < 5 {
		return nil, ResultNeedMoreData
	}

	tag := d.buf.PeekUint8(0)
	length := d.buf.PeekUint32(1)
	if length < 4 {
		return nil, ResultFailed
	}
	payload := uint64(length) - 4

	table := FrontendMessages
	if d.direction == DirectionBackend {
		table = BackendMessages
	}
	builder, ok := table[tag]
	if !ok {
		builder = unknownMessage(tag)
	}

	msg := builder.New()
	switch msg.Validate(d.buf, 5, payload) {
	case wire.ValidationFailed:
		return nil, ResultFailed
	case wire.ValidationNeedMoreData:
		if d.buf.Len() >= 5+payload {
			// The whole declared frame is buffered yet validation still
			// wants more: the length field lies about the content.
			return nil, ResultFailed
		}
		return nil, ResultNeedMoreData
	}

	raw := d.buf.PeekBytes(0, 5+payload)
	d.buf.Drain(5)
	msg.Read(d.buf, payload)
	d.buf.Drain(payload)

	return &DecodedMessage{
		Tag:     tag,
		Name:    builder.Name,
		Message: msg,
		Raw:     raw,
	}, ResultReady
}

func (d *Decoder) nextStartup() (*DecodedMessage, Result) {
	if d.buf.Len() < 8 {
		return nil, ResultNeedMoreData
	}

	length := d.buf.PeekUint32(0)
	if length < 8 {
		return nil, ResultFailed
	}
	payload := uint64(length) - 4
	code := d.buf.PeekUint32(4)

	builder := startupMessage(code)
	msg := builder.New()
	switch msg.Validate(d.buf, 4, payload) {
	case wire.ValidationFailed:
		return nil, ResultFailed
	case wire.ValidationNeedMoreData:
		if d.buf.Len() >= 4+payload {
			return nil, ResultFailed
		}
		return nil, ResultNeedMoreData
	}

	raw := d.buf.PeekBytes(0, 4+payload)
	d.buf.Drain(4)
	msg.Read(d.buf, payload)
	d.buf.Drain(payload)

	// Encryption negotiation keeps the handshake open: the client sends a
	// fresh startup frame after the server's single-byte answer.
	if code != SSLRequestCode && code != GSSEncRequestCode {
		d.startupDone = true
	}

	return &DecodedMessage{
		Name:    builder.Name,
		Message: msg,
		Raw:     raw,
		Startup: true,
	}, ResultReady
}
