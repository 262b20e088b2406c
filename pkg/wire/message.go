package wire

// Message is the contract a decoded or encoded protocol unit satisfies.
//
// Lifecycle: a message is constructed empty, Validate is called zero or more
// times against a growing buffer, and on ValidationOK Read is called exactly
// once. Write optionally re-serializes the message. Calling Read without a
// preceding successful Validate on the same instance, or Write on a message
// that reports Writeable() == false, is a fatal programming error and panics.
type Message interface {
	// Validate checks whether the message's fields are complete within
	// length bytes starting at offset start. The fields must exactly
	// exhaust the declared length; leftover budget fails validation. It
	// never consumes buffer state and is safe to retry as the buffer
	// grows.
	Validate(data *Buffer, start, length uint64) ValidationResult

	// Read materializes field values from length bytes starting at
	// offset 0; the caller drains the frame header beforehand.
	Read(data *Buffer, length uint64)

	// Write appends the full wire frame for the message.
	Write(to *Buffer)

	// Writeable reports whether the message kind can be serialized.
	Writeable() bool

	// Field returns the i-th field of the message body.
	Field(i int) Field

	// NumFields returns the number of fields in the message body.
	NumFields() int

	String() string
}

type messageBase struct {
	seq        *Sequence
	lastResult ValidationResult
}

func newMessageBase(fields []Field) messageBase {
	return messageBase{
		seq:        NewSequence(fields...),
		lastResult: ValidationNeedMoreData,
	}
}

func (m *messageBase) Validate(data *Buffer, start, length uint64) ValidationResult {
	cur := NewCursor(start, length)
	result := m.seq.Validate(data, &cur)
	if result == ValidationOK && cur.Left != 0 {
		// The declared length promises more bytes than the field chain can
		// consume. No amount of further input repairs that, so the frame is
		// malformed rather than incomplete.
		result = ValidationFailed
	}
	m.lastResult = result
	return result
}

func (m *messageBase) Read(data *Buffer, length uint64) {
	if m.lastResult != ValidationOK {
		panic("wire: Read called without a successful Validate")
	}
	cur := NewCursor(0, length)
	m.seq.Read(data, &cur)
}

func (m *messageBase) Field(i int) Field {
	return m.seq.Field(i)
}

func (m *messageBase) NumFields() int {
	return m.seq.NumFields()
}

func (m *messageBase) String() string {
	return m.seq.String()
}

// message is a protocol unit without a leading wire identifier. Such messages
// appear only during the initial handshake phase and are receive-only: the
// protocol never requires echoing them back.
type message struct {
	messageBase
}

// NewMessage creates a message without a wire identifier from the given
// fields in wire order.
func NewMessage(fields ...Field) Message {
	return &message{messageBase: newMessageBase(fields)}
}

func (m *message) Writeable() bool {
	return false
}

func (m *message) Write(*Buffer) {
	panic("wire: Write called on a message without a wire identifier")
}

// TypedMessage is a protocol unit bound to a one-byte wire identifier. Its
// frame on the wire is the identifier byte, a 4-byte big-endian length equal
// to payload size + 4 (the length field includes itself and excludes the
// identifier), then the payload in declared field order.
type TypedMessage struct {
	messageBase
	tag byte
}

// NewTypedMessage creates a message bound to the given wire identifier from
// the given fields in wire order. A zero-field instantiation is valid: its
// Validate and Read are trivial and its frame is the identifier followed by
// a length of 4.
func NewTypedMessage(tag byte, fields ...Field) *TypedMessage {
	return &TypedMessage{messageBase: newMessageBase(fields), tag: tag}
}

// Tag returns the wire identifier.
func (m *TypedMessage) Tag() byte {
	return m.tag
}

func (m *TypedMessage) Writeable() bool {
	return true
}

func (m *TypedMessage) Write(to *Buffer) {
	to.AppendByte(m.tag)
	to.AppendUint32(uint32(m.seq.Size()) + 4)
	m.seq.Write(to)
}
