package wire

// ValidationResult is the tri-state outcome of a Validate call.
type ValidationResult int

const (
	// ValidationFailed is a terminal protocol violation for the message
	// attempt: the declared length is inconsistent with the actual content.
	ValidationFailed ValidationResult = iota

	// ValidationOK authorizes exactly one subsequent Read.
	ValidationOK

	// ValidationNeedMoreData is transient: the buffer does not yet hold
	// enough bytes. State is left unchanged so the call can be retried
	// once more bytes arrive.
	ValidationNeedMoreData
)

// String returns a displayable name for the result.
func (r ValidationResult) String() string {
	switch r {
	case ValidationFailed:
		return "Failed"
	case ValidationOK:
		return "OK"
	case ValidationNeedMoreData:
		return "NeedMoreData"
	default:
		return "Unknown"
	}
}

// Field is a value of a specific wire-encoded type. Each field knows its own
// encoded byte size and can validate in place, decode in place and serialize
// itself.
//
// Validate checks that the bytes for this field are present at the cursor,
// advancing the cursor on ValidationOK and leaving it untouched otherwise.
// Read decodes the field value at the cursor and advances it; calling Read
// without a prior successful Validate of the enclosing message is a
// programming error. Write appends the wire encoding of the current value.
type Field interface {
	Validate(data *Buffer, cur *Cursor) ValidationResult
	Read(data *Buffer, cur *Cursor)
	Write(to *Buffer)
	Size() int
	String() string
}
