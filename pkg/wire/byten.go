package wire

import (
	"bytes"
	"fmt"
)

// ByteN is a raw byte blob that consumes every byte remaining in the
// enclosing message. Its length is never self-declared but derived from the
// outer frame's remaining budget, so it can only appear as the last field.
type ByteN struct {
	value []byte
}

// NewByteN creates a blob field holding v.
func NewByteN(v []byte) *ByteN {
	return &ByteN{value: v}
}

// Value returns the decoded bytes.
func (f *ByteN) Value() []byte {
	return f.value
}

// SetValue replaces the blob content.
func (f *ByteN) SetValue(v []byte) {
	f.value = v
}

// Validate succeeds once the whole remaining budget is buffered.
func (f *ByteN) Validate(data *Buffer, cur *Cursor) ValidationResult {
	if data.Len() < cur.Pos+cur.Left {
		return ValidationNeedMoreData
	}
	cur.Advance(cur.Left)
	return ValidationOK
}

// Read copies exactly the remaining budget.
func (f *ByteN) Read(data *Buffer, cur *Cursor) {
	f.value = data.PeekBytes(cur.Pos, cur.Left)
	cur.Advance(cur.Left)
}

// Write appends the raw bytes.
func (f *ByteN) Write(to *Buffer) {
	to.Append(f.value)
}

// Size returns the content length.
func (f *ByteN) Size() int {
	return len(f.value)
}

func (f *ByteN) String() string {
	return fmt.Sprintf("[%d bytes]", len(f.value))
}

// VarByteN is an optional byte blob encoded as a 4-byte signed length prefix
// followed by that many bytes. A prefix of -1 denotes an absent (NULL) value
// with no payload bytes following; other negative prefixes are treated the
// same way. An absent value never owns a payload.
type VarByteN struct {
	present bool
	value   []byte
}

// NewVarByteN creates a present blob field holding v.
func NewVarByteN(v []byte) *VarByteN {
	return &VarByteN{present: true, value: v}
}

// NewNullVarByteN creates an absent blob field.
func NewNullVarByteN() *VarByteN {
	return &VarByteN{}
}

// IsNull reports whether the value is absent.
func (f *VarByteN) IsNull() bool {
	return !f.present
}

// Value returns the decoded bytes. Calling Value on an absent blob is a
// programming error.
func (f *VarByteN) Value() []byte {
	if !f.present {
		panic("wire: Value called on absent VarByteN")
	}
	return f.value
}

// SetValue replaces the blob content and marks it present.
func (f *VarByteN) SetValue(v []byte) {
	f.present = true
	f.value = v
}

// SetNull marks the blob absent and releases the payload.
func (f *VarByteN) SetNull() {
	f.present = false
	f.value = nil
}

// Equal reports structural equality: presence plus content.
func (f *VarByteN) Equal(other *VarByteN) bool {
	if f.present != other.present {
		return false
	}
	return !f.present || bytes.Equal(f.value, other.value)
}

// Validate checks the length prefix and, for non-negative lengths, that the
// declared payload is both within the message budget and buffered.
func (f *VarByteN) Validate(data *Buffer, cur *Cursor) ValidationResult {
	if cur.Left < 4 {
		return ValidationFailed
	}
	if data.Len() < cur.Pos+4 {
		return ValidationNeedMoreData
	}

	n := data.PeekInt32(cur.Pos)
	if n < 0 {
		// NULL sentinel, no payload bytes follow.
		cur.Advance(4)
		return ValidationOK
	}

	if cur.Left-4 < uint64(n) {
		return ValidationFailed
	}
	if data.Len() < cur.Pos+4+uint64(n) {
		return ValidationNeedMoreData
	}
	cur.Advance(4 + uint64(n))
	return ValidationOK
}

// Read decodes the prefix and payload at the cursor.
func (f *VarByteN) Read(data *Buffer, cur *Cursor) {
	n := data.PeekInt32(cur.Pos)
	if n < 0 {
		f.present = false
		f.value = nil
		cur.Advance(4)
		return
	}
	f.present = true
	f.value = data.PeekBytes(cur.Pos+4, uint64(n))
	cur.Advance(4 + uint64(n))
}

// Write emits -1 for an absent value, otherwise the length followed by the
// bytes.
func (f *VarByteN) Write(to *Buffer) {
	if !f.present {
		to.AppendInt32(-1)
		return
	}
	to.AppendInt32(int32(len(f.value)))
	to.Append(f.value)
}

// Size returns the prefix width plus the payload length.
func (f *VarByteN) Size() int {
	if !f.present {
		return 4
	}
	return 4 + len(f.value)
}

func (f *VarByteN) String() string {
	if !f.present {
		return "[NULL]"
	}
	return fmt.Sprintf("[%d bytes]", len(f.value))
}
