package wire

import "fmt"

// IntValue constrains the fixed-width unsigned integer types that appear on
// the wire.
type IntValue interface {
	uint8 | uint16 | uint32
}

// Int is a fixed-width big-endian integer field.
type Int[T IntValue] struct {
	value T
}

// NewInt8 creates an 8-bit integer field holding v.
func NewInt8(v uint8) *Int[uint8] {
	return &Int[uint8]{value: v}
}

// NewInt16 creates a 16-bit integer field holding v.
func NewInt16(v uint16) *Int[uint16] {
	return &Int[uint16]{value: v}
}

// NewInt32 creates a 32-bit integer field holding v.
func NewInt32(v uint32) *Int[uint32] {
	return &Int[uint32]{value: v}
}

// Value returns the decoded integer.
func (f *Int[T]) Value() T {
	return f.value
}

// SetValue replaces the integer value.
func (f *Int[T]) SetValue(v T) {
	f.value = v
}

func (f *Int[T]) width() uint64 {
	switch any(f.value).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	default:
		return 4
	}
}

func (f *Int[T]) peek(data *Buffer, pos uint64) T {
	switch f.width() {
	case 1:
		return T(data.PeekUint8(pos))
	case 2:
		return T(data.PeekUint16(pos))
	default:
		return T(data.PeekUint32(pos))
	}
}

// Validate checks that the integer's bytes are present at the cursor.
func (f *Int[T]) Validate(data *Buffer, cur *Cursor) ValidationResult {
	w := f.width()
	if cur.Left < w {
		return ValidationFailed
	}
	if data.Len() < cur.Pos+w {
		return ValidationNeedMoreData
	}
	cur.Advance(w)
	return ValidationOK
}

// Read decodes the integer at the cursor.
func (f *Int[T]) Read(data *Buffer, cur *Cursor) {
	f.value = f.peek(data, cur.Pos)
	cur.Advance(f.width())
}

// Write appends the big-endian encoding of the value.
func (f *Int[T]) Write(to *Buffer) {
	switch v := any(f.value).(type) {
	case uint8:
		to.AppendByte(v)
	case uint16:
		to.AppendUint16(v)
	case uint32:
		to.AppendUint32(v)
	}
}

// Size returns the encoded width in bytes.
func (f *Int[T]) Size() int {
	return int(f.width())
}

func (f *Int[T]) String() string {
	return fmt.Sprintf("[%d]", f.value)
}

// Byte1 is a single character field, used for wire identifiers embedded in
// message payloads (e.g. a describe target kind).
type Byte1 struct {
	value byte
}

// NewByte1 creates a character field holding v.
func NewByte1(v byte) *Byte1 {
	return &Byte1{value: v}
}

// Value returns the decoded character.
func (f *Byte1) Value() byte {
	return f.value
}

// SetValue replaces the character value.
func (f *Byte1) SetValue(v byte) {
	f.value = v
}

// Validate checks that the byte is present at the cursor.
func (f *Byte1) Validate(data *Buffer, cur *Cursor) ValidationResult {
	if cur.Left < 1 {
		return ValidationFailed
	}
	if data.Len() < cur.Pos+1 {
		return ValidationNeedMoreData
	}
	cur.Advance(1)
	return ValidationOK
}

// Read decodes the byte at the cursor.
func (f *Byte1) Read(data *Buffer, cur *Cursor) {
	f.value = data.PeekUint8(cur.Pos)
	cur.Advance(1)
}

// Write appends the byte.
func (f *Byte1) Write(to *Buffer) {
	to.AppendByte(f.value)
}

// Size returns 1.
func (f *Byte1) Size() int {
	return 1
}

func (f *Byte1) String() string {
	return fmt.Sprintf("[%c]", f.value)
}
