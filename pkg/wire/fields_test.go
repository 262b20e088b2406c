package wire

import (
	"bytes"
	"testing"
)

func TestIntValidate(t *testing.T) {
	tests := []struct {
		name     string
		buffered []byte
		left     uint64
		expected ValidationResult
	}{
		{
			name:     "complete",
			buffered: []byte{0x00, 0x00, 0x00, 0x2A},
			left:     4,
			expected: ValidationOK,
		},
		{
			name:     "budget too small",
			buffered: []byte{0x00, 0x00, 0x00, 0x2A},
			left:     3,
			expected: ValidationFailed,
		},
		{
			name:     "not yet buffered",
			buffered: []byte{0x00, 0x00},
			left:     4,
			expected: ValidationNeedMoreData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := NewBufferBytes(tt.buffered)
			cur := NewCursor(0, tt.left)
			before := cur

			result := NewInt32(0).Validate(data, &cur)
			if result != tt.expected {
				t.Fatalf("Validate() = %v, want %v", result, tt.expected)
			}
			if result != ValidationOK && cur != before {
				t.Errorf("cursor changed on %v: %+v, want %+v", result, cur, before)
			}
			if result == ValidationOK && (cur.Pos != 4 || cur.Left != tt.left-4) {
				t.Errorf("cursor after OK = %+v", cur)
			}
		})
	}
}

func TestIntReadValue(t *testing.T) {
	data := NewBufferBytes([]byte{0x12, 0x34, 0x56, 0x78})

	f32 := NewInt32(0)
	cur := NewCursor(0, 4)
	if result := f32.Validate(data, &cur); result != ValidationOK {
		t.Fatalf("Validate() = %v", result)
	}
	cur = NewCursor(0, 4)
	f32.Read(data, &cur)
	if f32.Value() != 0x12345678 {
		t.Errorf("Value() = %#x, want 0x12345678", f32.Value())
	}

	f16 := NewInt16(0)
	cur = NewCursor(0, 2)
	f16.Read(data, &cur)
	if f16.Value() != 0x1234 {
		t.Errorf("Value() = %#x, want 0x1234", f16.Value())
	}

	f8 := NewInt8(0)
	cur = NewCursor(1, 1)
	f8.Read(data, &cur)
	if f8.Value() != 0x34 {
		t.Errorf("Value() = %#x, want 0x34", f8.Value())
	}
}

func TestIntWrite(t *testing.T) {
	to := NewBuffer()
	NewInt32(0xDEADBEEF).Write(to)
	NewInt16(0x0102).Write(to)
	NewInt8(0x03).Write(to)

	expected := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03}
	if !bytes.Equal(to.Bytes(), expected) {
		t.Errorf("written % X, want % X", to.Bytes(), expected)
	}
}

func TestStringValidate(t *testing.T) {
	tests := []struct {
		name     string
		buffered []byte
		left     uint64
		expected ValidationResult
	}{
		{
			name:     "terminator within budget",
			buffered: []byte("abc\x00"),
			left:     4,
			expected: ValidationOK,
		},
		{
			name:     "no terminator in full budget",
			buffered: []byte("abcde"),
			left:     5,
			expected: ValidationFailed,
		},
		{
			name:     "budget not exhausted yet",
			buffered: []byte("abc"),
			left:     5,
			expected: ValidationNeedMoreData,
		},
		{
			name:     "empty string",
			buffered: []byte{0x00},
			left:     1,
			expected: ValidationOK,
		},
		{
			name:     "zero budget",
			buffered: []byte{},
			left:     0,
			expected: ValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := NewBufferBytes(tt.buffered)
			cur := NewCursor(0, tt.left)
			before := cur

			result := NewString("").Validate(data, &cur)
			if result != tt.expected {
				t.Fatalf("Validate() = %v, want %v", result, tt.expected)
			}
			if result != ValidationOK && cur != before {
				t.Errorf("cursor changed on %v: %+v, want %+v", result, cur, before)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	f := NewString("SELECT 1")

	to := NewBuffer()
	f.Write(to)
	if got := to.Bytes(); !bytes.Equal(got, []byte("SELECT 1\x00")) {
		t.Fatalf("written %q", got)
	}
	if f.Size() != 9 {
		t.Fatalf("Size() = %d, want 9", f.Size())
	}

	decoded := NewString("")
	cur := NewCursor(0, 9)
	if result := decoded.Validate(to, &cur); result != ValidationOK {
		t.Fatalf("Validate() = %v", result)
	}
	cur = NewCursor(0, 9)
	decoded.Read(to, &cur)
	if decoded.Value() != "SELECT 1" {
		t.Errorf("Value() = %q", decoded.Value())
	}
}

func TestByteNConsumesRemaining(t *testing.T) {
	data := NewBufferBytes([]byte{1, 2, 3, 4, 5})

	f := NewByteN(nil)
	cur := NewCursor(0, 5)
	if result := f.Validate(data, &cur); result != ValidationOK {
		t.Fatalf("Validate() = %v", result)
	}
	if cur.Left != 0 {
		t.Fatalf("Left = %d after validate", cur.Left)
	}

	cur = NewCursor(0, 5)
	f.Read(data, &cur)
	if !bytes.Equal(f.Value(), []byte{1, 2, 3, 4, 5}) {
		t.Errorf("Value() = %v", f.Value())
	}
}

func TestByteNNeedMoreData(t *testing.T) {
	data := NewBufferBytes([]byte{1, 2, 3})
	cur := NewCursor(0, 5)
	before := cur

	if result := NewByteN(nil).Validate(data, &cur); result != ValidationNeedMoreData {
		t.Fatalf("Validate() = %v", result)
	}
	if cur != before {
		t.Errorf("cursor changed: %+v", cur)
	}
}

func TestVarByteNValidate(t *testing.T) {
	present := func(payload []byte) []byte {
		out := NewBuffer()
		out.AppendInt32(int32(len(payload)))
		out.Append(payload)
		return out.Bytes()
	}

	tests := []struct {
		name     string
		buffered []byte
		left     uint64
		expected ValidationResult
	}{
		{
			name:     "present complete",
			buffered: present([]byte("hello")),
			left:     9,
			expected: ValidationOK,
		},
		{
			name:     "null sentinel",
			buffered: []byte{0xFF, 0xFF, 0xFF, 0xFF},
			left:     4,
			expected: ValidationOK,
		},
		{
			name:     "other negative treated as null",
			buffered: []byte{0xFF, 0xFF, 0xFF, 0xFE},
			left:     4,
			expected: ValidationOK,
		},
		{
			name:     "payload not yet buffered",
			buffered: present([]byte("hello"))[:6],
			left:     9,
			expected: ValidationNeedMoreData,
		},
		{
			name:     "prefix not yet buffered",
			buffered: []byte{0x00, 0x00},
			left:     9,
			expected: ValidationNeedMoreData,
		},
		{
			name:     "payload exceeds budget",
			buffered: present([]byte("hello")),
			left:     7,
			expected: ValidationFailed,
		},
		{
			name:     "budget below prefix",
			buffered: []byte{0x00, 0x00, 0x00, 0x00},
			left:     3,
			expected: ValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := NewBufferBytes(tt.buffered)
			cur := NewCursor(0, tt.left)
			before := cur

			result := NewNullVarByteN().Validate(data, &cur)
			if result != tt.expected {
				t.Fatalf("Validate() = %v, want %v", result, tt.expected)
			}
			if result != ValidationOK && cur != before {
				t.Errorf("cursor changed on %v: %+v, want %+v", result, cur, before)
			}
		})
	}
}

func TestVarByteNEncoding(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		f := NewNullVarByteN()
		to := NewBuffer()
		f.Write(to)

		if !bytes.Equal(to.Bytes(), []byte{0xFF, 0xFF, 0xFF, 0xFF}) {
			t.Errorf("written % X", to.Bytes())
		}
		if f.Size() != 4 {
			t.Errorf("Size() = %d, want 4", f.Size())
		}
	})

	t.Run("present", func(t *testing.T) {
		f := NewVarByteN([]byte("data"))
		to := NewBuffer()
		f.Write(to)

		expected := []byte{0x00, 0x00, 0x00, 0x04, 'd', 'a', 't', 'a'}
		if !bytes.Equal(to.Bytes(), expected) {
			t.Errorf("written % X, want % X", to.Bytes(), expected)
		}
		if f.Size() != 8 {
			t.Errorf("Size() = %d, want 8", f.Size())
		}
	})

	t.Run("round trip null", func(t *testing.T) {
		to := NewBuffer()
		NewNullVarByteN().Write(to)

		decoded := NewVarByteN([]byte("stale"))
		cur := NewCursor(0, 4)
		if result := decoded.Validate(to, &cur); result != ValidationOK {
			t.Fatalf("Validate() = %v", result)
		}
		cur = NewCursor(0, 4)
		decoded.Read(to, &cur)
		if !decoded.IsNull() {
			t.Error("decoded value should be null")
		}
	})
}

func TestVarByteNEqual(t *testing.T) {
	tests := []struct {
		name     string
		a, b     *VarByteN
		expected bool
	}{
		{"both null", NewNullVarByteN(), NewNullVarByteN(), true},
		{"null vs present", NewNullVarByteN(), NewVarByteN(nil), false},
		{"same content", NewVarByteN([]byte("x")), NewVarByteN([]byte("x")), true},
		{"different content", NewVarByteN([]byte("x")), NewVarByteN([]byte("y")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.expected {
				t.Errorf("Equal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestArrayAtomicity(t *testing.T) {
	// Three elements declared, only two buffered: the whole array must
	// report NeedMoreData and restore the cursor to before the count
	// prefix.
	data := NewBuffer()
	data.AppendUint16(3)
	data.AppendUint32(1)
	data.AppendUint32(2)

	f := NewArray(func() Field { return NewInt32(0) })
	cur := NewCursor(0, 14)
	before := cur

	if result := f.Validate(data, &cur); result != ValidationNeedMoreData {
		t.Fatalf("Validate() = %v, want NeedMoreData", result)
	}
	if cur != before {
		t.Errorf("cursor changed: %+v, want %+v", cur, before)
	}
	if len(f.Elements()) != 0 {
		t.Errorf("retained %d elements on rollback", len(f.Elements()))
	}
}

func TestArrayFailedPropagation(t *testing.T) {
	// Three elements declared but the message budget only fits two: the
	// third element's Failed must propagate out of the array.
	data := NewBuffer()
	data.AppendUint16(3)
	data.AppendUint32(1)
	data.AppendUint32(2)
	data.AppendUint32(3)

	f := NewArray(func() Field { return NewInt32(0) })
	cur := NewCursor(0, 10)
	before := cur

	if result := f.Validate(data, &cur); result != ValidationFailed {
		t.Fatalf("Validate() = %v, want Failed", result)
	}
	if cur != before {
		t.Errorf("cursor changed: %+v, want %+v", cur, before)
	}
}

func TestArrayRoundTrip(t *testing.T) {
	newElem := func() Field { return NewInt16(0) }
	f := NewArrayValues(newElem, NewInt16(10), NewInt16(20), NewInt16(30))

	to := NewBuffer()
	f.Write(to)
	if f.Size() != len(to.Bytes()) {
		t.Fatalf("Size() = %d, wrote %d bytes", f.Size(), len(to.Bytes()))
	}

	decoded := NewArray(newElem)
	cur := NewCursor(0, uint64(f.Size()))
	if result := decoded.Validate(to, &cur); result != ValidationOK {
		t.Fatalf("Validate() = %v", result)
	}
	cur = NewCursor(0, uint64(f.Size()))
	decoded.Read(to, &cur)

	if len(decoded.Elements()) != 3 {
		t.Fatalf("decoded %d elements", len(decoded.Elements()))
	}
	for i, want := range []uint16{10, 20, 30} {
		if got := decoded.Elements()[i].(*Int[uint16]).Value(); got != want {
			t.Errorf("element %d = %d, want %d", i, got, want)
		}
	}
}

func TestArrayEmpty(t *testing.T) {
	data := NewBuffer()
	data.AppendUint16(0)

	f := NewArray(func() Field { return NewInt32(0) })
	cur := NewCursor(0, 2)
	if result := f.Validate(data, &cur); result != ValidationOK {
		t.Fatalf("Validate() = %v", result)
	}
	if cur.Left != 0 {
		t.Errorf("Left = %d", cur.Left)
	}
}

func TestRepeatedValidate(t *testing.T) {
	newElem := func() Field { return NewString("") }

	t.Run("budget not buffered", func(t *testing.T) {
		data := NewBufferBytes([]byte("ab\x00cd"))
		cur := NewCursor(0, 8)
		before := cur

		if result := NewRepeated(newElem).Validate(data, &cur); result != ValidationNeedMoreData {
			t.Fatalf("Validate() = %v", result)
		}
		if cur != before {
			t.Errorf("cursor changed: %+v", cur)
		}
	})

	t.Run("well-formed elements", func(t *testing.T) {
		data := NewBufferBytes([]byte("ab\x00cd\x00\x00"))
		f := NewRepeated(newElem)
		cur := NewCursor(0, 7)

		if result := f.Validate(data, &cur); result != ValidationOK {
			t.Fatalf("Validate() = %v", result)
		}
		if len(f.Elements()) != 3 {
			t.Fatalf("got %d elements, want 3", len(f.Elements()))
		}
	})

	t.Run("malformed element fails", func(t *testing.T) {
		// Second element has no terminator within the budget.
		data := NewBufferBytes([]byte("ab\x00cdef"))
		f := NewRepeated(newElem)
		cur := NewCursor(0, 7)
		before := cur

		if result := f.Validate(data, &cur); result != ValidationFailed {
			t.Fatalf("Validate() = %v, want Failed", result)
		}
		if cur != before {
			t.Errorf("cursor changed: %+v", cur)
		}
		if len(f.Elements()) != 0 {
			t.Errorf("retained %d elements", len(f.Elements()))
		}
	})
}

func TestRepeatedRoundTrip(t *testing.T) {
	newElem := func() Field { return NewString("") }
	f := NewRepeatedValues(newElem, NewString("user"), NewString("postgres"))

	to := NewBuffer()
	f.Write(to)
	if f.Size() != len(to.Bytes()) {
		t.Fatalf("Size() = %d, wrote %d bytes", f.Size(), len(to.Bytes()))
	}

	decoded := NewRepeated(newElem)
	cur := NewCursor(0, uint64(f.Size()))
	if result := decoded.Validate(to, &cur); result != ValidationOK {
		t.Fatalf("Validate() = %v", result)
	}
	cur = NewCursor(0, uint64(f.Size()))
	decoded.Read(to, &cur)

	if len(decoded.Elements()) != 2 {
		t.Fatalf("decoded %d elements", len(decoded.Elements()))
	}
	if got := decoded.Elements()[1].(*String).Value(); got != "postgres" {
		t.Errorf("element 1 = %q", got)
	}
}

func TestSequenceTransactional(t *testing.T) {
	// First field validates, second needs more data: the sequence must
	// restore the cursor so a retry starts from the same offset.
	data := NewBuffer()
	data.AppendUint32(7)
	data.Append([]byte("par"))

	seq := NewSequence(NewInt32(0), NewString(""))
	cur := NewCursor(0, 12)
	before := cur

	if result := seq.Validate(data, &cur); result != ValidationNeedMoreData {
		t.Fatalf("Validate() = %v", result)
	}
	if cur != before {
		t.Errorf("cursor changed: %+v, want %+v", cur, before)
	}

	// Retry after the rest arrives.
	data.Append([]byte("tial\x00"))
	if result := seq.Validate(data, &cur); result != ValidationOK {
		t.Fatalf("retry Validate() = %v", result)
	}
}

func TestSequenceSizeAdditivity(t *testing.T) {
	seq := NewSequence(
		NewInt32(42),
		NewString("name"),
		NewInt16(7),
		NewVarByteN([]byte("blob")),
	)

	expected := 4 + 5 + 2 + 8
	if seq.Size() != expected {
		t.Fatalf("Size() = %d, want %d", seq.Size(), expected)
	}

	to := NewBuffer()
	seq.Write(to)
	if len(to.Bytes()) != expected {
		t.Errorf("wrote %d bytes, want %d", len(to.Bytes()), expected)
	}
}

func TestSequenceNested(t *testing.T) {
	// A sequence is a field itself, so tuples can nest inside arrays.
	newColumn := func() Field {
		return NewSequence(NewString(""), NewInt32(0), NewInt16(0))
	}
	f := NewArrayValues(newColumn,
		NewSequence(NewString("id"), NewInt32(23), NewInt16(4)),
		NewSequence(NewString("name"), NewInt32(25), NewInt16(0xFFFF)),
	)

	to := NewBuffer()
	f.Write(to)

	decoded := NewArray(newColumn)
	cur := NewCursor(0, uint64(f.Size()))
	if result := decoded.Validate(to, &cur); result != ValidationOK {
		t.Fatalf("Validate() = %v", result)
	}
	cur = NewCursor(0, uint64(f.Size()))
	decoded.Read(to, &cur)

	col := decoded.Elements()[1].(*Sequence)
	if got := col.Field(0).(*String).Value(); got != "name" {
		t.Errorf("column name = %q", got)
	}
	if got := col.Field(1).(*Int[uint32]).Value(); got != 25 {
		t.Errorf("column type = %d", got)
	}
}
