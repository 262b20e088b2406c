package wire

import "strings"

// Sequence is an ordered, fixed-arity list of heterogeneous fields, the
// composition primitive every message is built from. Field order is wire
// order. A Sequence is itself a Field, so tuples can nest inside containers
// (e.g. the per-column tuple of a row description inside an Array).
type Sequence struct {
	fields []Field
}

// NewSequence creates a sequence of the given fields in wire order.
func NewSequence(fields ...Field) *Sequence {
	return &Sequence{fields: fields}
}

// Field returns the i-th field.
func (s *Sequence) Field(i int) Field {
	return s.fields[i]
}

// NumFields returns the arity of the sequence.
func (s *Sequence) NumFields() int {
	return len(s.fields)
}

// Validate wraps the whole chain transactionally: the cursor is snapshotted
// before the first field, and if any field fails or needs more data the
// cursor is restored and that field's result returned. Later fields are
// never attempted once an earlier one does not validate, so a retried
// Validate on a grown buffer always starts from the same logical offset.
func (s *Sequence) Validate(data *Buffer, cur *Cursor) ValidationResult {
	saved := *cur
	for _, f := range s.fields {
		if result := f.Validate(data, cur); result != ValidationOK {
			*cur = saved
			return result
		}
	}
	return ValidationOK
}

// Read decodes every field in declared order.
func (s *Sequence) Read(data *Buffer, cur *Cursor) {
	for _, f := range s.fields {
		f.Read(data, cur)
	}
}

// Write serializes every field in declared order.
func (s *Sequence) Write(to *Buffer) {
	for _, f := range s.fields {
		f.Write(to)
	}
}

// Size returns the sum of field sizes.
func (s *Sequence) Size() int {
	size := 0
	for _, f := range s.fields {
		size += f.Size()
	}
	return size
}

func (s *Sequence) String() string {
	var b strings.Builder
	for _, f := range s.fields {
		b.WriteString(f.String())
	}
	return b.String()
}
