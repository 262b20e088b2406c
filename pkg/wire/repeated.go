package wire

import "strings"

// Repeated is an open-ended container: it holds elements of a single field
// type repeated until the message's remaining byte budget is exhausted, with
// no count prefix. The whole remaining budget must already be buffered before
// any element is attempted; it does not support incremental arrival
// mid-repetition.
type Repeated struct {
	newElement func() Field
	elements   []Field
}

// NewRepeated creates an empty repetition whose elements are produced by
// newElement.
func NewRepeated(newElement func() Field) *Repeated {
	return &Repeated{newElement: newElement}
}

// NewRepeatedValues creates a repetition holding the given elements, for
// outbound serialization.
func NewRepeatedValues(newElement func() Field, elements ...Field) *Repeated {
	return &Repeated{newElement: newElement, elements: elements}
}

// Elements returns the decoded elements.
func (f *Repeated) Elements() []Field {
	return f.elements
}

// Validate consumes elements until the remaining budget reaches zero. A
// malformed element rolls the cursor back and fails the whole repetition:
// with the full budget already buffered an element can only be well-formed
// or malformed, never incomplete.
func (f *Repeated) Validate(data *Buffer, cur *Cursor) ValidationResult {
	if data.Len() < cur.Pos+cur.Left {
		return ValidationNeedMoreData
	}

	saved := *cur
	f.elements = f.elements[:0]

	for cur.Left != 0 {
		elem := f.newElement()
		if result := elem.Validate(data, cur); result != ValidationOK {
			*cur = saved
			f.elements = f.elements[:0]
			return ValidationFailed
		}
		f.elements = append(f.elements, elem)
	}
	return ValidationOK
}

// Read decodes the elements retained by Validate in order.
func (f *Repeated) Read(data *Buffer, cur *Cursor) {
	for _, elem := range f.elements {
		elem.Read(data, cur)
	}
}

// Write emits every element with no count or length marker.
func (f *Repeated) Write(to *Buffer) {
	for _, elem := range f.elements {
		elem.Write(to)
	}
}

// Size returns the sum of element sizes.
func (f *Repeated) Size() int {
	size := 0
	for _, elem := range f.elements {
		size += elem.Size()
	}
	return size
}

func (f *Repeated) String() string {
	var b strings.Builder
	for _, elem := range f.elements {
		b.WriteString(elem.String())
	}
	return b.String()
}
