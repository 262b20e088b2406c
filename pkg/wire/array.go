package wire

import (
	"fmt"
	"strings"
)

// Array is a counted container: a 16-bit element-count prefix followed by
// that many elements of a single field type. Validation is all-or-nothing:
// if any element is incomplete or malformed the cursor is rolled back to
// before the count prefix and no element values are retained.
type Array struct {
	newElement func() Field
	elements   []Field
}

// NewArray creates an empty array whose elements are produced by newElement.
func NewArray(newElement func() Field) *Array {
	return &Array{newElement: newElement}
}

// NewArrayValues creates an array holding the given elements, for outbound
// serialization.
func NewArrayValues(newElement func() Field, elements ...Field) *Array {
	return &Array{newElement: newElement, elements: elements}
}

// Elements returns the decoded elements.
func (f *Array) Elements() []Field {
	return f.elements
}

// Validate reads the count prefix and validates each element in declared
// order. Any non-OK element result rolls the cursor back to its state before
// the count prefix and is propagated faithfully.
func (f *Array) Validate(data *Buffer, cur *Cursor) ValidationResult {
	if cur.Left < 2 {
		return ValidationFailed
	}
	if data.Len() < cur.Pos+2 {
		return ValidationNeedMoreData
	}

	count := data.PeekUint16(cur.Pos)
	saved := *cur
	cur.Advance(2)
	f.elements = f.elements[:0]

	for i := 0; i < int(count); i++ {
		elem := f.newElement()
		if result := elem.Validate(data, cur); result != ValidationOK {
			*cur = saved
			f.elements = f.elements[:0]
			return result
		}
		f.elements = append(f.elements, elem)
	}
	return ValidationOK
}

// Read decodes the elements retained by Validate in declared order.
func (f *Array) Read(data *Buffer, cur *Cursor) {
	cur.Advance(2)
	for _, elem := range f.elements {
		elem.Read(data, cur)
	}
}

// Write emits the element count followed by every element.
func (f *Array) Write(to *Buffer) {
	to.AppendUint16(uint16(len(f.elements)))
	for _, elem := range f.elements {
		elem.Write(to)
	}
}

// Size returns the count prefix width plus the sum of element sizes.
func (f *Array) Size() int {
	size := 2
	for _, elem := range f.elements {
		size += elem.Size()
	}
	return size
}

func (f *Array) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Array of %d:{", len(f.elements))
	for _, elem := range f.elements {
		b.WriteString(elem.String())
	}
	b.WriteString("}]")
	return b.String()
}
