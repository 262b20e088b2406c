package wire

import "fmt"

// Cursor tracks progress through a single message's byte range: Pos is the
// absolute offset into the buffer, Left is the number of bytes remaining in
// the message's declared length. Composite fields snapshot the cursor by value
// and restore it when validation of a later part fails, so a retried Validate
// always starts from the same logical offset.
type Cursor struct {
	Pos  uint64
	Left uint64
}

// NewCursor creates a cursor at start with length bytes remaining.
func NewCursor(start, length uint64) Cursor {
	return Cursor{Pos: start, Left: length}
}

// Advance moves the cursor forward by n bytes. Advancing past the remaining
// budget is a caller bug: fields must bound their consumption during Validate.
func (c *Cursor) Advance(n uint64) {
	if n > c.Left {
		panic(fmt.Sprintf("wire: cursor advance %d exceeds remaining %d", n, c.Left))
	}
	c.Pos += n
	c.Left -= n
}
