package wire

import "fmt"

// String is a NUL-terminated string field. Validate scans for the terminator
// without copying and records the content length; Read materializes the
// string from it.
type String struct {
	// contentLen is set by Validate and excludes the terminator.
	contentLen uint64
	value      string
}

// NewString creates a string field holding v.
func NewString(v string) *String {
	return &String{value: v}
}

// Value returns the decoded string content (without the terminator).
func (f *String) Value() string {
	return f.value
}

// SetValue replaces the string content.
func (f *String) SetValue(v string) {
	f.value = v
}

// Validate scans forward from the cursor for the terminator within the
// message's remaining budget. A missing terminator within a fully buffered
// budget means the declared length is inconsistent with the content.
func (f *String) Validate(data *Buffer, cur *Cursor) ValidationResult {
	limit := cur.Pos + cur.Left
	scanEnd := limit
	if avail := data.Len(); avail < scanEnd {
		scanEnd = avail
	}

	for i := cur.Pos; i < scanEnd; i++ {
		if data.PeekUint8(i) == 0 {
			f.contentLen = i - cur.Pos
			cur.Advance(f.contentLen + 1)
			return ValidationOK
		}
	}

	if data.Len() < limit {
		return ValidationNeedMoreData
	}
	return ValidationFailed
}

// Read materializes the string using the length recorded by Validate.
func (f *String) Read(data *Buffer, cur *Cursor) {
	f.value = string(data.PeekBytes(cur.Pos, f.contentLen))
	cur.Advance(f.contentLen + 1)
}

// Write appends the content followed by a single zero byte.
func (f *String) Write(to *Buffer) {
	to.Append([]byte(f.value))
	to.AppendByte(0)
}

// Size returns the content length plus the terminator.
func (f *String) Size() int {
	return len(f.value) + 1
}

func (f *String) String() string {
	return fmt.Sprintf("[%s]", f.value)
}
