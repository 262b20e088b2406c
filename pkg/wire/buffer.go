// Package wire implements a composable framework for decoding and encoding
// binary protocol messages over a byte stream that may arrive fragmented
// across multiple network reads.
//
// Every message type supports two-phase parsing: Validate checks that enough
// bytes are present without consuming anything, and may be retried as more
// bytes arrive; Read destructively materializes field values once Validate
// has reported ValidationOK.
package wire

import "encoding/binary"

// Buffer is a byte-addressable view over accumulated stream data. Peeks are
// non-mutating so a failed or incomplete validation attempt leaves the buffer
// intact for the next attempt. Appends are used for serialization.
type Buffer struct {
	data []byte
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// NewBufferBytes creates a buffer initialized with a copy of data.
func NewBufferBytes(data []byte) *Buffer {
	b := &Buffer{}
	b.Append(data)
	return b
}

// Len returns the number of bytes currently held.
func (b *Buffer) Len() uint64 {
	return uint64(len(b.data))
}

// Bytes returns the underlying bytes. The slice is valid until the next
// mutation of the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// PeekUint8 returns the byte at pos without advancing anything.
func (b *Buffer) PeekUint8(pos uint64) uint8 {
	return b.data[pos]
}

// PeekUint16 returns the big-endian 16-bit integer at pos.
func (b *Buffer) PeekUint16(pos uint64) uint16 {
	return binary.BigEndian.Uint16(b.data[pos : pos+2])
}

// PeekUint32 returns the big-endian 32-bit integer at pos.
func (b *Buffer) PeekUint32(pos uint64) uint32 {
	return binary.BigEndian.Uint32(b.data[pos : pos+4])
}

// PeekInt32 returns the big-endian signed 32-bit integer at pos.
func (b *Buffer) PeekInt32(pos uint64) int32 {
	return int32(binary.BigEndian.Uint32(b.data[pos : pos+4]))
}

// PeekBytes returns a copy of n bytes starting at pos.
func (b *Buffer) PeekBytes(pos, n uint64) []byte {
	out := make([]byte, n)
	copy(out, b.data[pos:pos+n])
	return out
}

// Append adds raw bytes to the end of the buffer.
func (b *Buffer) Append(data []byte) {
	b.data = append(b.data, data...)
}

// AppendByte adds a single byte to the end of the buffer.
func (b *Buffer) AppendByte(v byte) {
	b.data = append(b.data, v)
}

// AppendUint16 adds a big-endian 16-bit integer to the end of the buffer.
func (b *Buffer) AppendUint16(v uint16) {
	b.data = binary.BigEndian.AppendUint16(b.data, v)
}

// AppendUint32 adds a big-endian 32-bit integer to the end of the buffer.
func (b *Buffer) AppendUint32(v uint32) {
	b.data = binary.BigEndian.AppendUint32(b.data, v)
}

// AppendInt32 adds a big-endian signed 32-bit integer to the end of the buffer.
func (b *Buffer) AppendInt32(v int32) {
	b.data = binary.BigEndian.AppendUint32(b.data, uint32(v))
}

// Drain discards n bytes from the front of the buffer.
func (b *Buffer) Drain(n uint64) {
	b.data = b.data[:copy(b.data, b.data[n:])]
}
