// Package wire implements the fixed-width little-endian primitive
// codec: readers/writers for b, c, i, I, d and the
// length-prefixed reader/writer for s, plus the u32 length fields used
// by a, l, m and the has-value byte used by o/x/X.
package wire

// Kind tags which of the three output sinks a Sink currently targets:
// append-to-owned-buffer,
// write-to-preallocated-cursor, or length-only counter. Dispatch is one
// switch per Write call rather than per-call virtual dispatch.
type Kind int

const (
	KindAppend Kind = iota
	KindCursor
	KindCount
)

// Sink is the single output abstraction every serializer in this module
// writes through.
type Sink struct {
	kind   Kind
	buf    *[]byte
	cursor []byte
	off    int
	count  int
}

// NewAppendSink returns a Sink that appends to *buf, growing it as needed.
func NewAppendSink(buf *[]byte) *Sink { return &Sink{kind: KindAppend, buf: buf} }

// NewCursorSink returns a Sink that writes into a pre-sized buffer
// starting at offset 0. The caller must have sized cursor exactly
// beforehand (a count sink's Count() gives the size); bytes that do not
// fit are dropped, and a write that starts past its end panics.
func NewCursorSink(cursor []byte) *Sink { return &Sink{kind: KindCursor, cursor: cursor} }

// NewCountSink returns a Sink that only counts bytes, for serialize_len.
func NewCountSink() *Sink { return &Sink{kind: KindCount} }

// Write appends p to the sink, per the active Kind.
func (s *Sink) Write(p []byte) {
	switch s.kind {
	case KindAppend:
		*s.buf = append(*s.buf, p...)
	case KindCursor:
		copy(s.cursor[s.off:], p)
		s.off += len(p)
	case KindCount:
		s.count += len(p)
	}
}

// WriteByte appends a single byte.
func (s *Sink) WriteByte(b byte) { s.Write([]byte{b}) }

// Count returns the number of bytes written so far (meaningful for
// KindCount; also accurate for the other two kinds).
func (s *Sink) Count() int {
	switch s.kind {
	case KindAppend:
		return len(*s.buf)
	case KindCursor:
		return s.off
	default:
		return s.count
	}
}
