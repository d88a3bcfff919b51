package wire

import (
	"encoding/binary"
	"math"

	"github.com/ufser-go/ufser/pkg/errval"
)

const (
	boolSize   = 1
	byteSize   = 1
	int32Size  = 4
	int64Size  = 8
	doubleSize = 8
	u32Size    = 4
)

func need(b []byte, n int) *errval.Error {
	if len(b) < n {
		return errval.Valf("wire", "", len(b))
	}
	return nil
}

// ReadBool reads a 1-byte boolean (0 or 1).
func ReadBool(b []byte) (bool, int, *errval.Error) {
	if err := need(b, boolSize); err != nil {
		return false, 0, err
	}
	return b[0] != 0, boolSize, nil
}

// WriteBool writes a 1-byte boolean.
func WriteBool(s *Sink, v bool) {
	if v {
		s.WriteByte(1)
	} else {
		s.WriteByte(0)
	}
}

// ReadByte reads a single raw byte (the 'c' type).
func ReadByte(b []byte) (byte, int, *errval.Error) {
	if err := need(b, byteSize); err != nil {
		return 0, 0, err
	}
	return b[0], byteSize, nil
}

// WriteByteVal writes a single raw byte.
func WriteByteVal(s *Sink, v byte) { s.WriteByte(v) }

// ReadI32 reads a little-endian 32-bit signed integer.
func ReadI32(b []byte) (int32, int, *errval.Error) {
	if err := need(b, int32Size); err != nil {
		return 0, 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), int32Size, nil
}

// WriteI32 writes a little-endian 32-bit signed integer.
func WriteI32(s *Sink, v int32) {
	var buf [int32Size]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	s.Write(buf[:])
}

// ReadI64 reads a little-endian 64-bit signed integer.
func ReadI64(b []byte) (int64, int, *errval.Error) {
	if err := need(b, int64Size); err != nil {
		return 0, 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), int64Size, nil
}

// WriteI64 writes a little-endian 64-bit signed integer.
func WriteI64(s *Sink, v int64) {
	var buf [int64Size]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	s.Write(buf[:])
}

// ReadF64 reads a little-endian IEEE-754 binary64.
func ReadF64(b []byte) (float64, int, *errval.Error) {
	if err := need(b, doubleSize); err != nil {
		return 0, 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), doubleSize, nil
}

// WriteF64 writes a little-endian IEEE-754 binary64.
func WriteF64(s *Sink, v float64) {
	var buf [doubleSize]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	s.Write(buf[:])
}

// ReadU32 reads a little-endian u32, used for list/map counts, any
// tlen/vlen fields and string lengths.
func ReadU32(b []byte) (uint32, int, *errval.Error) {
	if err := need(b, u32Size); err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint32(b), u32Size, nil
}

// WriteU32 writes a little-endian u32.
func WriteU32(s *Sink, v uint32) {
	var buf [u32Size]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	s.Write(buf[:])
}

// ReadStringView reads a length-prefixed UTF-8 string as a borrowed
// slice into b (no copy): u32 length, then that many bytes.
func ReadStringView(b []byte) (view []byte, consumed int, err *errval.Error) {
	n, hn, err := ReadU32(b)
	if err != nil {
		return nil, 0, err
	}
	total := hn + int(n)
	if err := need(b, total); err != nil {
		return nil, 0, err
	}
	return b[hn:total], total, nil
}

// ReadStringOwned reads a length-prefixed string and copies it.
func ReadStringOwned(b []byte) (string, int, *errval.Error) {
	view, n, err := ReadStringView(b)
	if err != nil {
		return "", 0, err
	}
	return string(view), n, nil
}

// WriteString writes a u32 length followed by v's bytes.
func WriteString(s *Sink, v string) {
	WriteU32(s, uint32(len(v)))
	s.Write([]byte(v))
}

// StringLen returns the serialized length of a string value without writing it.
func StringLen(v string) int { return u32Size + len(v) }

// FixedLen returns the fixed wire width of a primitive scalar token, or
// -1 if c does not have a fixed width (s, a, e and the containers don't).
func FixedLen(c byte) int {
	switch c {
	case 'b', 'c':
		return 1
	case 'i':
		return int32Size
	case 'I':
		return int64Size
	case 'd':
		return doubleSize
	default:
		return -1
	}
}
