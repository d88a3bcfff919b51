package scan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ufser-go/ufser/internal/wire"
)

func TestScanListOfU32(t *testing.T) {
	// List of the three 32-bit values 7, 8, 9.
	var buf []byte
	s := wire.NewAppendSink(&buf)
	wire.WriteU32(s, 3)
	wire.WriteI32(s, 7)
	wire.WriteI32(s, 8)
	wire.WriteI32(s, 9)

	err := ScanFull([]byte("li"), buf, true)
	require.Nil(t, err)
}

func TestScanTuple(t *testing.T) {
	// (1, 2.5, true) as t3idb.
	var buf []byte
	s := wire.NewAppendSink(&buf)
	wire.WriteI32(s, 1)
	wire.WriteF64(s, 2.5)
	wire.WriteBool(s, true)

	res, err := Scan([]byte("t3idb"), buf, true)
	require.Nil(t, err)
	require.Equal(t, len(buf), res.VConsumed)
}

func TestScanAnyRecursive(t *testing.T) {
	var inner []byte
	wire.WriteI32(wire.NewAppendSink(&inner), 42)

	var buf []byte
	s := wire.NewAppendSink(&buf)
	wire.WriteU32(s, 1) // tlen
	s.Write([]byte("i"))
	wire.WriteU32(s, uint32(len(inner)))
	s.Write(inner)

	err := ScanFull([]byte("a"), buf, true)
	require.Nil(t, err)
}

func TestScanValueShortage(t *testing.T) {
	_, err := Scan([]byte("i"), []byte{1, 2}, true)
	require.NotNil(t, err)
}

func TestScanTrailingBytes(t *testing.T) {
	var buf []byte
	wire.WriteI32(wire.NewAppendSink(&buf), 1)
	buf = append(buf, 0xFF)
	err := ScanFull([]byte("i"), buf, true)
	require.NotNil(t, err)
}
