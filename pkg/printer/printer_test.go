package printer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ufser-go/ufser/internal/wire"
)

func TestPrintTupleNative(t *testing.T) {
	var buf []byte
	s := wire.NewAppendSink(&buf)
	wire.WriteI32(s, 1)
	wire.WriteF64(s, 2.5)
	wire.WriteBool(s, true)

	out, err := Print([]byte("t3idb"), buf, Options{Format: Native})
	require.Nil(t, err)
	require.Equal(t, "<t3idb>(1,2.5,true)", out)
}

func TestPrintListJSON(t *testing.T) {
	var buf []byte
	s := wire.NewAppendSink(&buf)
	wire.WriteU32(s, 2)
	wire.WriteI32(s, 7)
	wire.WriteI32(s, 8)

	out, err := Print([]byte("li"), buf, Options{Format: JSONLike})
	require.Nil(t, err)
	require.Equal(t, "[7,8]", out)
}

func TestPrintVoidJSON(t *testing.T) {
	out, err := Print(nil, nil, Options{Format: JSONLike})
	require.Nil(t, err)
	require.Equal(t, "null", out)
}

func TestPrintMaxLen(t *testing.T) {
	var buf []byte
	wire.WriteString(wire.NewAppendSink(&buf), "a long string that exceeds the budget")
	_, err := Print([]byte("s"), buf, Options{MaxLen: 4})
	require.NotNil(t, err)
	require.Equal(t, TooLong, err)
}
