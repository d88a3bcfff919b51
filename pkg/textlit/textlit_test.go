package textlit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ufser-go/ufser/internal/wire"
)

func TestTupleLiteral(t *testing.T) {
	// "(1, 2.5, true)" infers t3idb.
	val, err := Parse([]byte("(1, 2.5, true)"), Options{})
	require.Nil(t, err)
	require.Equal(t, "t3idb", string(val.T))

	var want []byte
	s := wire.NewAppendSink(&want)
	wire.WriteI32(s, 1)
	wire.WriteF64(s, 2.5)
	wire.WriteBool(s, true)
	require.Equal(t, want, val.V)
}

func TestStringLiteral(t *testing.T) {
	val, err := Parse([]byte(`"hi%20there"`), Options{})
	require.Nil(t, err)
	require.Equal(t, "s", string(val.T))
	view, _, _ := wire.ReadStringView(val.V)
	require.Equal(t, "hi there", string(view))
}

func TestBoolAndNull(t *testing.T) {
	v, err := Parse([]byte("true"), Options{})
	require.Nil(t, err)
	require.Equal(t, "b", string(v.T))

	v, err = Parse([]byte("null"), Options{})
	require.Nil(t, err)
	require.Empty(t, v.T)
}

func TestListUniform(t *testing.T) {
	v, err := Parse([]byte("[7,8,9]"), Options{})
	require.Nil(t, err)
	require.Equal(t, "li", string(v.T))
}

func TestListHeterogeneousLiberal(t *testing.T) {
	v, err := Parse([]byte(`[1,"x"]`), Options{Mode: Liberal})
	require.Nil(t, err)
	require.Equal(t, "la", string(v.T))
}

func TestListHeterogeneousNativeErrors(t *testing.T) {
	_, err := Parse([]byte(`[1,"x"]`), Options{Mode: Native})
	require.NotNil(t, err)
}

func TestJSONMap(t *testing.T) {
	// {"k":1,"v":"x"} in JSON mode maps heterogeneous values as msa.
	v, err := Parse([]byte(`{"k":1,"v":"x"}`), Options{Mode: JSON})
	require.Nil(t, err)
	require.Equal(t, "msa", string(v.T))
}

func TestTypedLiteral(t *testing.T) {
	v, err := Parse([]byte("<d>7"), Options{})
	require.Nil(t, err)
	require.Equal(t, "d", string(v.T))
}

func TestErrorLiteralOneArg(t *testing.T) {
	v, err := Parse([]byte(`error("boom")`), Options{})
	require.Nil(t, err)
	require.Equal(t, "e", string(v.T))
	_, n1, _ := wire.ReadStringView(v.V)
	_, n2, _ := wire.ReadStringView(v.V[n1:])
	msg, _, _ := wire.ReadStringOwned(v.V[n1+n2:])
	require.Equal(t, "boom", msg)
}
