package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufser-go/ufser/internal/wire"
	"github.com/ufser-go/ufser/pkg/convert"
	"github.com/ufser-go/ufser/pkg/scan"
)

func TestEncode_Scalars(t *testing.T) {
	tests := []struct {
		name  string
		in    any
		wantT string
		wantV []byte
	}{
		{"bool", true, "b", []byte{1}},
		{"byte", byte(0x41), "c", []byte{0x41}},
		{"int32", int32(7), "i", []byte{7, 0, 0, 0}},
		{"int64", int64(7), "I", []byte{7, 0, 0, 0, 0, 0, 0, 0}},
		{"string", "hi", "s", []byte{2, 0, 0, 0, 'h', 'i'}},
		{"bytes as s", []byte{0xDE, 0xAD}, "s", []byte{2, 0, 0, 0, 0xDE, 0xAD}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotT, gotV, err := Encode(tc.in)
			require.Nil(t, err)
			assert.Equal(t, tc.wantT, string(gotT))
			assert.Equal(t, tc.wantV, gotV)
		})
	}
}

func TestEncode_ListOfInt32(t *testing.T) {
	gotT, gotV, err := Encode([]int32{7, 8, 9})
	require.Nil(t, err)
	assert.Equal(t, "li", string(gotT))

	var want []byte
	s := wire.NewAppendSink(&want)
	wire.WriteU32(s, 3)
	wire.WriteI32(s, 7)
	wire.WriteI32(s, 8)
	wire.WriteI32(s, 9)
	assert.Equal(t, want, gotV)
}

func TestEncode_StructAsTuple(t *testing.T) {
	type pair struct {
		N int32
		S string
	}
	gotT, gotV, err := Encode(pair{N: 42, S: "hi"})
	require.Nil(t, err)
	assert.Equal(t, "t2is", string(gotT))

	var want []byte
	s := wire.NewAppendSink(&want)
	wire.WriteI32(s, 42)
	wire.WriteString(s, "hi")
	assert.Equal(t, want, gotV)
}

func TestEncode_PointerAsOptional(t *testing.T) {
	v := int32(5)
	gotT, gotV, err := Encode(&v)
	require.Nil(t, err)
	assert.Equal(t, "oi", string(gotT))
	assert.Equal(t, []byte{1, 5, 0, 0, 0}, gotV)

	var nilPtr *int32
	gotT, gotV, err = Encode(nilPtr)
	require.Nil(t, err)
	assert.Equal(t, "oi", string(gotT))
	assert.Equal(t, []byte{0}, gotV)
}

func TestEncode_ProducesScannable(t *testing.T) {
	type inner struct {
		A int32
		B *string
	}
	msg := "x"
	gotT, gotV, err := Encode([]inner{{1, &msg}, {2, nil}})
	require.Nil(t, err)
	require.Nil(t, scan.ScanFull(gotT, gotV, true))
}

func TestRoundTrip(t *testing.T) {
	type pair struct {
		N int32
		S string
	}
	in := pair{N: 9, S: "round"}
	gotT, gotV, err := Encode(in)
	require.Nil(t, err)

	var out pair
	require.Nil(t, Decode(gotT, gotV, &out))
	assert.Equal(t, in, out)
}

func TestRoundTrip_Containers(t *testing.T) {
	inList := []int64{1, 2, 3}
	tT, tV, err := Encode(inList)
	require.Nil(t, err)
	var outList []int64
	require.Nil(t, Decode(tT, tV, &outList))
	assert.Equal(t, inList, outList)

	inMap := map[string]int32{"a": 1, "b": 2}
	tT, tV, err = Encode(inMap)
	require.Nil(t, err)
	var outMap map[string]int32
	require.Nil(t, Decode(tT, tV, &outMap))
	assert.Equal(t, inMap, outMap)
}

func TestEncodeAs(t *testing.T) {
	got, err := EncodeAs(int32(3), []byte("I"), convert.Ints)
	require.Nil(t, err)
	assert.Equal(t, []byte{3, 0, 0, 0, 0, 0, 0, 0}, got)

	_, err = EncodeAs(int32(3), []byte("s"), convert.All)
	require.NotNil(t, err)
}

func TestDecode_RequiresPointer(t *testing.T) {
	var out int32
	err := Decode([]byte("i"), []byte{1, 0, 0, 0}, out)
	require.NotNil(t, err)
}
