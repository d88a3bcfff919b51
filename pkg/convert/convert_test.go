package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufser-go/ufser/internal/wire"
	"github.com/ufser-go/ufser/pkg/errval"
)

func i32v(t *testing.T, vals ...int32) []byte {
	t.Helper()
	var buf []byte
	s := wire.NewAppendSink(&buf)
	for _, v := range vals {
		wire.WriteI32(s, v)
	}
	return buf
}

func strv(t *testing.T, s string) []byte {
	t.Helper()
	var buf []byte
	sink := wire.NewAppendSink(&buf)
	wire.WriteString(sink, s)
	return buf
}

func listOf(t *testing.T, elems ...[]byte) []byte {
	t.Helper()
	var buf []byte
	s := wire.NewAppendSink(&buf)
	wire.WriteU32(s, uint32(len(elems)))
	for _, e := range elems {
		s.Write(e)
	}
	return buf
}

// errRecV serializes an `e` value with a void payload.
func errRecV(t *testing.T, kind, id, msg string) []byte {
	t.Helper()
	var buf []byte
	s := wire.NewAppendSink(&buf)
	wire.WriteString(s, kind)
	wire.WriteString(s, id)
	wire.WriteString(s, msg)
	wire.WriteU32(s, 0)
	wire.WriteU32(s, 0)
	return buf
}

func TestConvert_Identity(t *testing.T) {
	v := i32v(t, 42)
	got, err := Convert([]byte("i"), v, []byte("i"), None, nil)
	require.Nil(t, err)
	assert.Equal(t, v, got)

	// Identity is structural, not shallow: a whole tuple copies as-is.
	tup := append(i32v(t, 7), strv(t, "x")...)
	got, err = Convert([]byte("t2is"), tup, []byte("t2is"), None, nil)
	require.Nil(t, err)
	assert.Equal(t, tup, got)
}

func TestConvert_NumericEdges(t *testing.T) {
	tests := []struct {
		name    string
		srcT    string
		srcV    []byte
		tgtT    string
		policy  Policy
		want    []byte
		wantErr bool
	}{
		{"widen i to I", "i", i32v(t, 9), "I", Ints, []byte{9, 0, 0, 0, 0, 0, 0, 0}, false},
		{"widen denied without Ints", "i", i32v(t, 9), "I", None, nil, true},
		{"narrow I to i in range", "I", []byte{5, 0, 0, 0, 0, 0, 0, 0}, "i", Ints | IntsNarrowing, i32v(t, 5), false},
		{"narrow denied without bit", "I", []byte{5, 0, 0, 0, 0, 0, 0, 0}, "i", Ints, nil, true},
		{"bool to i", "b", []byte{1}, "i", Bool, i32v(t, 1), false},
		{"i to d", "i", i32v(t, 2), "d", Double, []byte{0, 0, 0, 0, 0, 0, 0, 0x40}, false},
		{"c widens to i", "c", []byte{0xFF}, "i", Ints, i32v(t, 255), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Convert([]byte(tc.srcT), tc.srcV, []byte(tc.tgtT), tc.policy, nil)
			if tc.wantErr {
				require.NotNil(t, err)
				assert.Equal(t, errval.TypeMismatch, err.Kind)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConvert_NarrowingOverflowTraps(t *testing.T) {
	big := []byte{0, 0, 0, 0, 1, 0, 0, 0} // 2^32 as I
	_, err := Convert([]byte("I"), big, []byte("i"), Ints|IntsNarrowing, nil)
	require.NotNil(t, err)
}

func TestConvert_StringListOfChar(t *testing.T) {
	// lc -> s keeps the bytes and changes only the type.
	lc := listOf(t, []byte{'h'}, []byte{'i'})
	got, err := Convert([]byte("lc"), lc, []byte("s"), Aux, nil)
	require.Nil(t, err)
	assert.Equal(t, strv(t, "hi"), got)
	assert.Equal(t, lc, got, "wire bytes are identical either way")

	back, err := Convert([]byte("s"), got, []byte("lc"), Aux, nil)
	require.Nil(t, err)
	assert.Equal(t, lc, back)

	_, err = Convert([]byte("lc"), lc, []byte("s"), None, nil)
	require.NotNil(t, err)
}

func TestConvert_ListToTuple(t *testing.T) {
	lv := listOf(t, i32v(t, 1), i32v(t, 2), i32v(t, 3))
	got, err := Convert([]byte("li"), lv, []byte("t3iii"), TupleList, nil)
	require.Nil(t, err)
	assert.Equal(t, i32v(t, 1, 2, 3), got)

	// Size must match the arity exactly.
	_, err = Convert([]byte("li"), lv, []byte("t2ii"), TupleList, nil)
	require.NotNil(t, err)
}

func TestConvert_ListElementwise(t *testing.T) {
	lv := listOf(t, i32v(t, 1), i32v(t, 2))
	got, err := Convert([]byte("li"), lv, []byte("lI"), Ints, nil)
	require.Nil(t, err)

	var want []byte
	s := wire.NewAppendSink(&want)
	wire.WriteU32(s, 2)
	wire.WriteI64(s, 1)
	wire.WriteI64(s, 2)
	assert.Equal(t, want, got)
}

func TestConvert_EmptyListChecksTypesOnly(t *testing.T) {
	empty := listOf(t)
	got, err := Convert([]byte("li"), empty, []byte("lI"), Ints, nil)
	require.Nil(t, err)
	assert.Equal(t, empty, got)

	// An incompatible element type still fails even with no elements.
	_, err = Convert([]byte("li"), empty, []byte("ls"), All, nil)
	require.NotNil(t, err)
}

func TestConvert_MapToMap(t *testing.T) {
	var mv []byte
	s := wire.NewAppendSink(&mv)
	wire.WriteU32(s, 1)
	wire.WriteString(s, "k")
	wire.WriteI32(s, 7)

	got, err := Convert([]byte("msi"), mv, []byte("msI"), Ints, nil)
	require.Nil(t, err)

	var want []byte
	ws := wire.NewAppendSink(&want)
	wire.WriteU32(ws, 1)
	wire.WriteString(ws, "k")
	wire.WriteI64(ws, 7)
	assert.Equal(t, want, got)
}

func TestConvert_MapToListOfKeys(t *testing.T) {
	// msX with all-present X values: the value side absorbs to void, so
	// the map converts to a list of its keys.
	var mv []byte
	s := wire.NewAppendSink(&mv)
	wire.WriteU32(s, 2)
	wire.WriteString(s, "a")
	wire.WriteBool(s, true)
	wire.WriteString(s, "b")
	wire.WriteBool(s, true)

	got, err := Convert([]byte("msX"), mv, []byte("ls"), All, nil)
	require.Nil(t, err)
	assert.Equal(t, listOf(t, strv(t, "a"), strv(t, "b")), got)
}

func TestConvert_AnyWrapUnwrap(t *testing.T) {
	v := i32v(t, 5)
	wrapped, err := Convert([]byte("i"), v, []byte("a"), Any, nil)
	require.Nil(t, err)

	var want []byte
	s := wire.NewAppendSink(&want)
	wire.WriteU32(s, 1)
	s.Write([]byte("i"))
	wire.WriteU32(s, 4)
	s.Write(v)
	assert.Equal(t, want, wrapped)

	back, err := Convert([]byte("a"), wrapped, []byte("i"), Any, nil)
	require.Nil(t, err)
	assert.Equal(t, v, back)

	_, err = Convert([]byte("i"), v, []byte("a"), None, nil)
	require.NotNil(t, err)
}

func TestConvert_ExpectedWrap(t *testing.T) {
	v := i32v(t, 3)
	got, err := Convert([]byte("i"), v, []byte("xi"), Expected, nil)
	require.Nil(t, err)
	assert.Equal(t, append([]byte{1}, v...), got)

	// An error record wraps as has-value=0.
	ev := errRecV(t, "k", "id", "boom")
	got, err = Convert([]byte("e"), ev, []byte("xi"), Expected, nil)
	require.Nil(t, err)
	assert.Equal(t, append([]byte{0}, ev...), got)
}

func TestConvert_ExpectedUnwrap(t *testing.T) {
	inner := i32v(t, 3)
	xv := append([]byte{1}, inner...)
	got, err := Convert([]byte("xi"), xv, []byte("i"), Expected, nil)
	require.Nil(t, err)
	assert.Equal(t, inner, got)

	// has-value=0 into `e` carries the record out.
	ev := errRecV(t, "k", "id", "boom")
	xe := append([]byte{0}, ev...)
	got, err = Convert([]byte("xi"), xe, []byte("e"), Expected, nil)
	require.Nil(t, err)
	assert.Equal(t, ev, got)

	// has-value=0 into a value type is a hard mismatch.
	_, err = Convert([]byte("xi"), xe, []byte("i"), Expected, nil)
	require.NotNil(t, err)
	_, err = Convert([]byte("xi"), xe, []byte("i"), Expected, &errval.Sink{})
	require.NotNil(t, err)
}

func TestConvert_TupleBacktracking(t *testing.T) {
	// t2xii -> i where the first member carries an error: the member
	// vanishes, its error lands in the sink stamped with the byte
	// offset of the `x` within "t2xii" (2, just past the arity digits)
	// and the target cursor's position within "i" (0), and the second
	// member becomes the whole result.
	ev := errRecV(t, "fail", "id1", "first member broke")
	var src []byte
	s := wire.NewAppendSink(&src)
	wire.WriteBool(s, false)
	s.Write(ev)
	wire.WriteI32(s, 42)

	sink := &errval.Sink{}
	got, err := Convert([]byte("t2xii"), src, []byte("i"), Expected|TupleList, sink)
	require.Nil(t, err)
	assert.Equal(t, i32v(t, 42), got)
	require.Len(t, sink.Items, 1)
	assert.Equal(t, "fail", sink.Items[0].Error.Kind)
	assert.Equal(t, 2, sink.Items[0].SourcePos)
	assert.Equal(t, 0, sink.Items[0].TargetPos)

	// Without a sink the error has nowhere to go.
	_, err = Convert([]byte("t2xii"), src, []byte("i"), Expected|TupleList, nil)
	require.NotNil(t, err)
}

func TestConvert_SinkOffsetsNonLeadingMember(t *testing.T) {
	// t3ixii -> t2ii with the error in the middle member: the sink
	// entry must point at that member's type, not at the front. The
	// `xi` sits at byte 3 of "t3ixii"; when it vanishes the target
	// cursor rests on the second `i` of "t2ii", byte 3.
	ev := errRecV(t, "mid", "id2", "middle member broke")
	var src []byte
	s := wire.NewAppendSink(&src)
	wire.WriteI32(s, 1)
	wire.WriteBool(s, false)
	s.Write(ev)
	wire.WriteI32(s, 2)

	sink := &errval.Sink{}
	got, err := Convert([]byte("t3ixii"), src, []byte("t2ii"), Expected|TupleList, sink)
	require.Nil(t, err)
	assert.Equal(t, i32v(t, 1, 2), got)
	require.Len(t, sink.Items, 1)
	assert.Equal(t, "mid", sink.Items[0].Error.Kind)
	assert.Equal(t, 3, sink.Items[0].SourcePos)
	assert.Equal(t, 3, sink.Items[0].TargetPos)
}

func TestConvert_SinkOffsetsMapToList(t *testing.T) {
	// msX -> ls where one entry's X carries an error: the void-absorbed
	// value side reports the X's offset within "msX" (2) against the
	// list's element type within "ls" (1), regardless of which entry it
	// came from.
	ev := errRecV(t, "entry", "id3", "second entry broke")
	var mv []byte
	s := wire.NewAppendSink(&mv)
	wire.WriteU32(s, 2)
	wire.WriteString(s, "a")
	wire.WriteBool(s, true)
	wire.WriteString(s, "b")
	wire.WriteBool(s, false)
	s.Write(ev)

	sink := &errval.Sink{}
	got, err := Convert([]byte("msX"), mv, []byte("ls"), All, sink)
	require.Nil(t, err)
	assert.Equal(t, listOf(t, strv(t, "a"), strv(t, "b")), got)
	require.Len(t, sink.Items, 1)
	assert.Equal(t, "entry", sink.Items[0].Error.Kind)
	assert.Equal(t, 2, sink.Items[0].SourcePos)
	assert.Equal(t, 1, sink.Items[0].TargetPos)
}

func TestConvert_TupleToTupleWithVanishingMember(t *testing.T) {
	// t3iXi -> t2ii: the present X in the middle absorbs to void.
	var src []byte
	s := wire.NewAppendSink(&src)
	wire.WriteI32(s, 1)
	wire.WriteBool(s, true)
	wire.WriteI32(s, 2)

	got, err := Convert([]byte("t3iXi"), src, []byte("t2ii"), Expected, nil)
	require.Nil(t, err)
	assert.Equal(t, i32v(t, 1, 2), got)
}

func TestConvert_VoidAbsorption(t *testing.T) {
	// X with has-value=1 absorbs to void outright.
	n, err := convertToVoid([]byte("X"), []byte{1}, 0, 0, All, nil)
	require.Nil(t, err)
	assert.Equal(t, 1, n)

	// An `a` holding void absorbs too.
	var av []byte
	s := wire.NewAppendSink(&av)
	wire.WriteU32(s, 0)
	wire.WriteU32(s, 0)
	got, cerr := Convert([]byte("a"), av, nil, All, nil)
	require.Nil(t, cerr)
	assert.Empty(t, got)

	// An empty optional absorbs under Aux.
	got, cerr = Convert([]byte("oi"), []byte{0}, nil, Aux, nil)
	require.Nil(t, cerr)
	assert.Empty(t, got)
}

func TestConvert_VoidConstruction(t *testing.T) {
	got, err := Convert(nil, nil, []byte("oi"), Aux, nil)
	require.Nil(t, err)
	assert.Equal(t, []byte{0}, got)

	got, err = Convert(nil, nil, []byte("X"), Expected, nil)
	require.Nil(t, err)
	assert.Equal(t, []byte{1}, got)

	got, err = Convert(nil, nil, []byte("a"), Any, nil)
	require.Nil(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0}, got)
}

func TestConvert_OptionalWrap(t *testing.T) {
	v := i32v(t, 6)
	got, err := Convert([]byte("i"), v, []byte("oi"), None, nil)
	require.Nil(t, err)
	assert.Equal(t, append([]byte{1}, v...), got)

	// An empty optional converts only to another optional.
	got, err = Convert([]byte("oi"), []byte{0}, []byte("oI"), Ints, nil)
	require.Nil(t, err)
	assert.Equal(t, []byte{0}, got)
	_, err = Convert([]byte("oi"), []byte{0}, []byte("I"), Ints, nil)
	require.NotNil(t, err)
}

func TestConvert_Monotonicity(t *testing.T) {
	// Anything that converts under P converts identically under a
	// superset of P.
	src := listOf(t, i32v(t, 1), i32v(t, 2))
	small, err := Convert([]byte("li"), src, []byte("lI"), Ints, nil)
	require.Nil(t, err)
	big, err := Convert([]byte("li"), src, []byte("lI"), All, nil)
	require.Nil(t, err)
	assert.Equal(t, small, big)
}

func TestConvertLen_MatchesConvert(t *testing.T) {
	src := listOf(t, i32v(t, 1), i32v(t, 2))
	out, err := Convert([]byte("li"), src, []byte("lI"), Ints, nil)
	require.Nil(t, err)
	n, err := ConvertLen([]byte("li"), src, []byte("lI"), Ints, nil)
	require.Nil(t, err)
	assert.Equal(t, len(out), n)
}

func TestCheckTypes(t *testing.T) {
	tests := []struct {
		srcT   string
		tgtT   string
		policy Policy
		ok     bool
	}{
		{"i", "i", None, true},
		{"i", "I", Ints, true},
		{"i", "I", None, false},
		{"li", "t3iii", TupleList, true},
		{"li", "t3iii", None, false},
		{"s", "lc", Aux, true},
		{"i", "a", Any, true},
		{"i", "a", None, false},
		{"t2Xi", "i", Expected, true},
		{"msX", "ls", All, true},
	}
	for _, tc := range tests {
		err := CheckTypes([]byte(tc.srcT), []byte(tc.tgtT), tc.policy)
		if tc.ok {
			assert.Nil(t, err, "%s -> %s", tc.srcT, tc.tgtT)
		} else {
			assert.NotNil(t, err, "%s -> %s", tc.srcT, tc.tgtT)
		}
	}
}

func TestConvert_BacktrackAnnotatesError(t *testing.T) {
	// t2Xs -> t2ii: the X may vanish, but the s member can never become
	// an i, so the conversion fails after backtracking was attempted.
	var src []byte
	s := wire.NewAppendSink(&src)
	wire.WriteBool(s, true)
	wire.WriteString(s, "nope")

	_, err := Convert([]byte("t2Xs"), src, []byte("t2ii"), All, nil)
	require.NotNil(t, err)
	assert.True(t, err.Backtracked)
}
