package wview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufser-go/ufser/internal/wire"
)

func tupleV(t *testing.T, i int32, s string) []byte {
	t.Helper()
	var buf []byte
	sink := wire.NewAppendSink(&buf)
	wire.WriteI32(sink, i)
	wire.WriteString(sink, s)
	return buf
}

func anyV(t *testing.T, innerT string, innerV []byte) []byte {
	t.Helper()
	var buf []byte
	sink := wire.NewAppendSink(&buf)
	wire.WriteU32(sink, uint32(len(innerT)))
	sink.Write([]byte(innerT))
	wire.WriteU32(sink, uint32(len(innerV)))
	sink.Write(innerV)
	return buf
}

func strV(t *testing.T, s string) []byte {
	t.Helper()
	var buf []byte
	sink := wire.NewAppendSink(&buf)
	wire.WriteString(sink, s)
	return buf
}

func i32V(t *testing.T, vals ...int32) []byte {
	t.Helper()
	var buf []byte
	sink := wire.NewAppendSink(&buf)
	for _, v := range vals {
		wire.WriteI32(sink, v)
	}
	return buf
}

func listV(t *testing.T, elems ...[]byte) []byte {
	t.Helper()
	var buf []byte
	sink := wire.NewAppendSink(&buf)
	wire.WriteU32(sink, uint32(len(elems)))
	for _, e := range elems {
		sink.Write(e)
	}
	return buf
}

func TestNode_TupleFieldSet(t *testing.T) {
	v := tupleV(t, 42, "hi")
	w, err := New([]byte("t2is"), v)
	require.Nil(t, err)

	child, err := w.Child(1)
	require.Nil(t, err)
	assert.Equal(t, "s", string(child.Type()))
	assert.Equal(t, strV(t, "hi"), child.Value())

	require.Nil(t, child.Set([]byte("s"), strV(t, "hello")))

	assert.Equal(t, "t2is", string(w.Type()))
	assert.Equal(t, tupleV(t, 42, "hello"), w.Value())
}

func TestNode_TupleFieldZero(t *testing.T) {
	v := tupleV(t, 42, "hi")
	w, err := New([]byte("t2is"), v)
	require.Nil(t, err)

	first, err := w.Child(0)
	require.Nil(t, err)
	assert.Equal(t, "i", string(first.Type()))

	n, _, err := wire.ReadI32(first.Value())
	require.Nil(t, err)
	assert.Equal(t, int32(42), n)
}

func TestNode_FirstFieldSetRewritesParent(t *testing.T) {
	w, err := New([]byte("t2is"), tupleV(t, 1, "a"))
	require.Nil(t, err)

	first, err := w.Child(0)
	require.Nil(t, err)
	require.Nil(t, first.Set([]byte("i"), i32V(t, 9)))
	assert.Equal(t, tupleV(t, 9, "a"), w.Value())
}

func TestNode_AnyAncestorLengthMaintenance(t *testing.T) {
	inner := tupleV(t, 42, "hi")
	outer := anyV(t, "t2is", inner)
	w, err := New([]byte("a"), outer)
	require.Nil(t, err)

	tup, err := w.Child(0)
	require.Nil(t, err)
	assert.Equal(t, "t2is", string(tup.Type()))

	field, err := tup.Child(1)
	require.Nil(t, err)
	require.Nil(t, field.Set([]byte("s"), strV(t, "hello")))

	wantInner := tupleV(t, 42, "hello")
	assert.Equal(t, anyV(t, "t2is", wantInner), w.Value())
}

func TestNode_NestedAnyPropagation(t *testing.T) {
	// a(a(s)): a value-length change inside the inner envelope must
	// also grow the outer envelope's vlen — the inner tlen/type bytes
	// are part of the outer value.
	innerAny := anyV(t, "s", strV(t, "ab"))
	outerAny := anyV(t, "a", innerAny)
	w, err := New([]byte("a"), outerAny)
	require.Nil(t, err)

	inner, err := w.Child(0)
	require.Nil(t, err)
	assert.Equal(t, "a", string(inner.Type()))
	leaf, err := inner.Child(0)
	require.Nil(t, err)
	assert.Equal(t, "s", string(leaf.Type()))

	require.Nil(t, leaf.Set([]byte("s"), strV(t, "abcde")))

	wantInner := anyV(t, "s", strV(t, "abcde"))
	assert.Equal(t, anyV(t, "a", wantInner), w.Value())
}

func TestNode_AnyChildTypeChange(t *testing.T) {
	// Replacing the child of an `a` with a differently-typed value must
	// rewrite the envelope's stored type bytes and both lengths.
	w, err := New([]byte("a"), anyV(t, "i", i32V(t, 1)))
	require.Nil(t, err)

	child, err := w.Child(0)
	require.Nil(t, err)
	require.Nil(t, child.Set([]byte("s"), strV(t, "now a string")))

	assert.Equal(t, anyV(t, "s", strV(t, "now a string")), w.Value())
}

func TestNode_TupleFieldTypeChangeRenamesDescriptor(t *testing.T) {
	w, err := New([]byte("t2is"), tupleV(t, 1, "a"))
	require.Nil(t, err)

	field, err := w.Child(0)
	require.Nil(t, err)
	require.Nil(t, field.Set([]byte("I"), []byte{9, 0, 0, 0, 0, 0, 0, 0}))

	assert.Equal(t, "t2Is", string(w.Type()))
	var want []byte
	sink := wire.NewAppendSink(&want)
	wire.WriteI64(sink, 9)
	wire.WriteString(sink, "a")
	assert.Equal(t, want, w.Value())
}

func TestNode_TupleInsideAnyTypeChange(t *testing.T) {
	// The renamed tuple descriptor must be written through to the
	// enclosing envelope's stored type.
	w, err := New([]byte("a"), anyV(t, "t2is", tupleV(t, 1, "a")))
	require.Nil(t, err)

	tup, err := w.Child(0)
	require.Nil(t, err)
	field, err := tup.Child(1)
	require.Nil(t, err)
	require.Nil(t, field.Set([]byte("i"), i32V(t, 2)))

	assert.Equal(t, "t2ii", string(tup.Type()))
	assert.Equal(t, anyV(t, "t2ii", i32V(t, 1, 2)), w.Value())
}

func TestNode_ListDeniesElementTypeChange(t *testing.T) {
	w, err := New([]byte("li"), listV(t, i32V(t, 1), i32V(t, 2)))
	require.Nil(t, err)

	elem, err := w.Child(0)
	require.Nil(t, err)
	serr := elem.Set([]byte("s"), strV(t, "no"))
	require.NotNil(t, serr)

	// A tuple inside a list is pinned too: renaming a field would
	// rename the tuple, which the list denies.
	lw, err := New([]byte("lt2is"), listV(t, tupleV(t, 1, "a")))
	require.Nil(t, err)
	tup, err := lw.Child(0)
	require.Nil(t, err)
	field, err := tup.Child(0)
	require.Nil(t, err)
	require.NotNil(t, field.Set([]byte("I"), []byte{1, 0, 0, 0, 0, 0, 0, 0}))
}

func TestNode_ListChildAccessAndErase(t *testing.T) {
	w, err := New([]byte("li"), listV(t, i32V(t, 1), i32V(t, 2), i32V(t, 3)))
	require.Nil(t, err)

	c1, err := w.Child(1)
	require.Nil(t, err)
	n, _, _ := wire.ReadI32(c1.Value())
	assert.Equal(t, int32(2), n)

	require.Nil(t, w.Erase(1))
	assert.Equal(t, listV(t, i32V(t, 1), i32V(t, 3)), w.Value())
}

func TestNode_ListVariableLengthElements(t *testing.T) {
	w, err := New([]byte("ls"), listV(t, strV(t, "a"), strV(t, "bb"), strV(t, "ccc")))
	require.Nil(t, err)

	c2, err := w.Child(2)
	require.Nil(t, err)
	assert.Equal(t, strV(t, "ccc"), c2.Value())

	c0, err := w.Child(0)
	require.Nil(t, err)
	assert.Equal(t, strV(t, "a"), c0.Value())
}

func TestNode_ListInsertAfter(t *testing.T) {
	w, err := New([]byte("li"), listV(t, i32V(t, 1), i32V(t, 3)))
	require.Nil(t, err)

	require.Nil(t, w.InsertAfter(0, i32V(t, 2), nil))
	assert.Equal(t, listV(t, i32V(t, 1), i32V(t, 2), i32V(t, 3)), w.Value())

	// Prepend, without any prior child access.
	w2, err := New([]byte("li"), listV(t, i32V(t, 1)))
	require.Nil(t, err)
	require.Nil(t, w2.InsertAfter(-1, i32V(t, 0), nil))
	assert.Equal(t, listV(t, i32V(t, 0), i32V(t, 1)), w2.Value())
}

func TestNode_MapChildTypesAndEdit(t *testing.T) {
	var mv []byte
	sink := wire.NewAppendSink(&mv)
	wire.WriteU32(sink, 2)
	wire.WriteString(sink, "a")
	wire.WriteI32(sink, 1)
	wire.WriteString(sink, "b")
	wire.WriteI32(sink, 2)

	w, err := New([]byte("msi"), mv)
	require.Nil(t, err)

	key0, err := w.Child(0)
	require.Nil(t, err)
	val0, err := w.Child(1)
	require.Nil(t, err)
	assert.Equal(t, "s", string(key0.Type()))
	assert.Equal(t, "i", string(val0.Type()))
	assert.Equal(t, strV(t, "a"), key0.Value())
	assert.Equal(t, i32V(t, 1), val0.Value())

	require.Nil(t, val0.Set([]byte("i"), i32V(t, 9)))

	var want []byte
	ws := wire.NewAppendSink(&want)
	wire.WriteU32(ws, 2)
	wire.WriteString(ws, "a")
	wire.WriteI32(ws, 9)
	wire.WriteString(ws, "b")
	wire.WriteI32(ws, 2)
	assert.Equal(t, want, w.Value())

	require.Nil(t, w.Erase(0))
	var want2 []byte
	ws2 := wire.NewAppendSink(&want2)
	wire.WriteU32(ws2, 1)
	wire.WriteString(ws2, "b")
	wire.WriteI32(ws2, 2)
	assert.Equal(t, want2, w.Value())
}

func TestNode_TupleEraseAndInsertField(t *testing.T) {
	var v []byte
	sink := wire.NewAppendSink(&v)
	wire.WriteI32(sink, 1)
	wire.WriteString(sink, "mid")
	wire.WriteBool(sink, true)

	w, err := New([]byte("t3isb"), v)
	require.Nil(t, err)

	require.Nil(t, w.Erase(1))
	assert.Equal(t, "t2ib", string(w.Type()))
	var want []byte
	ws := wire.NewAppendSink(&want)
	wire.WriteI32(ws, 1)
	wire.WriteBool(ws, true)
	assert.Equal(t, want, w.Value())

	// Arity floor: a pair cannot shrink further.
	require.NotNil(t, w.Erase(0))

	require.Nil(t, w.InsertFieldAfter(0, []byte("s"), strV(t, "mid")))
	assert.Equal(t, "t3isb", string(w.Type()))
	assert.Equal(t, v, w.Value())
}

func TestNode_OptionalErase(t *testing.T) {
	w, err := New([]byte("oi"), append([]byte{1}, i32V(t, 7)...))
	require.Nil(t, err)

	require.Nil(t, w.Erase(0))
	assert.Equal(t, []byte{0}, w.Value())

	// Erasing an already-empty optional is a no-op.
	require.Nil(t, w.Erase(0))
	assert.Equal(t, []byte{0}, w.Value())
}

func TestNode_ExpectFlagFlip(t *testing.T) {
	// An x child replaced by an error record flips has-value to 0.
	w, err := New([]byte("xi"), append([]byte{1}, i32V(t, 3)...))
	require.Nil(t, err)

	child, err := w.Child(0)
	require.Nil(t, err)
	assert.Equal(t, "i", string(child.Type()))

	var ev []byte
	sink := wire.NewAppendSink(&ev)
	wire.WriteString(sink, "kind")
	wire.WriteString(sink, "id")
	wire.WriteString(sink, "msg")
	wire.WriteU32(sink, 0)
	wire.WriteU32(sink, 0)
	require.Nil(t, child.Set([]byte("e"), ev))

	assert.Equal(t, append([]byte{0}, ev...), w.Value())
	assert.Equal(t, "xi", string(w.Type()))

	// And back to the payload type flips it to 1.
	require.Nil(t, child.Set([]byte("i"), i32V(t, 4)))
	assert.Equal(t, append([]byte{1}, i32V(t, 4)...), w.Value())
}

func TestNode_ChildIsolationAfterParentSet(t *testing.T) {
	w, err := New([]byte("t2is"), tupleV(t, 1, "a"))
	require.Nil(t, err)

	field, err := w.Child(1)
	require.Nil(t, err)

	// Replacing the parent disowns the child; edits through the old
	// handle must not reach the parent's bytes.
	require.Nil(t, w.Set([]byte("t2is"), tupleV(t, 2, "b")))
	require.Nil(t, field.Set([]byte("s"), strV(t, "orphan")))

	assert.Equal(t, tupleV(t, 2, "b"), w.Value())
	assert.Equal(t, strV(t, "orphan"), field.Value())
}

func TestNode_EditEquivalence(t *testing.T) {
	// The flattened (T, V) after a sequence of edits equals the value
	// built from scratch with the same content.
	w, err := New([]byte("lt2is"), listV(t, tupleV(t, 1, "a"), tupleV(t, 2, "b")))
	require.Nil(t, err)

	second, err := w.Child(1)
	require.Nil(t, err)
	require.Nil(t, second.Set([]byte("t2is"), tupleV(t, 20, "B")))
	require.Nil(t, w.InsertAfter(1, tupleV(t, 3, "c"), nil))
	require.Nil(t, w.Erase(0))

	assert.Equal(t, listV(t, tupleV(t, 20, "B"), tupleV(t, 3, "c")), w.Value())
	assert.Equal(t, "lt2is", string(w.Type()))
}

func TestNode_LinearSearchList(t *testing.T) {
	v1 := tupleV(t, 1, "a")
	v2 := tupleV(t, 2, "b")
	v3 := tupleV(t, 3, "c")

	w, err := New([]byte("lt2is"), listV(t, v1, v2, v3))
	require.Nil(t, err)

	hit, err := w.LinearSearch(i32V(t, 2), 1)
	require.Nil(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, v2, hit.Value())

	miss, err := w.LinearSearch(i32V(t, 9), 1)
	require.Nil(t, err)
	assert.Nil(t, miss)
}

func TestNode_LinearSearchMap(t *testing.T) {
	var mv []byte
	sink := wire.NewAppendSink(&mv)
	wire.WriteU32(sink, 2)
	wire.WriteString(sink, "a")
	wire.WriteI32(sink, 1)
	wire.WriteString(sink, "b")
	wire.WriteI32(sink, 2)

	w, err := New([]byte("msi"), mv)
	require.Nil(t, err)

	hit, err := w.LinearSearch(strV(t, "b"), 1)
	require.Nil(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, i32V(t, 2), hit.Value())
}

func TestNode_SwapContentWith(t *testing.T) {
	w, err := New([]byte("t2is"), tupleV(t, 1, "x"))
	require.Nil(t, err)

	field, err := w.Child(0)
	require.Nil(t, err)
	assert.Equal(t, "i", string(field.Type()))

	// A tuple field may take on any non-void type, so swapping with an
	// unrelated string node renames the tuple to t2ss.
	other, err := New([]byte("s"), strV(t, "z"))
	require.Nil(t, err)

	require.Nil(t, field.SwapContentWith(other))
	assert.Equal(t, "s", string(field.Type()))
	assert.Equal(t, strV(t, "z"), field.Value())
	assert.Equal(t, "i", string(other.Type()))
	assert.Equal(t, i32V(t, 1), other.Value())

	assert.Equal(t, "t2ss", string(w.Type()))
	var want []byte
	ws := wire.NewAppendSink(&want)
	wire.WriteString(ws, "z")
	wire.WriteString(ws, "x")
	assert.Equal(t, want, w.Value())
}

func TestNode_SwapWithAncestorFails(t *testing.T) {
	w, err := New([]byte("t2is"), tupleV(t, 1, "x"))
	require.Nil(t, err)
	field, err := w.Child(0)
	require.Nil(t, err)

	require.NotNil(t, field.SwapContentWith(w))
	require.NotNil(t, w.SwapContentWith(field))
}

func TestNode_ExpectErrorChild(t *testing.T) {
	var ev []byte
	sink := wire.NewAppendSink(&ev)
	wire.WriteString(sink, "kind")
	wire.WriteString(sink, "id")
	wire.WriteString(sink, "msg")
	wire.WriteU32(sink, 0)
	wire.WriteU32(sink, 0)

	w, err := New([]byte("xi"), append([]byte{0}, ev...))
	require.Nil(t, err)

	child, err := w.Child(0)
	require.Nil(t, err)
	assert.Equal(t, "e", string(child.Type()))

	kindField, err := child.Child(0)
	require.Nil(t, err)
	assert.Equal(t, strV(t, "kind"), kindField.Value())
}

func TestNode_EmptyOptionalChildErrors(t *testing.T) {
	w, err := New([]byte("oi"), []byte{0})
	require.Nil(t, err)
	_, cerr := w.Child(0)
	require.NotNil(t, cerr)
}
