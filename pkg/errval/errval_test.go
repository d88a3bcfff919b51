package errval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStrings(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Chr, "chr"},
		{End, "end"},
		{Num, "num"},
		{TypeLong, "tlong"},
		{Val, "val"},
		{ValLong, "vlong"},
		{TypeMismatch, "type_mismatch"},
		{NotSerializableKind, "not_serializable"},
		{API, "api_error"},
		{Unplaceable, "unplaceable"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.kind.String())
	}
}

func TestRender_Positional(t *testing.T) {
	err := Chrf("scan", "lq", 1)
	assert.Equal(t, "scan: chr at byte 1", err.Render())
	assert.Equal(t, err.Render(), err.Error())
}

func TestRender_Mismatch(t *testing.T) {
	err := Mismatch("convert", "li", 1, "ls", 1)
	got := err.Render()
	assert.Contains(t, got, `"li"`)
	assert.Contains(t, got, `"ls"`)
	assert.Contains(t, got, "type_mismatch")
}

func TestRender_VoidTypeQuoting(t *testing.T) {
	err := Mismatch("convert", "", 0, "i", 0)
	assert.Contains(t, err.Render(), "<void>")
}

func TestRender_SubErrorsAndBacktrack(t *testing.T) {
	err := Mismatch("convert", "t2Xs", 3, "t2ii", 2)
	err.Sub = append(err.Sub, Mismatch("convert", "s", 0, "i", 0))
	err.Backtracked = true
	got := err.Render()
	assert.Contains(t, got, "(With any incoming value.)")
	assert.Contains(t, got, `"s"`)
}

func TestSink(t *testing.T) {
	var s Sink
	s.Collect(Record{Kind: "k1"}, 3, 0)
	s.Collect(Record{Kind: "k2"}, 7, 1)
	require.Len(t, s.Items, 2)
	assert.Equal(t, "k1", s.Items[0].Error.Kind)
	assert.Equal(t, 7, s.Items[1].SourcePos)
}

func TestSink_MarkRollback(t *testing.T) {
	var s Sink
	s.Collect(Record{Kind: "keep"}, 0, 0)
	mark := s.Mark()
	s.Collect(Record{Kind: "speculative"}, 0, 0)
	s.Rollback(mark)
	require.Len(t, s.Items, 1)
	assert.Equal(t, "keep", s.Items[0].Error.Kind)

	// Both are safe on a nil sink.
	var nilSink *Sink
	assert.Equal(t, 0, nilSink.Mark())
	nilSink.Rollback(0)
}

func TestFromError(t *testing.T) {
	rec := FromError(Valf("scan", "li", 4))
	assert.Equal(t, "val", rec.Kind)
	assert.Equal(t, "scan", rec.ID)
	assert.NotEmpty(t, rec.Message)
}
