package errval

import "github.com/ufser-go/ufser/pkg/anyval"

// Record is the serialized error value: a
// tuple-like (kind, id, message, payload) where payload is an any that
// carries structured context. It is the wire shape behind the `e` type
// token and behind a has-value=0 `x`/`X`.
type Record struct {
	Kind    string
	ID      string
	Message string
	Payload anyval.Owned
}

// TypeString is the type descriptor for an error record: "e".
const TypeString = "e"

// FromError adapts an engine Error into a wire Record so it can travel
// inside an `x`/`X` value or be wrapped in `a`.
func FromError(err *Error) Record {
	return Record{
		Kind:    err.Kind.String(),
		ID:      err.Op,
		Message: err.Render(),
		Payload: anyval.Owned{},
	}
}

// Unplaced is one entry collected by an out-of-band error sink during
// conversion.
type Unplaced struct {
	Error      Record
	SourcePos  int
	TargetPos  int
}

// Sink accumulates Unplaced records. A nil *Sink means "no sink": the
// caller must treat the case as a hard type mismatch instead.
type Sink struct {
	Items []Unplaced
}

// Collect appends an unplaced error to the sink.
func (s *Sink) Collect(rec Record, sourcePos, targetPos int) {
	s.Items = append(s.Items, Unplaced{Error: rec, SourcePos: sourcePos, TargetPos: targetPos})
}

// Mark returns the current length of the sink so a speculative caller
// can roll back entries added by a branch that ends up failing. Safe on
// a nil sink.
func (s *Sink) Mark() int {
	if s == nil {
		return 0
	}
	return len(s.Items)
}

// Rollback truncates the sink to a length previously returned by Mark.
// Safe on a nil sink.
func (s *Sink) Rollback(mark int) {
	if s == nil {
		return
	}
	s.Items = s.Items[:mark]
}
