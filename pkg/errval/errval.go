// Package errval is the shared error taxonomy used across the engine:
// malformed type strings, value/length mismatches, conversion failures,
// not-serializable host values, wview API misuse, and unplaceable
// errors extracted from expected values.
package errval

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies an Error without naming a concrete Go type for each case.
type Kind int

const (
	// Chr: an unknown character appeared in a type string.
	Chr Kind = iota
	// End: a type string ended before the grammar was satisfied.
	End
	// Num: a tuple arity was missing or below 2.
	Num
	// TypeLong: a nested any's declared type length didn't match what was consumed.
	TypeLong
	// Val: the value bytes ran out before the type was satisfied.
	Val
	// ValLong: the value had trailing bytes the type didn't account for.
	ValLong
	// TypeMismatch: source and target types are incompatible under the active policy.
	TypeMismatch
	// NotSerializableKind: a host value has no describable type.
	NotSerializableKind
	// API: an operation on a wview node is impossible (swap with ancestor, erase below tuple arity, ...).
	API
	// Unplaceable: a source expected-error was converted into a target that can't carry it.
	Unplaceable
)

func (k Kind) String() string {
	switch k {
	case Chr:
		return "chr"
	case End:
		return "end"
	case Num:
		return "num"
	case TypeLong:
		return "tlong"
	case Val:
		return "val"
	case ValLong:
		return "vlong"
	case TypeMismatch:
		return "type_mismatch"
	case NotSerializableKind:
		return "not_serializable"
	case API:
		return "api_error"
	case Unplaceable:
		return "unplaceable"
	default:
		return "unknown"
	}
}

// Error is the engine-wide error value. Not every field applies to every
// Kind; unused fields are left at their zero value.
type Error struct {
	Kind Kind

	// Op names the operation that raised the error, e.g. "scan", "convert".
	Op string

	// SourceType/TargetType are the type strings involved, when relevant.
	SourceType string
	TargetType string

	// SourcePos/TargetPos are byte offsets into SourceType/TargetType (or,
	// for Chr/End/Num/Val/ValLong, into the single string that applies).
	SourcePos int
	TargetPos int

	// Detail is a short human fragment describing the specific failure.
	// Render includes it for NotSerializableKind, API and Unplaceable
	// errors only.
	Detail string

	// Sub holds nested errors collected while resolving this one, e.g. the
	// error carried by an unplaceable tuple member.
	Sub []*Error

	// Backtracked is set when a tuple conversion reached this error only
	// after attempting to backtrack a void-absorbing member.
	Backtracked bool
}

func (e *Error) Error() string {
	return e.Render()
}

// Render performs the %1/%2/%e template substitution: %1 is the source
// type, %2 is the target type, %e is the detail (for the kinds that
// carry one) followed by any rendered sub-errors in parentheses.
func (e *Error) Render() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())

	switch e.Kind {
	case Chr, End, Num, Val, ValLong, TypeLong:
		b.WriteString(" at byte ")
		b.WriteString(strconv.Itoa(e.SourcePos))
	case TypeMismatch:
		fmt.Fprintf(&b, ": cannot convert %s at %d to %s at %d",
			quoteType(e.SourceType), e.SourcePos, quoteType(e.TargetType), e.TargetPos)
	case NotSerializableKind, API, Unplaceable:
		if e.Detail != "" {
			b.WriteString(": ")
			b.WriteString(e.Detail)
		}
	}

	if len(e.Sub) > 0 {
		b.WriteString(" (")
		for i, s := range e.Sub {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(s.Render())
		}
		b.WriteString(")")
	}

	if e.Backtracked {
		b.WriteString(" (With any incoming value.)")
	}
	return b.String()
}

func quoteType(t string) string {
	if t == "" {
		return "<void>"
	}
	return fmt.Sprintf("%q", t)
}

// Chrf builds a Chr error for an unknown character at pos in the given op.
func Chrf(op, typ string, pos int) *Error {
	return &Error{Kind: Chr, Op: op, SourceType: typ, SourcePos: pos}
}

// Endf builds an End error: the type string ended prematurely.
func Endf(op, typ string, pos int) *Error {
	return &Error{Kind: End, Op: op, SourceType: typ, SourcePos: pos}
}

// Numf builds a Num error: a tuple's arity digits were missing or < 2.
func Numf(op, typ string, pos int) *Error {
	return &Error{Kind: Num, Op: op, SourceType: typ, SourcePos: pos}
}

// Valf builds a Val error: the value ran out of bytes.
func Valf(op, typ string, pos int) *Error {
	return &Error{Kind: Val, Op: op, SourcePos: pos, SourceType: typ}
}

// ValLongf builds a ValLong error: trailing bytes the type didn't consume.
func ValLongf(op, typ string, pos int) *Error {
	return &Error{Kind: ValLong, Op: op, SourcePos: pos, SourceType: typ}
}

// TypeLongf builds a TypeLong error: a nested any's declared length was wrong.
func TypeLongf(op, typ string, pos int) *Error {
	return &Error{Kind: TypeLong, Op: op, SourcePos: pos, SourceType: typ}
}

// Mismatch builds a TypeMismatch error between a source and target type at
// the given byte offsets into each.
func Mismatch(op, sourceType string, sourcePos int, targetType string, targetPos int) *Error {
	return &Error{
		Kind:       TypeMismatch,
		Op:         op,
		SourceType: sourceType,
		SourcePos:  sourcePos,
		TargetType: targetType,
		TargetPos:  targetPos,
	}
}

// NotSerializable builds a NotSerializable error with a human detail.
func NotSerializable(op, detail string) *Error {
	return &Error{Kind: NotSerializableKind, Op: op, Detail: detail}
}

// APIErr builds an API error with a human detail describing the impossible operation.
func APIErr(op, detail string) *Error {
	return &Error{Kind: API, Op: op, Detail: detail}
}
