package typestring

import "github.com/ufser-go/ufser/pkg/errval"

// HeadLen returns how many bytes of t belong to the outermost token
// itself, excluding any child type strings that follow it — 1 for every
// token except 't', where it also covers the decimal arity digits.
func HeadLen(t []byte) (int, *errval.Error) {
	if len(t) == 0 {
		return 0, nil
	}
	if Char(t[0]) != Tuple {
		return 1, nil
	}
	_, digits, err := TupleArity(t[1:])
	if err != nil {
		return 0, err
	}
	return 1 + digits, nil
}

// Children splits the fully-formed type string t into the byte spans of
// its immediate child type strings, in order. t must already be valid
// (e.g. via Validate); behavior on malformed input is to return the
// first error encountered.
func Children(t []byte) ([][]byte, *errval.Error) {
	if len(t) == 0 {
		return nil, nil
	}
	head := Char(t[0])
	if head == Tuple {
		n, digits, err := TupleArity(t[1:])
		if err != nil {
			return nil, err
		}
		return splitN(t[1+digits:], n)
	}
	n := Arity(head)
	if n == 0 {
		return nil, nil
	}
	return splitN(t[1:], n)
}

func splitN(rest []byte, n int) ([][]byte, *errval.Error) {
	out := make([][]byte, 0, n)
	off := 0
	for i := 0; i < n; i++ {
		consumed, err := Validate(rest[off:], false)
		if err != nil {
			return nil, err
		}
		out = append(out, rest[off:off+consumed])
		off += consumed
	}
	return out, nil
}

// Len returns the exact byte length of the single well-formed type
// string t (equivalent to Validate with allowVoid=true and ignoring any
// trailing garbage check).
func Len(t []byte) (int, *errval.Error) {
	return Validate(t, true)
}
