// Package scan implements the type-aware scanner: given a
// type descriptor T and a value string V, it verifies that V is
// structurally consistent with T without materializing a host value,
// reporting the first inconsistency as a precise (type-position,
// value-position) error.
package scan

import (
	"github.com/ufser-go/ufser/internal/wire"
	"github.com/ufser-go/ufser/pkg/errval"
	"github.com/ufser-go/ufser/pkg/typestring"
)

// Result carries how many bytes of T and of V the scan consumed.
type Result struct {
	TConsumed int
	VConsumed int
}

// Scan validates v against t and reports how much of each was consumed.
// Per the round-trip law, (T, V) is fully valid iff
// the returned lengths equal len(t) and len(v); Scan itself does not
// enforce that — use ScanFull for that stricter check.
//
// checkRecursively additionally validates the inner (T', V') carried by
// every nested `a` against itself, including a bit-exact length match
// against its declared tlen/vlen. With it false, a nested any's declared
// lengths are trusted without inspecting its payload.
func Scan(t, v []byte, checkRecursively bool) (Result, *errval.Error) {
	tConsumed, err := typestring.Validate(t, true)
	if err != nil {
		return Result{}, err
	}
	vConsumed, err := scanValue(t[:tConsumed], v, checkRecursively)
	if err != nil {
		return Result{TConsumed: tConsumed}, err
	}
	return Result{TConsumed: tConsumed, VConsumed: vConsumed}, nil
}

// ScanFull requires t and v to be consumed exactly, with nothing left
// over in either.
func ScanFull(t, v []byte, checkRecursively bool) *errval.Error {
	res, err := Scan(t, v, checkRecursively)
	if err != nil {
		return err
	}
	if res.TConsumed != len(t) {
		return errval.Chrf("scan", string(t), res.TConsumed)
	}
	if res.VConsumed != len(v) {
		return errval.ValLongf("scan", string(t), res.VConsumed)
	}
	return nil
}

// scanValue walks a single already-grammar-valid type t against v and
// returns how many bytes of v it consumed.
func scanValue(t []byte, v []byte, recurse bool) (int, *errval.Error) {
	if len(t) == 0 {
		return 0, nil
	}

	head := typestring.Char(t[0])
	if n := wire.FixedLen(byte(head)); n >= 0 {
		if len(v) < n {
			return 0, errval.Valf("scan", string(t), 0)
		}
		return n, nil
	}

	switch head {
	case typestring.String:
		_, n, err := wire.ReadStringView(v)
		if err != nil {
			return 0, rewrap(err, t)
		}
		return n, nil

	case typestring.Any:
		return scanAny(v, recurse)

	case typestring.ErrRec:
		return scanErrorRecord(v, recurse)

	case typestring.ExpectV:
		return scanExpectedVoid(v, recurse)

	case typestring.Opt:
		children, cerr := typestring.Children(t)
		if cerr != nil {
			return 0, cerr
		}
		return scanOptional(children[0], v, recurse)

	case typestring.Expect:
		children, cerr := typestring.Children(t)
		if cerr != nil {
			return 0, cerr
		}
		return scanExpected(children[0], v, recurse)

	case typestring.List:
		children, cerr := typestring.Children(t)
		if cerr != nil {
			return 0, cerr
		}
		return scanList(children[0], v, recurse)

	case typestring.Map:
		children, cerr := typestring.Children(t)
		if cerr != nil {
			return 0, cerr
		}
		return scanMap(children[0], children[1], v, recurse)

	case typestring.Tuple:
		children, cerr := typestring.Children(t)
		if cerr != nil {
			return 0, cerr
		}
		return scanTuple(children, v, recurse)

	default:
		return 0, errval.Chrf("scan", string(t), 0)
	}
}

func rewrap(err *errval.Error, t []byte) *errval.Error {
	err.SourceType = string(t)
	return err
}

func scanAny(v []byte, recurse bool) (int, *errval.Error) {
	tlen, n1, err := wire.ReadU32(v)
	if err != nil {
		return 0, err
	}
	off := n1
	if len(v) < off+int(tlen) {
		return 0, errval.Valf("scan", "a", off)
	}
	innerT := v[off : off+int(tlen)]
	off += int(tlen)

	vlen, n2, err := wire.ReadU32(v[off:])
	if err != nil {
		return 0, err
	}
	off += n2
	if len(v) < off+int(vlen) {
		return 0, errval.Valf("scan", "a", off)
	}
	innerV := v[off : off+int(vlen)]
	off += int(vlen)

	if recurse {
		tConsumed, terr := typestring.Validate(innerT, true)
		if terr != nil {
			return 0, terr
		}
		if tConsumed != len(innerT) {
			return 0, errval.TypeLongf("scan", string(innerT), tConsumed)
		}
		vConsumed, verr := scanValue(innerT, innerV, true)
		if verr != nil {
			return 0, verr
		}
		if vConsumed != len(innerV) {
			return 0, errval.ValLongf("scan", string(innerT), vConsumed)
		}
	}

	return off, nil
}

func scanErrorRecord(v []byte, recurse bool) (int, *errval.Error) {
	off := 0
	for i := 0; i < 3; i++ {
		_, n, err := wire.ReadStringView(v[off:])
		if err != nil {
			return 0, err
		}
		off += n
	}
	n, err := scanAny(v[off:], recurse)
	if err != nil {
		return 0, err
	}
	return off + n, nil
}

func scanOptional(elemT []byte, v []byte, recurse bool) (int, *errval.Error) {
	has, n, err := wire.ReadBool(v)
	if err != nil {
		return 0, err
	}
	off := n
	if !has {
		return off, nil
	}
	vn, verr := scanValue(elemT, v[off:], recurse)
	if verr != nil {
		return 0, verr
	}
	return off + vn, nil
}

func scanExpected(elemT []byte, v []byte, recurse bool) (int, *errval.Error) {
	has, n, err := wire.ReadBool(v)
	if err != nil {
		return 0, err
	}
	off := n
	if has {
		vn, verr := scanValue(elemT, v[off:], recurse)
		if verr != nil {
			return 0, verr
		}
		return off + vn, nil
	}
	vn, verr := scanErrorRecord(v[off:], recurse)
	if verr != nil {
		return 0, verr
	}
	return off + vn, nil
}

func scanExpectedVoid(v []byte, recurse bool) (int, *errval.Error) {
	has, n, err := wire.ReadBool(v)
	if err != nil {
		return 0, err
	}
	off := n
	if has {
		return off, nil
	}
	vn, verr := scanErrorRecord(v[off:], recurse)
	if verr != nil {
		return 0, verr
	}
	return off + vn, nil
}

func scanList(elemT []byte, v []byte, recurse bool) (int, *errval.Error) {
	count, n, err := wire.ReadU32(v)
	if err != nil {
		return 0, err
	}
	off := n
	for i := uint32(0); i < count; i++ {
		vn, verr := scanValue(elemT, v[off:], recurse)
		if verr != nil {
			return 0, verr
		}
		off += vn
	}
	return off, nil
}

func scanMap(keyT, valT []byte, v []byte, recurse bool) (int, *errval.Error) {
	count, n, err := wire.ReadU32(v)
	if err != nil {
		return 0, err
	}
	off := n
	for i := uint32(0); i < count; i++ {
		kn, kerr := scanValue(keyT, v[off:], recurse)
		if kerr != nil {
			return 0, kerr
		}
		off += kn
		vn, verr := scanValue(valT, v[off:], recurse)
		if verr != nil {
			return 0, verr
		}
		off += vn
	}
	return off, nil
}

func scanTuple(fields [][]byte, v []byte, recurse bool) (int, *errval.Error) {
	off := 0
	for _, f := range fields {
		n, err := scanValue(f, v[off:], recurse)
		if err != nil {
			return 0, err
		}
		off += n
	}
	return off, nil
}
