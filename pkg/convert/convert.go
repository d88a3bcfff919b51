package convert

import (
	"bytes"

	"github.com/ufser-go/ufser/internal/wire"
	"github.com/ufser-go/ufser/pkg/errval"
	"github.com/ufser-go/ufser/pkg/scan"
	"github.com/ufser-go/ufser/pkg/typestring"
)

// Convert performs a full source->target conversion, returning the
// serialized target value. errSink, if non-nil, collects the errors of
// has-value=0 x/X members that vanish (a tuple member skipped by rule 11,
// or a source converted to void) instead of failing the whole conversion
// on them; each collected entry carries the byte offsets of the value's
// type within sourceT and of the target cursor within targetT. A
// has-value=0 x/X converted directly into a non-`e` target (rule 13) is
// not collected: it fails with a type mismatch even when errSink is set.
func Convert(sourceT, sourceV, targetT []byte, policy Policy, errSink *errval.Sink) ([]byte, *errval.Error) {
	var out []byte
	s := wire.NewAppendSink(&out)
	if _, err := convertValue(sourceT, sourceV, targetT, 0, 0, policy, s, errSink); err != nil {
		return nil, err
	}
	return out, nil
}

// ConvertLen is Convert's "check+read" mode: it runs the same machinery
// but only counts the output length, for pre-sizing a wview mutation's
// target buffer without materializing it twice.
func ConvertLen(sourceT, sourceV, targetT []byte, policy Policy, errSink *errval.Sink) (int, *errval.Error) {
	s := wire.NewCountSink()
	if _, err := convertValue(sourceT, sourceV, targetT, 0, 0, policy, s, errSink); err != nil {
		return 0, err
	}
	return s.Count(), nil
}

// convertValue is the shared recursive engine. It returns how many
// bytes of sourceV the conversion consumed (the caller's cursor
// advance) and writes the target bytes to out. srcOff/tgtOff are the
// byte offsets of sourceT/targetT within the outermost call's original
// type strings, so sink entries can name where an unplaceable error
// occurred; unwrapping an `a` rebases srcOff to 0, since the inner type
// lives in its own buffer.
func convertValue(sourceT, sourceV, targetT []byte, srcOff, tgtOff int, policy Policy, out *wire.Sink, errSink *errval.Sink) (int, *errval.Error) {
	// Identity fast path: byte-equal type prefixes copy the value as-is.
	if bytes.Equal(sourceT, targetT) {
		res, err := scan.Scan(sourceT, sourceV, false)
		if err != nil {
			return 0, err
		}
		out.Write(sourceV[:res.VConsumed])
		return res.VConsumed, nil
	}

	srcVoid := len(sourceT) == 0
	tgtVoid := len(targetT) == 0

	// Rule 1: void on either side.
	if srcVoid && tgtVoid {
		return 0, nil
	}
	if srcVoid {
		return 0, convertFromVoid(targetT, policy, out)
	}
	if tgtVoid {
		return convertToVoid(sourceT, sourceV, srcOff, tgtOff, policy, errSink)
	}

	srcHead := typestring.Char(sourceT[0])
	tgtHead := typestring.Char(targetT[0])

	// Rule 2: target `a` wraps the source (T', V') into an envelope,
	// unless source is itself `a` (which would have hit identity above
	// only if the types matched exactly; a source `a` with a *different*
	// declared inner type from the target is not possible since target
	// is bare `a` here, so any non-identical source always wraps).
	if tgtHead == typestring.Any {
		if !policy.Has(Any) {
			return 0, mismatch(sourceT, targetT)
		}
		return wrapAny(sourceT, sourceV, policy, errSink, out)
	}

	// Rule 3: target x/X.
	if tgtHead == typestring.Expect || tgtHead == typestring.ExpectV {
		if !policy.Has(Expected) {
			return 0, mismatch(sourceT, targetT)
		}
		return convertToExpected(sourceT, sourceV, targetT, srcOff, tgtOff, tgtHead, policy, errSink, out)
	}

	// Rule 4: target oU with non-o source wraps; o-to-o is handled here too.
	if tgtHead == typestring.Opt {
		return convertToOptional(sourceT, sourceV, targetT, srcOff, tgtOff, srcHead, policy, errSink, out)
	}

	// Numeric edges (rule 5).
	if isScalar(srcHead) && isScalar(tgtHead) {
		return convertScalar(byte(srcHead), byte(tgtHead), sourceV, policy, out)
	}

	// s <-> lc (rule 6).
	if srcHead == typestring.String && isListOfChar(targetT) {
		return convertStringToListOfChar(sourceV, policy, out)
	}
	if isListOfChar(sourceT) && tgtHead == typestring.String {
		return convertListOfCharToString(sourceV, policy, out)
	}

	// lT -> t<N>U...U and its mirror (rule 7).
	if srcHead == typestring.List && tgtHead == typestring.Tuple {
		return convertListToTuple(sourceT, sourceV, targetT, srcOff, tgtOff, policy, errSink, out)
	}
	if srcHead == typestring.Tuple && tgtHead == typestring.List {
		return convertTupleToList(sourceT, sourceV, targetT, srcOff, tgtOff, policy, errSink, out)
	}

	// lT -> lU (rule 8).
	if srcHead == typestring.List && tgtHead == typestring.List {
		return convertListToList(sourceT, sourceV, targetT, srcOff, tgtOff, policy, errSink, out)
	}

	// mKV -> mK'V' (rule 9).
	if srcHead == typestring.Map && tgtHead == typestring.Map {
		return convertMapToMap(sourceT, sourceV, targetT, srcOff, tgtOff, policy, errSink, out)
	}

	// mKV -> lW (rule 10).
	if srcHead == typestring.Map && tgtHead == typestring.List {
		return convertMapToList(sourceT, sourceV, targetT, srcOff, tgtOff, policy, errSink, out)
	}

	// Tuple elementwise with backtracking (rule 11) — entered when
	// either side is a tuple; a bare value on the other side is treated
	// as a one-field list, so t2xii -> i can absorb the error member.
	if tgtHead == typestring.Tuple || srcHead == typestring.Tuple {
		return convertToTuple(sourceT, sourceV, targetT, srcOff, tgtOff, policy, errSink, out)
	}

	// Source `a` unwraps (rule 12).
	if srcHead == typestring.Any {
		return convertFromAny(sourceV, targetT, tgtOff, policy, errSink, out)
	}

	// Source x/X (rule 13).
	if srcHead == typestring.Expect || srcHead == typestring.ExpectV {
		return convertFromExpected(sourceT, sourceV, targetT, srcOff, tgtOff, srcHead, policy, errSink, out)
	}

	// Source oT (rule 14): empty optional only converts to another
	// optional, which was already handled by the tgtHead == Opt branch
	// above when it applies; reaching here with a non-o target means the
	// types are incompatible.
	return 0, mismatch(sourceT, targetT)
}

func isScalar(c typestring.Char) bool {
	switch c {
	case typestring.Bool, typestring.Byte, typestring.Int32, typestring.Int64, typestring.Double:
		return true
	default:
		return false
	}
}

func isListOfChar(t []byte) bool {
	return len(t) == 2 && typestring.Char(t[0]) == typestring.List && typestring.Char(t[1]) == typestring.Byte
}

func mismatch(sourceT, targetT []byte) *errval.Error {
	return errval.Mismatch("convert", string(sourceT), 0, string(targetT), 0)
}

func convertFromVoid(targetT []byte, policy Policy, out *wire.Sink) *errval.Error {
	switch typestring.Char(targetT[0]) {
	case typestring.Any:
		if !policy.Has(Any) {
			return mismatch(nil, targetT)
		}
		wire.WriteU32(out, 0)
		wire.WriteU32(out, 0)
		return nil
	case typestring.ExpectV:
		if !policy.Has(Expected) {
			return mismatch(nil, targetT)
		}
		wire.WriteBool(out, true)
		return nil
	case typestring.Opt:
		if !policy.Has(Aux) {
			return mismatch(nil, targetT)
		}
		wire.WriteBool(out, false)
		return nil
	default:
		return mismatch(nil, targetT)
	}
}

// convertToVoid implements the void-absorption direction of rule 1: a
// source value whose type can vanish — a present X, an absent optional,
// an `a` holding void, or an X whose error can be handed to the sink —
// converts to the void target by consuming its source bytes and writing
// nothing.
func convertToVoid(sourceT, sourceV []byte, srcOff, tgtOff int, policy Policy, errSink *errval.Sink) (int, *errval.Error) {
	switch typestring.Char(sourceT[0]) {
	case typestring.ExpectV:
		if !policy.Has(Expected) {
			return 0, mismatch(sourceT, nil)
		}
		res, err := scan.Scan(sourceT, sourceV, false)
		if err != nil {
			return 0, err
		}
		has, _, _ := wire.ReadBool(sourceV)
		if has {
			// A present X wraps void; it absorbs trivially.
			return res.VConsumed, nil
		}
		// has-value=0 carries an error record that void cannot hold:
		// the unplaceable case.
		if errSink != nil {
			rec := decodeErrorRecord(sourceV[1:res.VConsumed])
			errSink.Collect(rec, srcOff, tgtOff)
			return res.VConsumed, nil
		}
		return 0, mismatch(sourceT, nil)
	case typestring.Any:
		if !policy.Has(Any) {
			return 0, mismatch(sourceT, nil)
		}
		res, err := scan.Scan(sourceT, sourceV, false)
		if err != nil {
			return 0, err
		}
		tlen, _, _ := wire.ReadU32(sourceV)
		if tlen != 0 {
			return 0, mismatch(sourceT, nil)
		}
		return res.VConsumed, nil
	case typestring.Opt:
		if !policy.Has(Aux) {
			return 0, mismatch(sourceT, nil)
		}
		has, hn, err := wire.ReadBool(sourceV)
		if err != nil {
			return 0, err
		}
		if has {
			return 0, mismatch(sourceT, nil)
		}
		return hn, nil
	default:
		return 0, mismatch(sourceT, nil)
	}
}
