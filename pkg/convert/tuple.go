package convert

import (
	"bytes"

	"github.com/ufser-go/ufser/internal/wire"
	"github.com/ufser-go/ufser/pkg/errval"
	"github.com/ufser-go/ufser/pkg/scan"
	"github.com/ufser-go/ufser/pkg/typestring"
)

// CheckTypes is the type-check-only mode: it reports whether
// sourceT can convert to targetT under policy without ever touching a
// value buffer. It is used by the empty-container fast paths of rules 8
// and 9 and is exposed for callers that want a values-free precheck.
func CheckTypes(sourceT, targetT []byte, policy Policy) *errval.Error {
	if bytes.Equal(sourceT, targetT) {
		return nil
	}
	srcVoid := len(sourceT) == 0
	tgtVoid := len(targetT) == 0
	if srcVoid && tgtVoid {
		return nil
	}
	if srcVoid {
		switch typestring.Char(targetT[0]) {
		case typestring.Any:
			if policy.Has(Any) {
				return nil
			}
		case typestring.ExpectV:
			if policy.Has(Expected) {
				return nil
			}
		case typestring.Opt:
			if policy.Has(Aux) {
				return nil
			}
		}
		return mismatch(nil, targetT)
	}
	if tgtVoid {
		switch typestring.Char(sourceT[0]) {
		case typestring.ExpectV:
			if policy.Has(Expected) {
				return nil
			}
		case typestring.Any:
			if policy.Has(Any) {
				return nil
			}
		case typestring.Opt:
			if policy.Has(Aux) {
				return nil
			}
		}
		return mismatch(sourceT, nil)
	}

	srcHead := typestring.Char(sourceT[0])
	tgtHead := typestring.Char(targetT[0])

	if tgtHead == typestring.Any {
		if policy.Has(Any) {
			return nil
		}
		return mismatch(sourceT, targetT)
	}
	if tgtHead == typestring.Expect || tgtHead == typestring.ExpectV {
		if !policy.Has(Expected) {
			return mismatch(sourceT, targetT)
		}
		if tgtHead == typestring.ExpectV {
			return nil
		}
		children, err := typestring.Children(targetT)
		if err != nil {
			return err
		}
		if srcHead == typestring.Expect || srcHead == typestring.ExpectV || srcHead == typestring.ErrRec {
			return nil
		}
		return CheckTypes(sourceT, children[0], policy)
	}
	if tgtHead == typestring.Opt {
		children, err := typestring.Children(targetT)
		if err != nil {
			return err
		}
		if srcHead == typestring.Opt {
			srcChildren, serr := typestring.Children(sourceT)
			if serr != nil {
				return serr
			}
			return CheckTypes(srcChildren[0], children[0], policy)
		}
		return CheckTypes(sourceT, children[0], policy)
	}

	if isScalar(srcHead) && isScalar(tgtHead) {
		if numericAllowed(byte(srcHead), byte(tgtHead), policy) {
			return nil
		}
		return mismatch(sourceT, targetT)
	}

	if srcHead == typestring.String && isListOfChar(targetT) {
		if policy.Has(Aux) {
			return nil
		}
		return mismatch(sourceT, targetT)
	}
	if isListOfChar(sourceT) && tgtHead == typestring.String {
		if policy.Has(Aux) {
			return nil
		}
		return mismatch(sourceT, targetT)
	}

	if srcHead == typestring.List && tgtHead == typestring.Tuple {
		if !policy.Has(TupleList) {
			return mismatch(sourceT, targetT)
		}
		srcChildren, err := typestring.Children(sourceT)
		if err != nil {
			return err
		}
		tgtFields, err := typestring.Children(targetT)
		if err != nil {
			return err
		}
		for _, f := range tgtFields {
			if cerr := CheckTypes(srcChildren[0], f, policy); cerr != nil {
				return cerr
			}
		}
		return nil
	}

	if srcHead == typestring.List && tgtHead == typestring.List {
		srcChildren, err := typestring.Children(sourceT)
		if err != nil {
			return err
		}
		tgtChildren, err := typestring.Children(targetT)
		if err != nil {
			return err
		}
		return CheckTypes(srcChildren[0], tgtChildren[0], policy)
	}

	if srcHead == typestring.Map && tgtHead == typestring.Map {
		srcChildren, err := typestring.Children(sourceT)
		if err != nil {
			return err
		}
		tgtChildren, err := typestring.Children(targetT)
		if err != nil {
			return err
		}
		if cerr := CheckTypes(srcChildren[0], tgtChildren[0], policy); cerr != nil {
			return cerr
		}
		return CheckTypes(srcChildren[1], tgtChildren[1], policy)
	}

	if srcHead == typestring.Map && tgtHead == typestring.List {
		srcChildren, err := typestring.Children(sourceT)
		if err != nil {
			return err
		}
		tgtChildren, err := typestring.Children(targetT)
		if err != nil {
			return err
		}
		w := tgtChildren[0]
		if CheckTypes(srcChildren[0], w, policy) == nil || CheckTypes(srcChildren[1], w, policy) == nil {
			return nil
		}
		return mismatch(sourceT, targetT)
	}

	if srcHead == typestring.Tuple && tgtHead == typestring.List {
		if !policy.Has(TupleList) {
			return mismatch(sourceT, targetT)
		}
		srcFields, err := typestring.Children(sourceT)
		if err != nil {
			return err
		}
		tgtChildren, err := typestring.Children(targetT)
		if err != nil {
			return err
		}
		for _, f := range srcFields {
			if cerr := CheckTypes(f, tgtChildren[0], policy); cerr != nil {
				return cerr
			}
		}
		return nil
	}

	if tgtHead == typestring.Tuple || srcHead == typestring.Tuple {
		var tgtFields [][]byte
		var err *errval.Error
		if tgtHead == typestring.Tuple {
			tgtFields, err = typestring.Children(targetT)
			if err != nil {
				return err
			}
		} else {
			tgtFields = [][]byte{targetT}
		}
		var srcFields [][]byte
		if srcHead == typestring.Tuple {
			srcFields, err = typestring.Children(sourceT)
			if err != nil {
				return err
			}
		} else {
			srcFields = [][]byte{sourceT}
		}
		if checkSuffix(srcFields, 0, tgtFields, 0, policy) {
			return nil
		}
		return mismatch(sourceT, targetT)
	}

	if srcHead == typestring.Any {
		if policy.Has(Any) {
			return nil
		}
		return mismatch(sourceT, targetT)
	}

	if srcHead == typestring.Expect || srcHead == typestring.ExpectV {
		if !policy.Has(Expected) {
			return mismatch(sourceT, targetT)
		}
		if srcHead == typestring.ExpectV {
			return nil
		}
		children, err := typestring.Children(sourceT)
		if err != nil {
			return err
		}
		return CheckTypes(children[0], targetT, policy)
	}

	return mismatch(sourceT, targetT)
}

// fieldOffsets returns the byte offset of each field's type within the
// outermost type string, given the enclosing descriptor t's own offset
// base, plus one trailing entry for the position just past the last
// field (the target cursor's resting place once every field is
// consumed). A bare non-tuple t is its own single field.
func fieldOffsets(t []byte, fields [][]byte, base int) ([]int, *errval.Error) {
	head := 0
	if typestring.Char(t[0]) == typestring.Tuple {
		h, err := typestring.HeadLen(t)
		if err != nil {
			return nil, err
		}
		head = h
	}
	offs := make([]int, 0, len(fields)+1)
	off := base + head
	for _, f := range fields {
		offs = append(offs, off)
		off += len(f)
	}
	return append(offs, off), nil
}

// checkSuffix is CheckTypes's type-only shadow of matchSuffix: it
// decides reachability of the backtracking search without touching any
// value bytes, used by CheckTypes itself on a bare tuple target.
func checkSuffix(srcFields [][]byte, si int, tgtFields [][]byte, ti int, policy Policy) bool {
	if ti == len(tgtFields) {
		return si == len(srcFields)
	}
	if si == len(srcFields) {
		return false
	}
	if CheckTypes(srcFields[si], tgtFields[ti], policy) == nil {
		if checkSuffix(srcFields, si+1, tgtFields, ti+1, policy) {
			return true
		}
	}
	if canVanishType(srcFields[si], policy) {
		return checkSuffix(srcFields, si+1, tgtFields, ti, policy)
	}
	return false
}

// canVanishType is the type-only shadow of canVanishValue: without a
// value in hand an X, an oT or an `a` may all turn out to absorb.
func canVanishType(t []byte, policy Policy) bool {
	if len(t) == 0 {
		return true
	}
	switch typestring.Char(t[0]) {
	case typestring.ExpectV, typestring.Expect, typestring.Opt, typestring.Any:
		return true
	default:
		return false
	}
}

// convertToTuple implements rule 11: either side is a tuple, with a
// bare value on the other side treated as a length-1 field list. A
// source field that "vanishes" — an X, an oT with has-value=0, or an
// `a` holding void — may be skipped without consuming a target slot, so
// the search backtracks over which source fields actually feed the
// target.
func convertToTuple(sourceT, sourceV, targetT []byte, srcOff, tgtOff int, policy Policy, errSink *errval.Sink, out *wire.Sink) (int, *errval.Error) {
	var tgtFields [][]byte
	var err *errval.Error
	if typestring.Char(targetT[0]) == typestring.Tuple {
		tgtFields, err = typestring.Children(targetT)
		if err != nil {
			return 0, err
		}
	} else {
		tgtFields = [][]byte{targetT}
	}
	tgtOffs, err := fieldOffsets(targetT, tgtFields, tgtOff)
	if err != nil {
		return 0, err
	}

	var srcFields [][]byte
	var srcSpans []int
	if typestring.Char(sourceT[0]) == typestring.Tuple {
		srcFields, err = typestring.Children(sourceT)
		if err != nil {
			return 0, err
		}
	} else {
		srcFields = [][]byte{sourceT}
	}
	srcOffs, err := fieldOffsets(sourceT, srcFields, srcOff)
	if err != nil {
		return 0, err
	}
	srcSpans = make([]int, len(srcFields))

	// Pre-scan each source field's value length so the search can slice
	// sourceV by field index without re-scanning on every branch.
	off := 0
	for i, f := range srcFields {
		res, serr := scan.Scan(f, sourceV[off:], false)
		if serr != nil {
			return 0, serr
		}
		srcSpans[i] = res.VConsumed
		off += res.VConsumed
	}

	assembled, consumed, ok, merr := matchSuffix(srcFields, srcSpans, srcOffs, sourceV, 0, tgtFields, tgtOffs, 0, policy, errSink)
	if !ok {
		if merr != nil {
			return 0, merr
		}
		return 0, mismatch(sourceT, targetT)
	}
	out.Write(assembled)
	return consumed, nil
}

// matchSuffix speculatively converts srcFields[si:] into tgtFields[ti:].
// It returns the assembled target bytes in field order and the number
// of sourceV bytes consumed by fields [si:], found by it and its own
// matching suffix. Each branch builds its own local buffer and only
// concatenates it with the confirmed suffix's buffer once that suffix
// has actually matched, so a failed speculative branch never mutates
// shared state.
func matchSuffix(srcFields [][]byte, srcSpans, srcOffs []int, sourceV []byte, si int, tgtFields [][]byte, tgtOffs []int, ti int, policy Policy, errSink *errval.Sink) ([]byte, int, bool, *errval.Error) {
	if ti == len(tgtFields) {
		if si == len(srcFields) {
			return nil, 0, true, nil
		}
		return nil, 0, false, nil
	}
	if si == len(srcFields) {
		return nil, 0, false, nil
	}

	fieldOff := 0
	for i := 0; i < si; i++ {
		fieldOff += srcSpans[i]
	}
	fieldV := sourceV[fieldOff : fieldOff+srcSpans[si]]

	// Branch A: consume this source field into this target field. The
	// sink is rolled back when the branch fails so speculative
	// sub-conversions leave no stray unplaceable entries behind.
	var branchErr *errval.Error
	{
		mark := errSink.Mark()
		var buf []byte
		s := wire.NewAppendSink(&buf)
		n, cerr := convertValue(srcFields[si], fieldV, tgtFields[ti], srcOffs[si], tgtOffs[ti], policy, s, errSink)
		if cerr == nil && n == srcSpans[si] {
			rest, restConsumed, ok, merr := matchSuffix(srcFields, srcSpans, srcOffs, sourceV, si+1, tgtFields, tgtOffs, ti+1, policy, errSink)
			if ok {
				return append(buf, rest...), srcSpans[si] + restConsumed, true, nil
			}
			if merr != nil {
				branchErr = merr
			}
		} else if cerr != nil {
			branchErr = cerr
		}
		errSink.Rollback(mark)
	}

	// Branch B: this source field vanishes, contributing nothing and
	// advancing only the source cursor. A vanishing X that carries an
	// error hands it to the sink.
	if canVanishValue(srcFields[si], fieldV, errSink) {
		mark := errSink.Mark()
		collectVanished(srcFields[si], fieldV, srcOffs[si], tgtOffs[ti], errSink)
		rest, restConsumed, ok, merr := matchSuffix(srcFields, srcSpans, srcOffs, sourceV, si+1, tgtFields, tgtOffs, ti, policy, errSink)
		if ok {
			return rest, srcSpans[si] + restConsumed, true, nil
		}
		errSink.Rollback(mark)
		if merr != nil {
			merr.Backtracked = true
			branchErr = merr
		}
	}

	return nil, 0, false, branchErr
}

// canVanishValue reports whether the already-scanned field (t, v) is a
// void-absorbing member: an X whose has-value=1 wraps void outright, an
// x/X whose has-value=0 carries an error that can be handed to the
// sink, an oT with has-value=0, or an `a` whose declared inner type is
// void.
func canVanishValue(t, v []byte, errSink *errval.Sink) bool {
	if len(t) == 0 {
		return true
	}
	switch typestring.Char(t[0]) {
	case typestring.ExpectV:
		has, _, err := wire.ReadBool(v)
		if err != nil {
			return false
		}
		return has || errSink != nil
	case typestring.Expect:
		has, _, err := wire.ReadBool(v)
		if err != nil {
			return false
		}
		return !has && errSink != nil
	case typestring.Opt:
		has, _, err := wire.ReadBool(v)
		if err != nil {
			return false
		}
		return !has
	case typestring.Any:
		tlen, _, err := wire.ReadU32(v)
		if err != nil {
			return false
		}
		return tlen == 0
	default:
		return false
	}
}

// collectVanished records the error carried by a vanishing has-value=0
// x/X into the sink, stamped with the member's byte offset in the
// source type string and the target cursor's byte offset at the moment
// the member vanished.
func collectVanished(t, v []byte, srcOff, tgtOff int, errSink *errval.Sink) {
	if errSink == nil || len(t) == 0 {
		return
	}
	if c := typestring.Char(t[0]); c != typestring.ExpectV && c != typestring.Expect {
		return
	}
	has, hn, err := wire.ReadBool(v)
	if err != nil || has {
		return
	}
	errSink.Collect(decodeErrorRecord(v[hn:]), srcOff, tgtOff)
}
