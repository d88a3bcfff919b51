package convert

import (
	"github.com/ufser-go/ufser/internal/wire"
	"github.com/ufser-go/ufser/pkg/errval"
	"github.com/ufser-go/ufser/pkg/scan"
	"github.com/ufser-go/ufser/pkg/typestring"
)

func convertScalar(srcHead, tgtHead byte, sourceV []byte, policy Policy, out *wire.Sink) (int, *errval.Error) {
	if !numericAllowed(srcHead, tgtHead, policy) {
		return 0, mismatch([]byte{srcHead}, []byte{tgtHead})
	}
	s, n, err := readScalar(srcHead, sourceV)
	if err != nil {
		return 0, err
	}
	if err := writeScalar(tgtHead, s, out); err != nil {
		return 0, err
	}
	return n, nil
}

// wrapAny implements rule 2: wrap the source (T', V') into a two-length
// any envelope: u32 tlen, T', u32 vlen, V'.
func wrapAny(sourceT, sourceV []byte, policy Policy, errSink *errval.Sink, out *wire.Sink) (int, *errval.Error) {
	res, err := scan.Scan(sourceT, sourceV, false)
	if err != nil {
		return 0, err
	}
	wire.WriteU32(out, uint32(len(sourceT)))
	out.Write(sourceT)
	wire.WriteU32(out, uint32(res.VConsumed))
	out.Write(sourceV[:res.VConsumed])
	return res.VConsumed, nil
}

// convertToExpected implements rule 3: wrapping a non-expected source
// into x/X, or re-propagating has-value from a source x/X' (converting
// U->T only when has-value=1).
func convertToExpected(sourceT, sourceV, targetT []byte, srcOff, tgtOff int, tgtHead typestring.Char, policy Policy, errSink *errval.Sink, out *wire.Sink) (int, *errval.Error) {
	var innerT []byte
	if tgtHead == typestring.Expect {
		children, cerr := typestring.Children(targetT)
		if cerr != nil {
			return 0, cerr
		}
		innerT = children[0]
	}

	srcHead := typestring.Char(sourceT[0])

	if srcHead == typestring.ErrRec {
		wire.WriteBool(out, false)
		n, err := scan.Scan(sourceT, sourceV, false)
		if err != nil {
			return 0, err
		}
		out.Write(sourceV[:n.VConsumed])
		return n.VConsumed, nil
	}

	if srcHead == typestring.Expect || srcHead == typestring.ExpectV {
		has, hn, err := wire.ReadBool(sourceV)
		if err != nil {
			return 0, err
		}
		off := hn
		wire.WriteBool(out, has)
		if !has {
			n, err := scan.Scan([]byte{byte(typestring.ErrRec)}, sourceV[off:], false)
			if err != nil {
				return 0, err
			}
			out.Write(sourceV[off : off+n.VConsumed])
			return off + n.VConsumed, nil
		}
		if srcHead == typestring.ExpectV {
			// X -> x/X with has-value=1 carries no payload either.
			if tgtHead == typestring.Expect {
				return 0, mismatch(sourceT, targetT)
			}
			return off, nil
		}
		children, cerr := typestring.Children(sourceT)
		if cerr != nil {
			return 0, cerr
		}
		srcInner := children[0]
		n, err := convertValue(srcInner, sourceV[off:], innerT, srcOff+1, tgtOff+1, policy, out, errSink)
		if err != nil {
			return 0, err
		}
		return off + n, nil
	}

	// Neither: wrap as has-value=1 and convert source->T directly.
	wire.WriteBool(out, true)
	n, err := convertValue(sourceT, sourceV, innerT, srcOff, tgtOff+1, policy, out, errSink)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// convertToOptional implements rule 4 (wrapping a non-o source) and the
// o-to-o case implied by rule 14 (empty optional only converts to
// another optional; a populated one converts its inner value).
func convertToOptional(sourceT, sourceV, targetT []byte, srcOff, tgtOff int, srcHead typestring.Char, policy Policy, errSink *errval.Sink, out *wire.Sink) (int, *errval.Error) {
	children, cerr := typestring.Children(targetT)
	if cerr != nil {
		return 0, cerr
	}
	innerU := children[0]

	if srcHead == typestring.Opt {
		srcChildren, cerr := typestring.Children(sourceT)
		if cerr != nil {
			return 0, cerr
		}
		innerT := srcChildren[0]
		has, hn, err := wire.ReadBool(sourceV)
		if err != nil {
			return 0, err
		}
		off := hn
		wire.WriteBool(out, has)
		if !has {
			return off, nil
		}
		n, err := convertValue(innerT, sourceV[off:], innerU, srcOff+1, tgtOff+1, policy, out, errSink)
		if err != nil {
			return 0, err
		}
		return off + n, nil
	}

	wire.WriteBool(out, true)
	n, err := convertValue(sourceT, sourceV, innerU, srcOff, tgtOff+1, policy, out, errSink)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func convertStringToListOfChar(sourceV []byte, policy Policy, out *wire.Sink) (int, *errval.Error) {
	if !policy.Has(Aux) {
		return 0, mismatch([]byte("s"), []byte("lc"))
	}
	view, n, err := wire.ReadStringView(sourceV)
	if err != nil {
		return 0, err
	}
	wire.WriteU32(out, uint32(len(view)))
	out.Write(view)
	return n, nil
}

func convertListOfCharToString(sourceV []byte, policy Policy, out *wire.Sink) (int, *errval.Error) {
	if !policy.Has(Aux) {
		return 0, mismatch([]byte("lc"), []byte("s"))
	}
	count, n, err := wire.ReadU32(sourceV)
	if err != nil {
		return 0, err
	}
	off := n
	need := int(count)
	if len(sourceV) < off+need {
		return 0, errval.Valf("convert", "lc", off)
	}
	wire.WriteString(out, string(sourceV[off:off+need]))
	return off + need, nil
}

func convertListToTuple(sourceT, sourceV, targetT []byte, srcOff, tgtOff int, policy Policy, errSink *errval.Sink, out *wire.Sink) (int, *errval.Error) {
	if !policy.Has(TupleList) {
		return 0, mismatch(sourceT, targetT)
	}
	srcChildren, cerr := typestring.Children(sourceT)
	if cerr != nil {
		return 0, cerr
	}
	elemT := srcChildren[0]
	tgtFields, cerr := typestring.Children(targetT)
	if cerr != nil {
		return 0, cerr
	}

	count, n, err := wire.ReadU32(sourceV)
	if err != nil {
		return 0, err
	}
	if int(count) != len(tgtFields) {
		return 0, mismatch(sourceT, targetT)
	}
	head, herr := typestring.HeadLen(targetT)
	if herr != nil {
		return 0, herr
	}
	off := n
	fieldOff := tgtOff + head
	for _, field := range tgtFields {
		cn, cerr := convertValue(elemT, sourceV[off:], field, srcOff+1, fieldOff, policy, out, errSink)
		if cerr != nil {
			return 0, cerr
		}
		off += cn
		fieldOff += len(field)
	}
	return off, nil
}

// convertTupleToList is rule 7's mirror: every field converts to the
// list's element type and the count is the arity.
func convertTupleToList(sourceT, sourceV, targetT []byte, srcOff, tgtOff int, policy Policy, errSink *errval.Sink, out *wire.Sink) (int, *errval.Error) {
	if !policy.Has(TupleList) {
		return 0, mismatch(sourceT, targetT)
	}
	srcFields, cerr := typestring.Children(sourceT)
	if cerr != nil {
		return 0, cerr
	}
	tgtChildren, cerr := typestring.Children(targetT)
	if cerr != nil {
		return 0, cerr
	}
	elemT := tgtChildren[0]

	head, herr := typestring.HeadLen(sourceT)
	if herr != nil {
		return 0, herr
	}
	wire.WriteU32(out, uint32(len(srcFields)))
	off := 0
	fieldOff := srcOff + head
	for _, field := range srcFields {
		n, cerr := convertValue(field, sourceV[off:], elemT, fieldOff, tgtOff+1, policy, out, errSink)
		if cerr != nil {
			return 0, cerr
		}
		off += n
		fieldOff += len(field)
	}
	return off, nil
}

func convertListToList(sourceT, sourceV, targetT []byte, srcOff, tgtOff int, policy Policy, errSink *errval.Sink, out *wire.Sink) (int, *errval.Error) {
	srcChildren, cerr := typestring.Children(sourceT)
	if cerr != nil {
		return 0, cerr
	}
	tgtChildren, cerr := typestring.Children(targetT)
	if cerr != nil {
		return 0, cerr
	}
	elemSrc, elemTgt := srcChildren[0], tgtChildren[0]

	count, n, err := wire.ReadU32(sourceV)
	if err != nil {
		return 0, err
	}
	off := n
	if count == 0 {
		if cerr := CheckTypes(elemSrc, elemTgt, policy); cerr != nil {
			return 0, cerr
		}
		wire.WriteU32(out, 0)
		return off, nil
	}
	wire.WriteU32(out, count)
	for i := uint32(0); i < count; i++ {
		cn, cerr := convertValue(elemSrc, sourceV[off:], elemTgt, srcOff+1, tgtOff+1, policy, out, errSink)
		if cerr != nil {
			return 0, cerr
		}
		off += cn
	}
	return off, nil
}

func convertMapToMap(sourceT, sourceV, targetT []byte, srcOff, tgtOff int, policy Policy, errSink *errval.Sink, out *wire.Sink) (int, *errval.Error) {
	srcChildren, cerr := typestring.Children(sourceT)
	if cerr != nil {
		return 0, cerr
	}
	tgtChildren, cerr := typestring.Children(targetT)
	if cerr != nil {
		return 0, cerr
	}
	kSrc, vSrc := srcChildren[0], srcChildren[1]
	kTgt, vTgt := tgtChildren[0], tgtChildren[1]

	count, n, err := wire.ReadU32(sourceV)
	if err != nil {
		return 0, err
	}
	off := n
	if count == 0 {
		if cerr := CheckTypes(kSrc, kTgt, policy); cerr != nil {
			return 0, cerr
		}
		if cerr := CheckTypes(vSrc, vTgt, policy); cerr != nil {
			return 0, cerr
		}
		wire.WriteU32(out, 0)
		return off, nil
	}
	wire.WriteU32(out, count)
	for i := uint32(0); i < count; i++ {
		kn, kerr := convertValue(kSrc, sourceV[off:], kTgt, srcOff+1, tgtOff+1, policy, out, errSink)
		if kerr != nil {
			return 0, kerr
		}
		off += kn
		vn, verr := convertValue(vSrc, sourceV[off:], vTgt, srcOff+1+len(kSrc), tgtOff+1+len(kTgt), policy, out, errSink)
		if verr != nil {
			return 0, verr
		}
		off += vn
	}
	return off, nil
}

// convertMapToList implements rule 10: mKV -> lW is permitted only when
// the key or the value deserializes to W and the other side is "all
// void-like" (deserializes to void for every entry).
func convertMapToList(sourceT, sourceV, targetT []byte, srcOff, tgtOff int, policy Policy, errSink *errval.Sink, out *wire.Sink) (int, *errval.Error) {
	srcChildren, cerr := typestring.Children(sourceT)
	if cerr != nil {
		return 0, cerr
	}
	tgtChildren, cerr := typestring.Children(targetT)
	if cerr != nil {
		return 0, cerr
	}
	kSrc, vSrc := srcChildren[0], srcChildren[1]
	w := tgtChildren[0]

	keyIsW := CheckTypes(kSrc, w, policy) == nil
	valIsW := CheckTypes(vSrc, w, policy) == nil
	if !keyIsW && !valIsW {
		return 0, mismatch(sourceT, targetT)
	}
	useKey := keyIsW

	count, n, err := wire.ReadU32(sourceV)
	if err != nil {
		return 0, err
	}
	off := n
	wire.WriteU32(out, count)
	for i := uint32(0); i < count; i++ {
		kLen, kerr := scan.Scan(kSrc, sourceV[off:], false)
		if kerr != nil {
			return 0, kerr
		}
		vStart := off + kLen.VConsumed
		vLen, verr := scan.Scan(vSrc, sourceV[vStart:], false)
		if verr != nil {
			return 0, verr
		}

		var chosen, other []byte
		var chosenT, otherT []byte
		var chosenOff, otherOff int
		if useKey {
			chosen, chosenT, chosenOff = sourceV[off:off+kLen.VConsumed], kSrc, srcOff+1
			other, otherT, otherOff = sourceV[vStart:vStart+vLen.VConsumed], vSrc, srcOff+1+len(kSrc)
		} else {
			chosen, chosenT, chosenOff = sourceV[vStart:vStart+vLen.VConsumed], vSrc, srcOff+1+len(kSrc)
			other, otherT, otherOff = sourceV[off:off+kLen.VConsumed], kSrc, srcOff+1
		}
		if _, everr := convertToVoid(otherT, other, otherOff, tgtOff+1, policy, errSink); everr != nil {
			return 0, mismatch(sourceT, targetT)
		}
		if _, werr := convertValue(chosenT, chosen, w, chosenOff, tgtOff+1, policy, out, errSink); werr != nil {
			return 0, werr
		}
		off = vStart + vLen.VConsumed
	}
	return off, nil
}

// convertFromAny implements rule 12: unwrap a source `a` and convert
// its inner (T', V') to the target. The inner type is its own buffer,
// so the source offset rebases to 0 for everything beneath it.
func convertFromAny(sourceV []byte, targetT []byte, tgtOff int, policy Policy, errSink *errval.Sink, out *wire.Sink) (int, *errval.Error) {
	if !policy.Has(Any) {
		return 0, mismatch([]byte("a"), targetT)
	}
	tlen, n1, err := wire.ReadU32(sourceV)
	if err != nil {
		return 0, err
	}
	off := n1
	innerT := sourceV[off : off+int(tlen)]
	off += int(tlen)
	vlen, n2, err := wire.ReadU32(sourceV[off:])
	if err != nil {
		return 0, err
	}
	off += n2
	innerV := sourceV[off : off+int(vlen)]
	off += int(vlen)

	if _, cerr := convertValue(innerT, innerV, targetT, 0, tgtOff, policy, out, errSink); cerr != nil {
		return 0, cerr
	}
	return off, nil
}

// convertFromExpected implements rule 13: a source x/X whose has-value
// is 1 converts its payload; whose has-value is 0 either copies the
// error (target is `e`, already handled earlier) or is unplaceable.
func convertFromExpected(sourceT, sourceV, targetT []byte, srcOff, tgtOff int, srcHead typestring.Char, policy Policy, errSink *errval.Sink, out *wire.Sink) (int, *errval.Error) {
	if !policy.Has(Expected) {
		return 0, mismatch(sourceT, targetT)
	}
	has, hn, err := wire.ReadBool(sourceV)
	if err != nil {
		return 0, err
	}
	off := hn
	if has {
		if srcHead == typestring.ExpectV {
			return 0, mismatch(sourceT, targetT)
		}
		children, cerr := typestring.Children(sourceT)
		if cerr != nil {
			return 0, cerr
		}
		n, cerr := convertValue(children[0], sourceV[off:], targetT, srcOff+1, tgtOff, policy, out, errSink)
		if cerr != nil {
			return 0, cerr
		}
		return off + n, nil
	}

	// has-value=0: the payload is an error record. If the target is
	// itself `e`, it carries directly; any other target expects real
	// payload bytes the error cannot supply. The error-discarding
	// absorption path (tuple members vanishing, conversion to void)
	// collects into the sink elsewhere.
	res, serr := scan.Scan([]byte{byte(typestring.ErrRec)}, sourceV[off:], false)
	if serr != nil {
		return 0, serr
	}
	if len(targetT) == 1 && typestring.Char(targetT[0]) == typestring.ErrRec {
		out.Write(sourceV[off : off+res.VConsumed])
		return off + res.VConsumed, nil
	}
	return 0, mismatch(sourceT, targetT)
}

func decodeErrorRecord(v []byte) errval.Record {
	kind, n1, _ := wire.ReadStringOwned(v)
	id, n2, _ := wire.ReadStringOwned(v[n1:])
	msg, _, _ := wire.ReadStringOwned(v[n1+n2:])
	return errval.Record{Kind: kind, ID: id, Message: msg}
}
