package wview

import (
	"bytes"

	"github.com/ufser-go/ufser/internal/wire"
	"github.com/ufser-go/ufser/pkg/errval"
	"github.com/ufser-go/ufser/pkg/scan"
	"github.com/ufser-go/ufser/pkg/typestring"
)

// LinearSearch scans a list or map's elements in order, comparing
// needle byte-for-byte against the flattened value of each element's
// first subFields sub-fields. It returns the first matching element —
// or, for a map, that pair's value node — or nil on no match. Only the
// hit is materialized as a child; every other element is inspected as
// raw bytes.
func (n *Node) LinearSearch(needle []byte, subFields int) (*Node, *errval.Error) {
	switch n.TypeChar() {
	case typestring.List:
		return n.linearSearchList(needle, subFields)
	case typestring.Map:
		return n.linearSearchMap(needle, subFields)
	default:
		return nil, errval.APIErr("wview", "linear_search is only defined for l/m containers")
	}
}

func (n *Node) linearSearchList(needle []byte, subFields int) (*Node, *errval.Error) {
	children, cerr := typestring.Children(n.Type())
	if cerr != nil {
		return nil, cerr
	}
	elemT := children[0]
	v := n.Value()
	count, off, werr := wire.ReadU32(v)
	if werr != nil {
		return nil, werr
	}
	for i := 0; i < int(count); i++ {
		res, serr := scan.Scan(elemT, v[off:], false)
		if serr != nil {
			return nil, serr
		}
		elemV := v[off : off+res.VConsumed]
		ok, merr := prefixMatches(elemT, elemV, needle, subFields)
		if merr != nil {
			return nil, merr
		}
		if ok {
			return n.Child(i)
		}
		off += res.VConsumed
	}
	return nil, nil
}

// linearSearchMap compares needle against each pair's key (subFields
// must be 1, since a map key has no further sub-field structure to
// project); on a hit it returns the pair's value node.
func (n *Node) linearSearchMap(needle []byte, subFields int) (*Node, *errval.Error) {
	if subFields != 1 {
		return nil, errval.APIErr("wview", "map linear_search only supports a single key sub-field")
	}
	children, cerr := typestring.Children(n.Type())
	if cerr != nil {
		return nil, cerr
	}
	keyT, valT := children[0], children[1]
	v := n.Value()
	count, off, werr := wire.ReadU32(v)
	if werr != nil {
		return nil, werr
	}
	for i := 0; i < int(count); i++ {
		kres, serr := scan.Scan(keyT, v[off:], false)
		if serr != nil {
			return nil, serr
		}
		if bytes.Equal(v[off:off+kres.VConsumed], needle) {
			return n.Child(2*i + 1)
		}
		off += kres.VConsumed
		vres, serr := scan.Scan(valT, v[off:], false)
		if serr != nil {
			return nil, serr
		}
		off += vres.VConsumed
	}
	return nil, nil
}

// prefixMatches reports whether needle equals the flattened bytes of
// elemV's first subFields sub-fields. A scalar element is its own
// single sub-field; a tuple's sub-fields are its fields, an `e`'s are
// its four components.
func prefixMatches(elemT, elemV, needle []byte, subFields int) (bool, *errval.Error) {
	span, ok, err := subFieldSpan(elemT, elemV, subFields)
	if err != nil || !ok {
		return false, err
	}
	return span == len(needle) && bytes.Equal(elemV[:span], needle), nil
}

// subFieldSpan computes how many leading bytes of elemV its first k
// sub-fields cover; ok is false when the element doesn't have k
// sub-fields to project.
func subFieldSpan(elemT, elemV []byte, k int) (span int, ok bool, err *errval.Error) {
	var fieldTypes [][]byte
	switch typestring.Char(elemT[0]) {
	case typestring.Tuple:
		children, cerr := typestring.Children(elemT)
		if cerr != nil {
			return 0, false, cerr
		}
		fieldTypes = children
	case typestring.ErrRec:
		fieldTypes = errRecFieldTypes
	default:
		if k != 1 {
			return 0, false, nil
		}
		return len(elemV), true, nil
	}
	if k > len(fieldTypes) {
		return 0, false, nil
	}
	off := 0
	for i := 0; i < k; i++ {
		res, serr := scan.Scan(fieldTypes[i], elemV[off:], false)
		if serr != nil {
			return 0, false, serr
		}
		off += res.VConsumed
	}
	return off, true, nil
}
