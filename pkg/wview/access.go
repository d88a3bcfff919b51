package wview

import (
	"github.com/ufser-go/ufser/internal/wire"
	"github.com/ufser-go/ufser/pkg/errval"
	"github.com/ufser-go/ufser/pkg/scan"
	"github.com/ufser-go/ufser/pkg/typestring"
)

// errRecFieldTypes are e's four fixed fields: kind, id, message, payload.
var errRecFieldTypes = [][]byte{[]byte("s"), []byte("s"), []byte("s"), []byte("a")}

// Child parses the i-th child lazily and memoizes it.
func (n *Node) Child(i int) (*Node, *errval.Error) {
	if c := n.findChild(i); c != nil {
		return c, nil
	}
	var c *Node
	var err *errval.Error
	switch n.TypeChar() {
	case typestring.Any:
		c, err = n.childAny(i)
	case typestring.Expect, typestring.ExpectV:
		c, err = n.childExpect(i)
	case typestring.Opt:
		c, err = n.childOpt(i)
	case typestring.ErrRec:
		c, err = n.childErrRec(i)
	case typestring.List:
		c, err = n.childListElem(i)
	case typestring.Map:
		c, err = n.childMapEntry(i)
	case typestring.Tuple:
		c, err = n.childTupleField(i)
	default:
		return nil, errval.APIErr("wview", "cannot index a non-container node")
	}
	if err != nil {
		return nil, err
	}
	n.insertChild(c)
	return c, nil
}

// initCursor splices an empty chunk in front of the value run on the
// first carve, so no child ever takes over the node's own vbegin chunk:
// elder siblings and the parent hold that chunk's identity, and the
// empty lead gives every later splice a live predecessor.
func (n *Node) initCursor() {
	if n.cursorPrev != nil {
		return
	}
	lead := emptyChunk(n.vbegin.sv, n.vbegin.off)
	lead.next = n.vbegin
	if n.vbeginPrev != nil {
		n.vbeginPrev.next = lead
	}
	n.vbegin = lead
	n.cursorPrev = lead
	n.cursor = lead.next
}

// uncarved returns the value bytes not yet carved into child spans.
func (n *Node) uncarved() []byte {
	n.initCursor()
	return runBytes(n.cursor, n.vend)
}

// carve hands out the next `length` value bytes as a chunk run
// [begin, end), splitting the final chunk when the boundary falls
// inside it, and advances the cursor past the run. prev is the chunk
// physically preceding begin. A zero-length carve splices in a fresh
// empty chunk so void children still own a chunk of their own.
func (n *Node) carve(length int) (begin, end, prev *chunk) {
	n.initCursor()
	prev = n.cursorPrev
	if length == 0 {
		empty := emptyChunk(prev.sv, prev.off+prev.length)
		empty.next = n.cursor
		prev.next = empty
		n.cursorPrev = empty
		return empty, n.cursor, prev
	}
	begin = n.cursor
	remaining := length
	for cur := begin; ; cur = cur.next {
		if remaining < cur.length {
			cur.split(remaining)
			remaining = 0
		} else {
			remaining -= cur.length
		}
		if remaining == 0 {
			n.cursorPrev = cur
			n.cursor = cur.next
			return begin, cur.next, prev
		}
	}
}

// rewindCursor restarts the lazy element walk after a structural edit:
// the cursor goes back to just past the count prefix (or the lead
// chunk), and the walk re-traverses existing chunk boundaries.
func (n *Node) rewindCursor() {
	n.nextIndex = 0
	switch {
	case n.countChunk != nil:
		n.cursorPrev = n.countChunk
		n.cursor = n.countChunk.next
	case n.cursorPrev != nil:
		n.cursorPrev = n.vbegin
		n.cursor = n.vbegin.next
	}
}

// standaloneType builds a fresh, unshared chunk holding fieldT's bytes.
// Every child's type is represented this way (l/m children share one
// such chunk per element, key or value type): a child's type string is
// already fully known from the grammar, so there is no type byte run to
// splice it out of — only the
// value needs chunk-splicing to avoid recopying untouched siblings.
// Type changes that must surface in an ancestor's bytes (a tuple's own
// descriptor, an `a` envelope's stored inner type) are written through
// by propagateChange instead.
func standaloneType(fieldT []byte) *chunk {
	sv := newSview(fieldT, nil)
	return newChunk(sv, 0, len(fieldT))
}

func childNode(parent *Node, index int, tc, vbegin, vend, vPrev *chunk) *Node {
	return &Node{
		parent:     parent,
		index:      index,
		tbegin:     tc,
		tend:       tc.next,
		vbegin:     vbegin,
		vend:       vend,
		vbeginPrev: vPrev,
		alloc:      parent.alloc,
	}
}

// childAny splits off the tlen/type/vlen/value quadruple carried inside
// an `a` node's own value bytes, keeping handles on all three envelope
// chunks for later length/type maintenance.
func (n *Node) childAny(i int) (*Node, *errval.Error) {
	if i != 0 {
		return nil, errval.APIErr("wview", "`a` has only one child, index 0")
	}
	raw := n.uncarved()
	tlen, n1, werr := wire.ReadU32(raw)
	if werr != nil {
		return nil, werr
	}
	innerT := append([]byte(nil), raw[n1:n1+int(tlen)]...)
	vlen, n2, werr := wire.ReadU32(raw[n1+int(tlen):])
	if werr != nil {
		return nil, werr
	}

	n.anyTLen, _, _ = n.carve(n1)
	n.anyTypeBytes, _, _ = n.carve(int(tlen))
	n.anyVLen, _, _ = n.carve(n2)
	vb, ve, vPrev := n.carve(int(vlen))

	return childNode(n, i, standaloneType(innerT), vb, ve, vPrev), nil
}

// childExpect handles both `x` and `X`: has-value=0 projects an `e`
// child; has-value=1 projects the wrapped T (for x) or void (for X).
func (n *Node) childExpect(i int) (*Node, *errval.Error) {
	if i != 0 {
		return nil, errval.APIErr("wview", "`x`/`X` has only one child, index 0")
	}
	has, n1, werr := wire.ReadBool(n.Value())
	if werr != nil {
		return nil, werr
	}
	if n.flagChunk == nil {
		n.flagChunk, _, _ = n.carve(n1)
	}

	var elemT []byte
	if !has {
		elemT = []byte("e")
	} else if n.TypeChar() == typestring.ExpectV {
		elemT = nil // a present X wraps void
	} else {
		children, cerr := typestring.Children(n.Type())
		if cerr != nil {
			return nil, cerr
		}
		elemT = children[0]
	}

	res, serr := scan.Scan(elemT, n.uncarved(), false)
	if serr != nil {
		return nil, serr
	}
	vb, ve, vPrev := n.carve(res.VConsumed)
	return childNode(n, i, standaloneType(elemT), vb, ve, vPrev), nil
}

// childOpt handles `o`: has-value=0 has no payload at all, so indexing
// it is an API error rather than a fabricated error record (an empty `o`
// genuinely carries no bytes beyond the flag).
func (n *Node) childOpt(i int) (*Node, *errval.Error) {
	if i != 0 {
		return nil, errval.APIErr("wview", "`o` has only one child, index 0")
	}
	has, n1, werr := wire.ReadBool(n.Value())
	if werr != nil {
		return nil, werr
	}
	if n.flagChunk == nil {
		n.flagChunk, _, _ = n.carve(n1)
	}
	if !has {
		return nil, errval.APIErr("wview", "cannot index an empty optional")
	}
	children, cerr := typestring.Children(n.Type())
	if cerr != nil {
		return nil, cerr
	}
	elemT := children[0]
	res, serr := scan.Scan(elemT, n.uncarved(), false)
	if serr != nil {
		return nil, serr
	}
	vb, ve, vPrev := n.carve(res.VConsumed)
	return childNode(n, i, standaloneType(elemT), vb, ve, vPrev), nil
}

// childErrRec projects e's four fixed fields: kind, id, message, payload.
func (n *Node) childErrRec(i int) (*Node, *errval.Error) {
	if i < 0 || i > 3 {
		return nil, errval.APIErr("wview", "`e` has exactly 4 fields, indices 0..3")
	}
	if i < n.nextIndex {
		// An earlier index was carved but never memoized; re-walk the
		// existing chunk boundaries from the top.
		n.rewindCursor()
	}
	for n.nextIndex <= i {
		ft := errRecFieldTypes[n.nextIndex]
		res, serr := scan.Scan(ft, n.uncarved(), false)
		if serr != nil {
			return nil, serr
		}
		vb, ve, vPrev := n.carve(res.VConsumed)
		idx := n.nextIndex
		n.nextIndex++
		if idx == i {
			return childNode(n, i, standaloneType(ft), vb, ve, vPrev), nil
		}
	}
	return nil, errval.APIErr("wview", "unreachable")
}

// ensureCountChunk carves the l/m element-count prefix off the front of
// the value run so Erase/InsertAfter can patch it in place.
func (n *Node) ensureCountChunk() *errval.Error {
	if n.countChunk != nil {
		return nil
	}
	_, n1, err := wire.ReadU32(n.uncarved())
	if err != nil {
		return err
	}
	n.countChunk, _, _ = n.carve(n1)
	return nil
}

func (n *Node) childListElem(i int) (*Node, *errval.Error) {
	children, cerr := typestring.Children(n.Type())
	if cerr != nil {
		return nil, cerr
	}
	elemT := children[0]
	count, _, werr := wire.ReadU32(n.Value())
	if werr != nil {
		return nil, werr
	}
	if i < 0 || i >= int(count) {
		return nil, errval.APIErr("wview", "list index out of range")
	}
	if err := n.ensureCountChunk(); err != nil {
		return nil, err
	}
	if i < n.nextIndex {
		// An earlier index was carved but never memoized; re-walk the
		// existing chunk boundaries from the top.
		n.rewindCursor()
	}
	for n.nextIndex <= i {
		res, serr := scan.Scan(elemT, n.uncarved(), false)
		if serr != nil {
			return nil, serr
		}
		vb, ve, vPrev := n.carve(res.VConsumed)
		idx := n.nextIndex
		n.nextIndex++
		if idx == i {
			if n.listElemT == nil {
				n.listElemT = standaloneType(elemT)
			}
			return childNode(n, i, n.listElemT, vb, ve, vPrev), nil
		}
	}
	return nil, errval.APIErr("wview", "unreachable")
}

// childMapEntry uses a flat doubled index: 2*k is the k-th entry's key,
// 2*k+1 is its value. Keys share one type chunk and values another.
func (n *Node) childMapEntry(i int) (*Node, *errval.Error) {
	children, cerr := typestring.Children(n.Type())
	if cerr != nil {
		return nil, cerr
	}
	keyT, valT := children[0], children[1]
	count, _, werr := wire.ReadU32(n.Value())
	if werr != nil {
		return nil, werr
	}
	if i < 0 || i >= int(count)*2 {
		return nil, errval.APIErr("wview", "map index out of range")
	}
	if err := n.ensureCountChunk(); err != nil {
		return nil, err
	}
	if i < n.nextIndex {
		// An earlier index was carved but never memoized; re-walk the
		// existing chunk boundaries from the top.
		n.rewindCursor()
	}
	for n.nextIndex <= i {
		isKey := n.nextIndex%2 == 0
		ft := valT
		if isKey {
			ft = keyT
		}
		res, serr := scan.Scan(ft, n.uncarved(), false)
		if serr != nil {
			return nil, serr
		}
		vb, ve, vPrev := n.carve(res.VConsumed)
		idx := n.nextIndex
		n.nextIndex++
		if idx == i {
			return childNode(n, i, n.sharedMapType(isKey, ft), vb, ve, vPrev), nil
		}
	}
	return nil, errval.APIErr("wview", "unreachable")
}

func (n *Node) sharedMapType(isKey bool, ft []byte) *chunk {
	if isKey {
		if n.mapKeyT == nil {
			n.mapKeyT = standaloneType(ft)
		}
		return n.mapKeyT
	}
	if n.mapValT == nil {
		n.mapValT = standaloneType(ft)
	}
	return n.mapValT
}

func (n *Node) childTupleField(i int) (*Node, *errval.Error) {
	fields, cerr := typestring.Children(n.Type())
	if cerr != nil {
		return nil, cerr
	}
	if i < 0 || i >= len(fields) {
		return nil, errval.APIErr("wview", "tuple index out of range")
	}
	if i < n.nextIndex {
		// An earlier index was carved but never memoized; re-walk the
		// existing chunk boundaries from the top.
		n.rewindCursor()
	}
	for n.nextIndex <= i {
		ft := fields[n.nextIndex]
		res, serr := scan.Scan(ft, n.uncarved(), false)
		if serr != nil {
			return nil, serr
		}
		vb, ve, vPrev := n.carve(res.VConsumed)
		idx := n.nextIndex
		n.nextIndex++
		if idx == i {
			return childNode(n, i, standaloneType(ft), vb, ve, vPrev), nil
		}
	}
	return nil, errval.APIErr("wview", "unreachable")
}
