package wview

import (
	"bytes"
	"encoding/binary"
	"strconv"

	"github.com/ufser-go/ufser/pkg/errval"
	"github.com/ufser-go/ufser/pkg/scan"
	"github.com/ufser-go/ufser/pkg/typestring"
)

// Set replaces n's own (T, V) in place, splicing fresh chunks into
// whatever chain n's old chunks were part of. The parent's allow-child
// policy gates any type change; an allowed change is written through to
// every ancestor whose own bytes mention this node's type (an enclosing
// tuple's descriptor, an `a` envelope's stored inner type and lengths,
// an x/X has-value flag).
func (n *Node) Set(newT, newV []byte) *errval.Error {
	if err := scan.ScanFull(newT, newV, true); err != nil {
		return err
	}
	oldT := append([]byte(nil), n.Type()...)
	if err := checkTypeChange(n.parent, n.index, oldT, newT); err != nil {
		return err
	}
	oldVLen := runLen(n.vbegin, n.vend)
	oldFirst := n.vbegin
	oldLast := lastChunk(n.vbegin, n.vend)

	n.disownChildren()

	if !bytes.Equal(oldT, newT) {
		n.replaceTypeRun(newT)
	}
	n.replaceValueRun(newV)
	n.repairAfterReplace(oldFirst, oldLast)

	propagateChange(n, oldT, newT, len(newT)-len(oldT), len(newV)-oldVLen)
	return nil
}

// SetFrom is Set taking another wview's current content.
func (n *Node) SetFrom(other *Node) *errval.Error {
	return n.Set(other.Type(), other.Value())
}

// replaceTypeRun swaps n's own type chunk for a fresh standalone one.
// A node's type run is never spliced out of a byte run shared with
// siblings (see standaloneType), so only n's own tbegin/tend change;
// ancestors that surface the type in their own bytes are patched by
// propagateChange.
func (n *Node) replaceTypeRun(newT []byte) {
	newSv := allocSview(newT, n.alloc)
	newC := newChunk(newSv, 0, len(newT))
	newC.next = n.tend
	old := n.tbegin
	n.tbegin = newC
	freeRun(old, n.tend)
	n.tend = newC.next
}

func (n *Node) replaceValueRun(newV []byte) {
	newSv := allocSview(newV, n.alloc)
	newC := newChunk(newSv, 0, len(newV))
	newC.next = n.vend
	old := n.vbegin
	if n.vbeginPrev != nil {
		n.vbeginPrev.next = newC
	} else if n.parent != nil {
		n.parent.vbegin = newC
	}
	n.vbegin = newC
	freeRun(old, n.vend)
}

// repairAfterReplace fixes every live pointer that named a chunk of n's
// old value run: carve cursors and sibling predecessor links all the
// way up the tree, and the previous sibling subtree's end boundaries.
func (n *Node) repairAfterReplace(oldFirst, oldLast *chunk) {
	p := n.parent
	if p == nil {
		return
	}
	if prevSib := p.findChild(n.index - 1); prevSib != nil {
		fixVendBoundary(prevSib, oldFirst, n.vbegin)
	}
	repairAncestorRefs(n, oldFirst, n.vbegin, oldLast, n.vbegin)
}

// repairAncestorRefs walks the ancestor chain remapping carve cursors
// and next-sibling predecessor links that named a chunk at a mutated
// seam. Two remappings are applied: oldFirst -> newFirst for
// begin-of-span references and oldLast -> newLast for
// end-of-preceding-span references. An ancestor can hold such a
// reference when the mutated span was the physical head or tail of
// every level below it.
func repairAncestorRefs(child *Node, oldFirst, newFirst, oldLast, newLast *chunk) {
	for p := child.parent; p != nil; p, child = p.parent, p {
		if p.cursorPrev == oldLast {
			p.cursorPrev = newLast
		}
		if p.cursor == oldFirst {
			p.cursor = newFirst
		}
		if next := p.findChild(child.index + 1); next != nil && next.vbeginPrev == oldLast {
			next.vbeginPrev = newLast
		}
	}
}

// fixVendBoundary rewrites the end-boundary pointer of root and of its
// trailing descendants wherever it named oldBoundary — the subtree that
// physically ends where the replaced run began.
func fixVendBoundary(root *Node, oldBoundary, newBoundary *chunk) {
	for cur := root; cur != nil; {
		if cur.vend == oldBoundary {
			cur.vend = newBoundary
		}
		if len(cur.children) == 0 {
			return
		}
		cur = cur.children[len(cur.children)-1]
	}
}

// propagateChange walks from child upward after child's flattened
// (T, V) changed by (dtlen, dvlen) bytes, rewriting each ancestor's own
// bytes where they depend on the child: a tuple's descriptor absorbs
// the new field type, an `a` envelope rewrites its stored inner type
// and both length fields (above the `a`, a type delta becomes a value
// delta, since the envelope carries the type inside its value), and an
// x/X flips its has-value flag when the child switches between payload
// and error record.
func propagateChange(child *Node, oldT, newT []byte, dtlen, dvlen int) {
	for {
		parent := child.parent
		if parent == nil {
			return
		}
		typeChanged := !bytes.Equal(oldT, newT)
		if !typeChanged && dtlen == 0 && dvlen == 0 {
			return
		}
		switch parent.TypeChar() {
		case typestring.Any:
			if typeChanged && parent.anyTypeBytes != nil {
				parent.replaceAnyTypeBytes(newT)
			}
			if dtlen != 0 && parent.anyTLen != nil {
				patchU32(parent.anyTLen, dtlen)
			}
			if dvlen != 0 && parent.anyVLen != nil {
				patchU32(parent.anyVLen, dvlen)
			}
			pt := parent.Type()
			oldT, newT = pt, pt
			dtlen, dvlen = 0, dtlen+dvlen
		case typestring.Tuple:
			if typeChanged {
				oldPT := append([]byte(nil), parent.Type()...)
				fields, cerr := typestring.Children(oldPT)
				if cerr != nil {
					return
				}
				fields[child.index] = newT
				newPT := rebuildTupleType(fields)
				parent.replaceTypeRun(newPT)
				oldT, newT = oldPT, newPT
				dtlen = len(newPT) - len(oldPT)
			} else {
				pt := parent.Type()
				oldT, newT = pt, pt
				dtlen = 0
			}
		case typestring.Expect, typestring.ExpectV:
			if typeChanged && parent.flagChunk != nil {
				parent.syncExpectFlag(newT)
			}
			pt := parent.Type()
			oldT, newT = pt, pt
			dtlen = 0
		default:
			pt := parent.Type()
			oldT, newT = pt, pt
			dtlen = 0
		}
		child = parent
	}
}

// syncExpectFlag sets an x/X node's has-value byte from its child's
// current type: an error record means has-value=0, the payload type
// means 1. An `x` whose payload type is itself `e` is left alone — the
// two states are indistinguishable from the type.
func (n *Node) syncExpectFlag(childT []byte) {
	isErr := len(childT) == 1 && typestring.Char(childT[0]) == typestring.ErrRec
	if n.TypeChar() == typestring.Expect {
		children, cerr := typestring.Children(n.Type())
		if cerr != nil || (len(children) == 1 && bytes.Equal(children[0], []byte("e"))) {
			return
		}
	}
	patchFlag(n.flagChunk, !isErr)
}

// replaceAnyTypeBytes swaps the inner-type bytes stored inside an `a`
// node's value for newT. The envelope's chunk layout pins the type run
// between anyTLen and anyVLen.
func (n *Node) replaceAnyTypeBytes(newT []byte) {
	sv := allocSview(newT, n.alloc)
	c := newChunk(sv, 0, len(newT))
	c.next = n.anyVLen
	n.anyTLen.next = c
	freeRun(n.anyTypeBytes, n.anyVLen)
	n.anyTypeBytes = c
}

// patchU32 adds delta to the little-endian u32 stored in c, cloning c's
// backing sview first if it is not safely writable in place.
func patchU32(c *chunk, delta int) {
	sv, off := c.sv.unshare(c.off, c.length)
	if sv != c.sv {
		c.sv.release()
		c.sv = sv
		c.off = off
	}
	cur := binary.LittleEndian.Uint32(sv.buf[c.off : c.off+4])
	binary.LittleEndian.PutUint32(sv.buf[c.off:c.off+4], uint32(int64(int32(cur))+int64(delta)))
}

// patchFlag rewrites the single has-value byte held by c.
func patchFlag(c *chunk, has bool) {
	sv, off := c.sv.unshare(c.off, c.length)
	if sv != c.sv {
		c.sv.release()
		c.sv = sv
		c.off = off
	}
	b := byte(0)
	if has {
		b = 1
	}
	sv.buf[c.off] = b
}

func rebuildTupleType(fields [][]byte) []byte {
	out := append([]byte{byte(typestring.Tuple)}, strconv.Itoa(len(fields))...)
	for _, f := range fields {
		out = append(out, f...)
	}
	return out
}

// Erase removes child i: for a list or map it drops the element (for a
// map, i must be even and removes the entire key/value pair), for a
// tuple it drops field i and renames the arity, and for an optional it
// clears the has-value flag.
func (n *Node) Erase(i int) *errval.Error {
	switch n.TypeChar() {
	case typestring.List:
		return n.eraseListElem(i)
	case typestring.Map:
		if i%2 != 0 {
			return errval.APIErr("wview", "map erase index must address a pair's key slot")
		}
		return n.eraseMapPair(i)
	case typestring.Tuple:
		return n.eraseTupleField(i)
	case typestring.Opt:
		return n.eraseOptional(i)
	default:
		return errval.APIErr("wview", "erase is not defined for this node's type")
	}
}

func (n *Node) eraseListElem(i int) *errval.Error {
	if _, err := n.Child(i); err != nil {
		return err
	}
	child := n.findChild(i)
	removedLen := n.spliceOutChildSpan(child, child)
	n.shiftChildrenAfterErase(i, 1)
	patchU32(n.countChunk, -1)
	n.rewindCursor()
	propagateChange(n, n.Type(), n.Type(), 0, -removedLen)
	return nil
}

func (n *Node) eraseMapPair(i int) *errval.Error {
	if _, err := n.Child(i); err != nil {
		return err
	}
	if _, err := n.Child(i + 1); err != nil {
		return err
	}
	keyChild := n.findChild(i)
	valChild := n.findChild(i + 1)
	removedLen := n.spliceOutChildSpan(keyChild, valChild)
	n.shiftChildrenAfterErase(i, 2)
	patchU32(n.countChunk, -1)
	n.rewindCursor()
	propagateChange(n, n.Type(), n.Type(), 0, -removedLen)
	return nil
}

func (n *Node) eraseTupleField(i int) *errval.Error {
	fields, cerr := typestring.Children(n.Type())
	if cerr != nil {
		return cerr
	}
	if len(fields) <= 2 {
		return errval.APIErr("wview", "a tuple cannot drop below 2 elements")
	}
	if i < 0 || i >= len(fields) {
		return errval.APIErr("wview", "tuple index out of range")
	}
	oldT := append([]byte(nil), n.Type()...)
	newT := rebuildTupleType(append(fields[:i:i], fields[i+1:]...))
	if err := checkTypeChange(n.parent, n.index, oldT, newT); err != nil {
		return err
	}
	if _, err := n.Child(i); err != nil {
		return err
	}
	child := n.findChild(i)
	removedLen := n.spliceOutChildSpan(child, child)
	n.shiftChildrenAfterErase(i, 1)
	n.replaceTypeRun(newT)
	n.rewindCursor()
	propagateChange(n, oldT, newT, len(newT)-len(oldT), -removedLen)
	return nil
}

// eraseOptional clears an optional's has-value flag and drops its
// payload bytes. Erasing an already-empty optional is a no-op.
func (n *Node) eraseOptional(i int) *errval.Error {
	if i != 0 {
		return errval.APIErr("wview", "`o` erase only addresses index 0")
	}
	has := n.Size() > 0 && n.Value()[0] != 0
	if !has {
		return nil
	}
	if _, err := n.Child(0); err != nil {
		return err
	}
	child := n.findChild(0)
	removedLen := n.spliceOutChildSpan(child, child)
	n.shiftChildrenAfterErase(0, 1)
	patchFlag(n.flagChunk, false)
	n.cursorPrev = n.flagChunk
	n.cursor = n.flagChunk.next
	propagateChange(n, n.Type(), n.Type(), 0, -removedLen)
	return nil
}

// spliceOutChildSpan removes the value span covered by children
// [first, last] from n's chain, repairing neighbor boundaries, and
// returns how many bytes it dropped.
func (n *Node) spliceOutChildSpan(first, last *Node) int {
	begin := first.vbegin
	end := last.vend
	prev := first.vbeginPrev
	oldLast := lastChunk(last.vbegin, last.vend)
	removed := runLen(begin, end)

	if prev != nil {
		prev.next = end
	} else {
		n.vbegin = end
	}
	if prevSib := n.findChild(first.index - 1); prevSib != nil {
		fixVendBoundary(prevSib, begin, end)
	}
	if nextSib := n.findChild(last.index + 1); nextSib != nil && nextSib.vbeginPrev == oldLast {
		nextSib.vbeginPrev = prev
	}
	repairAncestorRefs(first, begin, end, oldLast, prev)
	freeRun(begin, end)
	return removed
}

// shiftChildrenAfterErase detaches the removed child(ren) at
// [at, at+removedCount) and reindexes every later child down by
// removedCount.
func (n *Node) shiftChildrenAfterErase(at, removedCount int) {
	kept := n.children[:0]
	for _, c := range n.children {
		switch {
		case c.index < at:
			kept = append(kept, c)
		case c.index < at+removedCount:
			c.detach()
		default:
			c.index -= removedCount
			kept = append(kept, c)
		}
	}
	n.children = kept
}

// InsertAfter inserts a new element with value elemV immediately after
// index i (i == -1 prepends before the first element). For a list,
// elemV must already be serialized against the list's element type. For
// a map, elemV is the entry's value and keyV supplies the paired key;
// both are validated against the map's key/value types. Tuples take
// InsertFieldAfter instead, since a new field also carries a type.
func (n *Node) InsertAfter(i int, elemV []byte, keyV []byte) *errval.Error {
	switch n.TypeChar() {
	case typestring.List:
		return n.insertListElemAfter(i, elemV)
	case typestring.Map:
		return n.insertMapPairAfter(i, keyV, elemV)
	default:
		return errval.APIErr("wview", "insert_after is only defined for l/m containers")
	}
}

// insertionPoint resolves where a new element's chunks go: prev is the
// chunk to link from, boundary the chunk the new run must point at, and
// anchor the materialized child (nil when prepending) whose trailing
// boundaries must move to the new run.
func (n *Node) insertionPoint(i int) (prev, boundary *chunk, anchor *Node, err *errval.Error) {
	if i == -1 {
		if cerr := n.ensureCountChunk(); cerr != nil {
			return nil, nil, nil, cerr
		}
		return n.countChunk, n.countChunk.next, nil, nil
	}
	if _, cerr := n.Child(i); cerr != nil {
		return nil, nil, nil, cerr
	}
	child := n.findChild(i)
	return lastChunk(child.vbegin, child.vend), child.vend, child, nil
}

// spliceInRun links the chunk run [first..last] between prev and
// boundary and repairs the neighbors that referenced the old seam:
// the anchor subtree's end boundaries move onto the inserted run, and
// anything that knew "prev is the chunk just before boundary" — a
// sibling's predecessor link, a carve cursor, at any level — now names
// last instead.
func (n *Node) spliceInRun(first, last, prev, boundary *chunk, anchor *Node) {
	last.next = boundary
	prev.next = first
	if anchor != nil {
		fixVendBoundary(anchor, boundary, first)
	}
	for _, c := range n.children {
		if c.vbegin == boundary && c.vbeginPrev == prev {
			c.vbeginPrev = last
		}
	}
	for p, child := n.parent, n; p != nil; p, child = p.parent, p {
		if p.cursorPrev == prev && p.cursor == boundary {
			p.cursorPrev = last
		}
		if next := p.findChild(child.index + 1); next != nil && next.vbeginPrev == prev && next.vbegin == boundary {
			next.vbeginPrev = last
		}
	}
}

func (n *Node) insertListElemAfter(i int, elemV []byte) *errval.Error {
	children, cerr := typestring.Children(n.Type())
	if cerr != nil {
		return cerr
	}
	if serr := scan.ScanFull(children[0], elemV, true); serr != nil {
		return serr
	}
	prev, boundary, anchor, err := n.insertionPoint(i)
	if err != nil {
		return err
	}

	newSv := allocSview(elemV, n.alloc)
	newC := newChunk(newSv, 0, len(elemV))
	n.spliceInRun(newC, newC, prev, boundary, anchor)

	n.shiftChildrenAfterInsert(i, 1)
	patchU32(n.countChunk, 1)
	n.rewindCursor()
	propagateChange(n, n.Type(), n.Type(), 0, len(elemV))
	return nil
}

func (n *Node) insertMapPairAfter(i int, keyV, valV []byte) *errval.Error {
	if i != -1 && i%2 != 0 {
		return errval.APIErr("wview", "map insert index must address a pair's key slot")
	}
	children, cerr := typestring.Children(n.Type())
	if cerr != nil {
		return cerr
	}
	if serr := scan.ScanFull(children[0], keyV, true); serr != nil {
		return serr
	}
	if serr := scan.ScanFull(children[1], valV, true); serr != nil {
		return serr
	}
	anchorIdx := i
	if i != -1 {
		anchorIdx = i + 1 // the pair's value slot is the physical end
	}
	prev, boundary, anchor, err := n.insertionPoint(anchorIdx)
	if err != nil {
		return err
	}

	keyC := newChunk(allocSview(keyV, n.alloc), 0, len(keyV))
	valC := newChunk(allocSview(valV, n.alloc), 0, len(valV))
	keyC.next = valC
	n.spliceInRun(keyC, valC, prev, boundary, anchor)

	n.shiftChildrenAfterInsert(anchorIdx, 2)
	patchU32(n.countChunk, 1)
	n.rewindCursor()
	propagateChange(n, n.Type(), n.Type(), 0, len(keyV)+len(valV))
	return nil
}

// InsertFieldAfter grows a tuple by one field, splicing (fieldT,
// fieldV) in immediately after field i (i == -1 prepends) and renaming
// the arity. The widened tuple type must be acceptable to the parent.
func (n *Node) InsertFieldAfter(i int, fieldT, fieldV []byte) *errval.Error {
	if n.TypeChar() != typestring.Tuple {
		return errval.APIErr("wview", "insert_field_after is only defined for tuples")
	}
	if len(fieldT) == 0 {
		return errval.APIErr("wview", "tuple fields cannot be void")
	}
	if serr := scan.ScanFull(fieldT, fieldV, true); serr != nil {
		return serr
	}
	fields, cerr := typestring.Children(n.Type())
	if cerr != nil {
		return cerr
	}
	if i < -1 || i >= len(fields) {
		return errval.APIErr("wview", "tuple index out of range")
	}
	oldT := append([]byte(nil), n.Type()...)
	newFields := make([][]byte, 0, len(fields)+1)
	newFields = append(newFields, fields[:i+1]...)
	newFields = append(newFields, fieldT)
	newFields = append(newFields, fields[i+1:]...)
	newT := rebuildTupleType(newFields)
	if err := checkTypeChange(n.parent, n.index, oldT, newT); err != nil {
		return err
	}

	var prev, boundary *chunk
	var anchor *Node
	if i == -1 {
		n.initCursor()
		prev = n.vbegin // the lead chunk
		boundary = prev.next
	} else {
		var err *errval.Error
		prev, boundary, anchor, err = n.insertionPoint(i)
		if err != nil {
			return err
		}
	}

	newC := newChunk(allocSview(fieldV, n.alloc), 0, len(fieldV))
	n.spliceInRun(newC, newC, prev, boundary, anchor)

	n.shiftChildrenAfterInsert(i, 1)
	n.replaceTypeRun(newT)
	n.rewindCursor()
	propagateChange(n, oldT, newT, len(newT)-len(oldT), len(fieldV))
	return nil
}

// shiftChildrenAfterInsert bumps every already-materialized child past
// the insertion point up by insertedCount.
func (n *Node) shiftChildrenAfterInsert(after, insertedCount int) {
	for _, c := range n.children {
		if c.index > after {
			c.index += insertedCount
		}
	}
}

// SwapContentWith exchanges n's and other's (T, V) in place. Neither
// node may be an ancestor of the other, and each side's new content
// must pass its own parent's allow-child policy.
func (n *Node) SwapContentWith(other *Node) *errval.Error {
	if n.isAncestorOf(other) || other.isAncestorOf(n) {
		return errval.APIErr("wview", "cannot swap a node with its own ancestor or descendant")
	}
	nT, nV := append([]byte(nil), n.Type()...), append([]byte(nil), n.Value()...)
	oT, oV := append([]byte(nil), other.Type()...), append([]byte(nil), other.Value()...)
	if err := n.Set(oT, oV); err != nil {
		return err
	}
	if err := other.Set(nT, nV); err != nil {
		// Best-effort rollback: restore n to its original content.
		_ = n.Set(nT, nV)
		return err
	}
	return nil
}
