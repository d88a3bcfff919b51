package wview

import (
	"github.com/ufser-go/ufser/pkg/anyval"
	"github.com/ufser-go/ufser/pkg/arena"
	"github.com/ufser-go/ufser/pkg/binding"
	"github.com/ufser-go/ufser/pkg/convert"
	"github.com/ufser-go/ufser/pkg/errval"
	"github.com/ufser-go/ufser/pkg/printer"
	"github.com/ufser-go/ufser/pkg/scan"
	"github.com/ufser-go/ufser/pkg/typestring"
)

// Node is one node of a wview tree: a lazily-parsed (T, V) pair backed
// by chunked, possibly-shared byte storage. The zero Node is not valid;
// construct one with New or NewFromOwned.
type Node struct {
	parent *Node
	index  int

	tbegin, tend *chunk

	vbegin, vend *chunk
	vbeginPrev   *chunk

	children []*Node // sparse, sorted by index

	// cursor/cursorPrev track how far the value run has been carved
	// into child spans. cursorPrev is nil until the first carve; after
	// that it is the chunk physically preceding cursor, so splices
	// always have a live predecessor to relink from.
	cursor     *chunk
	cursorPrev *chunk
	nextIndex  int // next not-yet-carved child index

	listElemT *chunk // l: the single type chunk shared by every element
	mapKeyT   *chunk // m: shared by every key
	mapValT   *chunk // m: shared by every value

	// anyTLen/anyTypeBytes/anyVLen are an `a` node's own envelope
	// chunks: the two u32 length fields patched whenever a descendant's
	// flattened type/value length changes, and the inner-type bytes
	// rewritten when the child's type changes outright.
	anyTLen      *chunk
	anyTypeBytes *chunk
	anyVLen      *chunk

	// flagChunk is an o/x/X node's has-value byte, flipped when an
	// x/X child switches between its payload type and an error record,
	// or when an optional is erased.
	flagChunk *chunk

	// countChunk is the l/m node's own element-count prefix chunk,
	// patched by Erase/InsertAfter.
	countChunk *chunk

	alloc arena.Allocator
}

// New builds a root wview over a validated (T, V) pair. The caller
// retains ownership of t and v's backing arrays; Node treats them as
// borrowed until the first mutation forces a clone.
func New(t, v []byte) (*Node, *errval.Error) {
	return NewWithAllocator(t, v, nil)
}

// NewWithAllocator is New, drawing the storage for bytes written by later
// edits (Set, InsertAfter, InsertFieldAfter and the type rewrites they
// cause) from alloc (nil means the Go heap). The copies made when a
// length prefix or has-value flag is patched in shared storage always
// come from the Go heap.
func NewWithAllocator(t, v []byte, alloc arena.Allocator) (*Node, *errval.Error) {
	if err := scan.ScanFull(t, v, true); err != nil {
		return nil, err
	}
	tsv := newSview(t, nil)
	vsv := newSview(v, nil)
	n := &Node{
		tbegin: newChunk(tsv, 0, len(t)),
		vbegin: newChunk(vsv, 0, len(v)),
		alloc:  alloc,
		index:  -1,
	}
	return n, nil
}

// NewFromOwned builds a root wview over an owned any-value.
func NewFromOwned(o anyval.Owned) (*Node, *errval.Error) {
	return New([]byte(o.Type), o.Value)
}

// NewFromHostValue serializes a Go value via pkg/binding and builds a
// root wview over the result.
func NewFromHostValue(v any) (*Node, *errval.Error) {
	t, val, err := binding.Encode(v)
	if err != nil {
		return nil, err
	}
	return New(t, val)
}

// Type returns this node's type descriptor bytes.
func (n *Node) Type() []byte {
	return runBytes(n.tbegin, n.tend)
}

// Value returns this node's value bytes.
func (n *Node) Value() []byte {
	return runBytes(n.vbegin, n.vend)
}

// TypeChar returns the leading token of this node's type, or 0 for void.
func (n *Node) TypeChar() typestring.Char {
	t := n.Type()
	if len(t) == 0 {
		return 0
	}
	return typestring.Char(t[0])
}

// Size returns the byte length of this node's value.
func (n *Node) Size() int {
	return runLen(n.vbegin, n.vend)
}

// IsVoid reports whether this node carries no type (the engine's void).
func (n *Node) IsVoid() bool {
	return runLen(n.tbegin, n.tend) == 0
}

// GetAs converts this node's (T, V) to targetT under policy, collecting
// unplaceable errors into errSink when one is provided.
func (n *Node) GetAs(targetT []byte, policy convert.Policy, errSink *errval.Sink) ([]byte, *errval.Error) {
	return convert.Convert(n.Type(), n.Value(), targetT, policy, errSink)
}

// AsAny wraps this node's (T, V) into an `a`-typed envelope.
func (n *Node) AsAny() ([]byte, *errval.Error) {
	return convert.Convert(n.Type(), n.Value(), []byte("a"), convert.Any, nil)
}

// AsString renders this node in the printer's native form.
func (n *Node) AsString() (string, *errval.Error) {
	return printer.Print(n.Type(), n.Value(), printer.Options{Format: printer.Native})
}

// Parent returns the node's parent, or nil for a detached/root node.
func (n *Node) Parent() *Node { return n.parent }

// Index returns this node's index within its parent's children, or -1
// for a detached/root node.
func (n *Node) Index() int { return n.index }

func (n *Node) findChild(i int) *Node {
	lo, hi := 0, len(n.children)
	for lo < hi {
		mid := (lo + hi) / 2
		if n.children[mid].index < i {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(n.children) && n.children[lo].index == i {
		return n.children[lo]
	}
	return nil
}

func (n *Node) insertChild(c *Node) {
	lo, hi := 0, len(n.children)
	for lo < hi {
		mid := (lo + hi) / 2
		if n.children[mid].index < c.index {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	n.children = append(n.children, nil)
	copy(n.children[lo+1:], n.children[lo:])
	n.children[lo] = c
}

// isAncestorOf reports whether n lies on other's parent chain
// (including n == other).
func (n *Node) isAncestorOf(other *Node) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
	}
	return false
}

// disownChildren detaches every parsed child: future edits on an
// already-fetched child handle no longer propagate once this node
// itself has been mutated out from under them.
func (n *Node) disownChildren() {
	for _, c := range n.children {
		c.detach()
	}
	n.children = nil
	n.resetParseState()
}

// resetParseState forgets all carve bookkeeping; the node's value run
// itself is left alone.
func (n *Node) resetParseState() {
	n.cursor = nil
	n.cursorPrev = nil
	n.nextIndex = 0
	n.listElemT = nil
	n.mapKeyT = nil
	n.mapValT = nil
	n.countChunk = nil
	n.anyTLen = nil
	n.anyTypeBytes = nil
	n.anyVLen = nil
	n.flagChunk = nil
}

// detach severs a child from the shared chunk chain: its (T, V) bytes
// are snapshotted into private storage, so later edits through the
// detached handle cannot reach the tree it was parsed out of. The
// detachment recurses, leaving every already-parsed descendant an
// independent root of its own.
func (n *Node) detach() {
	for _, c := range n.children {
		c.detach()
	}
	n.children = nil

	t := append([]byte(nil), n.Type()...)
	v := append([]byte(nil), n.Value()...)
	tsv := newSview(t, nil)
	vsv := newSview(v, nil)
	n.tbegin, n.tend = newChunk(tsv, 0, len(t)), nil
	n.vbegin, n.vend = newChunk(vsv, 0, len(v)), nil
	n.vbeginPrev = nil
	n.parent = nil
	n.index = -1
	n.resetParseState()
}
