// Package wview implements the chunked, refcounted, copy-on-write tree
// overlay: a writable view onto a
// serialized (T, V) pair supporting lazy indexed access and in-place
// structural edits without recopying untouched siblings.
package wview

import (
	"sync/atomic"

	"github.com/ufser-go/ufser/pkg/arena"
)

// sview is a refcounted, possibly writable byte buffer — the storage
// shared by one or more chunks. Once its refcount has ever exceeded 1 it
// is frozen read-only forever; writers must clone before
// mutating a frozen sview.
type sview struct {
	buf    []byte
	refs   atomic.Int32
	frozen atomic.Bool
	owner  arena.Allocator // nil means heap-backed
}

// newSview creates an sview with no references yet; each chunk built
// over it via newChunk adds its own reference.
func newSview(buf []byte, owner arena.Allocator) *sview {
	return &sview{buf: buf, owner: owner}
}

// allocSview copies n bytes into a fresh buffer drawn from the given
// allocator (or the Go heap when alloc is nil).
func allocSview(data []byte, alloc arena.Allocator) *sview {
	var buf []byte
	if alloc != nil {
		buf = alloc.Alloc(len(data))
	} else {
		buf = make([]byte, len(data))
	}
	copy(buf, data)
	return newSview(buf, alloc)
}

func (s *sview) addRef() *sview {
	if s.refs.Add(1) > 1 {
		s.frozen.Store(true)
	}
	return s
}

// release drops a reference. Monotonic arenas disable the decrement —
// storage is reclaimed in bulk by arena.Reset()
func (s *sview) release() {
	if s.owner != nil && s.owner.Monotonic() {
		return
	}
	s.refs.Add(-1)
}

func (s *sview) writable() bool {
	return s.owner == nil && !s.frozen.Load()
}

// unshare returns an sview the caller may safely mutate covering
// data[off:off+length]: the receiver itself when still writable and
// heap-backed, otherwise a fresh clone. Arena-backed sviews are always
// cloned onto the heap since arena pages are never individually reused.
func (s *sview) unshare(off, length int) (*sview, int) {
	if s.writable() {
		return s, off
	}
	return allocSview(s.buf[off:off+length], nil), 0
}
