// Package arena implements the process-global and per-goroutine
// monotonic allocators: 1 MiB pages, whole-arena reset, no individual
// free. A monotonic arena never decrements refcounts on release — bulk
// reclamation happens via Reset() instead.
package arena

import (
	"io"
	"log/slog"
	"sync"
)

// PageSize is the default page size: 1 MiB
const PageSize = 1 << 20

// log is silent by default; cmd/ufserctl wires in a real handler via
// SetLogger. Only page growth is logged — the engine packages stay pure.
var log = slog.New(slog.NewTextHandler(io.Discard, nil))

// SetLogger replaces the package logger. Pass nil to discard again.
func SetLogger(l *slog.Logger) {
	if l == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}
	log = l
}

// Allocator is the interface pkg/wview depends on; Arena implements it.
// A nil Allocator means "use the Go heap" throughout pkg/wview.
type Allocator interface {
	Alloc(n int) []byte
	Reset()
	Monotonic() bool
}

// Options configures an Arena.
type Options struct {
	// Monotonic marks the arena as never decrementing refcounts on
	// release; reclamation happens only via Reset(). Both variants this
	// package builds are monotonic — the field exists so Options stays
	// self-describing rather than implicitly true.
	Monotonic bool
	// PageSize overrides PageSize when positive.
	PageSize int
}

// DefaultOptions returns the 1 MiB monotonic configuration.
func DefaultOptions() Options {
	return Options{Monotonic: true, PageSize: PageSize}
}

type page struct {
	buf []byte
	off int
}

// Arena is a monotonic bump-pointer allocator over mmap-backed pages.
// A Global() arena is safe for concurrent use; one returned by
// NewPerGoroutine is not — it has no lock and must stay owned by a
// single goroutine.
type Arena struct {
	opts  Options
	mu    *sync.Mutex
	pages []*page
	cur   int
	stats Stats
}

// Stats reports bulk allocator counters, for instrumentation and tests.
type Stats struct {
	PagesGrown    int
	BytesReserved int64
	BytesUsed     int64
}

var (
	globalOnce  sync.Once
	globalArena *Arena
)

// Global returns the process-wide monotonic arena.
func Global() *Arena {
	globalOnce.Do(func() {
		globalArena = newArena(DefaultOptions(), &sync.Mutex{})
	})
	return globalArena
}

// NewPerGoroutine returns an unshared monotonic arena for a single
// goroutine's exclusive use. Go has no native thread-local storage, so
// the per-thread variant is an arena the caller owns and never shares.
func NewPerGoroutine() *Arena {
	return NewPerGoroutineWithOptions(DefaultOptions())
}

// NewPerGoroutineWithOptions is NewPerGoroutine with explicit Options.
func NewPerGoroutineWithOptions(opts Options) *Arena {
	return newArena(opts, nil)
}

func newArena(opts Options, mu *sync.Mutex) *Arena {
	if opts.PageSize <= 0 {
		opts.PageSize = PageSize
	}
	return &Arena{opts: opts, mu: mu}
}

// Monotonic reports whether this arena disables individual refcount
// decrement in favor of bulk reclamation via Reset().
func (a *Arena) Monotonic() bool {
	return a.opts.Monotonic
}

// Alloc returns an n-byte slice carved from the current page, growing by
// a new page when the current one has no room. The returned slice is
// valid until the next Reset.
func (a *Arena) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	if a.mu != nil {
		a.mu.Lock()
		defer a.mu.Unlock()
	}
	for a.cur < len(a.pages) {
		p := a.pages[a.cur]
		if p.off+n <= len(p.buf) {
			b := p.buf[p.off : p.off+n]
			p.off += n
			a.stats.BytesUsed += int64(n)
			return b
		}
		a.cur++
	}
	a.grow(n)
	p := a.pages[a.cur]
	b := p.buf[p.off : p.off+n]
	p.off += n
	a.stats.BytesUsed += int64(n)
	return b
}

func (a *Arena) grow(n int) {
	size := a.opts.PageSize
	if n > size {
		size = n
	}
	a.pages = append(a.pages, &page{buf: newPage(size)})
	a.cur = len(a.pages) - 1
	a.stats.PagesGrown++
	a.stats.BytesReserved += int64(size)
	log.Debug("arena page grown", "size", size, "pages", len(a.pages))
}

// Reset reclaims every page in bulk, invalidating every slice previously
// returned by Alloc. Pages are kept and their offsets rewound, so a
// Reset arena reuses its existing mmap'd pages instead of remapping.
func (a *Arena) Reset() {
	if a.mu != nil {
		a.mu.Lock()
		defer a.mu.Unlock()
	}
	for _, p := range a.pages {
		p.off = 0
	}
	a.cur = 0
	a.stats.BytesUsed = 0
}

// StatsSnapshot returns a copy of the arena's current counters.
func (a *Arena) StatsSnapshot() Stats {
	if a.mu != nil {
		a.mu.Lock()
		defer a.mu.Unlock()
	}
	return a.stats
}
