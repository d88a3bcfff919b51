//go:build unix

package arena

import "golang.org/x/sys/unix"

// newPage reserves an anonymous mmap region, falling back to a heap
// slice if the mapping is refused.
func newPage(size int) []byte {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return make([]byte, size)
	}
	return buf
}
