//go:build unix

package dynarec

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const arenaSupported = true

// arena is an executable memory region holding native segments. Code is
// bump-allocated; released extents go to a free list reused first-fit.
// Pages are writable only while code is being copied in.
type arena struct {
	mem  []byte
	used int
	free []extent
}

func newArena(size int) (*arena, error) {
	pageSize := unix.Getpagesize()
	size = (size + pageSize - 1) &^ (pageSize - 1)

	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrap(err, "mapping code arena")
	}

	return &arena{mem: mem}, nil
}

// alloc copies code into the arena and returns its extent and entry address.
func (a *arena) alloc(code []byte) (extent, uintptr, error) {
	size := (len(code) + extentAlign - 1) &^ (extentAlign - 1)

	ext, ok := a.takeFree(size)
	if !ok {
		if a.used+size > len(a.mem) {
			return extent{}, 0, errArenaFull
		}
		ext = extent{off: a.used, size: size}
		a.used += size
	}

	if err := a.write(ext.off, code); err != nil {
		return extent{}, 0, err
	}

	return ext, a.addr(ext.off), nil
}

func (a *arena) takeFree(size int) (extent, bool) {
	for i, e := range a.free {
		if e.size < size {
			continue
		}
		a.free = append(a.free[:i], a.free[i+1:]...)
		if e.size > size {
			a.free = append(a.free, extent{off: e.off + size, size: e.size - size})
		}
		return extent{off: e.off, size: size}, true
	}
	return extent{}, false
}

func (a *arena) write(off int, code []byte) error {
	pageSize := unix.Getpagesize()
	lo := off &^ (pageSize - 1)
	hi := min((off+len(code)+pageSize-1)&^(pageSize-1), len(a.mem))
	pages := a.mem[lo:hi]

	if err := unix.Mprotect(pages, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return errors.Wrap(err, "unprotecting code arena")
	}
	copy(a.mem[off:], code)
	if err := unix.Mprotect(pages, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return errors.Wrap(err, "protecting code arena")
	}
	return nil
}

// release returns an extent to the free list.
func (a *arena) release(e extent) {
	if e.size == 0 {
		return
	}
	if e.off+e.size == a.used {
		a.used = e.off
		return
	}
	a.free = append(a.free, e)
}

// reset drops every allocation.
func (a *arena) reset() {
	a.used = 0
	a.free = a.free[:0]
}

// inUse returns the number of bytes held by live extents.
func (a *arena) inUse() int {
	n := a.used
	for _, e := range a.free {
		n -= e.size
	}
	return n
}

func (a *arena) close() error {
	if a.mem == nil {
		return nil
	}
	err := unix.Munmap(a.mem)
	a.mem = nil
	return errors.Wrap(err, "unmapping code arena")
}

func (a *arena) addr(off int) uintptr {
	return uintptr(unsafe.Pointer(&a.mem[off]))
}
