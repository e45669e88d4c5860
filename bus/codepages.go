package bus

import "math/bits"

const (
	pageShift = 12
	numPages  = 1 << (32 - pageShift)
)

// codePages marks 4 KiB physical pages that hold decoded or translated
// code.
type codePages []uint64

func newCodePages() codePages {
	return make(codePages, numPages/64)
}

func (p codePages) marked(page uint32) bool {
	return p[page>>6]&(1<<(page&63)) != 0
}

func (p codePages) mark(page uint32) {
	p[page>>6] |= 1 << (page & 63)
}

func (p codePages) clear(page uint32) {
	p[page>>6] &^= 1 << (page & 63)
}

func (p codePages) count() int {
	n := 0
	for _, w := range p {
		n += bits.OnesCount64(w)
	}
	return n
}

// TrackCode marks the page holding addr. The next write to the page
// notifies every hook registered with OnCodeWrite, after which the mark
// is dropped until the page is tracked again.
func (b *Bus) TrackCode(addr uint32) {
	b.codePages.mark(addr >> pageShift)
}

// Tracked reports whether the page holding addr is marked.
func (b *Bus) Tracked(addr uint32) bool {
	return b.codePages.marked(addr >> pageShift)
}

// TrackedPages returns the number of marked pages.
func (b *Bus) TrackedPages() int {
	return b.codePages.count()
}

// OnCodeWrite registers a hook called with the address and size of every
// write that lands on a tracked page, before the write takes effect. The
// page is untracked afterwards, so a hook must drop everything it derived
// from the whole page.
func (b *Bus) OnCodeWrite(hook func(addr, size uint32)) {
	b.hooks = append(b.hooks, hook)
}

func (b *Bus) noteWrite(addr, size uint32) {
	page := addr >> pageShift
	if !b.codePages.marked(page) {
		return
	}
	for _, h := range b.hooks {
		h(addr, size)
	}
	b.codePages.clear(page)
}

// noteRange notifies the hooks once per tracked page in [addr, addr+size).
func (b *Bus) noteRange(addr, size uint32) {
	if size == 0 {
		return
	}
	end := uint64(addr) + uint64(size)
	for page := uint64(addr) >> pageShift; page<<pageShift < end; page++ {
		if !b.codePages.marked(uint32(page)) {
			continue
		}
		lo := max(uint64(addr), page<<pageShift)
		hi := min(end, (page+1)<<pageShift)
		for _, h := range b.hooks {
			h(uint32(lo), uint32(hi-lo))
		}
		b.codePages.clear(uint32(page))
	}
}
