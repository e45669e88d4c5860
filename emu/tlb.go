package emu

// EntryLo fields.
const (
	entryLoG      = 1 << 0
	entryLoV      = 1 << 1
	entryLoD      = 1 << 2
	entryLoPFNSft = 6
	entryLoPFN    = 0xFFFFF << entryLoPFNSft

	entryHiASID = 0xFF
	entryHiVPN2 = 0xC00000FFFFFFE000

	indexProbeFail = 1 << 31
)

// TLBEntry is one joint-TLB entry mapping an even/odd pair of pages.
type TLBEntry struct {
	PageMask uint64 // bits 24:13 select the page size
	EntryHi  uint64 // R, VPN2 and ASID
	EntryLo0 uint64 // even page: PFN, C, D, V
	EntryLo1 uint64 // odd page
	Global   bool
	Written  bool // never-written entries do not match
}

// pageSize returns the size of one half of the entry's page pair.
func (e *TLBEntry) pageSize() uint64 {
	return (e.PageMask>>1 | 0xFFF) + 1
}

// Matches reports whether the entry translates va under asid.
func (e *TLBEntry) Matches(va uint64, asid uint8) bool {
	if !e.Written {
		return false
	}
	mask := entryHiVPN2 &^ e.PageMask
	if e.EntryHi&mask != va&mask {
		return false
	}
	return e.Global || uint8(e.EntryHi&entryHiASID) == asid
}

// Lookup resolves va through the entry, which must match. It returns the
// physical address and the failure for the selected half-page.
func (e *TLBEntry) Lookup(va uint64, store bool) (uint32, TLBFailure) {
	size := e.pageSize()
	lo := e.EntryLo0
	if va&size != 0 {
		lo = e.EntryLo1
	}
	if lo&entryLoV == 0 {
		return 0, FailInvalid
	}
	if store && lo&entryLoD == 0 {
		return 0, FailModification
	}
	pfn := (lo & entryLoPFN) >> entryLoPFNSft
	offset := size - 1
	return uint32((pfn<<12)&^offset | va&offset), FailNone
}

// Probe returns the index of the entry matching va under asid, or -1.
func (c *COP0) Probe(va uint64, asid uint8) int {
	for i := range c.TLB {
		if c.TLB[i].Matches(va, asid) {
			return i
		}
	}
	return -1
}

// ASID returns the current address space identifier.
func (c *COP0) ASID() uint8 {
	return uint8(c.Reg[Cop0EntryHi] & entryHiASID)
}

// WriteTLB copies the staging registers into entry i.
func (c *COP0) WriteTLB(i int) {
	pageMask := c.Reg[Cop0PageMask] & 0x01FFE000
	lo0 := c.Reg[Cop0EntryLo0]
	lo1 := c.Reg[Cop0EntryLo1]

	c.TLB[i&0x1F] = TLBEntry{
		PageMask: pageMask,
		EntryHi:  c.Reg[Cop0EntryHi] & (entryHiVPN2&^pageMask | entryHiASID),
		EntryLo0: lo0 &^ entryLoG,
		EntryLo1: lo1 &^ entryLoG,
		Global:   lo0&lo1&entryLoG != 0,
		Written:  true,
	}
}

// ReadTLB loads entry i into the staging registers.
func (c *COP0) ReadTLB(i int) {
	e := &c.TLB[i&0x1F]
	g := uint64(0)
	if e.Global {
		g = entryLoG
	}
	c.Reg[Cop0PageMask] = e.PageMask
	c.Reg[Cop0EntryHi] = e.EntryHi
	c.Reg[Cop0EntryLo0] = e.EntryLo0 | g
	c.Reg[Cop0EntryLo1] = e.EntryLo1 | g
}

// ProbeTLB implements TLBP: Index receives the matching entry or has its
// probe-failure bit set.
func (c *COP0) ProbeTLB() {
	i := c.Probe(c.Reg[Cop0EntryHi], c.ASID())
	if i < 0 {
		c.Reg[Cop0Index] = indexProbeFail
		return
	}
	c.Reg[Cop0Index] = uint64(i)
}
