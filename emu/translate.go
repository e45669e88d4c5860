package emu

// AccessKind classifies a memory access for address translation.
type AccessKind uint8

// Access kinds. Fetches translate as loads.
const (
	AccessLoad AccessKind = iota
	AccessStore
	AccessFetch
)

// TLBFailure is the outcome of a failed translation.
type TLBFailure uint8

// Translation failures.
const (
	FailNone TLBFailure = iota
	FailMiss
	FailInvalid
	FailModification
	FailDisallowed
)

func (f TLBFailure) String() string {
	switch f {
	case FailNone:
		return "none"
	case FailMiss:
		return "miss"
	case FailInvalid:
		return "invalid"
	case FailModification:
		return "modification"
	case FailDisallowed:
		return "disallowed"
	default:
		return "unknown"
	}
}

const (
	seg32KSeg0  = 0x80000000
	seg32KSeg1  = 0xA0000000
	seg32KSSeg  = 0xC0000000
	seg32KSeg3  = 0xE0000000
	unmappedLen = 0x20000000

	seg64User       = 0x0000000000000000
	seg64Supervisor = 0x4000000000000000
	seg64Phys       = 0x8000000000000000
	seg64Kernel     = 0xC000000000000000
	seg64Compat     = 0xFFFFFFFF80000000
	seg64CKSeg1     = 0xFFFFFFFFA0000000
	seg64CSSeg      = 0xFFFFFFFFC0000000
	seg64CKSeg3     = 0xFFFFFFFFE0000000

	mappedRegionLen = 1 << 40
	xkphysHighMask  = 0x07FFFFFF00000000
)

// Translate maps a virtual address to a physical address under the current
// privilege and addressing width. Translation never mutates the TLB; the
// caller records the faulting address on failure.
func (c *COP0) Translate(kind AccessKind, va uint64) (uint32, TLBFailure) {
	priv := c.Privilege()
	if c.Addressing64() {
		return c.translate64(kind, va, priv)
	}
	return c.translate32(kind, va, priv)
}

func (c *COP0) translate32(kind AccessKind, va uint64, priv Privilege) (uint32, TLBFailure) {
	va32 := uint32(va)

	switch {
	case va32 < seg32KSeg0:
		return c.lookup(kind, sext32(va32))
	case va32 < seg32KSeg1:
		if priv != Kernel {
			return 0, FailDisallowed
		}
		return va32 - seg32KSeg0, FailNone
	case va32 < seg32KSSeg:
		if priv != Kernel {
			return 0, FailDisallowed
		}
		return va32 - seg32KSeg1, FailNone
	case va32 < seg32KSeg3:
		if priv == User {
			return 0, FailDisallowed
		}
		return c.lookup(kind, sext32(va32))
	default:
		if priv != Kernel {
			return 0, FailDisallowed
		}
		return c.lookup(kind, sext32(va32))
	}
}

func (c *COP0) translate64(kind AccessKind, va uint64, priv Privilege) (uint32, TLBFailure) {
	switch va & seg64Kernel {
	case seg64User:
		if va >= mappedRegionLen {
			return 0, FailDisallowed
		}
		return c.lookup(kind, va)
	case seg64Supervisor:
		if priv == User || va-seg64Supervisor >= mappedRegionLen {
			return 0, FailDisallowed
		}
		return c.lookup(kind, va)
	case seg64Phys:
		if priv != Kernel || va&xkphysHighMask != 0 {
			return 0, FailDisallowed
		}
		return uint32(va), FailNone
	}

	if va < seg64Compat {
		if priv != Kernel || va-seg64Kernel >= mappedRegionLen-unmappedLen*4 {
			return 0, FailDisallowed
		}
		return c.lookup(kind, va)
	}

	switch {
	case va < seg64CKSeg1:
		if priv != Kernel {
			return 0, FailDisallowed
		}
		return uint32(va - seg64Compat), FailNone
	case va < seg64CSSeg:
		if priv != Kernel {
			return 0, FailDisallowed
		}
		return uint32(va - seg64CKSeg1), FailNone
	case va < seg64CKSeg3:
		if priv == User {
			return 0, FailDisallowed
		}
		return c.lookup(kind, va)
	default:
		if priv != Kernel {
			return 0, FailDisallowed
		}
		return c.lookup(kind, va)
	}
}

func (c *COP0) lookup(kind AccessKind, va uint64) (uint32, TLBFailure) {
	i := c.Probe(va, c.ASID())
	if i < 0 {
		return 0, FailMiss
	}
	return c.TLB[i].Lookup(va, kind == AccessStore)
}

// RecordFaultingAddress fills BadVAddr, Context, XContext and the VPN2
// field of EntryHi for a failed translation of va.
func (c *COP0) RecordFaultingAddress(va uint64) {
	c.Reg[Cop0BadVAddr] = va

	ctx := c.Reg[Cop0Context]
	c.Reg[Cop0Context] = ctx&^0x7FFFF0 | (va>>13&0x7FFFF)<<4

	xctx := c.Reg[Cop0XContext]
	c.Reg[Cop0XContext] = xctx&^0x1FFFFFFF0 | (va>>62&3)<<31 | (va>>13&0x7FFFFFF)<<4

	hi := c.Reg[Cop0EntryHi]
	c.Reg[Cop0EntryHi] = va&entryHiVPN2 | hi&entryHiASID
}
