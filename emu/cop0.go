package emu

// COP0 register numbers.
const (
	Cop0Index       = 0
	Cop0Random      = 1
	Cop0EntryLo0    = 2
	Cop0EntryLo1    = 3
	Cop0Context     = 4
	Cop0PageMask    = 5
	Cop0Wired       = 6
	Cop0BadVAddr    = 8
	Cop0Count       = 9
	Cop0EntryHi     = 10
	Cop0Compare     = 11
	Cop0Status      = 12
	Cop0Cause       = 13
	Cop0EPC         = 14
	Cop0PRId        = 15
	Cop0Config      = 16
	Cop0LLAddr      = 17
	Cop0WatchLo     = 18
	Cop0WatchHi     = 19
	Cop0XContext    = 20
	Cop0ParityError = 26
	Cop0CacheError  = 27
	Cop0TagLo       = 28
	Cop0TagHi       = 29
	Cop0ErrorEPC    = 30
)

// Status register bits.
const (
	StatusIE  uint64 = 1 << 0
	StatusEXL uint64 = 1 << 1
	StatusERL uint64 = 1 << 2
	StatusUX  uint64 = 1 << 5
	StatusSX  uint64 = 1 << 6
	StatusKX  uint64 = 1 << 7
	StatusSR  uint64 = 1 << 20
	StatusBEV uint64 = 1 << 22
	StatusFR  uint64 = 1 << 26
	StatusCU0 uint64 = 1 << 28
	StatusCU1 uint64 = 1 << 29
	StatusCU2 uint64 = 1 << 30
	StatusCU3 uint64 = 1 << 31

	statusKSUShift = 3
	statusKSUMask  = 3 << statusKSUShift
	statusIMShift  = 8
)

// Cause register fields.
const (
	CauseBD uint64 = 1 << 31

	causeExcShift = 2
	causeExcMask  = 0x1F << causeExcShift
	causeIPShift  = 8
	causeCEShift  = 28
	causeCEMask   = 3 << causeCEShift
)

// Interrupt lines in Cause.IP.
const (
	IntSoftware0 uint8 = 0
	IntSoftware1 uint8 = 1
	IntRCP       uint8 = 2 // MIPS Interface
	IntCart      uint8 = 3
	IntPreNMI    uint8 = 4
	IntTimer     uint8 = 7
)

// Privilege is the processor operating mode.
type Privilege uint8

// Operating modes.
const (
	Kernel Privilege = iota
	Supervisor
	User
)

// Power-on values of read-only COP0 registers.
const (
	resetPRId   = 0x00000B22
	resetConfig = 0x7006E463
)

// writeMasks gives the software-writable bits of each COP0 register.
// Registers absent from the map are plain storage.
var writeMasks = map[int]uint64{
	Cop0Index:       0x3F,
	Cop0Random:      0,
	Cop0EntryLo0:    0x3FFFFFFF,
	Cop0EntryLo1:    0x3FFFFFFF,
	Cop0Context:     0xFFFFFFFFFF800000,
	Cop0PageMask:    0x01FFE000,
	Cop0Wired:       0x3F,
	Cop0BadVAddr:    0,
	Cop0Count:       0xFFFFFFFF,
	Cop0EntryHi:     0xC00000FFFFFFE0FF,
	Cop0Compare:     0xFFFFFFFF,
	Cop0Status:      0xFF57FFFF,
	Cop0Cause:       0x300,
	Cop0PRId:        0,
	Cop0Config:      0x0F00800F,
	Cop0LLAddr:      0xFFFFFFFF,
	Cop0XContext:    0xFFFFFFFE00000000,
	Cop0ParityError: 0,
	Cop0CacheError:  0,
	Cop0TagLo:       0x0FFFFFC0,
	Cop0TagHi:       0,
}

// COP0 is the system control coprocessor: privilege, exception and timer
// state plus the TLB.
type COP0 struct {
	// Reg holds the 32 COP0 registers. Random is not stored; it is derived
	// from Count and Wired on read.
	Reg [32]uint64

	// TLB holds the 32 joint TLB entries.
	TLB [32]TLBEntry

	// LLBit is set by LL/LLD and cleared by ERET or a store conditional.
	LLBit bool
}

// Reset puts COP0 in its power-on state.
func (c *COP0) Reset() {
	*c = COP0{}
	c.Reg[Cop0Status] = StatusERL | StatusBEV
	c.Reg[Cop0PRId] = resetPRId
	c.Reg[Cop0Config] = resetConfig
}

// Read returns the value of register n as seen by DMFC0.
func (c *COP0) Read(n uint8) uint64 {
	n &= 0x1F
	if n == Cop0Random {
		return c.random()
	}
	return c.Reg[n]
}

// Write stores value into register n, honoring read-only fields. Side
// effects (such as clearing the timer interrupt) are applied by the CPU.
func (c *COP0) Write(n uint8, value uint64) {
	n &= 0x1F
	mask, ok := writeMasks[int(n)]
	if !ok {
		c.Reg[n] = value
		return
	}
	c.Reg[n] = c.Reg[n]&^mask | value&mask
}

// random derives the Random register from Count so that every backend
// observes the same value at the same instruction boundary.
func (c *COP0) random() uint64 {
	wired := c.Reg[Cop0Wired] & 0x3F
	if wired >= 31 {
		return 31
	}
	return 31 - (c.Reg[Cop0Count]>>1)%(32-wired)
}

// Status returns the Status register.
func (c *COP0) Status() uint64 { return c.Reg[Cop0Status] }

// Cause returns the Cause register.
func (c *COP0) Cause() uint64 { return c.Reg[Cop0Cause] }

// Privilege returns the current operating mode.
func (c *COP0) Privilege() Privilege {
	s := c.Reg[Cop0Status]
	if s&(StatusEXL|StatusERL) != 0 {
		return Kernel
	}
	switch (s & statusKSUMask) >> statusKSUShift {
	case 0:
		return Kernel
	case 1:
		return Supervisor
	default:
		return User
	}
}

// Addressing64 reports whether the current operating mode uses 64-bit
// addressing.
func (c *COP0) Addressing64() bool {
	s := c.Reg[Cop0Status]
	switch c.Privilege() {
	case Kernel:
		return s&StatusKX != 0
	case Supervisor:
		return s&StatusSX != 0
	default:
		return s&StatusUX != 0
	}
}

// CopUsable reports whether coprocessor n may be used in the current mode.
// COP0 is always usable in kernel mode.
func (c *COP0) CopUsable(n uint8) bool {
	if n == 0 && c.Privilege() == Kernel {
		return true
	}
	return c.Reg[Cop0Status]&(StatusCU0<<n) != 0
}

// SetInterruptPending raises interrupt line ip in Cause.IP.
func (c *COP0) SetInterruptPending(ip uint8) {
	c.Reg[Cop0Cause] |= 1 << (causeIPShift + uint64(ip&7))
}

// ClearInterruptPending lowers interrupt line ip in Cause.IP.
func (c *COP0) ClearInterruptPending(ip uint8) {
	c.Reg[Cop0Cause] &^= 1 << (causeIPShift + uint64(ip&7))
}

// InterruptPending reports whether an enabled interrupt is pending and the
// processor currently accepts interrupts.
func (c *COP0) InterruptPending() bool {
	s := c.Reg[Cop0Status]
	if s&StatusIE == 0 || s&(StatusEXL|StatusERL) != 0 {
		return false
	}
	ip := (c.Reg[Cop0Cause] >> causeIPShift) & 0xFF
	im := (s >> statusIMShift) & 0xFF
	return ip&im != 0
}

// ExcCode returns Cause.ExcCode.
func (c *COP0) ExcCode() ExceptionKind {
	return ExceptionKind((c.Reg[Cop0Cause] & causeExcMask) >> causeExcShift)
}

// advanceCount adds n cycles to Count and reports whether Count reached
// Compare in the process.
func (c *COP0) advanceCount(n uint64) bool {
	old := uint32(c.Reg[Cop0Count])
	c.Reg[Cop0Count] = uint64(old + uint32(n))
	return uint64(uint32(c.Reg[Cop0Compare])-old-1) < n
}

// CyclesToCompare returns how many cycles Count may advance without
// reaching Compare.
func (c *COP0) CyclesToCompare() uint64 {
	return uint64(uint32(c.Reg[Cop0Compare]) - uint32(c.Reg[Cop0Count]) - 1)
}
