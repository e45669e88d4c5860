package emu

// Snapshot is a copy of the architectural CPU state. Host transients such
// as decode caches, block tables and cycle budgets are not part of it.
type Snapshot struct {
	Regs    RegFile
	Cop0    [32]uint64
	TLB     [32]TLBEntry
	LLBit   bool
	FGR     [32]uint64
	FCR31   uint32
	Cycles  uint64
	Instret uint64
}

// Snapshot captures the CPU state.
func (c *CPU) Snapshot() Snapshot {
	s := Snapshot{
		Regs:    c.regs,
		Cop0:    c.cop0.Reg,
		TLB:     c.cop0.TLB,
		LLBit:   c.cop0.LLBit,
		FGR:     c.cop1.FGR,
		FCR31:   c.cop1.FCR31,
		Cycles:  c.cycles,
		Instret: c.instret,
	}
	s.Cop0[Cop0Random] = c.cop0.Read(Cop0Random)
	return s
}

// Restore loads a previously captured state.
func (c *CPU) Restore(s Snapshot) {
	c.regs = s.Regs
	c.cop0.Reg = s.Cop0
	c.cop0.TLB = s.TLB
	c.cop0.LLBit = s.LLBit
	c.cop1.FGR = s.FGR
	c.cop1.FCR31 = s.FCR31
	c.cycles = s.Cycles
	c.instret = s.Instret
	c.inDelay = false
}
