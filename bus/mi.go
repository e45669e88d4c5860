package bus

// MI interrupt sources, as bits of MI_INTR and MI_INTR_MASK.
const (
	MIIntrSP uint32 = 1 << iota
	MIIntrSI
	MIIntrAI
	MIIntrVI
	MIIntrPI
	MIIntrDP
)

// MI register offsets.
const (
	miModeOffset    = 0x00
	miVersionOffset = 0x04
	miIntrOffset    = 0x08
	miMaskOffset    = 0x0C

	miVersion = 0x02020102

	miModeInitLen   = 0x7F
	miModeInit      = 1 << 7
	miModeEBus      = 1 << 8
	miModeRDRAM     = 1 << 9
	miModeClearInit = 1 << 7
	miModeSetInit   = 1 << 8
	miModeClearEBus = 1 << 9
	miModeSetEBus   = 1 << 10
	miModeClearDP   = 1 << 11
	miModeClearRDR  = 1 << 12
	miModeSetRDR    = 1 << 13
)

// MI is the MIPS interface: it collects RCP interrupt sources and drives
// the CPU's RCP interrupt line.
type MI struct {
	mode uint32
	intr uint32
	mask uint32
	line func(asserted bool)
}

func newMI() *MI {
	return &MI{}
}

// OnInterrupt registers the callback that follows the state of the RCP
// interrupt line.
func (m *MI) OnInterrupt(line func(asserted bool)) {
	m.line = line
	m.update()
}

// Raise sets interrupt sources.
func (m *MI) Raise(bits uint32) {
	m.intr |= bits
	m.update()
}

// Clear lowers interrupt sources.
func (m *MI) Clear(bits uint32) {
	m.intr &^= bits
	m.update()
}

// Pending returns MI_INTR.
func (m *MI) Pending() uint32 {
	return m.intr
}

// Mask returns MI_INTR_MASK.
func (m *MI) Mask() uint32 {
	return m.mask
}

func (m *MI) update() {
	if m.line != nil {
		m.line(m.intr&m.mask != 0)
	}
}

// Read32 implements Device.
func (m *MI) Read32(offset uint32) uint32 {
	switch offset {
	case miModeOffset:
		return m.mode
	case miVersionOffset:
		return miVersion
	case miIntrOffset:
		return m.intr
	case miMaskOffset:
		return m.mask
	}
	return 0
}

// Write32 implements Device. Mode and mask use set/clear bit pairs.
func (m *MI) Write32(offset uint32, value uint32) {
	switch offset {
	case miModeOffset:
		m.writeMode(value)
	case miMaskOffset:
		for i := 0; i < 6; i++ {
			bit := uint32(1) << i
			if value>>(2*i)&1 != 0 {
				m.mask &^= bit
			}
			if value>>(2*i+1)&1 != 0 {
				m.mask |= bit
			}
		}
		m.update()
	}
}

func (m *MI) writeMode(value uint32) {
	m.mode = m.mode&^miModeInitLen | value&miModeInitLen
	pairs := []struct{ clear, set, bit uint32 }{
		{miModeClearInit, miModeSetInit, miModeInit},
		{miModeClearEBus, miModeSetEBus, miModeEBus},
		{miModeClearRDR, miModeSetRDR, miModeRDRAM},
	}
	for _, p := range pairs {
		if value&p.clear != 0 {
			m.mode &^= p.bit
		}
		if value&p.set != 0 {
			m.mode |= p.bit
		}
	}
	if value&miModeClearDP != 0 {
		m.Clear(MIIntrDP)
	}
}
