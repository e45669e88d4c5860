package emu

import "math"

// FCR31 fields.
const (
	fcrRoundMask  = 0x3
	fcrFlagShift  = 2
	fcrEnableSft  = 7
	fcrCauseShift = 12
	FCRCondition  = 1 << 23
	fcrFS         = 1 << 24
	fcrWriteMask  = 0x0183FFFF

	fcr0Revision = 0x00000A00
)

// FPU exception bits, in flag/enable/cause order.
const (
	fpInexact   = 1 << 0
	fpUnderflow = 1 << 1
	fpOverflow  = 1 << 2
	fpDivZero   = 1 << 3
	fpInvalid   = 1 << 4
)

// Rounding modes held in FCR31.RM.
const (
	RoundNearest = 0
	RoundZero    = 1
	RoundPlusInf = 2
	RoundMinInf  = 3
)

// COP1 is the floating-point register file. In FR=0 mode single-precision
// registers alias the halves of even/odd pairs.
type COP1 struct {
	FGR   [32]uint64
	FCR31 uint32
}

// Reset clears the FPU.
func (f *COP1) Reset() {
	*f = COP1{}
}

// Single reads register n as a 32-bit value.
func (f *COP1) Single(n uint8, fr bool) uint32 {
	if fr {
		return uint32(f.FGR[n])
	}
	if n&1 != 0 {
		return uint32(f.FGR[n&^1] >> 32)
	}
	return uint32(f.FGR[n])
}

// SetSingle writes register n as a 32-bit value.
func (f *COP1) SetSingle(n uint8, fr bool, v uint32) {
	if fr {
		f.FGR[n] = f.FGR[n]&^0xFFFFFFFF | uint64(v)
		return
	}
	even := n &^ 1
	if n&1 != 0 {
		f.FGR[even] = f.FGR[even]&0xFFFFFFFF | uint64(v)<<32
		return
	}
	f.FGR[even] = f.FGR[even]&^0xFFFFFFFF | uint64(v)
}

// Double reads register n as a 64-bit value.
func (f *COP1) Double(n uint8, fr bool) uint64 {
	if !fr {
		n &^= 1
	}
	return f.FGR[n]
}

// SetDouble writes register n as a 64-bit value.
func (f *COP1) SetDouble(n uint8, fr bool, v uint64) {
	if !fr {
		n &^= 1
	}
	f.FGR[n] = v
}

// Control reads an FPU control register.
func (f *COP1) Control(n uint8) uint32 {
	switch n {
	case 0:
		return fcr0Revision
	case 31:
		return f.FCR31
	default:
		return 0
	}
}

// SetControl writes an FPU control register; only FCR31 is writable.
func (f *COP1) SetControl(n uint8, v uint32) {
	if n == 31 {
		f.FCR31 = v & fcrWriteMask
	}
}

// Condition returns the compare result bit.
func (f *COP1) Condition() bool {
	return f.FCR31&FCRCondition != 0
}

func (f *COP1) setCondition(c bool) {
	if c {
		f.FCR31 |= FCRCondition
	} else {
		f.FCR31 &^= FCRCondition
	}
}

// signal records FPU exception bits and reports whether any of them is
// enabled, in which case the caller raises a floating-point exception.
func (f *COP1) signal(bits uint32) bool {
	f.FCR31 &^= 0x3F << fcrCauseShift
	f.FCR31 |= bits << fcrCauseShift
	enabled := (f.FCR31 >> fcrEnableSft) & 0x1F
	if bits&enabled != 0 {
		return true
	}
	f.FCR31 |= bits << fcrFlagShift
	return false
}

func (f *COP1) roundingMode() uint32 {
	return f.FCR31 & fcrRoundMask
}

// round applies a rounding mode to x.
func round(x float64, mode uint32) float64 {
	switch mode {
	case RoundZero:
		return math.Trunc(x)
	case RoundPlusInf:
		return math.Ceil(x)
	case RoundMinInf:
		return math.Floor(x)
	default:
		return math.RoundToEven(x)
	}
}
