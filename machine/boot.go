package machine

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/n64core/bus"
	"github.com/sarchlab/n64core/emu"
	"github.com/sarchlab/n64core/insts"
	"github.com/sarchlab/n64core/loader"
)

// Register state left by the PIF boot ROM when it jumps to the IPL3 code
// in SP DMEM.
const (
	BootPC     uint64 = 0xFFFFFFFFA4000040
	BootSP     uint64 = 0xFFFFFFFFA4001FF0
	BootRA     uint64 = 0xFFFFFFFFA4001550
	BootStatus uint64 = 0x34000000
	BootConfig uint64 = 0x0006E463

	// cicSeed is the seed of the 6102 boot chip, the most common one.
	cicSeed = 0x3F
	tvNTSC  = 1
)

// LoadROM inserts a cartridge and boots it at a high level: the PIF ROM
// is skipped, the first 4 KiB of the cartridge are copied to SP DMEM and
// the CPU starts executing the IPL3 code there.
func (m *Machine) LoadROM(rom *loader.ROM) error {
	if err := m.bus.LoadCartridge(rom.Data); err != nil {
		return errors.Wrap(err, "inserting cartridge")
	}
	if err := m.bus.WriteBlock(bus.SPDMEMBase, rom.BootCode()); err != nil {
		return errors.Wrap(err, "copying boot code")
	}
	m.rom = rom

	m.cpu.Reset()
	rf := m.cpu.RegFile()
	rf.WriteReg(insts.RegT3, BootPC)
	rf.WriteReg(insts.RegS4, tvNTSC)
	rf.WriteReg(insts.RegS6, cicSeed)
	rf.WriteReg(insts.RegSP, BootSP)
	rf.WriteReg(insts.RegRA, BootRA)
	rf.SetPC(BootPC)

	m.cpu.COP0().Reg[emu.Cop0Status] = BootStatus
	m.cpu.COP0().Reg[emu.Cop0Config] = BootConfig

	m.log.Info("cartridge booted",
		"title", rom.Header.Title(),
		"order", rom.Order.String(),
		"size", len(rom.Data))

	return nil
}

// LoadELF copies an executable into RDRAM and points the CPU at its entry
// in kernel mode with the stack at the top of RDRAM.
func (m *Machine) LoadELF(prog *loader.Program) error {
	for _, seg := range prog.Segments {
		if err := m.bus.WriteBlock(seg.PhysAddr, seg.Data); err != nil {
			return errors.Wrapf(err, "loading segment at %#x", seg.VirtAddr)
		}
		if seg.MemSize > uint64(len(seg.Data)) {
			zero := make([]byte, seg.MemSize-uint64(len(seg.Data)))
			if err := m.bus.WriteBlock(seg.PhysAddr+uint32(len(seg.Data)), zero); err != nil {
				return errors.Wrapf(err, "clearing BSS at %#x", seg.VirtAddr)
			}
		}
	}

	m.cpu.Reset()
	rf := m.cpu.RegFile()
	rf.WriteReg(insts.RegSP, kseg0+uint64(len(m.bus.RDRAM()))-0x10)
	rf.SetPC(prog.EntryPoint)

	m.cpu.COP0().Reg[emu.Cop0Status] = BootStatus
	m.cpu.COP0().Reg[emu.Cop0Config] = BootConfig

	m.log.Info("executable loaded",
		"entry", prog.EntryPoint, "segments", len(prog.Segments))

	return nil
}

const kseg0 uint64 = 0xFFFFFFFF80000000
