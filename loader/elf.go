// Package loader reads guest images: big-endian MIPS ELF executables and
// N64 cartridge ROMs in any of the three common byte orders.
package loader

import (
	"debug/elf"
	"io"
	"os"

	"github.com/pkg/errors"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// ErrNotMIPS is returned for ELF files built for another architecture.
var ErrNotMIPS = errors.New("not a big-endian MIPS ELF file")

// Segment represents a loadable segment from an ELF binary.
type Segment struct {
	// VirtAddr is the 64-bit virtual address of the segment. Addresses of
	// 32-bit images are sign-extended.
	VirtAddr uint64
	// PhysAddr is the physical address the segment occupies.
	PhysAddr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded ELF program ready for execution.
type Program struct {
	// EntryPoint is the sign-extended virtual address execution starts at.
	EntryPoint uint64
	// Segments contains all loadable segments from the ELF file.
	Segments []Segment
}

// Physical returns the physical address behind a kseg0/kseg1 (or
// ckseg0/ckseg1) virtual address, and the low 29 bits of anything else.
func Physical(vaddr uint64) uint32 {
	return uint32(vaddr) & 0x1FFFFFFF
}

func signExtend32(v uint64) uint64 {
	return uint64(int64(int32(uint32(v))))
}

// Load parses a big-endian MIPS ELF executable, 32- or 64-bit.
func Load(path string) (*Program, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ELF file")
	}
	defer func() { _ = file.Close() }()

	return Parse(file)
}

// Parse reads a big-endian MIPS ELF executable from r.
func Parse(r io.ReaderAt) (*Program, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ELF file")
	}
	defer func() { _ = f.Close() }()

	if f.Machine != elf.EM_MIPS || f.Data != elf.ELFDATA2MSB {
		return nil, errors.Wrapf(ErrNotMIPS, "machine %v, %v", f.Machine, f.Data)
	}

	addr := func(v uint64) uint64 { return v }
	if f.Class == elf.ELFCLASS32 {
		addr = signExtend32
	}

	prog := &Program{EntryPoint: addr(f.Entry)}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, errors.Wrapf(err, "failed to read segment at %#x", phdr.Vaddr)
			}
			if uint64(n) != phdr.Filesz {
				return nil, errors.Errorf("short read for segment at %#x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		vaddr := addr(phdr.Vaddr)
		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: vaddr,
			PhysAddr: Physical(vaddr),
			Data:     data,
			MemSize:  phdr.Memsz,
			Flags:    flags,
		})
	}

	return prog, nil
}
