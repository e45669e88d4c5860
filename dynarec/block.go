package dynarec

import "github.com/sarchlab/n64core/insts"

// Block is a translated run of guest instructions starting at a physical
// address. Blocks never cross a 4 KiB page.
type Block struct {
	// Start is the physical address of the first instruction.
	Start uint32

	insts []insts.Instruction
	// native maps an instruction index to the native segment starting
	// there, if any.
	native []*segment
	segs   []*segment
	valid  bool
}

// Len returns the number of guest instructions in the block.
func (b *Block) Len() int {
	return len(b.insts)
}

// End returns the physical address just past the block.
func (b *Block) End() uint32 {
	return b.Start + 4*uint32(len(b.insts))
}

// Valid reports whether the block still matches guest memory.
func (b *Block) Valid() bool {
	return b.valid
}

// Terminator returns the block-ending instruction, or OpReserved when the
// block was cut by the length cap or the page end.
func (b *Block) Terminator() insts.Op {
	for i := len(b.insts) - 1; i >= 0 && i >= len(b.insts)-2; i-- {
		if b.insts[i].Op.EndsBlock() {
			return b.insts[i].Op
		}
	}
	return insts.OpReserved
}

// segment is a run of instructions executed by one call into native code.
type segment struct {
	first  int
	n      int
	cycles uint64
	// last is the cost of the final instruction; a run may start as long
	// as the budget is not exhausted before its last instruction.
	last uint64
	code uintptr
	ext  extent
}

// build decodes the block starting at phys.
func (d *Dynarec) build(phys uint32) *Block {
	mem := d.cpu.Bus()
	b := &Block{Start: phys, valid: true}

	pageEnd := phys&^(pageSize-1) + pageSize
	for addr := phys; addr < pageEnd && len(b.insts) < d.config.MaxBlockInsts; addr += 4 {
		b.insts = append(b.insts, insts.Instruction{})
		in := &b.insts[len(b.insts)-1]
		d.decoder.DecodeInto(mem.Read32(addr), in)

		if !in.Op.EndsBlock() {
			continue
		}
		if in.Op.HasDelaySlot() && addr+4 < pageEnd {
			b.insts = append(b.insts, insts.Instruction{})
			d.decoder.DecodeInto(mem.Read32(addr+4), &b.insts[len(b.insts)-1])
		}
		break
	}

	b.native = make([]*segment, len(b.insts))
	if d.arena != nil {
		d.compile(b)
	}

	return b
}

// compile emits native code for every run of at least two native-capable
// instructions. A delay slot never starts or joins a run because its
// branch is not native.
func (d *Dynarec) compile(b *Block) {
	for i := 0; i < len(b.insts); {
		if !Native(b.insts[i].Op) {
			i++
			continue
		}

		j := i
		for j < len(b.insts) && Native(b.insts[j].Op) {
			j++
		}

		if j-i >= 2 && !d.inDelaySlot(b, i) {
			if seg := d.emitSegment(b, i, j); seg != nil {
				b.native[i] = seg
				b.segs = append(b.segs, seg)
			}
		}
		i = j
	}
}

func (d *Dynarec) inDelaySlot(b *Block, i int) bool {
	return i > 0 && b.insts[i-1].Op.HasDelaySlot()
}

func (d *Dynarec) emitSegment(b *Block, first, end int) *segment {
	d.buf.Reset()
	seg := &segment{first: first, n: end - first}
	for k := first; k < end; k++ {
		d.buf.EmitInst(&b.insts[k])
		seg.last = d.cpu.Cost(b.insts[k].Op)
		seg.cycles += seg.last
	}
	d.buf.ret()

	ext, code, err := d.arena.alloc(d.buf.Bytes())
	if err == errArenaFull {
		d.flushArena = true
		return nil
	}
	if err != nil {
		d.log.Error(err, "native segment dropped", "start", b.Start)
		return nil
	}

	seg.code = code
	seg.ext = ext
	d.stats.NativeSegments++
	return seg
}
