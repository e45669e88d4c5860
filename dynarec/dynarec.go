// Package dynarec provides the dynamic-recompiler backend. Guest code is
// split into blocks keyed by physical address. Register-only instruction
// runs are compiled to x86-64 code in an executable arena; every other
// instruction goes through the shared CPU handlers. Writes to a page
// holding translated code discard the page's blocks.
package dynarec

import (
	"fmt"
	"unsafe"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/sarchlab/n64core/emu"
	"github.com/sarchlab/n64core/insts"
)

// Statistics holds dynarec counters.
type Statistics struct {
	Lookups           uint64
	Hits              uint64
	BlocksBuilt       uint64
	BlocksInvalidated uint64
	NativeSegments    uint64
	NativeInsts       uint64
	HandlerCalls      uint64
	ArenaFlushes      uint64
}

// Dynarec is the dynamic-recompiler backend.
type Dynarec struct {
	cpu     *emu.CPU
	config  Config
	decoder *insts.Decoder
	inst    insts.Instruction
	log     logr.Logger

	blocks map[uint32]*Block
	pages  map[uint32][]*Block

	arena      *arena
	buf        CodeBuffer
	flushArena bool

	stats Statistics
}

// Option configures the dynarec.
type Option func(*Dynarec)

// WithConfig sets block and code-generation limits.
func WithConfig(config Config) Option {
	return func(d *Dynarec) {
		d.config = config
	}
}

// WithLogger sets the logger. Block builds and invalidations log at V(2).
func WithLogger(log logr.Logger) Option {
	return func(d *Dynarec) {
		d.log = log
	}
}

// New creates a dynarec driving cpu. It registers for code-page writes on
// the CPU's bus. Native code is generated only on amd64 unix hosts and
// when the configuration enables it.
func New(cpu *emu.CPU, opts ...Option) (*Dynarec, error) {
	d := &Dynarec{
		cpu:     cpu,
		config:  DefaultConfig(),
		decoder: insts.NewDecoder(),
		log:     cpu.Logger(),
		blocks:  make(map[uint32]*Block),
		pages:   make(map[uint32][]*Block),
	}

	for _, opt := range opts {
		opt(d)
	}

	if err := d.config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid dynarec config")
	}

	if d.config.Native && NativeAvailable() {
		a, err := newArena(d.config.ArenaSize)
		if err != nil {
			return nil, err
		}
		d.arena = a
	}

	cpu.Bus().OnCodeWrite(d.invalidatePage)

	return d, nil
}

// NativeAvailable reports whether this host can run generated code.
func NativeAvailable() bool {
	return nativeSupported && arenaSupported
}

// Name returns "dynarec".
func (d *Dynarec) Name() string {
	return "dynarec"
}

// CPU returns the CPU the backend drives.
func (d *Dynarec) CPU() *emu.CPU {
	return d.cpu
}

// Config returns the configuration.
func (d *Dynarec) Config() Config {
	return d.config
}

// Stats returns the dynarec counters.
func (d *Dynarec) Stats() Statistics {
	return d.stats
}

// Native reports whether native segments are being generated.
func (d *Dynarec) Native() bool {
	return d.arena != nil
}

// Stop asks Run to return at the next instruction boundary.
func (d *Dynarec) Stop() {
	d.cpu.RequestStop()
}

// Close releases the code arena.
func (d *Dynarec) Close() error {
	d.Flush()
	if d.arena == nil {
		return nil
	}
	err := d.arena.close()
	d.arena = nil
	return err
}

// Lookup returns the valid block starting at phys, if any.
func (d *Dynarec) Lookup(phys uint32) (*Block, bool) {
	b, ok := d.blocks[phys]
	return b, ok
}

// BlockCount returns the number of live blocks.
func (d *Dynarec) BlockCount() int {
	return len(d.blocks)
}

// Flush discards every block and all generated code.
func (d *Dynarec) Flush() {
	for _, b := range d.blocks {
		b.valid = false
	}
	clear(d.blocks)
	clear(d.pages)
	if d.arena != nil {
		d.arena.reset()
	}
	d.flushArena = false
}

// Step executes a single instruction through the handlers, bypassing the
// block table.
func (d *Dynarec) Step() uint64 {
	c := d.cpu
	c.CheckInterrupts()

	phys, ok := c.TranslatePC()
	if !ok {
		return 0
	}

	d.decoder.DecodeInto(c.Bus().Read32(phys), &d.inst)
	d.stats.HandlerCalls++
	return c.Exec(&d.inst)
}

// Run executes blocks until budget cycles are consumed or a stop is
// requested.
func (d *Dynarec) Run(budget uint64) uint64 {
	var used uint64
	for used < budget && !d.cpu.StopRequested() {
		used += d.enter(budget - used)
	}
	return used
}

// RunBlock executes the block at the current PC until it leaves the block.
func (d *Dynarec) RunBlock() uint64 {
	return d.enter(^uint64(0))
}

// enter takes pending interrupts, then looks up or builds the block at PC
// and executes it.
func (d *Dynarec) enter(limit uint64) uint64 {
	c := d.cpu
	if d.flushArena {
		d.stats.ArenaFlushes++
		d.log.V(2).Info("code arena full, flushing blocks", "blocks", len(d.blocks))
		d.Flush()
	}

	c.CheckInterrupts()

	phys, ok := c.TranslatePC()
	if !ok {
		return 0
	}

	return d.exec(d.lookup(phys), limit)
}

func (d *Dynarec) lookup(phys uint32) *Block {
	d.stats.Lookups++
	if b, ok := d.blocks[phys]; ok {
		d.stats.Hits++
		return b
	}

	b := d.build(phys)
	d.blocks[phys] = b
	page := phys / pageSize
	d.pages[page] = append(d.pages[page], b)
	d.cpu.Bus().TrackCode(phys)
	d.stats.BlocksBuilt++

	if d.log.V(2).Enabled() {
		d.log.V(2).Info("block built",
			"start", fmt.Sprintf("%#x", phys),
			"insts", len(b.insts),
			"native", len(b.segs),
			"terminator", b.Terminator().String())
	}

	return b
}

// exec runs b from its first instruction. It leaves the block when control
// does not fall through to the next instruction, when the block is
// invalidated, on an interrupt, on a stop request or when limit cycles
// have been used.
func (d *Dynarec) exec(b *Block, limit uint64) uint64 {
	c := d.cpu
	rf := c.RegFile()
	base := rf.PC

	var used uint64
	for i := 0; i < len(b.insts); {
		if used >= limit || c.StopRequested() || !b.valid {
			break
		}
		if i > 0 {
			if c.CheckInterrupts() || rf.PC != base+4*uint64(i) {
				break
			}
		}

		if seg := b.native[i]; seg != nil && d.canRunNative(seg, used, limit) {
			callNative(seg.code, unsafe.Pointer(rf))
			c.AdvanceLinear(uint64(seg.n), seg.cycles)
			d.stats.NativeInsts += uint64(seg.n)
			used += seg.cycles
			i += seg.n
			continue
		}

		d.stats.HandlerCalls++
		used += c.Exec(&b.insts[i])
		i++
	}

	return used
}

// canRunNative reports whether seg can retire as one unit without
// changing what the per-instruction path would observe: no delay slot is
// pending, the timer cannot fire inside it and the budget lasts until its
// last instruction.
func (d *Dynarec) canRunNative(seg *segment, used, limit uint64) bool {
	rf := d.cpu.RegFile()
	if rf.DelaySlot || rf.NextPC != rf.PC+4 {
		return false
	}
	if used+seg.cycles-seg.last >= limit {
		return false
	}
	return seg.cycles <= d.cpu.COP0().CyclesToCompare()
}

// invalidatePage discards every block on the page holding addr. The page
// is untracked once the hook returns, so no block on it may survive.
func (d *Dynarec) invalidatePage(addr, _ uint32) {
	page := addr / pageSize
	blocks := d.pages[page]
	if len(blocks) == 0 {
		return
	}

	for _, b := range blocks {
		b.valid = false
		if d.blocks[b.Start] == b {
			delete(d.blocks, b.Start)
		}
		if d.arena != nil {
			for _, seg := range b.segs {
				d.arena.release(seg.ext)
			}
		}
	}
	delete(d.pages, page)
	d.stats.BlocksInvalidated += uint64(len(blocks))

	if d.log.V(2).Enabled() {
		d.log.V(2).Info("blocks invalidated",
			"page", fmt.Sprintf("%#x", page*pageSize), "blocks", len(blocks))
	}
}
