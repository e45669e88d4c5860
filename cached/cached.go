// Package cached provides the cached-interpreter backend: decoded
// instructions are kept in a set-associative line cache keyed by physical
// address, so each word is decoded once until its page is written.
package cached

import (
	"fmt"

	"github.com/pkg/errors"
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/n64core/emu"
	"github.com/sarchlab/n64core/insts"
)

const pageSize = 4096

// Config sizes the decoded-line cache.
type Config struct {
	// Sets is the number of sets.
	Sets int `json:"sets" yaml:"sets"`
	// Ways is the associativity.
	Ways int `json:"ways" yaml:"ways"`
	// LineSize is the line size in bytes.
	LineSize int `json:"line_size" yaml:"line_size"`
}

// DefaultConfig returns a 64 KiB code cache with 64 B lines.
func DefaultConfig() Config {
	return Config{
		Sets:     256,
		Ways:     4,
		LineSize: 64,
	}
}

// Validate checks the geometry.
func (c Config) Validate() error {
	if c.Sets <= 0 || c.Ways <= 0 {
		return errors.Errorf("cache needs at least one set and one way, got %d sets, %d ways",
			c.Sets, c.Ways)
	}
	if c.LineSize < 4 || c.LineSize > pageSize || c.LineSize&(c.LineSize-1) != 0 {
		return errors.Errorf("cache line size must be a power of two in [4, %d], got %d",
			pageSize, c.LineSize)
	}
	return nil
}

// Statistics holds code-cache counters.
type Statistics struct {
	Lookups       uint64
	Hits          uint64
	Misses        uint64
	Decodes       uint64
	Evictions     uint64
	Invalidations uint64
}

type slot struct {
	inst  insts.Instruction
	valid bool
}

// Interpreter is the cached-interpreter backend.
type Interpreter struct {
	cpu     *emu.CPU
	config  Config
	decoder *insts.Decoder

	directory *akitacache.DirectoryImpl
	// lines is indexed by setID*ways + wayID.
	lines [][]slot

	stats Statistics
}

// Option configures the cached interpreter.
type Option func(*Interpreter)

// WithConfig sets the cache geometry.
func WithConfig(config Config) Option {
	return func(i *Interpreter) {
		i.config = config
	}
}

// New creates a cached interpreter driving cpu. It registers for code-page
// writes on the CPU's bus.
func New(cpu *emu.CPU, opts ...Option) *Interpreter {
	i := &Interpreter{
		cpu:     cpu,
		config:  DefaultConfig(),
		decoder: insts.NewDecoder(),
	}

	for _, opt := range opts {
		opt(i)
	}

	cfg := i.config
	i.directory = akitacache.NewDirectory(
		cfg.Sets,
		cfg.Ways,
		cfg.LineSize,
		akitacache.NewLRUVictimFinder(),
	)
	i.lines = make([][]slot, cfg.Sets*cfg.Ways)
	for n := range i.lines {
		i.lines[n] = make([]slot, cfg.LineSize/4)
	}

	cpu.Bus().OnCodeWrite(i.invalidatePage)

	return i
}

// Name returns "cached".
func (i *Interpreter) Name() string {
	return "cached"
}

// CPU returns the CPU the backend drives.
func (i *Interpreter) CPU() *emu.CPU {
	return i.cpu
}

// Config returns the cache geometry.
func (i *Interpreter) Config() Config {
	return i.config
}

// Stats returns the cache counters.
func (i *Interpreter) Stats() Statistics {
	return i.stats
}

// Stop asks Run to return at the next instruction boundary.
func (i *Interpreter) Stop() {
	i.cpu.RequestStop()
}

// Flush drops every cached line.
func (i *Interpreter) Flush() {
	i.directory.Reset()
	for _, line := range i.lines {
		clearLine(line)
	}
}

// Step executes a single instruction.
func (i *Interpreter) Step() uint64 {
	c := i.cpu
	c.CheckInterrupts()

	phys, ok := c.TranslatePC()
	if !ok {
		return 0
	}

	return c.Exec(i.fetch(phys))
}

// Run executes instructions until budget cycles are consumed or a stop is
// requested.
func (i *Interpreter) Run(budget uint64) uint64 {
	var used uint64
	for used < budget && !i.cpu.StopRequested() {
		used += i.Step()
	}
	return used
}

func (i *Interpreter) lineIndex(block *akitacache.Block) int {
	return block.SetID*i.config.Ways + block.WayID
}

// fetch returns the decoded instruction at phys, filling the line on a
// miss and decoding the slot on first use.
func (i *Interpreter) fetch(phys uint32) *insts.Instruction {
	i.stats.Lookups++

	lineSize := uint32(i.config.LineSize)
	lineAddr := uint64(phys &^ (lineSize - 1))

	block := i.directory.Lookup(0, lineAddr)
	if block == nil || !block.IsValid {
		i.stats.Misses++
		block = i.fill(lineAddr)
	}
	i.directory.Visit(block)

	s := &i.lines[i.lineIndex(block)][(uint64(phys)-lineAddr)>>2]
	if s.valid {
		i.stats.Hits++
		return &s.inst
	}

	i.decoder.DecodeInto(i.cpu.Bus().Read32(phys), &s.inst)
	s.valid = true
	i.stats.Decodes++
	return &s.inst
}

func (i *Interpreter) fill(lineAddr uint64) *akitacache.Block {
	victim := i.directory.FindVictim(lineAddr)
	if victim.IsValid {
		i.stats.Evictions++
	}

	victim.Tag = lineAddr
	victim.IsValid = true
	clearLine(i.lines[i.lineIndex(victim)])

	i.cpu.Bus().TrackCode(uint32(lineAddr))

	return victim
}

// invalidatePage drops every line of the 4 KiB page holding addr.
func (i *Interpreter) invalidatePage(addr, _ uint32) {
	page := uint64(addr &^ (pageSize - 1))
	lineSize := uint64(i.config.LineSize)

	dropped := 0
	for a := page; a < page+pageSize; a += lineSize {
		block := i.directory.Lookup(0, a)
		if block == nil || !block.IsValid {
			continue
		}
		block.IsValid = false
		clearLine(i.lines[i.lineIndex(block)])
		dropped++
	}

	i.stats.Invalidations += uint64(dropped)

	log := i.cpu.Logger()
	if dropped > 0 && log.V(2).Enabled() {
		log.V(2).Info("code lines invalidated",
			"page", fmt.Sprintf("%#x", page), "lines", dropped)
	}
}

// clearLine marks every slot undecoded. The instruction being executed may
// live in the line, so only the valid flags are reset.
func clearLine(line []slot) {
	for n := range line {
		line[n].valid = false
	}
}
