package emu

// MemoryPort is the physical memory and MMIO router seen by the CPU.
// Addresses are physical; values use guest (big-endian) order. Accesses
// outside any mapped region read as zero and discard writes.
type MemoryPort interface {
	Read8(addr uint32) uint8
	Read16(addr uint32) uint16
	Read32(addr uint32) uint32
	Read64(addr uint32) uint64
	Write8(addr uint32, value uint8)
	Write16(addr uint32, value uint16)
	Write32(addr uint32, value uint32)
	Write64(addr uint32, value uint64)
}

// CodeTracker lets caching backends learn about writes to memory holding
// decoded or translated code.
type CodeTracker interface {
	// TrackCode marks the 4 KiB physical page containing addr as holding
	// code.
	TrackCode(addr uint32)

	// OnCodeWrite registers a hook called with the written range whenever
	// a tracked page is written. Hooks run before the write is visible to
	// the next fetch.
	OnCodeWrite(hook func(addr, size uint32))
}

// Bus is the collaborator every backend executes against.
type Bus interface {
	MemoryPort
	CodeTracker
}
