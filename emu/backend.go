package emu

// Backend is an execution strategy driving the fetch/decode/execute loop.
// All backends produce identical architectural state for the same input.
type Backend interface {
	// Name identifies the backend.
	Name() string

	// Step executes one instruction, first taking any pending interrupt,
	// and returns the cycles consumed.
	Step() uint64

	// Run executes until at least budget cycles have been consumed or a
	// stop is requested, and returns the cycles consumed.
	Run(budget uint64) uint64

	// Stop asks a running Run to return at the next instruction boundary.
	Stop()
}
