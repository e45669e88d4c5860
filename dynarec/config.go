package dynarec

import "github.com/pkg/errors"

// Config tunes block building and native code generation.
type Config struct {
	// MaxBlockInsts caps the number of instructions in one block.
	MaxBlockInsts int `json:"max_block_insts" yaml:"max_block_insts"`
	// ArenaSize is the size of the executable code arena in bytes.
	ArenaSize int `json:"arena_size" yaml:"arena_size"`
	// Native enables inline host code for register-only instructions.
	Native bool `json:"native" yaml:"native"`
}

// DefaultConfig returns the default dynarec configuration.
func DefaultConfig() Config {
	return Config{
		MaxBlockInsts: 64,
		ArenaSize:     4 << 20,
		Native:        true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxBlockInsts < 1 || c.MaxBlockInsts > pageSize/4 {
		return errors.Errorf("max_block_insts must be in [1, %d], got %d",
			pageSize/4, c.MaxBlockInsts)
	}
	if c.Native && c.ArenaSize < minArenaSize {
		return errors.Errorf("arena_size must be at least %d bytes, got %d",
			minArenaSize, c.ArenaSize)
	}
	return nil
}
