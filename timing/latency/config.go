package latency

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// TimingConfig holds cycle costs for the R4300i instruction classes.
// Values follow the VR4300 user manual pipeline tables.
type TimingConfig struct {
	// ALULatency is the cost of integer arithmetic, logic and shifts.
	// Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency" yaml:"alu_latency"`

	// BranchLatency is the cost of branches and jumps, not counting the
	// delay slot. Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency" yaml:"branch_latency"`

	// LoadLatency is the cost of a load. Default: 1 cycle.
	LoadLatency uint64 `json:"load_latency" yaml:"load_latency"`

	// StoreLatency is the cost of a store. Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency" yaml:"store_latency"`

	// MultiplyLatency is the cost of MULT/MULTU. Default: 5 cycles.
	MultiplyLatency uint64 `json:"multiply_latency" yaml:"multiply_latency"`

	// DMultiplyLatency is the cost of DMULT/DMULTU. Default: 8 cycles.
	DMultiplyLatency uint64 `json:"dmultiply_latency" yaml:"dmultiply_latency"`

	// DivideLatency is the cost of DIV/DIVU. Default: 37 cycles.
	DivideLatency uint64 `json:"divide_latency" yaml:"divide_latency"`

	// DDivideLatency is the cost of DDIV/DDIVU. Default: 69 cycles.
	DDivideLatency uint64 `json:"ddivide_latency" yaml:"ddivide_latency"`

	// Cop0Latency is the cost of COP0 moves and TLB operations.
	// Default: 1 cycle.
	Cop0Latency uint64 `json:"cop0_latency" yaml:"cop0_latency"`

	// FPAddLatency is the cost of FPU add, subtract, compare and
	// conversions. Default: 3 cycles.
	FPAddLatency uint64 `json:"fp_add_latency" yaml:"fp_add_latency"`

	// FPMulLatency is the cost of FPU multiply. Default: 5 cycles.
	FPMulLatency uint64 `json:"fp_mul_latency" yaml:"fp_mul_latency"`

	// FPDivLatency is the cost of FPU divide and square root.
	// Default: 29 cycles.
	FPDivLatency uint64 `json:"fp_div_latency" yaml:"fp_div_latency"`

	// SyscallLatency is the cost of SYSCALL, BREAK, traps and ERET.
	// Default: 1 cycle.
	SyscallLatency uint64 `json:"syscall_latency" yaml:"syscall_latency"`
}

// DefaultTimingConfig returns a TimingConfig with VR4300 default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:       1,
		BranchLatency:    1,
		LoadLatency:      1,
		StoreLatency:     1,
		MultiplyLatency:  5,
		DMultiplyLatency: 8,
		DivideLatency:    37,
		DDivideLatency:   69,
		Cop0Latency:      1,
		FPAddLatency:     3,
		FPMulLatency:     5,
		FPDivLatency:     29,
		SyscallLatency:   1,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from
// the file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read timing config file")
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse timing config")
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize timing config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write timing config file")
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	fields := []struct {
		name  string
		value uint64
	}{
		{"alu_latency", c.ALULatency},
		{"branch_latency", c.BranchLatency},
		{"load_latency", c.LoadLatency},
		{"store_latency", c.StoreLatency},
		{"multiply_latency", c.MultiplyLatency},
		{"dmultiply_latency", c.DMultiplyLatency},
		{"divide_latency", c.DivideLatency},
		{"ddivide_latency", c.DDivideLatency},
		{"cop0_latency", c.Cop0Latency},
		{"fp_add_latency", c.FPAddLatency},
		{"fp_mul_latency", c.FPMulLatency},
		{"fp_div_latency", c.FPDivLatency},
		{"syscall_latency", c.SyscallLatency},
	}
	for _, f := range fields {
		if f.value == 0 {
			return errors.Errorf("%s must be > 0", f.name)
		}
	}
	if c.MultiplyLatency > c.DMultiplyLatency {
		return errors.New("multiply_latency must be <= dmultiply_latency")
	}
	if c.DivideLatency > c.DDivideLatency {
		return errors.New("divide_latency must be <= ddivide_latency")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
