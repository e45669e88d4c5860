// Package config holds the machine configuration: which backend drives the
// CPU, memory size, instruction timing and backend tuning. Configurations
// are stored as JSON or YAML, chosen by file extension.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/n64core/bus"
	"github.com/sarchlab/n64core/cached"
	"github.com/sarchlab/n64core/dynarec"
	"github.com/sarchlab/n64core/timing/latency"
)

// Backend names.
const (
	BackendInterpreter = "interpreter"
	BackendCached      = "cached"
	BackendDynarec     = "dynarec"
)

// Backends lists every backend name.
var Backends = []string{BackendInterpreter, BackendCached, BackendDynarec}

// DefaultFrameCycles is one 60 Hz frame of the 93.75 MHz CPU clock.
const DefaultFrameCycles = 1_562_500

// Config describes a machine.
type Config struct {
	// Backend selects the execution backend. Default: dynarec.
	Backend string `json:"backend" yaml:"backend"`

	// RDRAMSize is the RDRAM size in bytes, 4 or 8 MiB. Default: 8 MiB.
	RDRAMSize int `json:"rdram_size" yaml:"rdram_size"`

	// FrameCycles is how many cycles Run executes between context checks.
	FrameCycles uint64 `json:"frame_cycles" yaml:"frame_cycles"`

	Timing  *latency.TimingConfig `json:"timing" yaml:"timing"`
	Cache   cached.Config         `json:"cache" yaml:"cache"`
	Dynarec dynarec.Config        `json:"dynarec" yaml:"dynarec"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Backend:     BackendDynarec,
		RDRAMSize:   bus.RDRAMSize8M,
		FrameCycles: DefaultFrameCycles,
		Timing:      latency.DefaultTimingConfig(),
		Cache:       cached.DefaultConfig(),
		Dynarec:     dynarec.DefaultConfig(),
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a configuration file. Fields missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config, err := Parse(data, isYAML(path))
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return config, nil
}

// Parse decodes a configuration from JSON, or YAML when yml is set, on
// top of the defaults, and validates it.
func Parse(data []byte, yml bool) (*Config, error) {
	config := Default()

	if yml {
		err := yaml.Unmarshal(data, config)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse YAML config")
		}
	} else {
		err := json.Unmarshal(data, config)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse JSON config")
		}
	}

	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration, as YAML when path ends in .yaml or .yml
// and as JSON otherwise.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, "failed to serialize config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// Validate checks every section of the configuration.
func (c *Config) Validate() error {
	if !slices.Contains(Backends, c.Backend) {
		return errors.Errorf("unknown backend %q (want one of %s)",
			c.Backend, strings.Join(Backends, ", "))
	}
	if c.RDRAMSize != bus.RDRAMSize4M && c.RDRAMSize != bus.RDRAMSize8M {
		return errors.Errorf("rdram_size must be %d or %d, got %d",
			bus.RDRAMSize4M, bus.RDRAMSize8M, c.RDRAMSize)
	}
	if c.FrameCycles == 0 {
		return errors.New("frame_cycles must be > 0")
	}
	if c.Timing == nil {
		return errors.New("timing section missing")
	}
	if err := c.Timing.Validate(); err != nil {
		return errors.Wrap(err, "timing")
	}
	if err := c.Cache.Validate(); err != nil {
		return errors.Wrap(err, "cache")
	}
	if err := c.Dynarec.Validate(); err != nil {
		return errors.Wrap(err, "dynarec")
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Timing != nil {
		clone.Timing = c.Timing.Clone()
	}
	return &clone
}
