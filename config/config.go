// Package config holds the simulator configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/legsim/memory"
)

// Config holds the memory layout and run-loop settings of a simulation.
type Config struct {
	// TextBase is where programs are loaded and execution starts.
	// Default: 0x00400000.
	TextBase uint64 `json:"text_base"`

	// TextSize is the size of the text region in bytes. Default: 1 MiB.
	TextSize uint64 `json:"text_size"`

	// DataBase is the start of the data region. Default: 0x10000000.
	DataBase uint64 `json:"data_base"`

	// DataSize is the size of the data region in bytes. Default: 1 MiB.
	DataSize uint64 `json:"data_size"`

	// StackBase is the start of the stack region. Default: 0x7FF00000.
	StackBase uint64 `json:"stack_base"`

	// StackSize is the size of the stack region in bytes. Default: 1 MiB.
	StackSize uint64 `json:"stack_size"`

	// MaxInstructions stops the run loop after this many instructions.
	// 0 means no limit.
	MaxInstructions uint64 `json:"max_instructions"`

	// LegacyNarrowStoreAddress computes store addresses in 32 bits for
	// compatibility with legacy LEGv8 traces. Loads always use 64-bit
	// addresses.
	LegacyNarrowStoreAddress bool `json:"legacy_narrow_store_address"`

	// Verbose prints load and run details.
	Verbose bool `json:"verbose"`
}

// DefaultConfig returns a Config with the default memory layout.
func DefaultConfig() *Config {
	return &Config{
		TextBase:  memory.TextBase,
		TextSize:  memory.DefaultRegionSize,
		DataBase:  memory.DataBase,
		DataSize:  memory.DefaultRegionSize,
		StackBase: memory.StackBase,
		StackSize: memory.DefaultRegionSize,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// Save writes a Config to a JSON file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Regions returns the memory regions described by the config.
func (c *Config) Regions() []memory.Region {
	return []memory.Region{
		{Name: "text", Base: c.TextBase, Size: c.TextSize},
		{Name: "data", Base: c.DataBase, Size: c.DataSize},
		{Name: "stack", Base: c.StackBase, Size: c.StackSize},
	}
}

// Validate checks that every region is non-empty, word aligned and does not
// overlap another region.
func (c *Config) Validate() error {
	regions := c.Regions()

	for i, r := range regions {
		if r.Size == 0 {
			return fmt.Errorf("%s_size must be > 0", r.Name)
		}
		if r.Base%4 != 0 || r.Size%4 != 0 {
			return fmt.Errorf("%s region must be word aligned", r.Name)
		}
		if r.End() < r.Base {
			return fmt.Errorf("%s region wraps the address space", r.Name)
		}
		for _, prev := range regions[:i] {
			if r.Overlaps(prev) {
				return fmt.Errorf("%s region overlaps %s region", r.Name, prev.Name)
			}
		}
	}

	return nil
}
