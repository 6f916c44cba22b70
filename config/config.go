// Package config holds the cache geometry of a simulation session.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/sarchlab/moesisim/coherence"
)

// Config describes the simulated caches.
type Config struct {
	// Processors is the number of private caches. Default: 4.
	Processors int `json:"processors"`

	// AddressWidth is the number of address bits. Default: 32.
	AddressWidth int `json:"address_width"`

	// LineSize is the cache line size in bytes. Default: 32.
	LineSize int `json:"line_size"`

	// CacheSize is the size of each private cache in bytes. Default: 16KB.
	CacheSize int `json:"cache_size"`
}

// Environment variables read by ApplyEnv.
const (
	EnvProcessors   = "MOESISIM_PROCESSORS"
	EnvAddressWidth = "MOESISIM_ADDRESS_WIDTH"
	EnvLineSize     = "MOESISIM_LINE_SIZE"
	EnvCacheSize    = "MOESISIM_CACHE_SIZE"
)

// DefaultConfig returns four 16KB direct-mapped caches with 32B lines on a
// 32-bit address space.
func DefaultConfig() *Config {
	return &Config{
		Processors:   4,
		AddressWidth: 32,
		LineSize:     32,
		CacheSize:    16 * 1024,
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

// SaveConfig writes the Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from MOESISIM_* variables found by lookup,
// typically os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	fields := []struct {
		name string
		dst  *int
	}{
		{EnvProcessors, &c.Processors},
		{EnvAddressWidth, &c.AddressWidth},
		{EnvLineSize, &c.LineSize},
		{EnvCacheSize, &c.CacheSize},
	}

	for _, f := range fields {
		raw, ok := lookup(f.name)
		if !ok || raw == "" {
			continue
		}

		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}

	return nil
}

// Validate checks that the configuration describes a buildable geometry.
func (c *Config) Validate() error {
	if c.Processors < 1 {
		return fmt.Errorf("processors must be > 0")
	}
	if _, err := c.Geometry(); err != nil {
		return err
	}
	return nil
}

// Geometry derives the address split from the configured sizes.
func (c *Config) Geometry() (coherence.Geometry, error) {
	g, err := coherence.NewGeometry(c.AddressWidth, c.LineSize, c.CacheSize)
	if err != nil {
		return coherence.Geometry{}, fmt.Errorf("invalid cache geometry: %w", err)
	}
	return g, nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
