package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/mastercactapus/dexarm/machine"
	"github.com/mastercactapus/dexarm/machine/dexarm"
)

const DefaultConfigFile = "dexarm.json"

// Config holds the connection settings saved between runs.
type Config struct {
	Port    string `json:"port"`
	Baud    int    `json:"baud,omitempty"`
	Driver  string `json:"driver,omitempty"`
	SPJS    string `json:"spjs,omitempty"`
	Timeout string `json:"timeout,omitempty"`
	Sim     bool   `json:"sim,omitempty"`
}

// LoadConfigFrom loads configuration from path. A missing file
// is an empty Config.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Merge overrides c with every field set in o.
func (c *Config) Merge(o Config) {
	if o.Port != "" {
		c.Port = o.Port
	}
	if o.Baud != 0 {
		c.Baud = o.Baud
	}
	if o.Driver != "" {
		c.Driver = o.Driver
	}
	if o.SPJS != "" {
		c.SPJS = o.SPJS
	}
	if o.Timeout != "" {
		c.Timeout = o.Timeout
	}
	if o.Sim {
		c.Sim = true
	}
}

// ArmConfig converts c to the settings used to dial the arm.
func (c Config) ArmConfig() (dexarm.Config, error) {
	cfg := dexarm.Config{
		Config: machine.Config{
			Name:   c.Port,
			Baud:   c.Baud,
			Driver: c.Driver,
		},
	}
	if cfg.Baud == 0 {
		cfg.Baud = machine.DefaultBaud
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return cfg, err
		}
		cfg.Timeout = d
	}
	return cfg, nil
}
