// Package config holds the kernel configuration read by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Channel encodings.
const (
	EncodingJSON = "json"
	EncodingCBOR = "cbor"
)

// DebugEnv turns the trace on when set to a true value.
const DebugEnv = "JSII_DEBUG"

// Config is the kernel configuration.
type Config struct {
	Encoding string      `yaml:"encoding" toml:"encoding"`
	Modules  []Module    `yaml:"modules" toml:"modules"`
	Trace    TraceConfig `yaml:"trace" toml:"trace"`
	Wasm     WasmConfig  `yaml:"wasm" toml:"wasm"`
}

// Module is loaded before the first request is read.
type Module struct {
	Name    string `yaml:"name" toml:"name"`
	Locator string `yaml:"locator" toml:"locator"`
}

// TraceConfig configures the trace sink.
type TraceConfig struct {
	// Enabled forces the trace on or off. Unset means on when stderr is a
	// terminal.
	Enabled   *bool `yaml:"enabled" toml:"enabled"`
	MaxArgLen int   `yaml:"max_arg_len" toml:"max_arg_len"`
}

// WasmConfig configures the WebAssembly loader.
type WasmConfig struct {
	MemoryLimitPages uint32 `yaml:"memory_limit_pages" toml:"memory_limit_pages"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Encoding: EncodingJSON,
	}
}

// FromEnv returns the defaults with environment overrides applied. It is
// the configuration used when no file is given.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnvOverrides()
	return cfg
}

// Load reads path as YAML or TOML, chosen by extension, on top of the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	case ".toml":
		format = "toml"
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	cfg, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the given format ("yaml" or "toml"), applies
// environment overrides and validates the result.
func Parse(data []byte, format string) (*Config, error) {
	cfg := Default()

	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case "toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown config key %q", undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(DebugEnv); v != "" {
		// Any value other than a false boolean enables the trace.
		on, err := strconv.ParseBool(v)
		if err != nil {
			on = true
		}
		c.Trace.Enabled = &on
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Encoding {
	case EncodingJSON, EncodingCBOR:
	default:
		return fmt.Errorf("invalid encoding: %q (valid: %s, %s)", c.Encoding, EncodingJSON, EncodingCBOR)
	}
	if c.Trace.MaxArgLen < 0 {
		return fmt.Errorf("trace.max_arg_len must not be negative, got %d", c.Trace.MaxArgLen)
	}
	seen := make(map[string]bool, len(c.Modules))
	for i, m := range c.Modules {
		if m.Name == "" || m.Locator == "" {
			return fmt.Errorf("modules[%d]: name and locator are required", i)
		}
		if seen[m.Name] {
			return fmt.Errorf("modules[%d]: duplicate module name %q", i, m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

// TraceEnabled resolves the trace switch. tty reports whether stderr is a
// terminal and decides when the switch is unset.
func (c *Config) TraceEnabled(tty bool) bool {
	if c.Trace.Enabled != nil {
		return *c.Trace.Enabled
	}
	return tty
}
