package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// RawConfig is the on-disk schema. Pointer fields distinguish "unset" from
// zero values so defaults can be applied after decoding.
type RawConfig struct {
	LogLevel          *string   `yaml:"log_level,omitempty" toml:"log_level"`
	Backend           *string   `yaml:"backend,omitempty" toml:"backend"`
	CompositorTimeout *string   `yaml:"compositor_timeout,omitempty" toml:"compositor_timeout"`
	MetricsAddr       *string   `yaml:"metrics_addr,omitempty" toml:"metrics_addr,omitempty"`
	MenuHotkey        *string   `yaml:"menu_hotkey,omitempty" toml:"menu_hotkey,omitempty"`
	Slots             []RawSlot `yaml:"slots" toml:"slots"`
}

// RawSlot is one entry of the slots list. Direction is decoded loosely since
// both names ("north") and indices (0) are accepted.
type RawSlot struct {
	Direction any    `yaml:"direction" toml:"direction"`
	App       string `yaml:"app" toml:"app"`
	Class     string `yaml:"class,omitempty" toml:"class,omitempty"`
	Exec      string `yaml:"exec,omitempty" toml:"exec,omitempty"`
}

// build applies defaults and converts raw values into a Config. It does not
// check cross-slot rules; see Config.Validate.
func (raw RawConfig) build(source string) (*Config, error) {
	settings := DefaultSettings()
	if raw.LogLevel != nil {
		settings.LogLevel = strings.TrimSpace(*raw.LogLevel)
	}
	if raw.Backend != nil {
		settings.Backend = strings.ToLower(strings.TrimSpace(*raw.Backend))
	}
	if raw.CompositorTimeout != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*raw.CompositorTimeout))
		if err != nil {
			return nil, &ValidationError{Path: "compositor_timeout", Err: err}
		}
		settings.CompositorTimeout = d
	}
	if raw.MetricsAddr != nil {
		settings.MetricsAddr = strings.TrimSpace(*raw.MetricsAddr)
	}
	if raw.MenuHotkey != nil {
		settings.MenuHotkey = strings.TrimSpace(*raw.MenuHotkey)
	}

	slots := make([]Slot, 0, len(raw.Slots))
	for i, rs := range raw.Slots {
		path := fmt.Sprintf("slots[%d].direction", i)
		if rs.Direction == nil {
			return nil, &ValidationError{Path: path, Err: fmt.Errorf("direction is required")}
		}
		dir, err := ParseDirection(fmt.Sprint(rs.Direction))
		if err != nil {
			return nil, &ValidationError{Path: path, Err: err}
		}
		slots = append(slots, Slot{
			Direction: dir,
			App:       strings.TrimSpace(rs.App),
			Class:     strings.TrimSpace(rs.Class),
			Exec:      strings.TrimSpace(rs.Exec),
		})
	}
	return New(slots, settings, source), nil
}

// Raw converts c back into the file schema, used by "halo config print".
func (c *Config) Raw() RawConfig {
	logLevel := c.Settings.LogLevel
	backend := c.Settings.Backend
	timeout := c.Settings.CompositorTimeout.String()
	raw := RawConfig{
		LogLevel:          &logLevel,
		Backend:           &backend,
		CompositorTimeout: &timeout,
	}
	if c.Settings.MetricsAddr != "" {
		addr := c.Settings.MetricsAddr
		raw.MetricsAddr = &addr
	}
	if c.Settings.MenuHotkey != "" {
		hotkey := c.Settings.MenuHotkey
		raw.MenuHotkey = &hotkey
	}
	for _, s := range c.Slots {
		if s.Setup {
			continue
		}
		raw.Slots = append(raw.Slots, RawSlot{
			Direction: s.Direction.String(),
			App:       s.App,
			Class:     s.Class,
			Exec:      s.Exec,
		})
	}
	return raw
}

// Encode renders c in the file schema.
func (c *Config) Encode(format Format) ([]byte, error) {
	raw := c.Raw()
	if format == FormatTOML {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}
		return buf.Bytes(), nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
