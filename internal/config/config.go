package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/troia/halo/internal/desktop"
)

const (
	// SetupApp and SetupClass identify the slot offered when no
	// configuration file exists yet.
	SetupApp   = "Setup"
	SetupClass = "halo-setup"

	DefaultCompositorTimeout = time.Second
)

// ErrNoSlot is returned when a direction has no slot configured.
var ErrNoSlot = errors.New("no slot configured")

// Slot binds a direction of the menu to an application.
type Slot struct {
	Direction Direction `json:"direction"`
	App       string    `json:"app"`
	Class     string    `json:"class,omitempty"`
	Exec      string    `json:"exec,omitempty"`
	// Setup marks the synthesized slot that writes the default configuration
	// instead of running an application. It cannot be set from a file.
	Setup bool `json:"setup,omitempty"`
}

// Settings are daemon-wide knobs read once at startup.
type Settings struct {
	LogLevel          string        `json:"log_level"`
	Backend           string        `json:"backend"`
	CompositorTimeout time.Duration `json:"compositor_timeout"`
	MetricsAddr       string        `json:"metrics_addr,omitempty"`
	// MenuHotkey is an X11 key sequence such as "Mod4-space" that toggles
	// the menu. Ignored on other backends.
	MenuHotkey string `json:"menu_hotkey,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		LogLevel:          "info",
		Backend:           "auto",
		CompositorTimeout: DefaultCompositorTimeout,
	}
}

// SlogLevel maps LogLevel onto a slog level. Unknown values map to info.
func (s Settings) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is an immutable snapshot of the slot configuration. Once handed to
// a Store it must not be modified; the store stamps Version on publish.
type Config struct {
	Slots    []Slot
	Settings Settings
	// Source is the file the configuration was loaded from. It is set for the
	// Setup configuration too, naming the file Setup will create.
	Source  string
	Version uint64

	byDirection map[Direction]int
}

// New builds a configuration and its direction index. When directions
// repeat, the first slot wins the index; Validate reports the duplicate.
func New(slots []Slot, settings Settings, source string) *Config {
	cfg := &Config{
		Slots:    append([]Slot(nil), slots...),
		Settings: settings,
		Source:   source,
	}
	cfg.index()
	return cfg
}

// SetupConfig is the configuration in effect while no file exists at path:
// a single North slot whose action creates the default file.
func SetupConfig(path string) *Config {
	return New([]Slot{{
		Direction: North,
		App:       SetupApp,
		Class:     SetupClass,
		Setup:     true,
	}}, DefaultSettings(), path)
}

func (c *Config) index() {
	c.byDirection = make(map[Direction]int, len(c.Slots))
	for i, s := range c.Slots {
		if _, ok := c.byDirection[s.Direction]; !ok {
			c.byDirection[s.Direction] = i
		}
	}
}

// Slot returns the slot configured for d.
func (c *Config) Slot(d Direction) (Slot, bool) {
	if c == nil {
		return Slot{}, false
	}
	i, ok := c.byDirection[d]
	if !ok {
		return Slot{}, false
	}
	return c.Slots[i], true
}

// IsSetup reports whether c is the synthesized Setup configuration.
func (c *Config) IsSetup() bool {
	return c != nil && len(c.Slots) == 1 && c.Slots[0].Setup
}

func (c *Config) withVersion(v uint64) *Config {
	out := *c
	out.Slots = append([]Slot(nil), c.Slots...)
	out.Version = v
	out.index()
	return &out
}

// Resolver looks up applications by name. *desktop.Resolver satisfies it.
type Resolver interface {
	Resolve(name string) (desktop.Entry, error)
}

// Validate checks slot uniqueness and that every slot can be launched. A slot
// without an explicit exec must name an application the resolver knows.
// A nil resolver skips the resolvability check.
func (c *Config) Validate(resolver Resolver) error {
	seen := make(map[Direction]int, len(c.Slots))
	for i, s := range c.Slots {
		path := fmt.Sprintf("slots[%d]", i)
		if !s.Direction.Valid() {
			return &ValidationError{Path: path + ".direction", Err: fmt.Errorf("invalid direction %d", int(s.Direction))}
		}
		if prev, ok := seen[s.Direction]; ok {
			return &ValidationError{
				Path: path + ".direction",
				Err:  fmt.Errorf("duplicate direction %s (already used by slots[%d])", s.Direction, prev),
			}
		}
		seen[s.Direction] = i

		if strings.TrimSpace(s.App) == "" {
			return &ValidationError{Path: path + ".app", Err: fmt.Errorf("app is required")}
		}
		if s.Setup || strings.TrimSpace(s.Exec) != "" || resolver == nil {
			continue
		}
		if _, err := resolver.Resolve(s.App); err != nil {
			if errors.Is(err, desktop.ErrNotFound) {
				return &ValidationError{
					Path: path + ".app",
					Err:  fmt.Errorf("%q has no desktop entry and no exec is set", s.App),
				}
			}
			return &ValidationError{Path: path + ".app", Err: err}
		}
	}
	return c.Settings.validate()
}

func (s Settings) validate() error {
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	switch s.Backend {
	case "auto", "hyprland", "x11":
	default:
		return &ValidationError{Path: "backend", Err: fmt.Errorf("backend must be one of: auto, hyprland, x11")}
	}
	if s.CompositorTimeout <= 0 {
		return &ValidationError{Path: "compositor_timeout", Err: fmt.Errorf("compositor_timeout must be > 0")}
	}
	return nil
}
