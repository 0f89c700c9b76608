package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/troia/halo/internal/desktop"
)

type fakeResolver map[string]desktop.Entry

func (f fakeResolver) Resolve(name string) (desktop.Entry, error) {
	if e, ok := f[desktop.Normalize(name)]; ok {
		return e, nil
	}
	return desktop.Entry{}, &desktop.NotFoundError{Name: name}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
	}{
		{"north", North},
		{"North", North},
		{"n", North},
		{"0", North},
		{"north-east", NorthEast},
		{"north_east", NorthEast},
		{"NE", NorthEast},
		{"e", East},
		{"3", SouthEast},
		{"south", South},
		{"sw", SouthWest},
		{"west", West},
		{"7", NorthWest},
		{" northwest ", NorthWest},
		{"south west", SouthWest},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if err != nil {
			t.Fatalf("ParseDirection(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDirection(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "up", "8", "-1", "-3", "+2", "_7", "n-", "-n", "nor-th", "north-", "east-north", "nne"} {
		if _, err := ParseDirection(bad); err == nil {
			t.Fatalf("ParseDirection(%q): expected error", bad)
		}
	}
}

func TestDirection_TextRoundTrip(t *testing.T) {
	for _, d := range Directions {
		text, err := d.MarshalText()
		if err != nil {
			t.Fatalf("marshal %v: %v", d, err)
		}
		var got Direction
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("unmarshal %q: %v", text, err)
		}
		if got != d {
			t.Fatalf("round trip %v -> %q -> %v", d, text, got)
		}
	}
}

func TestParse_YAMLAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(strings.Join([]string{
		"slots:",
		"  - direction: north",
		"    app: zen",
		"  - direction: e",
		"    app: ghostty",
		"    class: com.mitchellh.ghostty",
		"  - direction: 4",
		"    app: files",
		"    exec: nautilus --new-window",
		"",
	}, "\n")), FormatYAML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.Slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(cfg.Slots))
	}
	if cfg.Settings != DefaultSettings() {
		t.Fatalf("expected default settings, got %+v", cfg.Settings)
	}

	east, ok := cfg.Slot(East)
	if !ok || east.App != "ghostty" || east.Class != "com.mitchellh.ghostty" {
		t.Fatalf("unexpected east slot: %+v (ok=%v)", east, ok)
	}
	south, ok := cfg.Slot(South)
	if !ok || south.Exec != "nautilus --new-window" {
		t.Fatalf("unexpected south slot: %+v (ok=%v)", south, ok)
	}
	if _, ok := cfg.Slot(West); ok {
		t.Fatalf("expected no west slot")
	}
}

func TestParse_IgnoresUnknownFields(t *testing.T) {
	cfg, err := Parse([]byte("theme: dark\nslots:\n  - direction: n\n    app: zen\n    color: red\n"), FormatYAML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.Slots) != 1 || cfg.Slots[0].App != "zen" {
		t.Fatalf("unexpected slots: %+v", cfg.Slots)
	}
}

func TestParse_TOML(t *testing.T) {
	cfg, err := Parse([]byte(strings.Join([]string{
		`log_level = "debug"`,
		`compositor_timeout = "250ms"`,
		``,
		`[[slots]]`,
		`direction = "north"`,
		`app = "Zen"`,
		`exec = "zen-browser"`,
		``,
		`[[slots]]`,
		`direction = 2`,
		`app = "Term"`,
		`exec = "kitty"`,
		``,
	}, "\n")), FormatTOML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Settings.LogLevel != "debug" {
		t.Fatalf("expected log_level debug, got %q", cfg.Settings.LogLevel)
	}
	if cfg.Settings.CompositorTimeout != 250*time.Millisecond {
		t.Fatalf("expected 250ms timeout, got %v", cfg.Settings.CompositorTimeout)
	}
	if s, ok := cfg.Slot(East); !ok || s.Exec != "kitty" {
		t.Fatalf("unexpected east slot: %+v", s)
	}
}

func TestParse_MalformedIsParseError(t *testing.T) {
	_, err := Parse([]byte("slots: [\n"), FormatYAML)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}

	_, err = Parse([]byte("slots = [[\n"), FormatTOML)
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError for toml, got %T: %v", err, err)
	}
}

func TestParse_BadDirectionIsValidationError(t *testing.T) {
	_, err := Parse([]byte("slots:\n  - direction: up\n    app: zen\n"), FormatYAML)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if verr.Path != "slots[0].direction" {
		t.Fatalf("unexpected path %q", verr.Path)
	}
}

func TestParse_NegativeDirectionIsRejected(t *testing.T) {
	for _, dir := range []string{"-1", "-3", "\"_7\""} {
		_, err := Parse([]byte("slots:\n  - direction: "+dir+"\n    app: zen\n"), FormatYAML)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("direction %s: expected ValidationError, got %T: %v", dir, err, err)
		}
		if verr.Path != "slots[0].direction" {
			t.Fatalf("direction %s: unexpected path %q", dir, verr.Path)
		}
	}
}

func TestValidate_DuplicateDirection(t *testing.T) {
	cfg := New([]Slot{
		{Direction: North, App: "a", Exec: "a"},
		{Direction: North, App: "b", Exec: "b"},
	}, DefaultSettings(), "")

	err := cfg.Validate(nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "slots[1].direction" {
		t.Fatalf("unexpected path %q", verr.Path)
	}
	if s, _ := cfg.Slot(North); s.App != "a" {
		t.Fatalf("expected first slot to own the index, got %+v", s)
	}
}

func TestValidate_EmptyApp(t *testing.T) {
	cfg := New([]Slot{{Direction: South, App: "  ", Exec: "x"}}, DefaultSettings(), "")
	var verr *ValidationError
	if err := cfg.Validate(nil); !errors.As(err, &verr) || verr.Path != "slots[0].app" {
		t.Fatalf("expected slots[0].app error, got %v", err)
	}
}

func TestValidate_Launchability(t *testing.T) {
	resolver := fakeResolver{"zen": {Name: "Zen", Exec: "zen-browser", Class: "zen"}}

	ok := New([]Slot{
		{Direction: North, App: "Zen"},
		{Direction: East, App: "custom", Exec: "my-tool"},
	}, DefaultSettings(), "")
	if err := ok.Validate(resolver); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	bad := New([]Slot{{Direction: West, App: "missing", Class: "missing"}}, DefaultSettings(), "")
	err := bad.Validate(resolver)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path != "slots[0].app" {
		t.Fatalf("expected unresolvable app error, got %v", err)
	}
}

func TestValidate_Settings(t *testing.T) {
	for _, tc := range []struct {
		name string
		mod  func(*Settings)
		path string
	}{
		{"log level", func(s *Settings) { s.LogLevel = "loud" }, "log_level"},
		{"backend", func(s *Settings) { s.Backend = "wayfire" }, "backend"},
		{"timeout", func(s *Settings) { s.CompositorTimeout = 0 }, "compositor_timeout"},
	} {
		settings := DefaultSettings()
		tc.mod(&settings)
		err := New(nil, settings, "").Validate(nil)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Path != tc.path {
			t.Fatalf("%s: expected %s error, got %v", tc.name, tc.path, err)
		}
	}
}

func TestLoadFromPath_MissingFileYieldsSetup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadFromPath(path, fakeResolver{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.IsSetup() {
		t.Fatalf("expected setup config, got %+v", cfg.Slots)
	}
	slot, ok := cfg.Slot(North)
	if !ok || slot.App != SetupApp || slot.Class != SetupClass || !slot.Setup {
		t.Fatalf("unexpected setup slot: %+v", slot)
	}
	if cfg.Source != path {
		t.Fatalf("expected source %q, got %q", path, cfg.Source)
	}
}

func TestLoadFromPath_ValidationErrorHasSourcePosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, strings.Join([]string{
		"slots:",
		"  - direction: north",
		"    app: A",
		"    exec: a",
		"  - direction: n",
		"    app: B",
		"    exec: b",
		"",
	}, "\n"))

	_, err := LoadFromPath(path, fakeResolver{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Source.Line != 5 {
		t.Fatalf("expected line 5, got %+v", verr.Source)
	}
	if !strings.HasPrefix(err.Error(), path+":5:") {
		t.Fatalf("expected file:line prefix, got %q", err.Error())
	}
}

func TestLoadFromPath_MissingKeyPointsAtSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "slots:\n  - direction: north\n    exec: a\n")

	_, err := LoadFromPath(path, fakeResolver{})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path != "slots[0].app" {
		t.Fatalf("expected slots[0].app error, got %v", err)
	}
	if verr.Source.Line != 2 {
		t.Fatalf("expected line 2, got %+v", verr.Source)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HALO_CONFIG", "")

	got, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if want := filepath.Join(dir, "halo", "config.yaml"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	if err := os.MkdirAll(filepath.Join(dir, "halo"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	tomlPath := filepath.Join(dir, "halo", "config.toml")
	writeFile(t, tomlPath, "")
	if got, _ := DefaultConfigPath(); got != tomlPath {
		t.Fatalf("expected toml fallback %q, got %q", tomlPath, got)
	}

	t.Setenv("HALO_CONFIG", "/etc/halo.yaml")
	if got, _ := DefaultConfigPath(); got != "/etc/halo.yaml" {
		t.Fatalf("expected HALO_CONFIG override, got %q", got)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	created, err := WriteDefault(path)
	if err != nil || !created {
		t.Fatalf("expected file to be created, got created=%v err=%v", created, err)
	}
	cfg, err := LoadFromPath(path, fakeResolver{})
	if err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if len(cfg.Slots) == 0 || cfg.IsSetup() {
		t.Fatalf("unexpected default slots: %+v", cfg.Slots)
	}

	writeFile(t, path, "slots: []\n")
	created, err = WriteDefault(path)
	if err != nil || created {
		t.Fatalf("expected existing file to be kept, got created=%v err=%v", created, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "slots: []\n" {
		t.Fatalf("existing file was overwritten: %q", data)
	}
}

func TestWriteDefault_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if _, err := WriteDefault(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadFromPath(path, fakeResolver{})
	if err != nil {
		t.Fatalf("toml default must validate: %v", err)
	}
	yamlCfg, _ := Parse(DefaultConfig(), FormatYAML)
	if len(cfg.Slots) != len(yamlCfg.Slots) {
		t.Fatalf("expected %d slots, got %d", len(yamlCfg.Slots), len(cfg.Slots))
	}
}

func TestStore_PublishStampsVersion(t *testing.T) {
	s := NewStore(nil)
	if s.Current() != nil {
		t.Fatalf("expected empty store")
	}

	base := New([]Slot{{Direction: North, App: "a", Exec: "a"}}, DefaultSettings(), "")
	first := s.Publish(base)
	second := s.Publish(base)

	if first.Version != 1 || second.Version != 2 {
		t.Fatalf("expected versions 1, 2; got %d, %d", first.Version, second.Version)
	}
	if base.Version != 0 {
		t.Fatalf("publish must not modify its argument")
	}
	if s.Current() != second {
		t.Fatalf("expected current to be the latest snapshot")
	}
	if first.Version != 1 {
		t.Fatalf("earlier snapshot changed after publish")
	}
}

func TestEncode_ReparsesToSameConfig(t *testing.T) {
	settings := DefaultSettings()
	settings.MenuHotkey = "Mod4-space"
	settings.CompositorTimeout = 2 * time.Second
	cfg := New([]Slot{
		{Direction: North, App: "zen"},
		{Direction: SouthWest, App: "Terminal", Class: "kitty", Exec: "kitty --single-instance"},
	}, settings, "")

	for _, format := range []Format{FormatYAML, FormatTOML} {
		data, err := cfg.Encode(format)
		if err != nil {
			t.Fatalf("encode %v: %v", format, err)
		}
		got, err := Parse(data, format)
		if err != nil {
			t.Fatalf("parse %v: %v\n%s", format, err, data)
		}
		if got.Settings != settings {
			t.Fatalf("%v: settings = %+v, want %+v", format, got.Settings, settings)
		}
		if len(got.Slots) != 2 || got.Slots[0] != cfg.Slots[0] || got.Slots[1] != cfg.Slots[1] {
			t.Fatalf("%v: slots = %+v", format, got.Slots)
		}
	}
}

func TestEncode_SkipsSetupSlot(t *testing.T) {
	data, err := SetupConfig("/tmp/halo.yaml").Encode(FormatYAML)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if strings.Contains(string(data), "halo-setup") {
		t.Fatalf("setup slot leaked into output:\n%s", data)
	}
}
