package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the syntax from a file extension. Anything that is not
// .toml is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// ConfigDir returns $XDG_CONFIG_HOME/halo, falling back to ~/.config/halo.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "halo"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "halo"), nil
}

// DefaultConfigPath returns $HALO_CONFIG when set. Otherwise it is
// config.yaml in ConfigDir, or config.toml when only that one exists.
func DefaultConfigPath() (string, error) {
	if p := os.Getenv("HALO_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	yamlPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath, nil
	}
	tomlPath := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	return yamlPath, nil
}

// Parse decodes data without validating it against the desktop index.
func Parse(data []byte, format Format) (*Config, error) {
	cfg, _, err := parse(data, format, "")
	return cfg, err
}

// Load reads the default config path.
func Load(resolver Resolver) (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path, resolver)
}

// LoadFromPath reads, parses and validates the file at path. A missing file
// is not an error: the Setup configuration is returned instead.
func LoadFromPath(path string, resolver Resolver) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return SetupConfig(path), nil
		}
		return nil, fmt.Errorf("%s: failed to read: %w", path, err)
	}

	cfg, sources, err := parse(data, FormatFor(path), path)
	if err != nil {
		return nil, attachSourceContext(err, sources)
	}
	if err := cfg.Validate(resolver); err != nil {
		return nil, attachSourceContext(err, sources)
	}
	return cfg, nil
}

func parse(data []byte, format Format, path string) (*Config, map[string]Source, error) {
	var raw RawConfig
	var sources map[string]Source

	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, nil, &ParseError{File: path, Format: format, Err: err}
		}
	case FormatYAML, "":
		format = FormatYAML
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, nil, &ParseError{File: path, Format: format, Err: err}
		}
		if doc.Kind != 0 {
			if err := doc.Decode(&raw); err != nil {
				return nil, nil, &ParseError{File: path, Format: format, Err: err}
			}
		}
		sources = collectSources(&doc, path)
	default:
		return nil, nil, fmt.Errorf("unsupported config format %q", format)
	}

	cfg, err := raw.build(path)
	if err != nil {
		return nil, sources, err
	}
	return cfg, sources, nil
}

func attachSourceContext(err error, sources map[string]Source) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Source.Line > 0 {
		return err
	}
	// Missing keys have no position of their own; point at the enclosing node.
	for path := verr.Path; path != ""; {
		if src, ok := sources[path]; ok {
			verr.Source = src
			break
		}
		i := strings.LastIndexAny(path, ".[")
		if i < 0 {
			break
		}
		path = path[:i]
	}
	return err
}

func collectSources(doc *yaml.Node, file string) map[string]Source {
	out := make(map[string]Source)
	if doc == nil || file == "" {
		return out
	}
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	collectSourcesRec(node, file, "", out)
	return out
}

func collectSourcesRec(node *yaml.Node, file string, prefix string, out map[string]Source) {
	if node == nil {
		return
	}
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			val := node.Content[i+1]
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			out[path] = Source{File: file, Line: val.Line, Column: val.Column}
			collectSourcesRec(val, file, path, out)
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			path := fmt.Sprintf("%s[%d]", prefix, i)
			out[path] = Source{File: file, Line: item.Line, Column: item.Column}
			collectSourcesRec(item, file, path, out)
		}
	}
}
