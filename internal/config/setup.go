package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio"
)

//go:embed default_config.yaml
var defaultConfig []byte

// DefaultConfig returns the configuration written by the Setup action.
func DefaultConfig() []byte {
	return append([]byte(nil), defaultConfig...)
}

// WriteDefault creates path with the default configuration unless a file
// already exists there. created reports whether this call wrote it.
func WriteDefault(path string) (created bool, err error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	data := defaultConfig
	if FormatFor(path) == FormatTOML {
		if data, err = defaultTOML(); err != nil {
			return false, err
		}
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write default config: %w", err)
	}
	return true, nil
}

func defaultTOML() ([]byte, error) {
	cfg, err := Parse(defaultConfig, FormatYAML)
	if err != nil {
		return nil, err
	}
	data, err := cfg.Encode(FormatTOML)
	if err != nil {
		return nil, err
	}
	return append([]byte("# halo configuration\n\n"), data...), nil
}
