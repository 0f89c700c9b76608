package platform

import (
	"fmt"
	"os"

	"github.com/troia/halo/internal/hyprland"
	"github.com/troia/halo/internal/runtimepath"
)

// Detect resolves a backend name. "auto" (or "") picks hyprland when
// HYPRLAND_INSTANCE_SIGNATURE is set and x11 when DISPLAY is set.
func Detect(name string) (string, error) {
	switch name {
	case "hyprland", "x11":
		return name, nil
	case "", "auto":
	default:
		return "", fmt.Errorf("unknown backend %q", name)
	}
	if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return "hyprland", nil
	}
	if os.Getenv("DISPLAY") != "" {
		return "x11", nil
	}
	return "", fmt.Errorf("no supported compositor detected (neither HYPRLAND_INSTANCE_SIGNATURE nor DISPLAY is set)")
}

// Open returns the directory for the named backend (see Detect).
func Open(name string) (Directory, error) {
	backend, err := Detect(name)
	if err != nil {
		return nil, err
	}
	switch backend {
	case "hyprland":
		socket, err := runtimepath.HyprlandSocketPath()
		if err != nil {
			return nil, err
		}
		return NewHyprlandDirectory(hyprland.NewClient(socket)), nil
	default:
		return NewX11Directory(), nil
	}
}
