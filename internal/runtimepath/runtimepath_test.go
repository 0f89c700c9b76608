package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDir_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_FallbacksWhenXDGRuntimeDirMissing(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}

	wantRun := fmt.Sprintf("/run/user/%d", os.Getuid())
	wantTmp := fmt.Sprintf("/tmp/halo-runtime-%d", os.Getuid())
	if got != wantRun && got != wantTmp {
		t.Fatalf("Dir() = %q, want %q or %q", got, wantRun, wantTmp)
	}
}

func TestSocketPath(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)
	t.Setenv("HALO_SOCKET", "")

	socket, err := SocketPath()
	if err != nil {
		t.Fatalf("SocketPath() error: %v", err)
	}
	if !strings.HasSuffix(socket, "/halo.sock") {
		t.Fatalf("SocketPath() = %q, missing suffix", socket)
	}

	t.Setenv("HALO_SOCKET", "/tmp/custom.sock")
	socket, err = SocketPath()
	if err != nil {
		t.Fatalf("SocketPath() error: %v", err)
	}
	if socket != "/tmp/custom.sock" {
		t.Fatalf("SocketPath() = %q, want override", socket)
	}
}

func TestHyprlandSocketPath(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")
	if _, err := HyprlandSocketPath(); err == nil {
		t.Fatal("expected error without instance signature")
	}

	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc_123")
	dir := filepath.Join(td, "hypr", "abc_123")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	want := filepath.Join(dir, ".socket.sock")
	if err := os.WriteFile(want, nil, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := HyprlandSocketPath()
	if err != nil {
		t.Fatalf("HyprlandSocketPath() error: %v", err)
	}
	if got != want {
		t.Fatalf("HyprlandSocketPath() = %q, want %q", got, want)
	}
}
