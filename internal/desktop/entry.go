package desktop

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	xdgdesktop "github.com/rkoesters/xdg/desktop"
)

// ErrNotFound is matched by every resolution miss.
var ErrNotFound = errors.New("desktop entry not found")

// NotFoundError reports which name failed to resolve.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no desktop entry matches %q", e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Entry is the subset of a .desktop file needed to match and launch an app.
type Entry struct {
	ID    string // desktop file ID, e.g. "org.gnome.Nautilus.desktop"
	Name  string
	Exec  string // field codes stripped
	Class string // StartupWMClass, or the file stem when absent
	Icon  string // raw Icon= value: a theme name or an absolute path
	Path  string
}

// Stem returns the desktop file ID without the .desktop suffix.
func (e Entry) Stem() string {
	return strings.TrimSuffix(e.ID, ".desktop")
}

// errSkip marks files that are valid but must not be indexed
// (non-applications, NoDisplay, Hidden).
var errSkip = errors.New("entry not indexed")

// ParseFile reads the [Desktop Entry] group of a desktop file. Localized
// keys resolve against the current locale and values are unescaped.
func ParseFile(path, id string) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	de, err := xdgdesktop.New(f)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", path, err)
	}
	if de.Type != xdgdesktop.Application || de.NoDisplay || de.Hidden {
		return Entry{}, errSkip
	}
	if de.Name == "" {
		return Entry{}, fmt.Errorf("%s: missing Name", path)
	}
	if strings.TrimSpace(de.Exec) == "" {
		return Entry{}, fmt.Errorf("%s: missing Exec", path)
	}

	if id == "" {
		id = filepath.Base(path)
	}
	entry := Entry{
		ID:    id,
		Name:  de.Name,
		Exec:  StripFieldCodes(de.Exec),
		Class: de.StartupWMClass,
		Icon:  de.Icon,
		Path:  path,
	}
	if entry.Class == "" {
		entry.Class = entry.Stem()
	}
	return entry, nil
}
