package desktop

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DataDirs returns XDG_DATA_HOME followed by XDG_DATA_DIRS, highest
// precedence first.
func DataDirs() []string {
	var dirs []string
	if home := os.Getenv("XDG_DATA_HOME"); home != "" {
		dirs = append(dirs, home)
	} else if userHome, err := os.UserHomeDir(); err == nil && userHome != "" {
		dirs = append(dirs, filepath.Join(userHome, ".local", "share"))
	}

	system := os.Getenv("XDG_DATA_DIRS")
	if system == "" {
		system = "/usr/local/share:/usr/share"
	}
	for _, d := range strings.Split(system, ":") {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// ApplicationDirs returns the applications/ subdirectory of every data dir.
func ApplicationDirs(dataDirs []string) []string {
	out := make([]string, 0, len(dataDirs))
	for _, d := range dataDirs {
		out = append(out, filepath.Join(d, "applications"))
	}
	return out
}

// Normalize is the key form used for every index lookup.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type index struct {
	byKey   map[string]Entry
	entries []Entry
}

// Resolver indexes desktop entries by display name, file stem and window
// class hint. The index is built once and only rebuilt on request.
type Resolver struct {
	appDirs []string
	icons   *IconFinder
	logger  *slog.Logger

	mu  sync.RWMutex
	idx *index
}

// NewResolver creates a resolver over the given XDG data directories,
// highest precedence first.
func NewResolver(dataDirs []string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		appDirs: ApplicationDirs(dataDirs),
		icons:   NewIconFinder(dataDirs),
		logger:  logger,
	}
}

// NewDefaultResolver uses DataDirs().
func NewDefaultResolver(logger *slog.Logger) *Resolver {
	return NewResolver(DataDirs(), logger)
}

// Resolve looks up an app by normalized name. The index is built on first use.
func (r *Resolver) Resolve(name string) (Entry, error) {
	key := Normalize(name)
	if key == "" {
		return Entry{}, &NotFoundError{Name: name}
	}

	idx := r.current()
	if entry, ok := idx.byKey[key]; ok {
		return entry, nil
	}
	return Entry{}, &NotFoundError{Name: name}
}

// Entries returns every indexed entry in scan order.
func (r *Resolver) Entries() []Entry {
	idx := r.current()
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// IconPath resolves an entry's icon reference to a file, or "".
func (r *Resolver) IconPath(e Entry) string {
	return r.icons.Find(e.Icon)
}

// Rebuild rescans all directories and swaps in the new index. Readers keep
// seeing the old index until the swap.
func (r *Resolver) Rebuild() int {
	idx := r.scan()
	r.mu.Lock()
	r.idx = idx
	r.mu.Unlock()
	r.icons.Reset()
	return len(idx.entries)
}

func (r *Resolver) current() *index {
	r.mu.RLock()
	idx := r.idx
	r.mu.RUnlock()
	if idx != nil {
		return idx
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idx == nil {
		r.idx = r.scan()
	}
	return r.idx
}

func (r *Resolver) scan() *index {
	idx := &index{byKey: make(map[string]Entry)}
	seenIDs := make(map[string]bool)

	for _, dir := range r.appDirs {
		files, err := desktopFiles(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				r.logger.Warn("failed to scan desktop entries", "dir", dir, "error", err)
			}
			continue
		}
		for _, f := range files {
			// An ID seen in a higher-precedence directory shadows this file,
			// even if that earlier file was itself hidden.
			if seenIDs[f.id] {
				continue
			}
			seenIDs[f.id] = true

			entry, err := ParseFile(f.path, f.id)
			if err != nil {
				if !errors.Is(err, errSkip) {
					r.logger.Debug("skipping desktop entry", "path", f.path, "error", err)
				}
				continue
			}
			idx.entries = append(idx.entries, entry)
			for _, key := range []string{entry.Name, entry.Stem(), entry.Class} {
				k := Normalize(key)
				if k == "" {
					continue
				}
				if _, taken := idx.byKey[k]; !taken {
					idx.byKey[k] = entry
				}
			}
		}
	}

	r.logger.Debug("desktop entries indexed", "entries", len(idx.entries), "keys", len(idx.byKey))
	return idx
}

type desktopFile struct {
	id   string
	path string
}

// desktopFiles lists .desktop files below dir in a stable order. Files in
// subdirectories get IDs with '/' replaced by '-', as freedesktop desktop-file IDs require.
func desktopFiles(dir string) ([]desktopFile, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}

	var files []desktopFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".desktop") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		files = append(files, desktopFile{
			id:   strings.ReplaceAll(filepath.ToSlash(rel), "/", "-"),
			path: path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].id < files[j].id
	})
	return files, nil
}
