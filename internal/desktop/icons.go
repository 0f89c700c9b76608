package desktop

import (
	"os"
	"path/filepath"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const iconCacheTTL = 10 * time.Minute

var iconSizes = []string{"scalable", "512x512", "256x256", "128x128", "96x96", "64x64", "48x48", "32x32"}

var iconExts = []string{".svg", ".png", ".xpm"}

// IconFinder maps Icon= values to files in the hicolor theme or pixmaps.
// Theme lookups hit the filesystem many times per name, so results
// (including misses) are memoized for a while.
type IconFinder struct {
	dataDirs []string
	cache    *ttlcache.Cache[string, string]
}

// NewIconFinder searches the given XDG data directories in order.
func NewIconFinder(dataDirs []string) *IconFinder {
	return &IconFinder{
		dataDirs: dataDirs,
		cache: ttlcache.New[string, string](
			ttlcache.WithTTL[string, string](iconCacheTTL),
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
	}
}

// Find returns an icon file path, or "" when nothing matches.
func (f *IconFinder) Find(icon string) string {
	if icon == "" {
		return ""
	}
	if filepath.IsAbs(icon) {
		if _, err := os.Stat(icon); err == nil {
			return icon
		}
		return ""
	}
	if item := f.cache.Get(icon); item != nil {
		return item.Value()
	}

	path := f.lookup(icon)
	f.cache.Set(icon, path, ttlcache.DefaultTTL)
	return path
}

// Reset drops memoized lookups.
func (f *IconFinder) Reset() {
	f.cache.DeleteAll()
}

func (f *IconFinder) lookup(icon string) string {
	for _, dir := range f.dataDirs {
		for _, size := range iconSizes {
			for _, ext := range iconExts {
				p := filepath.Join(dir, "icons", "hicolor", size, "apps", icon+ext)
				if _, err := os.Stat(p); err == nil {
					return p
				}
			}
		}
	}
	for _, dir := range f.dataDirs {
		for _, ext := range iconExts {
			p := filepath.Join(dir, "pixmaps", icon+ext)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}
