package palette

import (
	"fmt"
	"strings"
)

// detectBackend returns the first picker found in PATH, in the order of
// knownBackends.
func detectBackend(lookPath func(string) (string, error)) (string, error) {
	for _, name := range knownBackends {
		if _, err := lookPath(name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("no picker found in PATH (looked for: %s)", strings.Join(knownBackends, ", "))
}
