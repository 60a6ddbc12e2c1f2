package homedir

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "deskwatch"

// Get returns the per-user configuration directory of deskwatch.
func Get() (string, error) {
	if dir := os.Getenv("DESKWATCH_HOME"); dir != "" {
		return dir, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("homedir: could not resolve user config dir: %w", err)
	}

	return filepath.Join(base, appName), nil
}
