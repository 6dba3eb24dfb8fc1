package config

import (
	"os"
	"path/filepath"
)

// DefaultStatePath is the per-user directory holding client state, e.g.
// ~/.config/storefront on Linux.
func DefaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "storefront")
	}
	return filepath.Join(dir, "storefront")
}
