package main

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	appConfigDirName = "blackjack-advisor"
	storeFileName    = "advisor.db"
)

// defaultStorePath places the recorder database in the user's config dir,
// falling back to the working directory.
func defaultStorePath(logger *zap.Logger) string {
	base := appDataDir()
	if err := os.MkdirAll(base, 0o755); err != nil {
		logger.Warn("appdata mkdir failed; using working directory",
			zap.String("dir", base), zap.Error(err))
		return filepath.Join(".", storeFileName)
	}
	return filepath.Join(base, storeFileName)
}

// appDataDir returns an OS-appropriate writable directory.
func appDataDir() string {
	if d, err := os.UserConfigDir(); err == nil && d != "" {
		return filepath.Join(d, appConfigDirName)
	}
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return filepath.Join(h, "."+appConfigDirName)
	}
	return "."
}
