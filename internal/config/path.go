package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns the default data directory based on the host OS.
// It prefers standard locations when available and falls back to a dotdir
// in the user's home directory.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}

	// XDG (Linux) override
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "flashlog")
	}

	// Common Linux/Unix system dir
	if isDir("/var/lib") {
		return "/var/lib/flashlog"
	}

	// macOS: ~/Library/Application Support/Flashlog
	if isDir(filepath.Join(homeDir, "Library")) {
		return filepath.Join(homeDir, "Library", "Application Support", "Flashlog")
	}

	// Windows: %USERPROFILE%/AppData/Local/Flashlog
	if isDir(filepath.Join(homeDir, "AppData")) {
		return filepath.Join(homeDir, "AppData", "Local", "Flashlog")
	}

	// Fallback: ~/.flashlog
	return filepath.Join(homeDir, ".flashlog")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// ResolvedDataDir returns DataDir, or DefaultDataDir when unset.
func (c Config) ResolvedDataDir() string {
	if c.DataDir == "" {
		return DefaultDataDir()
	}
	return c.DataDir
}

// StateDir is the Pebble directory holding counters and, for the pebble
// backend, the log region.
func (c Config) StateDir() string { return filepath.Join(c.ResolvedDataDir(), "state") }

// ImagePath is the flash image used by the file backend.
func (c Config) ImagePath() string { return filepath.Join(c.ResolvedDataDir(), c.Storage.Image) }
