package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AppName names the data directory, kept compatible with existing installs.
const AppName = "computer-safety"

// EnsureDir ensures a directory exists with default permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// DefaultDataDir returns $XDG_DATA_HOME/computer-safety, or
// ~/.local/share/computer-safety when XDG_DATA_HOME is unset.
func DefaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", AppName), nil
}

// ValidateUser rejects user names that cannot be used as a file name or key
// component.
func ValidateUser(user string) error {
	if user == "" || user == "." || user == ".." {
		return fmt.Errorf("invalid user name %q", user)
	}
	if strings.ContainsAny(user, `/\:`) || strings.ContainsRune(user, 0) {
		return fmt.Errorf("invalid user name %q", user)
	}
	return nil
}
