// Package prefs persists minicart UI preferences in
// ~/.config/minicart/prefs.toml.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds what the UI remembers between runs.
type Prefs struct {
	Theme string `toml:"theme"`
	// Open restores the expanded cart panel on start.
	Open bool `toml:"open"`
}

const defaultPrefsPath = "~/.config/minicart/prefs.toml"

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path. Any problem yields the zero Prefs; the
// caller's own defaults then apply.
func Load(path string) Prefs {
	resolved, err := resolvePath(path)
	if err != nil {
		return Prefs{}
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return Prefs{}
	}
	var p Prefs
	if err := toml.Unmarshal(data, &p); err != nil {
		return Prefs{}
	}
	p.Theme = strings.TrimSpace(p.Theme)
	return p
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
