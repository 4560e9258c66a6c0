// Package prefs persists stockroom's UI preferences.
// Preferences are stored in ~/.config/stockroom/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/stockroom/internal/config"
)

// Prefs holds user preferences for the product browser.
type Prefs struct {
	Theme         string `toml:"theme"`
	ConfirmDelete bool   `toml:"confirm_delete"`
}

const (
	defaultPrefsPath = "~/.config/stockroom/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Default returns the preferences used when nothing is stored.
func Default() Prefs {
	return Prefs{Theme: defaultTheme, ConfirmDelete: true}
}

// Load reads preferences from path (the default path when empty). Keys absent
// from the file keep their default. A missing file is not an error. An
// unreadable or malformed file returns the defaults together with the error,
// so callers can report it and carry on.
func Load(path string) (Prefs, error) {
	p := Default()

	resolved, err := resolve(path)
	if err != nil {
		return p, fmt.Errorf("resolve path: %w", err)
	}
	data, err := os.ReadFile(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read prefs: %w", err)
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", resolved, err)
	}

	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	return p, nil
}

// Save writes p to path through a temp file and rename, creating parent
// directories.
func Save(path string, p Prefs) error {
	resolved, err := resolve(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("create temp prefs: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

func resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	return config.ExpandPath(path)
}
