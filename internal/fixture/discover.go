package fixture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover returns the fixture names under baseDir: every immediate
// subdirectory, sorted. A non-empty pattern keeps only names matching the
// doublestar glob.
//
// Subdirectories without a command file are still returned so that the
// case reports the configuration error instead of silently vanishing.
func Discover(baseDir, pattern string) ([]string, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid filter pattern %q", pattern)
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("list fixtures: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if pattern != "" {
			matched, err := doublestar.Match(pattern, entry.Name())
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern %q: %w", pattern, err)
			}
			if !matched {
				continue
			}
		}
		names = append(names, entry.Name())
	}

	sort.Strings(names)
	return names, nil
}

// Info describes a fixture without running it.
type Info struct {
	Name       string   `json:"name"`
	Command    string   `json:"command,omitempty"`
	HasCommand bool     `json:"has_command"`
	Stdout     string   `json:"stdout,omitempty"`
	Expected   []string `json:"expected"`
}

// Inspect reads the layout of fixture name under baseDir.
func Inspect(baseDir, name string) (Info, error) {
	dir := filepath.Join(baseDir, name)
	info := Info{Name: name, Expected: []string{}}

	command, err := os.ReadFile(filepath.Join(dir, CommandFile))
	switch {
	case err == nil:
		info.HasCommand = true
		info.Command = strings.TrimSpace(string(command))
	case !errors.Is(err, fs.ErrNotExist):
		return info, fmt.Errorf("read command: %w", err)
	}

	sentinel, ok, err := findStdoutSentinel(dir)
	if err != nil {
		return info, fmt.Errorf("inspect %s: %w", name, err)
	}
	if ok {
		info.Stdout = sentinel
	}

	entries, err := ExpectedEntries(dir)
	if err != nil {
		return info, fmt.Errorf("inspect %s: %w", name, err)
	}
	info.Expected = append(info.Expected, entries...)
	return info, nil
}
