package fixture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// CommandFile holds the shell command line for a fixture.
	CommandFile = "command"

	// StdoutFile is the sentinel holding the expected standard output.
	// Matched case-insensitively.
	StdoutFile = "expected-STDOUT"

	// MarkerPrefix flags an entry as an expectation. Matched case-insensitively.
	MarkerPrefix = "expected-"
)

// IsExpectedMarker reports whether name marks an expected tree entry.
//
// This is the only predicate deciding which children are expectations;
// cleanup, validation, and the extraneous scan all go through it so that
// what gets deleted and what gets checked can never diverge.
func IsExpectedMarker(name string) bool {
	lower := strings.ToLower(name)
	if !strings.HasPrefix(lower, MarkerPrefix) || len(lower) == len(MarkerPrefix) {
		return false
	}
	return !IsStdoutSentinel(name)
}

// IsStdoutSentinel reports whether name is the expected-STDOUT sentinel.
func IsStdoutSentinel(name string) bool {
	return strings.EqualFold(name, StdoutFile)
}

// GeneratedName strips the marker prefix from name, preserving the case of
// the remainder. Names that are not markers are returned unchanged.
func GeneratedName(name string) string {
	if !IsExpectedMarker(name) {
		return name
	}
	return name[len(MarkerPrefix):]
}

// GeneratedPath derives the generated counterpart of expectedPath.
//
// The marker is stripped from the first path segment below root only. That
// segment is the top-level expected entry; deeper segments inside an
// expected tree map one to one, and ancestors of root are never rewritten
// even if they contain the marker.
func GeneratedPath(root, expectedPath string) (string, error) {
	rel, err := filepath.Rel(root, expectedPath)
	if err != nil {
		return "", fmt.Errorf("relative path for %s: %w", expectedPath, err)
	}

	first, rest, _ := strings.Cut(filepath.ToSlash(rel), "/")
	if !IsExpectedMarker(first) {
		return "", fmt.Errorf("%s is not below an expected entry of %s", expectedPath, root)
	}

	generated := filepath.Join(root, GeneratedName(first))
	if rest != "" {
		generated = filepath.Join(generated, filepath.FromSlash(rest))
	}
	return generated, nil
}

// ExpectedEntries returns the names of the marker children of dir in
// directory order.
func ExpectedEntries(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if IsExpectedMarker(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// findStdoutSentinel returns the name of the stdout sentinel in dir, if any.
// An exact "expected-STDOUT" wins over other spellings on case-sensitive
// filesystems.
func findStdoutSentinel(dir string) (string, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, err
	}

	found := ""
	for _, entry := range entries {
		if entry.IsDir() || !IsStdoutSentinel(entry.Name()) {
			continue
		}
		if entry.Name() == StdoutFile {
			return StdoutFile, true, nil
		}
		if found == "" {
			found = entry.Name()
		}
	}
	return found, found != "", nil
}
