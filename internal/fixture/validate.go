package fixture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

var lineBreak = regexp.MustCompile(`\r?\n`)

// ValidateTree checks expectedPath, an expected entry below the fixture
// directory root, against its generated counterpart.
//
// Directories are walked from the expected side only. Each file found is
// compared with the file at the same relative position in the generated
// tree. Siblings are checked concurrently and the first failure wins.
func ValidateTree(ctx context.Context, root, expectedPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(expectedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &CaseError{
				Kind:    KindMissingExpected,
				Path:    relPath(root, expectedPath),
				Message: "expected fixture itself missing",
			}
		}
		return fmt.Errorf("stat %s: %w", expectedPath, err)
	}

	if !info.IsDir() {
		return compareFile(root, expectedPath)
	}

	entries, err := os.ReadDir(expectedPath)
	if err != nil {
		return fmt.Errorf("list %s: %w", expectedPath, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, entry := range entries {
		child := filepath.Join(expectedPath, entry.Name())
		g.Go(func() error {
			return ValidateTree(ctx, root, child)
		})
	}
	return g.Wait()
}

// compareFile compares one expected file with its generated counterpart.
func compareFile(root, expectedPath string) error {
	generatedPath, err := GeneratedPath(root, expectedPath)
	if err != nil {
		return err
	}

	expected, err := os.ReadFile(expectedPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", expectedPath, err)
	}

	actual, err := os.ReadFile(generatedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &CaseError{
				Kind:    KindMissingGenerated,
				Path:    relPath(root, generatedPath),
				Message: "generated output missing expected file",
			}
		}
		return &CaseError{
			Kind:    KindMissingGenerated,
			Path:    relPath(root, generatedPath),
			Message: "cannot read generated file",
			Err:     err,
		}
	}

	want := NormalizeText(string(expected))
	got := NormalizeText(string(actual))
	if want != got {
		return &CaseError{
			Kind:     KindContentMismatch,
			Path:     relPath(root, generatedPath),
			Message:  "actual does not match expected",
			Expected: want,
			Actual:   got,
		}
	}
	return nil
}

// NormalizeText makes file comparison independent of line-ending style and
// of trailing blank lines.
func NormalizeText(s string) string {
	lines := lineBreak.Split(s, -1)
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// FindExtraneous lists files and directories in the generated counterpart
// of expectedEntry that have no expected equivalent. Paths are relative to
// root and sorted. A missing generated tree yields no entries.
func FindExtraneous(ctx context.Context, root, expectedEntry string) ([]string, error) {
	generatedRoot, err := GeneratedPath(root, expectedEntry)
	if err != nil {
		return nil, err
	}

	var extras []string
	err = filepath.WalkDir(generatedRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == generatedRoot {
				return filepath.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == generatedRoot {
			return nil
		}

		rel, err := filepath.Rel(generatedRoot, path)
		if err != nil {
			return err
		}
		if _, err := os.Lstat(filepath.Join(expectedEntry, rel)); err == nil {
			return nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		extras = append(extras, relPath(root, path))
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", generatedRoot, err)
	}

	sort.Strings(extras)
	return extras, nil
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
