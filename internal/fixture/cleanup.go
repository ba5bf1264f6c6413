package fixture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Cleanup removes the generated counterpart of every expected entry
// directly under targetPath. Missing counterparts are not an error.
func Cleanup(ctx context.Context, targetPath string) error {
	return cleanup(ctx, targetPath, discardLogger())
}

func cleanup(ctx context.Context, targetPath string, logger *slog.Logger) error {
	names, err := ExpectedEntries(targetPath)
	if err != nil {
		return fmt.Errorf("list %s: %w", targetPath, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		generated := filepath.Join(targetPath, GeneratedName(name))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			logger.Debug("removing generated path", "path", generated)
			if err := os.RemoveAll(generated); err != nil {
				return fmt.Errorf("remove %s: %w", generated, err)
			}
			return nil
		})
	}
	return g.Wait()
}
