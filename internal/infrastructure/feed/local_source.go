package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const fileScheme = "file://"

var ErrPathOutsideBaseDir = errors.New("feed path is outside the feed directory")

// LocalSource serves feeds from disk for file:// locators.
type LocalSource struct {
	BaseDir string
}

func NewLocalSource(baseDir string) *LocalSource {
	if baseDir == "" {
		baseDir = "."
	}
	return &LocalSource{BaseDir: baseDir}
}

func (s *LocalSource) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := filepath.FromSlash(strings.TrimPrefix(locator, fileScheme))
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("open feed file %q: %w", name, ErrPathOutsideBaseDir)
	}

	// OpenInRoot also refuses symlinks that resolve outside BaseDir.
	file, err := os.OpenInRoot(s.BaseDir, name)
	if err != nil {
		return nil, fmt.Errorf("open feed file %q: %w", name, err)
	}
	return file, nil
}

func isLocal(locator string) bool {
	return strings.HasPrefix(locator, fileScheme)
}
