// Package saver writes downloaded videos into a directory.
package saver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/fbgrab/internal/domain"
)

// ErrInsufficientSpace is returned when the target directory is below the
// configured free-space floor.
var ErrInsufficientSpace = errors.New("insufficient disk space")

const (
	tempPattern = ".fbgrab-*.part"
	maxNameLen  = 200
)

// FileSaver saves streams as files in a directory. A file only appears
// under its final name once it was written completely.
type FileSaver struct {
	dir     string
	minFree int64
	logger  *slog.Logger
}

// NewFileSaver creates a saver writing into dir. minFree is the number of
// bytes that must be free before a save starts; 0 disables the check.
func NewFileSaver(dir string, minFree int64, logger *slog.Logger) *FileSaver {
	if dir == "" {
		dir = "."
	}
	return &FileSaver{
		dir:     dir,
		minFree: minFree,
		logger:  logger,
	}
}

// Save copies r into dir under a sanitized version of name and returns the
// final path. Existing files are never overwritten; a " (n)" suffix is
// added instead.
func (s *FileSaver) Save(ctx context.Context, name string, r io.Reader) (path string, err error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	if s.minFree > 0 {
		if free := freeDiskSpace(s.dir); free >= 0 && free < s.minFree {
			return "", fmt.Errorf("%w: %s free in %s, need %s", ErrInsufficientSpace,
				humanize.IBytes(uint64(free)), s.dir, humanize.IBytes(uint64(s.minFree)))
		}
	}

	tmp, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	n, err := io.Copy(tmp, &contextReader{ctx: ctx, r: r})
	if err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return "", err
	}

	path, err = uniquePath(s.dir, SanitizeName(name))
	if err != nil {
		return "", err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename file: %w", err)
	}

	s.logger.Info("video saved", "path", path, "size", humanize.IBytes(uint64(n)))
	return path, nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// uniquePath returns dir/name, or dir/"stem (n)ext" for the first n that
// does not exist yet.
func uniquePath(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := filepath.Join(dir, name)
	for i := 1; i < 1000; i++ {
		if _, err := os.Lstat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		} else if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
	}
	return "", fmt.Errorf("no free file name for %q in %s", name, dir)
}

// SanitizeName turns a video title into a portable file name. Path
// separators, reserved characters and control characters are replaced;
// the ".mp4" extension is kept or added.
func SanitizeName(name string) string {
	stem := strings.TrimSuffix(name, ".mp4")

	var b strings.Builder
	for _, r := range stem {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		case unicode.IsControl(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	stem = strings.Join(strings.Fields(b.String()), " ")
	stem = strings.Trim(stem, " .")
	stem = truncate(stem, maxNameLen)
	if stem == "" {
		stem = domain.DefaultTitle
	}
	return stem + ".mp4"
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return strings.TrimRight(s[:n], " .")
}
