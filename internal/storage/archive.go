package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	// ErrInvalidArchive is returned when the archive cannot be opened or read.
	ErrInvalidArchive = errors.New("invalid archive")
	// ErrUnsafeEntry is returned for entries that would land outside the
	// destination or are not regular files or directories.
	ErrUnsafeEntry = errors.New("unsafe archive entry")
	// ErrLimitExceeded is returned when extraction exceeds Limits.
	ErrLimitExceeded = errors.New("archive limit exceeded")
)

// Limits bounds what a single extraction may write. Zero values disable the
// corresponding check.
type Limits struct {
	MaxEntries int
	MaxBytes   int64
}

// EntryError names the archive entry an extraction failed on.
type EntryError struct {
	Entry string
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Entry, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// ExtractArchive unpacks the zip archive at archive into dst. Entries are
// checked before anything is written for them; a failed extraction may leave
// earlier entries behind in dst, which callers own and remove.
func (s *Local) ExtractArchive(ctx context.Context, archive, dst string, limits Limits) error {
	f, err := s.fs.Open(archive)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidArchive, archive)
	}

	// A reader returned alongside an error only flags non-local names, which
	// entryTarget rejects per entry.
	reader, err := zip.NewReader(f, info.Size())
	if reader == nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	if limits.MaxEntries > 0 && len(reader.File) > limits.MaxEntries {
		return fmt.Errorf("%w: %d entries, at most %d allowed", ErrLimitExceeded, len(reader.File), limits.MaxEntries)
	}

	dst = filepath.Clean(dst)
	if err := s.fs.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	remaining := limits.MaxBytes
	for _, entry := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := entryTarget(dst, entry)
		if err != nil {
			return &EntryError{Entry: entry.Name, Err: err}
		}

		if entry.FileInfo().IsDir() {
			if err := s.fs.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", target, err)
			}
			continue
		}

		written, err := s.extractEntry(entry, target, limits.MaxBytes > 0, remaining)
		if err != nil {
			return &EntryError{Entry: entry.Name, Err: err}
		}
		remaining -= written
	}

	return nil
}

func entryTarget(dst string, entry *zip.File) (string, error) {
	name := entry.Name
	if name == "" || strings.Contains(name, "\\") || strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return "", ErrUnsafeEntry
	}
	mode := entry.Mode()
	if mode&fs.ModeSymlink != 0 || (mode.Type() != 0 && !mode.IsDir()) {
		return "", ErrUnsafeEntry
	}

	target := filepath.Join(dst, filepath.FromSlash(name))
	rel, err := filepath.Rel(dst, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrUnsafeEntry
	}
	return target, nil
}

func (s *Local) extractEntry(entry *zip.File, target string, bounded bool, remaining int64) (written int64, err error) {
	if err := s.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}

	rc, err := entry.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer rc.Close()

	out, err := s.fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	var src io.Reader = rc
	if bounded {
		src = io.LimitReader(rc, remaining+1)
	}
	written, err = io.Copy(out, src)
	if err != nil {
		return written, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	if bounded && written > remaining {
		return written, ErrLimitExceeded
	}
	return written, nil
}
