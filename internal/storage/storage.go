// Package storage is the filesystem abstraction the module host works
// against. Every path handed to a Storage is an absolute path on its
// underlying afero.Fs; Path builds such paths relative to the storage root.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/zeebo/xxh3"
)

// Storage is the set of file operations the registry, installer and
// uninstaller rely on. Move must relocate, never duplicate.
type Storage interface {
	Path(elem ...string) string
	Exists(path string) bool
	IsDir(path string) bool
	List(dir string) ([]fs.FileInfo, error)
	AllFiles(dir string) ([]string, error)
	Get(path string) ([]byte, error)
	Put(path string, data []byte) error
	Move(src, dst string) error
	MakeDirectory(path string) error
	DeleteDirectory(path string) error
	ExtractArchive(ctx context.Context, archive, dst string, limits Limits) error
	Digest(path string) (string, error)
	Fs() afero.Fs
}

// Local implements Storage on an afero filesystem rooted at a directory.
type Local struct {
	fs   afero.Fs
	root string
}

// New creates a Local storage on fsys rooted at root.
func New(fsys afero.Fs, root string) *Local {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Local{fs: fsys, root: filepath.Clean(root)}
}

// NewOS creates a Local storage on the operating system filesystem.
func NewOS(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	return New(afero.NewOsFs(), abs), nil
}

// Root returns the storage root.
func (s *Local) Root() string { return s.root }

// Fs exposes the underlying filesystem.
func (s *Local) Fs() afero.Fs { return s.fs }

// Path joins elem onto the storage root. An absolute first element is used
// as-is.
func (s *Local) Path(elem ...string) string {
	if len(elem) > 0 && filepath.IsAbs(elem[0]) {
		return filepath.Join(elem...)
	}
	return filepath.Join(append([]string{s.root}, elem...)...)
}

func (s *Local) Exists(path string) bool {
	ok, err := afero.Exists(s.fs, path)
	return err == nil && ok
}

func (s *Local) IsDir(path string) bool {
	ok, err := afero.IsDir(s.fs, path)
	return err == nil && ok
}

// List returns the immediate children of dir sorted by name.
func (s *Local) List(dir string) ([]fs.FileInfo, error) {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	return entries, nil
}

// AllFiles returns every non-directory entry below dir as a slash-separated
// path relative to dir, sorted lexically.
func (s *Local) AllFiles(dir string) ([]string, error) {
	var files []string
	err := afero.Walk(s.fs, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func (s *Local) Get(path string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (s *Local) Put(path string, data []byte) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", path, err)
	}
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Move relocates src to dst, creating dst's parent and replacing an existing
// regular file at dst. Directories are moved file by file and merged into an
// existing dst. When a rename is not possible (different devices), the file
// is copied and the source removed.
func (s *Local) Move(src, dst string) error {
	info, err := s.fs.Stat(src)
	if err != nil {
		return fmt.Errorf("move %s: %w", src, err)
	}
	if info.IsDir() {
		return s.moveDir(src, dst)
	}
	return s.moveFile(src, dst, info.Mode().Perm())
}

func (s *Local) moveDir(src, dst string) error {
	type pending struct {
		from, to string
		perm     fs.FileMode
	}
	var files []pending
	err := afero.Walk(s.fs, src, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return s.fs.MkdirAll(target, 0o755)
		}
		files = append(files, pending{from: path, to: target, perm: info.Mode().Perm()})
		return nil
	})
	if err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	for _, f := range files {
		if err := s.moveFile(f.from, f.to, f.perm); err != nil {
			return err
		}
	}
	if err := s.fs.RemoveAll(src); err != nil {
		return fmt.Errorf("remove moved directory %s: %w", src, err)
	}
	return nil
}

func (s *Local) moveFile(src, dst string, perm fs.FileMode) error {
	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", dst, err)
	}
	if existing, statErr := s.fs.Stat(dst); statErr == nil {
		if existing.IsDir() {
			return fmt.Errorf("move %s: %s is a directory", src, dst)
		}
		if err := s.fs.Remove(dst); err != nil {
			return fmt.Errorf("replace %s: %w", dst, err)
		}
	}

	renameErr := s.fs.Rename(src, dst)
	if renameErr == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(renameErr, &linkErr) {
		return fmt.Errorf("move %s to %s: %w", src, dst, renameErr)
	}
	if err := s.copyFile(src, dst, perm); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	return s.fs.Remove(src)
}

func (s *Local) copyFile(src, dst string, perm fs.FileMode) (err error) {
	in, err := s.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := s.fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}

func (s *Local) MakeDirectory(path string) error {
	if err := s.fs.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// DeleteDirectory removes path and everything below it. It refuses to delete
// the storage root or a filesystem root.
func (s *Local) DeleteDirectory(path string) error {
	clean := filepath.Clean(path)
	if clean == s.root || clean == string(filepath.Separator) || clean == "." || strings.TrimSpace(path) == "" {
		return fmt.Errorf("refusing to delete %q", path)
	}
	if err := s.fs.RemoveAll(clean); err != nil {
		return fmt.Errorf("delete directory %s: %w", path, err)
	}
	return nil
}

// Digest returns the xxh3 hash of the file at path as 16 hex digits.
func (s *Local) Digest(path string) (string, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// DigestString hashes s the same way Digest hashes file contents.
func DigestString(s string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(s))
}

// Within reports whether path lies strictly below root.
func Within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

var _ Storage = (*Local)(nil)
