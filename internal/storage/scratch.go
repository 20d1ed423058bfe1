package storage

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// Scratch hands out per-attempt working directories under a temp root. Names
// combine a content digest with a random suffix so they are never reused,
// even for two uploads of the same archive.
type Scratch struct {
	store Storage
	root  string
	newID func() string
}

// NewScratch creates an allocator rooted at root.
func NewScratch(store Storage, root string) *Scratch {
	return &Scratch{store: store, root: filepath.Clean(root), newID: uuid.NewString}
}

// Root returns the temp root directories are allocated under.
func (s *Scratch) Root() string { return s.root }

// Allocate creates and returns a fresh directory for digest.
func (s *Scratch) Allocate(digest string) (string, error) {
	prefix := digest
	if len(prefix) > 16 {
		prefix = prefix[:16]
	}
	if prefix == "" {
		prefix = "anon"
	}

	dir := filepath.Join(s.root, prefix+"-"+s.newID())
	if s.store.Exists(dir) {
		return "", fmt.Errorf("scratch directory %s already exists", dir)
	}
	if err := s.store.MakeDirectory(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// Release removes dir and its contents. Directories outside the temp root are
// rejected.
func (s *Scratch) Release(dir string) error {
	if !Within(s.root, dir) {
		return fmt.Errorf("release %s: not below scratch root %s", dir, s.root)
	}
	if !s.store.Exists(dir) {
		return nil
	}
	return s.store.DeleteDirectory(dir)
}
