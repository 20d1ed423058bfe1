package installer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/alexisbeaulieu97/modhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/modhost/internal/module"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
	"github.com/alexisbeaulieu97/modhost/internal/storage"
	moderrors "github.com/alexisbeaulieu97/modhost/pkg/errors"
)

// macOSResourceDir is added to zips by the macOS archiver.
const macOSResourceDir = "__MACOSX"

// Candidate is an extracted package waiting in scratch space.
type Candidate struct {
	// ScratchDir is owned by the install attempt and removed when it ends.
	ScratchDir string
	ID         string
	// Root is ScratchDir/ID.
	Root   string
	Digest string
	Source string
	// Files are slash paths relative to Root, sorted.
	Files []string
}

// Path returns the absolute path of rel inside the candidate.
func (c *Candidate) Path(rel string) string {
	return filepath.Join(c.Root, filepath.FromSlash(rel))
}

// DisplayPath prefixes rel with the candidate id, matching the package
// layout.
func (c *Candidate) DisplayPath(rel string) string {
	return c.ID + "/" + rel
}

// Extractor stages a Source into a fresh scratch directory and checks the
// single-root structure.
type Extractor struct {
	storage storage.Storage
	scratch *storage.Scratch
	limits  storage.Limits
	logger  ports.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(st storage.Storage, scratch *storage.Scratch, limits storage.Limits, logger ports.Logger) *Extractor {
	return &Extractor{storage: st, scratch: scratch, limits: limits, logger: logging.OrNoOp(logger)}
}

// Extract returns the staged candidate. Once a scratch directory has been
// allocated the candidate is returned even alongside an error, so the caller
// can release it.
func (e *Extractor) Extract(ctx context.Context, src Source) (*Candidate, error) {
	digest, err := src.Digest(ctx, e.storage)
	if err != nil {
		return nil, err
	}

	dir, err := e.scratch.Allocate(digest)
	if err != nil {
		return nil, fmt.Errorf("allocate scratch directory: %w", err)
	}
	candidate := &Candidate{ScratchDir: dir, Digest: digest, Source: src.Describe()}
	e.logger.Debug(ctx, "package staging", "source", candidate.Source, "scratch", dir)

	if err := src.Stage(ctx, e.storage, dir, e.limits); err != nil {
		return candidate, classifyStageError(err)
	}
	if err := ctx.Err(); err != nil {
		return candidate, err
	}

	id, err := e.singleRoot(dir)
	if err != nil {
		return candidate, err
	}
	candidate.ID = id
	candidate.Root = filepath.Join(dir, id)

	files, err := e.storage.AllFiles(candidate.Root)
	if err != nil {
		return candidate, fmt.Errorf("list candidate files: %w", err)
	}
	candidate.Files = files
	return candidate, nil
}

func (e *Extractor) singleRoot(dir string) (string, error) {
	entries, err := e.storage.List(dir)
	if err != nil {
		return "", fmt.Errorf("list scratch directory: %w", err)
	}

	var names []string
	var root string
	isDir := false
	for _, entry := range entries {
		switch entry.Name() {
		case ".", "..", macOSResourceDir:
			continue
		}
		names = append(names, entry.Name())
		root = entry.Name()
		isDir = entry.IsDir()
	}

	switch {
	case len(names) == 0:
		return "", moderrors.New(moderrors.KindInvalidRootEntry, "", "package is empty", nil)
	case len(names) > 1:
		return "", moderrors.New(moderrors.KindMultipleRootEntries, "", fmt.Sprintf("%d entries", len(names)), nil)
	case !isDir:
		return "", moderrors.New(moderrors.KindInvalidRootEntry, "", root, errors.New("not a directory"))
	case !module.ValidID(root):
		return "", moderrors.New(moderrors.KindInvalidRootEntry, root, root, errors.New("folder name is not a valid module id"))
	}
	return root, nil
}

func classifyStageError(err error) error {
	var moduleErr *moderrors.ModuleError
	if errors.As(err, &moduleErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	detail := ""
	var entryErr *storage.EntryError
	if errors.As(err, &entryErr) {
		detail = entryErr.Entry
	}

	switch {
	case errors.Is(err, storage.ErrUnsafeEntry):
		return moderrors.New(moderrors.KindUnsafeArchiveEntry, "", detail, err)
	case errors.Is(err, storage.ErrLimitExceeded):
		return moderrors.New(moderrors.KindArchiveTooLarge, "", detail, err)
	case errors.Is(err, storage.ErrInvalidArchive):
		return moderrors.New(moderrors.KindArchiveOpenFailure, "", detail, err)
	default:
		return fmt.Errorf("stage package: %w", err)
	}
}
