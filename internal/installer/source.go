package installer

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/modhost/internal/storage"
	moderrors "github.com/alexisbeaulieu97/modhost/pkg/errors"
)

// Source produces the raw tree of a candidate package.
type Source interface {
	// Describe returns a human readable origin, recorded with the module.
	Describe() string
	// Digest identifies the content; it prefixes the scratch directory name.
	Digest(ctx context.Context, st storage.Storage) (string, error)
	// Stage writes the package tree into dst, which already exists.
	Stage(ctx context.Context, st storage.Storage, dst string, limits storage.Limits) error
}

// ArchiveSource is a zip archive on the host storage.
type ArchiveSource struct {
	Path string
}

var _ Source = ArchiveSource{}

func (s ArchiveSource) Describe() string { return "archive:" + s.Path }

func (s ArchiveSource) Digest(_ context.Context, st storage.Storage) (string, error) {
	if s.Path == "" {
		return "", moderrors.New(moderrors.KindArchiveOpenFailure, "", "no archive path", nil)
	}
	if !st.Exists(s.Path) || st.IsDir(s.Path) {
		return "", moderrors.New(moderrors.KindArchiveOpenFailure, "", s.Path, fmt.Errorf("no such archive"))
	}
	digest, err := st.Digest(s.Path)
	if err != nil {
		return "", moderrors.New(moderrors.KindArchiveOpenFailure, "", s.Path, err)
	}
	return digest, nil
}

func (s ArchiveSource) Stage(ctx context.Context, st storage.Storage, dst string, limits storage.Limits) error {
	return st.ExtractArchive(ctx, s.Path, dst, limits)
}
