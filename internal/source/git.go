// Package source provides installer sources beyond local zip archives.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/client"
	"github.com/go-git/go-git/v5/plumbing/transport/server"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/alexisbeaulieu97/modhost/internal/installer"
	"github.com/alexisbeaulieu97/modhost/internal/module"
	"github.com/alexisbeaulieu97/modhost/internal/storage"
	moderrors "github.com/alexisbeaulieu97/modhost/pkg/errors"
)

var fileTransportOnce sync.Once

// UseInProcessFileTransport serves file:// and local path clones from
// go-git's own upload-pack instead of the git binary. It is process-wide and
// must be called before the first clone.
func UseInProcessFileTransport() {
	fileTransportOnce.Do(func() {
		client.InstallProtocol("file", server.NewClient(server.NewFilesystemLoader(osfs.New(""))))
	})
}

// Git clones a repository into memory and stages its tree. Nothing is written
// to disk outside the scratch directory.
type Git struct {
	URL string
	// Ref is a branch or tag name, or a full reference. Empty means the
	// remote HEAD.
	Ref string
	// Name places the tree under <scratch>/<Name>. Repositories whose root
	// already is the module folder leave it empty.
	Name string
	// Depth limits history; zero fetches everything.
	Depth int
}

var _ installer.Source = Git{}

// Describe returns "git:<url>" with "@<ref>" when a ref is set.
func (g Git) Describe() string {
	if g.Ref == "" {
		return "git:" + g.URL
	}
	return "git:" + g.URL + "@" + g.Ref
}

// Digest hashes the URL and ref.
func (g Git) Digest(context.Context, storage.Storage) (string, error) {
	if strings.TrimSpace(g.URL) == "" {
		return "", moderrors.New(moderrors.KindSourceFetchFailure, "", "no repository url", nil)
	}
	if g.Name != "" && !module.ValidID(g.Name) {
		return "", moderrors.New(moderrors.KindInvalidRootEntry, g.Name, g.Name, errors.New("folder name is not a valid module id"))
	}
	return storage.DigestString(g.URL + "@" + g.Ref), nil
}

// Stage clones the repository and copies the checked-out files into dst.
func (g Git) Stage(ctx context.Context, st storage.Storage, dst string, limits storage.Limits) error {
	repo, worktree, err := g.clone(ctx)
	if err != nil {
		return moderrors.New(moderrors.KindSourceFetchFailure, g.Name, g.Describe(), err)
	}

	head, err := repo.Head()
	if err != nil {
		return moderrors.New(moderrors.KindSourceFetchFailure, g.Name, g.Describe(), fmt.Errorf("resolve head: %w", err))
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return moderrors.New(moderrors.KindSourceFetchFailure, g.Name, g.Describe(), fmt.Errorf("read commit: %w", err))
	}
	tree, err := commit.Tree()
	if err != nil {
		return moderrors.New(moderrors.KindSourceFetchFailure, g.Name, g.Describe(), fmt.Errorf("read tree: %w", err))
	}

	root := dst
	if g.Name != "" {
		root = filepath.Join(dst, g.Name)
		if err := st.MakeDirectory(root); err != nil {
			return err
		}
	}

	var entries int
	var written int64
	return tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.Mode == filemode.Symlink {
			return &storage.EntryError{Entry: f.Name, Err: storage.ErrUnsafeEntry}
		}
		target, err := entryTarget(root, f.Name)
		if err != nil {
			return err
		}

		entries++
		if limits.MaxEntries > 0 && entries > limits.MaxEntries {
			return &storage.EntryError{Entry: f.Name, Err: fmt.Errorf("%w: more than %d entries", storage.ErrLimitExceeded, limits.MaxEntries)}
		}
		written += f.Size
		if limits.MaxBytes > 0 && written > limits.MaxBytes {
			return &storage.EntryError{Entry: f.Name, Err: fmt.Errorf("%w: more than %d bytes", storage.ErrLimitExceeded, limits.MaxBytes)}
		}

		data, err := readWorktreeFile(worktree, f.Name)
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}
		return st.Put(target, data)
	})
}

func (g Git) clone(ctx context.Context) (*git.Repository, billy.Filesystem, error) {
	refs := g.candidateRefs()
	var lastErr error
	for _, ref := range refs {
		fs := memfs.New()
		repo, err := git.CloneContext(ctx, memory.NewStorage(), fs, &git.CloneOptions{
			URL:           g.URL,
			ReferenceName: ref,
			SingleBranch:  ref != "",
			Depth:         g.Depth,
			Tags:          git.NoTags,
		})
		if err == nil {
			return repo, fs, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, nil, lastErr
}

// candidateRefs lists the references a short Ref may name, branch first.
func (g Git) candidateRefs() []plumbing.ReferenceName {
	switch {
	case g.Ref == "":
		return []plumbing.ReferenceName{""}
	case strings.HasPrefix(g.Ref, "refs/"):
		return []plumbing.ReferenceName{plumbing.ReferenceName(g.Ref)}
	default:
		return []plumbing.ReferenceName{
			plumbing.NewBranchReferenceName(g.Ref),
			plumbing.NewTagReferenceName(g.Ref),
		}
	}
}

func readWorktreeFile(fs billy.Filesystem, name string) ([]byte, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// entryTarget maps a repository path below root, refusing anything that
// would escape it.
func entryTarget(root, name string) (string, error) {
	clean := path.Clean(name)
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", &storage.EntryError{Entry: name, Err: storage.ErrUnsafeEntry}
	}
	target := filepath.Join(root, filepath.FromSlash(clean))
	if !storage.Within(root, target) {
		return "", &storage.EntryError{Entry: name, Err: storage.ErrUnsafeEntry}
	}
	return target, nil
}
