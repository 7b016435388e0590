// Package gitstore implements the store.Store interface in terms of a
// real git repository on disk, via github.com/go-git/go-git/v6. It is the
// concrete OBJECT STORE of spec §6.3; original_source/fuse_overlay_rust's
// gitfs.rs performs the equivalent navigation with the git2 crate.
package gitstore

import (
	"fmt"
	"io"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"

	"github.com/shameerind/fuseoverlay/internal/store"
)

// Store wraps a single *git.Repository handle opened from a filesystem
// path. It is not safe for concurrent use by multiple goroutines that may
// block on each other (spec §5); callers that need concurrent access
// (prefetch workers) must call Reopen.
type Store struct {
	path string
	repo *git.Repository
}

var _ store.Store = (*Store)(nil)

// Open opens the repository rooted at path.
func Open(path string) (*Store, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open repository %q: %w", path, err)
	}
	return &Store{path: path, repo: repo}, nil
}

func (s *Store) Head() (string, error) {
	ref, err := s.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

func (s *Store) RootTree(commitID string) (store.Tree, error) {
	commit, err := s.repo.CommitObject(plumbing.NewHash(commitID))
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", commitID, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("load root tree of commit %s: %w", commitID, err)
	}
	return &treeHandle{tree}, nil
}

func (s *Store) PeelTree(e store.Entry) (store.Tree, error) {
	tree, err := s.repo.TreeObject(plumbing.NewHash(e.ID))
	if err != nil {
		return nil, fmt.Errorf("peel %q to tree: %w", e.Name, err)
	}
	return &treeHandle{tree}, nil
}

func (s *Store) PeelBlob(e store.Entry) (store.Blob, error) {
	blob, err := s.repo.BlobObject(plumbing.NewHash(e.ID))
	if err != nil {
		return store.Blob{}, fmt.Errorf("peel %q to blob: %w", e.Name, err)
	}

	r, err := blob.Reader()
	if err != nil {
		return store.Blob{}, fmt.Errorf("open blob reader for %q: %w", e.Name, err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return store.Blob{}, fmt.Errorf("read blob content for %q: %w", e.Name, err)
	}

	return store.Blob{Size: blob.Size, Content: content}, nil
}

func (s *Store) BlobSize(e store.Entry) (int64, error) {
	blob, err := s.repo.BlobObject(plumbing.NewHash(e.ID))
	if err != nil {
		return 0, fmt.Errorf("peel %q to blob: %w", e.Name, err)
	}
	return blob.Size, nil
}

func (s *Store) Reopen() (store.Store, error) {
	return Open(s.path)
}

func (s *Store) Close() error {
	return nil
}

// treeHandle adapts *object.Tree to store.Tree, translating git object
// kinds to the two kinds spec §3 surfaces and marking everything else
// (submodules, symlinks) as store.KindOther; such entries stay in the
// returned list, and callers skip them.
type treeHandle struct {
	tree *object.Tree
}

func (t *treeHandle) Entries() []store.Entry {
	out := make([]store.Entry, 0, len(t.tree.Entries))
	for _, e := range t.tree.Entries {
		kind := store.KindOther
		switch e.Mode {
		case filemode.Dir:
			kind = store.KindTree
		case filemode.Regular, filemode.Executable:
			kind = store.KindBlob
		}
		out = append(out, store.Entry{
			Name: e.Name,
			Kind: kind,
			Mode: e.Mode,
			ID:   e.Hash.String(),
		})
	}
	return out
}
