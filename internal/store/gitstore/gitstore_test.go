package gitstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/shameerind/fuseoverlay/internal/store"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "readme.txt"), []byte("hello from commit"), 0o644))

	_, err = wt.Add("docs/readme.txt")
	require.NoError(t, err)

	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return dir
}

func TestGitStoreRoundTrip(t *testing.T) {
	dir := initRepo(t)

	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	head, err := s.Head()
	require.NoError(t, err)
	require.NotEmpty(t, head)

	root, err := s.RootTree(head)
	require.NoError(t, err)

	docsEntry, ok := store.Child(root, "docs")
	require.True(t, ok)
	require.Equal(t, store.KindTree, docsEntry.Kind)

	docsTree, err := s.PeelTree(docsEntry)
	require.NoError(t, err)

	readmeEntry, ok := store.Child(docsTree, "readme.txt")
	require.True(t, ok)
	require.Equal(t, store.KindBlob, readmeEntry.Kind)

	blob, err := s.PeelBlob(readmeEntry)
	require.NoError(t, err)
	require.Equal(t, "hello from commit", string(blob.Content))
	require.EqualValues(t, len("hello from commit"), blob.Size)

	size, err := s.BlobSize(readmeEntry)
	require.NoError(t, err)
	require.EqualValues(t, len("hello from commit"), size)
}

func TestReopenIndependentHandle(t *testing.T) {
	dir := initRepo(t)

	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	head1, err := s.Head()
	require.NoError(t, err)

	s2, err := s.Reopen()
	require.NoError(t, err)
	defer s2.Close()

	head2, err := s2.Head()
	require.NoError(t, err)

	require.Equal(t, head1, head2)
}
