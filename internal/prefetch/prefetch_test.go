package prefetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-git/go-git/v6/plumbing/filemode"

	"github.com/shameerind/fuseoverlay/internal/lru"
	"github.com/shameerind/fuseoverlay/internal/metrics"
	"github.com/shameerind/fuseoverlay/internal/store"
)

type fakeTree struct{ entries []store.Entry }

func (t *fakeTree) Entries() []store.Entry { return t.entries }

type fakeStore struct {
	root  *fakeTree
	trees map[string]*fakeTree
	blobs map[string][]byte
}

func (s *fakeStore) Head() (string, error)                     { return "deadbeef", nil }
func (s *fakeStore) RootTree(string) (store.Tree, error)        { return s.root, nil }
func (s *fakeStore) PeelTree(e store.Entry) (store.Tree, error) { return s.trees[e.ID], nil }
func (s *fakeStore) Reopen() (store.Store, error)               { return s, nil }
func (s *fakeStore) Close() error                               { return nil }
func (s *fakeStore) PeelBlob(e store.Entry) (store.Blob, error) {
	c := s.blobs[e.ID]
	return store.Blob{Size: int64(len(c)), Content: c}, nil
}
func (s *fakeStore) BlobSize(e store.Entry) (int64, error) { return int64(len(s.blobs[e.ID])), nil }

func newFakeStore() *fakeStore {
	docsTree := &fakeTree{entries: []store.Entry{
		{Name: "readme.txt", Kind: store.KindBlob, Mode: filemode.Regular, ID: "blob-readme"},
		{Name: "notes.txt", Kind: store.KindBlob, Mode: filemode.Regular, ID: "blob-notes"},
	}}
	root := &fakeTree{entries: []store.Entry{
		{Name: "docs", Kind: store.KindTree, Mode: filemode.Dir, ID: "tree-docs"},
	}}
	return &fakeStore{
		root:  root,
		trees: map[string]*fakeTree{"tree-docs": docsTree},
		blobs: map[string][]byte{"blob-readme": []byte("hello"), "blob-notes": []byte("world!")},
	}
}

func TestTriggerPrefetchesBlobChildrenNotAlreadyCached(t *testing.T) {
	st := newFakeStore()
	overlay := lru.New(1<<20, 100)
	overlay.Insert("docs/notes.txt", []byte("stale but present"))
	m := metrics.New(nil)

	w := New(func() (store.Store, error) { return st, nil }, overlay, m)
	w.Trigger("docs", "deadbeef")

	require.Eventually(t, func() bool {
		return overlay.Contains("docs/readme.txt")
	}, time.Second, time.Millisecond)

	got, ok := overlay.Get("docs/readme.txt")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), got)

	notes, _ := overlay.Get("docs/notes.txt")
	assert.Equal(t, []byte("stale but present"), notes, "already-cached child must not be overwritten")

	stats := m.Stats()
	assert.EqualValues(t, 1, stats.PrefetchCount)
	assert.EqualValues(t, len("hello"), stats.PrefetchBytes)
}

func TestTriggerMissingDirectorySilentlyAborts(t *testing.T) {
	st := newFakeStore()
	overlay := lru.New(1<<20, 100)
	m := metrics.New(nil)

	w := New(func() (store.Store, error) { return st, nil }, overlay, m)
	w.Trigger("nonexistent", "deadbeef")

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, overlay.Stats().Entries)
}
