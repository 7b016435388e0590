package nodecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-git/go-git/v6/plumbing/filemode"

	"github.com/shameerind/fuseoverlay/internal/clock"
	"github.com/shameerind/fuseoverlay/internal/lru"
	"github.com/shameerind/fuseoverlay/internal/node"
	"github.com/shameerind/fuseoverlay/internal/store"
)

// fakeTree and fakeStore let LookupPath tests run without a real git
// repository on disk.
type fakeTree struct {
	entries []store.Entry
}

func (t *fakeTree) Entries() []store.Entry { return t.entries }

type fakeStore struct {
	root  *fakeTree
	trees map[string]*fakeTree
	blobs map[string][]byte
}

func (s *fakeStore) Head() (string, error)                       { return "deadbeef", nil }
func (s *fakeStore) RootTree(string) (store.Tree, error)          { return s.root, nil }
func (s *fakeStore) PeelTree(e store.Entry) (store.Tree, error)   { return s.trees[e.ID], nil }
func (s *fakeStore) Reopen() (store.Store, error)                 { return s, nil }
func (s *fakeStore) Close() error                                 { return nil }
func (s *fakeStore) PeelBlob(e store.Entry) (store.Blob, error) {
	c := s.blobs[e.ID]
	return store.Blob{Size: int64(len(c)), Content: c}, nil
}
func (s *fakeStore) BlobSize(e store.Entry) (int64, error) {
	return int64(len(s.blobs[e.ID])), nil
}

func newFakeStore() *fakeStore {
	docsTree := &fakeTree{entries: []store.Entry{
		{Name: "readme.txt", Kind: store.KindBlob, Mode: filemode.Regular, ID: "blob-readme"},
	}}
	root := &fakeTree{entries: []store.Entry{
		{Name: "docs", Kind: store.KindTree, Mode: filemode.Dir, ID: "tree-docs"},
		{Name: "bin.sh", Kind: store.KindBlob, Mode: filemode.Executable, ID: "blob-bin"},
		{Name: "link", Kind: store.KindOther, Mode: filemode.Symlink, ID: "blob-link"},
	}}
	return &fakeStore{
		root:  root,
		trees: map[string]*fakeTree{"tree-docs": docsTree},
		blobs: map[string][]byte{"blob-readme": []byte("hello"), "blob-bin": []byte("#!/bin/sh\n")},
	}
}

func newTestCache() *NodeCache {
	return New(clock.Real())
}

func TestRootNodeIsPreseeded(t *testing.T) {
	nc := newTestCache()

	n, ok := nc.GetNode(node.RootIno)
	require.True(t, ok)
	assert.Equal(t, node.KindDirectory, n.Kind)
	assert.Equal(t, "", n.Path)

	ino, ok := nc.GetInoByPath("")
	require.True(t, ok)
	assert.Equal(t, node.RootIno, ino)
}

func TestAllocInoIsIdempotent(t *testing.T) {
	nc := newTestCache()

	a := nc.AllocIno("a/b")
	b := nc.AllocIno("a/b")
	assert.Equal(t, a, b)
}

func TestAllocInoSurvivesRemoveNode(t *testing.T) {
	nc := newTestCache()

	ino := nc.AllocIno("a")
	nc.InsertNode(ino, node.Node{Ino: ino, Kind: node.KindRegularFile, Path: "a"})

	_, ok := nc.RemoveNode("a")
	require.True(t, ok)

	again := nc.AllocIno("a")
	assert.Equal(t, ino, again, "inode numbers are never reused for a given path")
}

func TestInsertNodeGetNodeGetInoByPathConsistency(t *testing.T) {
	nc := newTestCache()

	ino := nc.AllocIno("foo")
	n := node.Node{Ino: ino, Kind: node.KindRegularFile, Size: 3, Path: "foo"}
	nc.InsertNode(ino, n)

	got, ok := nc.GetNode(ino)
	require.True(t, ok)
	assert.Equal(t, n, got)

	gotIno, ok := nc.GetInoByPath("foo")
	require.True(t, ok)
	assert.Equal(t, ino, gotIno)
}

func TestRemoveNodeMissing(t *testing.T) {
	nc := newTestCache()

	_, ok := nc.RemoveNode("nope")
	assert.False(t, ok)
}

func TestNodeToAttrFillsTimestampsAndDerivedFields(t *testing.T) {
	nc := newTestCache()
	n := node.Node{Ino: 5, Kind: node.KindRegularFile, Size: 1025}

	attr := nc.NodeToAttr(n)
	assert.Equal(t, node.Ino(5), attr.Ino)
	assert.EqualValues(t, 1025, attr.Size)
	assert.EqualValues(t, 3, attr.Blocks) // ceil(1025/512)
	assert.EqualValues(t, 1, attr.Nlink)
	assert.EqualValues(t, 512, attr.Blksize)
	assert.False(t, attr.Mtime.IsZero())
}

func TestLookupPathCachedHitShortCircuits(t *testing.T) {
	nc := newTestCache()
	ino := nc.AllocIno("cached")
	nc.InsertNode(ino, node.Node{Ino: ino, Kind: node.KindRegularFile, Size: 42, Path: "cached"})

	n, ok := nc.LookupPath("cached", lru.New(1<<20, 100), newFakeStore(), "deadbeef")
	require.True(t, ok)
	assert.EqualValues(t, 42, n.Size)
}

func TestLookupPathOverlayOnlyFile(t *testing.T) {
	nc := newTestCache()
	overlay := lru.New(1<<20, 100)
	overlay.Insert("scratch.txt", []byte("draft"))

	n, ok := nc.LookupPath("scratch.txt", overlay, newFakeStore(), "deadbeef")
	require.True(t, ok)
	assert.Equal(t, node.KindRegularFile, n.Kind)
	assert.EqualValues(t, len("draft"), n.Size)
	assert.Nil(t, n.GitMode)
}

func TestLookupPathWalksGitTreeAndCachesIntermediateDirs(t *testing.T) {
	nc := newTestCache()
	overlay := lru.New(1<<20, 100)

	n, ok := nc.LookupPath("docs/readme.txt", overlay, newFakeStore(), "deadbeef")
	require.True(t, ok)
	assert.Equal(t, node.KindRegularFile, n.Kind)
	assert.EqualValues(t, len("hello"), n.Size)

	dirIno, ok := nc.GetInoByPath("docs")
	require.True(t, ok, "intermediate directory must be cached")
	dirNode, ok := nc.GetNode(dirIno)
	require.True(t, ok)
	assert.Equal(t, node.KindDirectory, dirNode.Kind)
}

func TestLookupPathTopLevelBlob(t *testing.T) {
	nc := newTestCache()
	overlay := lru.New(1<<20, 100)

	n, ok := nc.LookupPath("bin.sh", overlay, newFakeStore(), "deadbeef")
	require.True(t, ok)
	assert.EqualValues(t, 0o755, n.Perm())
}

func TestLookupPathMissingComponentFails(t *testing.T) {
	nc := newTestCache()
	overlay := lru.New(1<<20, 100)

	_, ok := nc.LookupPath("nope", overlay, newFakeStore(), "deadbeef")
	assert.False(t, ok)

	_, ok = nc.LookupPath("docs/nope.txt", overlay, newFakeStore(), "deadbeef")
	assert.False(t, ok)
}

func TestLookupPathUnsupportedKindFails(t *testing.T) {
	nc := newTestCache()
	overlay := lru.New(1<<20, 100)

	_, ok := nc.LookupPath("link", overlay, newFakeStore(), "deadbeef")
	assert.False(t, ok)
}

func TestLookupPathIsIdempotent(t *testing.T) {
	nc := newTestCache()
	overlay := lru.New(1<<20, 100)
	st := newFakeStore()

	first, ok := nc.LookupPath("docs/readme.txt", overlay, st, "deadbeef")
	require.True(t, ok)
	second, ok := nc.LookupPath("docs/readme.txt", overlay, st, "deadbeef")
	require.True(t, ok)

	assert.Equal(t, first, second)
}
