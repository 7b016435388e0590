// Package store defines the abstract OBJECT STORE collaborator from
// spec §6.3: a read-only, content-addressed database of commits, trees,
// and blobs. This package holds only the contract; github.com/shameerind/fuseoverlay/internal/store/gitstore
// provides the go-git-backed implementation used in production, and tests
// may supply a fake satisfying the same interface.
package store

import "github.com/go-git/go-git/v6/plumbing/filemode"

// EntryKind is the object kind of a tree entry, collapsed to the two kinds
// spec §3 says are ever surfaced as a Node, plus Other for everything the
// dispatch layer must refuse to descend into or read (submodules, links).
type EntryKind int

const (
	KindOther EntryKind = iota
	KindTree
	KindBlob
)

// Entry is one child of a Tree: a name, the kind the dispatch layer cares
// about, the raw tree-entry mode bits, and an opaque id to pass back to
// Store.PeelTree or Store.PeelBlob to peel it.
type Entry struct {
	Name string
	Kind EntryKind
	Mode filemode.FileMode
	ID   string
}

// Tree is an ordered list of tree entries, per the GLOSSARY.
type Tree interface {
	Entries() []Entry
}

// Blob is an immutable byte sequence plus its advertised length.
type Blob struct {
	Size    int64
	Content []byte
}

// Child returns the entry named name directly under t, if any.
func Child(t Tree, name string) (Entry, bool) {
	for _, e := range t.Entries() {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Store is the capability set spec §6.3 requires of the object database.
type Store interface {
	// Head resolves the current HEAD to a commit id. Called once at mount
	// time; the result is never re-read (GLOSSARY: HEAD).
	Head() (string, error)

	// RootTree returns the root tree of the commit identified by commitID.
	RootTree(commitID string) (Tree, error)

	// PeelTree resolves a KindTree entry (obtained from Tree.Entries) to its
	// Tree.
	PeelTree(e Entry) (Tree, error)

	// PeelBlob resolves a KindBlob entry to its Blob, including full content.
	PeelBlob(e Entry) (Blob, error)

	// BlobSize resolves a KindBlob entry's byte length without reading its
	// content, for call sites (tree traversal, readdir) that only need to
	// materialize a Node's Size.
	BlobSize(e Entry) (int64, error)

	// Reopen returns a fresh Store handle to the same underlying repository.
	// Prefetch workers must call this rather than share the dispatch
	// layer's handle (spec §5: "The object-store handle held by the
	// dispatch layer is not thread-safe for concurrent use").
	Reopen() (Store, error)

	// Close releases any resources held by this handle.
	Close() error
}
