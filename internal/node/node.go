// Package node defines the filesystem identity record shared by the
// inode cache and the dispatch layer, and the translation between git's
// tree-entry mode bits and POSIX permission bits.
package node

import "github.com/go-git/go-git/v6/plumbing/filemode"

// Ino is a process-lifetime-unique inode number. The root is always 1.
type Ino uint64

// RootIno is the reserved inode number of the mount root.
const RootIno Ino = 1

// Kind is the filesystem-visible type of a Node. Git object kinds that are
// not surfaced to the kernel (submodules, symlinks) never produce a Node.
type Kind int

const (
	KindRegularFile Kind = iota
	KindDirectory
)

// Node is the unit of filesystem identity: the fact that materializes the
// first time a path is reached, and is never mutated except through
// NodeCache.InsertNode.
type Node struct {
	Ino  Ino
	Kind Kind
	Size uint64
	Path string

	// GitMode is the tree-entry mode this node was realized from, or nil for
	// overlay-only nodes (created by Create/Mkdir, or materialized from an
	// overlay-only write with no backing git blob).
	GitMode *filemode.FileMode
}

// DefaultPerm returns the POSIX permission bits for a node with no GitMode,
// per the overlay-only default in spec §3: 0644 for files, 0755 for
// directories.
func (n Node) DefaultPerm() uint32 {
	if n.Kind == KindDirectory {
		return 0o755
	}
	return 0o644
}

// Perm projects a Node to a POSIX permission value via the mode table in
// spec §6.7, falling back to DefaultPerm when GitMode is absent.
func (n Node) Perm() uint32 {
	if n.GitMode == nil {
		return n.DefaultPerm()
	}
	return ModeToPerm(*n.GitMode)
}

// ModeToPerm implements the tree-entry-mode -> POSIX-perm column of the
// table in spec §6.7.
func ModeToPerm(m filemode.FileMode) uint32 {
	switch m {
	case filemode.Executable:
		return 0o755
	case filemode.Dir:
		return 0o755
	case filemode.Regular, filemode.Symlink, filemode.Submodule:
		return 0o644
	default:
		return 0o644
	}
}

// RawModeToFileMode translates the raw numeric tree-entry mode bits (as
// read directly off a git tree entry, e.g. 0o100644) into the store's mode
// enum, per spec §6.7. Unrecognized bit patterns default to a regular blob.
func RawModeToFileMode(raw uint32) filemode.FileMode {
	switch raw {
	case 0o100644:
		return filemode.Regular
	case 0o100755:
		return filemode.Executable
	case 0o040000:
		return filemode.Dir
	case 0o120000:
		return filemode.Symlink
	case 0o160000:
		return filemode.Submodule
	default:
		return filemode.Regular
	}
}
