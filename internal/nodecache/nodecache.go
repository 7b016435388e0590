// Package nodecache implements the NodeCache collaborator from spec §4.2:
// the bidirectional inode<->path table and the path resolution cascade that
// materializes Nodes lazily from the overlay and the object store. Ground
// truth is original_source/fuse_overlay_rust/src/node_cache.rs, whose three
// dashmap::DashMap tables (nodes, path_to_ino, ino_cache) map directly onto
// github.com/orcaman/concurrent-map/v2, the Go analogue the rest of this
// module's DOMAIN STACK already depends on for lock-free-ish concurrent
// maps.
package nodecache

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/shameerind/fuseoverlay/internal/clock"
	"github.com/shameerind/fuseoverlay/internal/lru"
	"github.com/shameerind/fuseoverlay/internal/node"
	"github.com/shameerind/fuseoverlay/internal/store"
)

// Attr is the kernel-facing projection of a Node: the fields a FUSE
// getattr/lookup reply needs, derived fresh on every call rather than
// stored, per spec §4.2's "timestamps are always now" rule.
type Attr struct {
	Ino     node.Ino
	Size    uint64
	Blocks  uint64
	Kind    node.Kind
	Perm    uint32
	Nlink   uint32
	Uid     uint32
	Gid     uint32
	Blksize uint32
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time
}

// NodeCache is the bidirectional inode<->path table. It is safe for
// concurrent use.
type NodeCache struct {
	nodes       cmap.ConcurrentMap[string, node.Node] // key: ino, decimal
	inoByPath   cmap.ConcurrentMap[string, node.Ino]   // key: path
	inoAllocMap cmap.ConcurrentMap[string, node.Ino]   // key: path, never shrinks

	nextIno atomic.Uint64

	clk      clock.Clock
	uid, gid uint32
}

// New builds a NodeCache with the root node (ino 1, empty path, directory)
// pre-seeded, per spec §4.2.
func New(clk clock.Clock) *NodeCache {
	nc := &NodeCache{
		nodes:       cmap.New[node.Node](),
		inoByPath:   cmap.New[node.Ino](),
		inoAllocMap: cmap.New[node.Ino](),
		clk:         clk,
		uid:         uint32(os.Geteuid()),
		gid:         uint32(os.Getegid()),
	}
	nc.nextIno.Store(uint64(node.RootIno) + 1)

	root := node.Node{Ino: node.RootIno, Kind: node.KindDirectory, Path: ""}
	nc.nodes.Set(inoKey(node.RootIno), root)
	nc.inoByPath.Set("", node.RootIno)
	nc.inoAllocMap.Set("", node.RootIno)

	return nc
}

func inoKey(ino node.Ino) string {
	return strconv.FormatUint(uint64(ino), 10)
}

// AllocIno returns the inode number assigned to path, allocating a new one
// on first request. Allocation is idempotent for the life of the process:
// it is never reclaimed, even after RemoveNode, per spec §4.2's "inode
// numbers are never reused" invariant.
func (nc *NodeCache) AllocIno(path string) node.Ino {
	if ino, ok := nc.inoAllocMap.Get(path); ok {
		return ino
	}
	ino := node.Ino(nc.nextIno.Add(1) - 1)
	if !nc.inoAllocMap.SetIfAbsent(path, ino) {
		// Someone else won the race; use their allocation instead of ours.
		ino, _ = nc.inoAllocMap.Get(path)
	}
	return ino
}

// InsertNode records n under ino, overwriting any previous node at that
// inode number and updating the path index. Rename uses this to repoint an
// existing inode at a new path.
func (nc *NodeCache) InsertNode(ino node.Ino, n node.Node) {
	nc.nodes.Set(inoKey(ino), n)
	nc.inoByPath.Set(n.Path, ino)
}

// GetNode looks up the Node last inserted at ino.
func (nc *NodeCache) GetNode(ino node.Ino) (node.Node, bool) {
	return nc.nodes.Get(inoKey(ino))
}

// GetInoByPath looks up the inode number currently bound to path.
func (nc *NodeCache) GetInoByPath(path string) (node.Ino, bool) {
	return nc.inoByPath.Get(path)
}

// RemoveNode drops path's binding from the path index and its Node from the
// node table, for Unlink/RmDir. It does not touch the allocation table, so
// a later re-creation at the same path gets the same inode number.
func (nc *NodeCache) RemoveNode(path string) (node.Ino, bool) {
	ino, ok := nc.inoByPath.Get(path)
	if !ok {
		return 0, false
	}
	nc.inoByPath.Remove(path)
	nc.nodes.Remove(inoKey(ino))
	return ino, true
}

// NodeToAttr projects n to kernel-facing attributes, filling every
// timestamp with the current time per spec §4.2.
func (nc *NodeCache) NodeToAttr(n node.Node) Attr {
	now := nc.clk.Now()
	return Attr{
		Ino:     n.Ino,
		Size:    n.Size,
		Blocks:  (n.Size + 511) / 512,
		Kind:    n.Kind,
		Perm:    n.Perm(),
		Nlink:   1,
		Uid:     nc.uid,
		Gid:     nc.gid,
		Blksize: 512,
		Atime:   now,
		Mtime:   now,
		Ctime:   now,
	}
}

// LookupPath resolves path to a Node, materializing and caching it on
// first access, per spec §4.2's four-step cascade:
//
//  1. A cached inode binding wins outright.
//  2. Otherwise, a path present in the overlay materializes as a regular
//     file sized to the cached buffer, with no backing git mode.
//  3. Otherwise, the path is walked component by component from the HEAD
//     commit's root tree; every intermediate directory is realized and
//     cached along the way, and a blob component must be the final one.
//  4. A missing component, or a component whose object kind is neither
//     tree nor blob, fails resolution outright.
func (nc *NodeCache) LookupPath(path string, overlay *lru.Cache, st store.Store, headCommitID string) (node.Node, bool) {
	if path == "" {
		return nc.GetNode(node.RootIno)
	}
	if ino, ok := nc.GetInoByPath(path); ok {
		return nc.GetNode(ino)
	}
	if buf, ok := overlay.Get(path); ok {
		ino := nc.AllocIno(path)
		n := node.Node{Ino: ino, Kind: node.KindRegularFile, Size: uint64(len(buf)), Path: path}
		nc.InsertNode(ino, n)
		return n, true
	}

	tree, err := st.RootTree(headCommitID)
	if err != nil {
		return node.Node{}, false
	}

	comps := strings.Split(path, "/")
	curPath := ""
	for i, comp := range comps {
		if comp == "" {
			return node.Node{}, false
		}
		if curPath == "" {
			curPath = comp
		} else {
			curPath = curPath + "/" + comp
		}

		entry, ok := store.Child(tree, comp)
		if !ok {
			return node.Node{}, false
		}

		switch entry.Kind {
		case store.KindTree:
			mode := entry.Mode
			ino := nc.AllocIno(curPath)
			n := node.Node{Ino: ino, Kind: node.KindDirectory, Path: curPath, GitMode: &mode}
			nc.InsertNode(ino, n)

			if i == len(comps)-1 {
				return n, true
			}
			next, err := st.PeelTree(entry)
			if err != nil {
				return node.Node{}, false
			}
			tree = next

		case store.KindBlob:
			if i != len(comps)-1 {
				return node.Node{}, false
			}
			size, err := st.BlobSize(entry)
			if err != nil {
				return node.Node{}, false
			}
			mode := entry.Mode
			ino := nc.AllocIno(curPath)
			n := node.Node{Ino: ino, Kind: node.KindRegularFile, Size: uint64(size), Path: curPath, GitMode: &mode}
			nc.InsertNode(ino, n)
			return n, true

		default:
			return node.Node{}, false
		}
	}

	return node.Node{}, false
}
