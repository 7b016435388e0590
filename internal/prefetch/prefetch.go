// Package prefetch implements the background directory-prefetch worker from
// spec §4.6: given a directory path, walk the tree at HEAD and warm the
// overlay with every blob child not already present. Ground truth is
// original_source/fuse_overlay_rust/src/gitfs.rs's prefetch spawn site,
// translated from a detached std::thread into a detached goroutine per
// trigger, the way the teacher's internal/fs dispatches background work onto
// goroutines rather than raw threads.
package prefetch

import (
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/shameerind/fuseoverlay/internal/logger"
	"github.com/shameerind/fuseoverlay/internal/lru"
	"github.com/shameerind/fuseoverlay/internal/metrics"
	"github.com/shameerind/fuseoverlay/internal/store"
)

// Worker runs directory prefetches against a fresh store handle per spec §5
// ("workers must not share the dispatch layer's handle"), coalescing
// concurrent requests for the same directory. spec §9 flags unbounded
// fan-out under adversarial directory listings as an open design note;
// singleflight is this module's answer: every trigger still gets its own
// goroutine, but duplicate in-flight requests for the same dir_path share
// one walk instead of each walking the tree.
type Worker struct {
	reopen  func() (store.Store, error)
	overlay *lru.Cache
	metrics *metrics.Metrics
	group   singleflight.Group
}

// New builds a Worker. reopen must return a fresh, independently-usable
// Store handle on every call (store.Store.Reopen satisfies this).
func New(reopen func() (store.Store, error), overlay *lru.Cache, m *metrics.Metrics) *Worker {
	return &Worker{reopen: reopen, overlay: overlay, metrics: m}
}

// Trigger schedules a prefetch of dirPath's blob children at headCommitID on
// a detached goroutine. It returns immediately; there is no completion
// signal, per spec §4.6. Concurrent triggers for the same dirPath share one
// underlying walk.
func (w *Worker) Trigger(dirPath, headCommitID string) {
	go func() {
		_, _, _ = w.group.Do(dirPath+"@"+headCommitID, func() (any, error) {
			w.run(dirPath, headCommitID)
			return nil, nil
		})
	}()
}

func (w *Worker) run(dirPath, headCommitID string) {
	st, err := w.reopen()
	if err != nil {
		logger.Debugf("prefetch %q: reopen store: %v", dirPath, err)
		return
	}
	defer st.Close()

	root, err := st.RootTree(headCommitID)
	if err != nil {
		logger.Debugf("prefetch %q: root tree: %v", dirPath, err)
		return
	}

	tree := root
	if dirPath != "" {
		for _, comp := range strings.Split(dirPath, "/") {
			entry, ok := store.Child(tree, comp)
			if !ok || entry.Kind != store.KindTree {
				logger.Debugf("prefetch %q: navigate to %q: not a directory", dirPath, comp)
				return
			}
			next, err := st.PeelTree(entry)
			if err != nil {
				logger.Debugf("prefetch %q: peel %q: %v", dirPath, comp, err)
				return
			}
			tree = next
		}
	}

	var prefetched int
	for _, entry := range tree.Entries() {
		if entry.Kind != store.KindBlob {
			continue
		}
		childPath := entry.Name
		if dirPath != "" {
			childPath = dirPath + "/" + entry.Name
		}
		if w.overlay.Contains(childPath) {
			continue
		}
		blob, err := st.PeelBlob(entry)
		if err != nil {
			logger.Debugf("prefetch %q: blob %q: %v", dirPath, childPath, err)
			continue
		}
		w.overlay.Insert(childPath, blob.Content)
		w.metrics.AddPrefetch(uint64(len(blob.Content)))
		prefetched++
	}

	if prefetched > 0 {
		w.metrics.Log()
	}
}
