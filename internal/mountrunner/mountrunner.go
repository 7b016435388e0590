// Package mountrunner wires together store, overlay, metrics, and the
// dispatch layer into a running mount, and owns the process-level concerns
// spec.md §1 calls "external collaborators": the PID side-channel file
// (§6.6), the SIGINT-triggered lazy unmount (§5), and the mount-flag set
// (§6.5). Grounded on the teacher's cmd/legacy_main.go run()/mountWithArgs
// and registerSIGINTHandler, and cmd/mount.go's fuse.Mount call.
package mountrunner

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shameerind/fuseoverlay/internal/clock"
	"github.com/shameerind/fuseoverlay/internal/config"
	"github.com/shameerind/fuseoverlay/internal/fs"
	"github.com/shameerind/fuseoverlay/internal/logger"
	"github.com/shameerind/fuseoverlay/internal/lru"
	"github.com/shameerind/fuseoverlay/internal/metrics"
	"github.com/shameerind/fuseoverlay/internal/store/gitstore"
)

// Run opens the repository at cfg.RepoPath, mounts the overlay filesystem
// at cfg.MountPoint, and blocks until the mount is unmounted (by the
// kernel, by a SIGINT-triggered lazy unmount, or by external tooling using
// the PID file). Startup failures abort with a context-tagged error, per
// spec.md §7.
func Run(cfg config.Config) error {
	if cfg.LogFile != "" {
		os.Setenv("GITFS_LOG_FILE", cfg.LogFile)
	}
	if cfg.Debug {
		os.Setenv("GITFS_DEBUG", "1")
	}
	logger.Reset()

	st, err := gitstore.Open(cfg.RepoPath)
	if err != nil {
		return fmt.Errorf("open repository %q: %w", cfg.RepoPath, err)
	}

	headID, err := st.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}

	if err := os.MkdirAll(cfg.MountPoint, 0o755); err != nil {
		return fmt.Errorf("create mount point %q: %w", cfg.MountPoint, err)
	}

	if err := writePIDFile(cfg.MountPoint); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}

	overlay := lru.New(cfg.MaxCacheBytes, cfg.MaxCacheEntries)
	m := metrics.New(prometheus.DefaultRegisterer)
	fsImpl := fs.New(st, headID, st.Reopen, m, clock.Real(), overlay)

	server := fuseutil.NewFileSystemServer(fsImpl)

	mountCfg := &fuse.MountConfig{
		FSName:     "gitfs-overlay",
		Subtype:    "gitfsoverlay",
		VolumeName: "gitfs-overlay",
		ReadOnly:   true, // spec.md §6.5: the kernel sees a read-only mount; writes land in the overlay, never on disk.
		Options: map[string]string{
			"allow_other": "",
			"nonempty":    "",
		},
	}

	logger.Debugf("mounting %q at %q", cfg.RepoPath, cfg.MountPoint)
	mfs, err := fuse.Mount(cfg.MountPoint, server, mountCfg)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	registerSIGINTHandler(cfg.MountPoint)

	if err := mfs.Join(context.Background()); err != nil {
		return fmt.Errorf("MountedFileSystem.Join: %w", err)
	}
	return nil
}

// writePIDFile records the process id at ".../.git/fuse_pid" relative to
// the mount point's parent directory, per spec.md §6.6, so external tooling
// can issue an unmount.
func writePIDFile(mountPoint string) error {
	dir := filepath.Join(filepath.Dir(mountPoint), ".git")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, "fuse_pid")
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// registerSIGINTHandler arranges for Ctrl-C to trigger a best-effort lazy
// unmount, per spec.md §5's "signal handler that invokes the unmount tool
// with lazy semantics and then exits."
func registerSIGINTHandler(mountPoint string) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)

	go func() {
		for range signalChan {
			logger.Debugf("received SIGINT, attempting lazy unmount of %q", mountPoint)
			if err := fuse.Unmount(mountPoint); err != nil {
				logger.Debugf("unmount failed: %v", err)
				continue
			}
			return
		}
	}()
}
