// Package config holds the validated runtime configuration for a mount,
// the way the teacher's cfg package centralizes gcsfuse's flag-derived
// settings. Values are bound once at startup from cobra flags (via
// github.com/spf13/viper, which also layers in the GITFS_* environment
// variables spec.md §6.2 mentions) and passed down by value from there.
package config

// Default cache bounds mirror original_source/fuse_overlay_rust/src/gitfs.rs's
// DEFAULT_MAX_CACHE_BYTES (2048 MiB) and DEFAULT_MAX_CACHE_ENTRIES (50,000),
// a detail the distilled spec.md omits.
const (
	DefaultMaxCacheBytes   = 2048 * 1024 * 1024
	DefaultMaxCacheEntries = 50000
)

// Config is the fully-resolved set of settings a mount run needs.
type Config struct {
	// RepoPath is the filesystem path to the source git repository.
	RepoPath string
	// MountPoint is the directory the filesystem is mounted onto, created
	// if absent.
	MountPoint string

	MaxCacheBytes   int
	MaxCacheEntries int

	// Debug enables debug logging (spec.md §6.2's GITFS_DEBUG).
	Debug bool
	// LogFile, if non-empty, redirects debug logs to a rotating file
	// instead of stderr.
	LogFile string
}

// Validate checks the required positional arguments are present and the
// cache bounds are sane, per spec.md §7's "startup failures abort the
// process" policy.
func (c Config) Validate() error {
	if c.RepoPath == "" {
		return errConfig("repository path is required")
	}
	if c.MountPoint == "" {
		return errConfig("mount point is required")
	}
	if c.MaxCacheBytes <= 0 {
		return errConfig("max cache bytes must be positive")
	}
	if c.MaxCacheEntries <= 0 {
		return errConfig("max cache entries must be positive")
	}
	return nil
}

type configError string

func (e configError) Error() string { return string(e) }

func errConfig(msg string) error { return configError(msg) }
