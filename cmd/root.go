// Package cmd hosts the command-line entry point: a github.com/spf13/cobra
// root command taking the repository path and mount point positional
// arguments from spec.md §6.1, with flags for the cache bounds and debug
// log destination bound to environment variables (spec.md §6.2) via
// github.com/spf13/viper. Grounded on the teacher's cmd/root.go, trimmed to
// this system's much smaller flag surface: there is no bucket or
// storage-client configuration here, since there is no cloud backend.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shameerind/fuseoverlay/internal/config"
	"github.com/shameerind/fuseoverlay/internal/mountrunner"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "gitfs-overlay [flags] repo-path mount-point",
	Short: "Mount a git repository's HEAD commit as a writable, copy-on-write filesystem",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		cfg.RepoPath = args[0]
		cfg.MountPoint = args[1]
		if err := cfg.Validate(); err != nil {
			return err
		}
		return mountrunner.Run(cfg)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.IntVar(&cfg.MaxCacheBytes, "max-cache-bytes", config.DefaultMaxCacheBytes, "maximum total bytes held by the overlay cache")
	flags.IntVar(&cfg.MaxCacheEntries, "max-cache-entries", config.DefaultMaxCacheEntries, "maximum entry count held by the overlay cache")
	flags.StringVar(&cfg.LogFile, "log-file", "", "rotating file to write debug logs to, instead of stderr")

	_ = viper.BindPFlag("max_cache_bytes", flags.Lookup("max-cache-bytes"))
	_ = viper.BindPFlag("max_cache_entries", flags.Lookup("max-cache-entries"))
	_ = viper.BindPFlag("log_file", flags.Lookup("log-file"))

	viper.SetEnvPrefix("gitfs")
	viper.AutomaticEnv()
	if v := viper.GetInt("max_cache_bytes"); v > 0 {
		cfg.MaxCacheBytes = v
	}
	if v := viper.GetInt("max_cache_entries"); v > 0 {
		cfg.MaxCacheEntries = v
	}
	if v := viper.GetString("log_file"); v != "" {
		cfg.LogFile = v
	}
	_, cfg.Debug = os.LookupEnv("GITFS_DEBUG")
}

// Execute runs the root command, exiting the process on failure the way the
// teacher's cmd.Execute does.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
