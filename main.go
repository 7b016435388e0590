// Command gitfs-overlay mounts a git repository's HEAD commit as a
// writable, copy-on-write FUSE filesystem. See cmd for the flag
// surface and internal/mountrunner for the mount lifecycle.
package main

import "github.com/shameerind/fuseoverlay/cmd"

func main() {
	cmd.Execute()
}
