// Package fserrors defines the POSIX-flavored error taxonomy spec §7
// requires the dispatch layer to surface. fsops and fs both depend on these
// sentinels rather than syscall.Errno directly, so fsops stays free of any
// FUSE-specific import and the dispatch layer does the final translation to
// the transport's error type (the same separation of concerns the teacher's
// fs/fs.go keeps between its internal helpers and op.Respond calls).
package fserrors

import "errors"

var (
	// ErrNotExist: path does not resolve in either overlay or object store;
	// parent inode unknown; blob not found.
	ErrNotExist = errors.New("gitfs: no such file or directory")

	// ErrNotDir: readdir or opendir attempted on a node that is not a
	// directory. Tree navigation through a non-directory component reports
	// ErrNotExist instead.
	ErrNotDir = errors.New("gitfs: not a directory")

	// ErrInvalid: a path component is not decodable as text.
	ErrInvalid = errors.New("gitfs: invalid argument")

	// ErrIO: the object-store library reported an error during navigation.
	ErrIO = errors.New("gitfs: i/o error")
)
