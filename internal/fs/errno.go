package fs

import (
	"github.com/jacobsa/fuse"

	"github.com/shameerind/fuseoverlay/internal/fserrors"
)

// errno translates an fserrors sentinel into the POSIX errno value the
// kernel transport expects, per spec §7. Any other error (a genuine bug)
// passes through unchanged so op.Respond-equivalent plumbing surfaces it.
func errno(err error) error {
	switch err {
	case nil:
		return nil
	case fserrors.ErrNotExist:
		return fuse.ENOENT
	case fserrors.ErrNotDir:
		return fuse.ENOTDIR
	case fserrors.ErrInvalid:
		return fuse.EINVAL
	case fserrors.ErrIO:
		return fuse.EIO
	default:
		return err
	}
}
