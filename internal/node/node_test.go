package node

import (
	"testing"

	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/stretchr/testify/assert"
)

func TestRawModeToFileMode(t *testing.T) {
	cases := []struct {
		raw  uint32
		want filemode.FileMode
	}{
		{0o100644, filemode.Regular},
		{0o100755, filemode.Executable},
		{0o040000, filemode.Dir},
		{0o120000, filemode.Symlink},
		{0o160000, filemode.Submodule},
		{0o777777, filemode.Regular}, // unrecognized -> blob default
	}
	for _, c := range cases {
		assert.Equal(t, c.want, RawModeToFileMode(c.raw))
	}
}

func TestModeToPerm(t *testing.T) {
	assert.EqualValues(t, 0o644, ModeToPerm(filemode.Regular))
	assert.EqualValues(t, 0o755, ModeToPerm(filemode.Executable))
	assert.EqualValues(t, 0o755, ModeToPerm(filemode.Dir))
	assert.EqualValues(t, 0o644, ModeToPerm(filemode.Symlink))
	assert.EqualValues(t, 0o644, ModeToPerm(filemode.Submodule))
}

func TestNodePermDefaults(t *testing.T) {
	dir := Node{Kind: KindDirectory}
	assert.EqualValues(t, 0o755, dir.Perm())

	file := Node{Kind: KindRegularFile}
	assert.EqualValues(t, 0o644, file.Perm())

	mode := filemode.Executable
	withMode := Node{Kind: KindRegularFile, GitMode: &mode}
	assert.EqualValues(t, 0o755, withMode.Perm())
}
