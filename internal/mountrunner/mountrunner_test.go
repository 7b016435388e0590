package mountrunner

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePIDFileNestsUnderGitDirOfMountParent(t *testing.T) {
	parent := t.TempDir()
	mountPoint := filepath.Join(parent, "mnt")
	require.NoError(t, os.MkdirAll(mountPoint, 0o755))

	require.NoError(t, writePIDFile(mountPoint))

	content, err := os.ReadFile(filepath.Join(parent, ".git", "fuse_pid"))
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(content))
}
