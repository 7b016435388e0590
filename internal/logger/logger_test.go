package logger

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugfGatedByEnv(t *testing.T) {
	os.Unsetenv("GITFS_DEBUG")
	os.Unsetenv("GITFS_LOG_FILE")
	Reset()
	assert.False(t, enabled.Load())
	assert.NotPanics(t, func() { Debugf("should be a no-op") })

	os.Setenv("GITFS_DEBUG", "1")
	defer os.Unsetenv("GITFS_DEBUG")
	Reset()
	assert.True(t, enabled.Load())
	assert.NotPanics(t, func() { Debugf("ino=%d path=%s", 42, "a/b") })
}
