// Package logger provides the debug log sink described in spec §2 and
// §6.2: gated entirely by the GITFS_DEBUG environment variable, optionally
// rotated to a file via lumberjack the way the teacher's go.mod-level
// dependency on gopkg.in/natefinch/lumberjack.v2 implies.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.Mutex
	log     *slog.Logger
	enabled atomic.Bool
	session string
)

func init() {
	Reset()
}

// Reset reinitializes the logger from the current environment. Production
// code calls this once at startup; tests call it to isolate state.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	_, debug := os.LookupEnv("GITFS_DEBUG")
	enabled.Store(debug)

	var w io.Writer = os.Stderr
	if f := os.Getenv("GITFS_LOG_FILE"); f != "" {
		w = &lumberjack.Logger{
			Filename:   f,
			MaxSize:    maxLogFileMB,
			MaxBackups: 3,
		}
	}

	log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	session = uuid.NewString()
}

const maxLogFileMB = 64

// Debugf logs a formatted debug line tagged with the current mount
// session's id, iff GITFS_DEBUG is set. Disabled logging costs a single
// atomic load.
func Debugf(format string, args ...any) {
	if !enabled.Load() {
		return
	}
	mu.Lock()
	l := log
	mu.Unlock()
	l.Debug(fmt.Sprintf(format, args...), "session", session)
}
