// Package runmode holds the process-wide dry-run switch. When dry-run is
// enabled, filesystem mutations are logged instead of performed, and content
// that would have been written is emitted to a caller-visible sink.
package runmode

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

var dryRun atomic.Bool

var (
	outMu sync.Mutex
	out   io.Writer = os.Stdout
)

// SetDryRun enables or disables dry-run mode for the whole process.
func SetDryRun(enabled bool) {
	dryRun.Store(enabled)
}

// IsDryRun reports whether dry-run mode is enabled.
func IsDryRun() bool {
	return dryRun.Load()
}

// SetOutput redirects the dry-run content sink. A nil writer restores stdout.
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	out = w
}

// Output returns the current dry-run content sink.
func Output() io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	return out
}

// LogIntent records a filesystem mutation that dry-run mode suppressed.
func LogIntent(op, path string) {
	log.Info().Str("op", op).Str("path", path).Msg("dry-run, skipping filesystem mutation")
}
