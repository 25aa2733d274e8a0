// Package logging implements the small fmt.Fprintf(stderr)-style debug
// logger every table-engine package uses, grounded on the teacher's
// rpcDebugLog/rpcDebugEnabled pair in internal/rpc/client.go: a package-level
// gate read from an environment variable, with one prefixed Fprintf call per
// log line, and no external logging library.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// DebugEnvVar is the environment variable that gates debug output
// (spec.md 1's AMBIENT STACK: TABLECORE_DEBUG).
const DebugEnvVar = "TABLECORE_DEBUG"

// Enabled reports whether TABLECORE_DEBUG is set to a truthy value.
func Enabled() bool {
	val := os.Getenv(DebugEnvVar)
	return val == "1" || val == "true"
}

// Logger writes prefixed debug lines to an underlying writer, gated by
// Enabled unless Force is set. Safe for concurrent use.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	prefix string
	force  bool
}

// New returns a Logger that writes to os.Stderr with the given bracketed
// prefix (e.g. "[ORCHESTRATOR]"), gated by TABLECORE_DEBUG.
func New(prefix string) *Logger {
	return &Logger{out: os.Stderr, prefix: prefix}
}

// NewTo returns a Logger writing to an arbitrary writer (the daemon uses this
// to direct logs at a lumberjack.Logger instead of stderr).
func NewTo(out io.Writer, prefix string) *Logger {
	return &Logger{out: out, prefix: prefix}
}

// Force makes the logger emit regardless of TABLECORE_DEBUG — used by the
// daemon's durable audit-adjacent log, which always runs.
func (l *Logger) Force(force bool) *Logger {
	l.force = force
	return l
}

// Debugf writes one log line if debug output is enabled.
func (l *Logger) Debugf(format string, args ...any) {
	if !l.force && !Enabled() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, l.prefix+" "+format+"\n", args...)
}
