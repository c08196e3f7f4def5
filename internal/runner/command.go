package runner

import (
	"strings"
	"time"
)

// DefaultTimeout bounds a Run call when the command does not carry its
// own timeout. Callers launching long operations (full project builds,
// index rebuilds) must pass an explicit larger value.
const DefaultTimeout = 3 * time.Second

// CapturePolicy controls how captured output is reported.
type CapturePolicy int

const (
	// CaptureNone buffers the output and reports it as a single
	// aggregate diagnostic once the command finishes.
	CaptureNone CapturePolicy = iota

	// CaptureToLog forwards each non-blank output line to the log sink
	// as it is produced, instead of one post-hoc block. Used for
	// commands with continuous output, like an interactive build tool.
	CaptureToLog
)

// Command describes one external command invocation. It is constructed
// once per invocation and never mutated.
type Command struct {
	Dir     string
	Path    string
	Args    []string
	Timeout time.Duration
	Capture CapturePolicy

	// NotifyOnError additionally surfaces a failure as a transient
	// balloon notification, on top of the error log entry.
	NotifyOnError bool

	// IgnoreExitCode suppresses failure classification for non-zero
	// exits; the result is reported via the success path.
	IgnoreExitCode bool
}

// CommandLine renders the command as it would appear in a shell.
func (c Command) CommandLine() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

func (c Command) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}
