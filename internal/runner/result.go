package runner

import "strings"

// Outcome classifies a finished command into exactly one bucket.
type Outcome int

const (
	Succeeded Outcome = iota
	FailedExitCode
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case FailedExitCode:
		return "failed"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Result is the immutable outcome of one command invocation.
type Result struct {
	Outcome  Outcome
	ExitCode int // exact code for FailedExitCode; also kept for ignored non-zero exits
	Stdout   []string
	Stderr   []string
}

// Output returns stdout followed by stderr, newline-joined. This is the
// rendering used for aggregate diagnostics.
func (r Result) Output() string {
	lines := make([]string, 0, len(r.Stdout)+len(r.Stderr))
	lines = append(lines, r.Stdout...)
	lines = append(lines, r.Stderr...)
	return strings.Join(lines, "\n")
}
