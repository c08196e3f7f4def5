// Package runner provides timeout-bounded synchronous execution of
// external commands with output capture and failure classification.
//
// Failures are never signalled as Go errors: timeout and non-zero exit
// are carried in the returned Result, with a diagnostic emitted through
// the injected notifier. Only a command that cannot be spawned at all
// produces an error.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"replkit/internal/notify"
)

const maxLineBytes = 1024 * 1024

// Runner executes external commands. Safe for concurrent use.
type Runner struct {
	notifier notify.Notifier
}

// New creates a Runner reporting through the given notifier.
func New(notifier notify.Notifier) *Runner {
	return &Runner{notifier: notifier}
}

// Run launches the command and blocks until it finishes or its timeout
// expires. The returned error is non-nil only when the process could
// not be spawned; every other failure is data in the Result.
func (r *Runner) Run(cmd Command) (Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cmd.timeout())
	defer cancel()

	proc := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	if cmd.Dir != "" {
		proc.Dir = cmd.Dir
	}

	stdoutPipe, err := proc.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("failed to open stdout pipe for %s: %w", cmd.CommandLine(), err)
	}
	stderrPipe, err := proc.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("failed to open stderr pipe for %s: %w", cmd.CommandLine(), err)
	}

	if err := proc.Start(); err != nil {
		return Result{}, fmt.Errorf("failed to start %s: %w", cmd.CommandLine(), err)
	}

	var wg sync.WaitGroup
	var stdout, stderr []string
	wg.Add(2)
	go r.drain(&wg, stdoutPipe, cmd, false, &stdout)
	go r.drain(&wg, stderrPipe, cmd, true, &stderr)
	wg.Wait()

	waitErr := proc.Wait()

	res := Result{Stdout: stdout, Stderr: stderr}

	if ctx.Err() == context.DeadlineExceeded {
		res.Outcome = TimedOut
		msg := fmt.Sprintf("timed out after %s: %s", cmd.timeout(), cmd.CommandLine())
		r.notifier.LogError(msg)
		if cmd.NotifyOnError {
			r.notifier.LogErrorBalloon(msg)
		}
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if !cmd.IgnoreExitCode {
			res.Outcome = FailedExitCode
			msg := fmt.Sprintf("%s exited with code %d", cmd.CommandLine(), res.ExitCode)
			if cmd.Capture == CaptureNone {
				// In capture-to-log mode the output already streamed;
				// repeating it post-hoc would double-report.
				msg += "\n" + res.Output()
			}
			r.notifier.LogError(msg)
			if cmd.NotifyOnError {
				r.notifier.LogErrorBalloon(msg)
			}
			return res, nil
		}
	} else if waitErr != nil {
		return res, fmt.Errorf("failed to run %s: %w", cmd.CommandLine(), waitErr)
	}

	res.Outcome = Succeeded
	if cmd.Capture == CaptureNone {
		r.notifier.LogInfo(fmt.Sprintf("%s\n%s", cmd.CommandLine(), res.Output()))
	}
	return res, nil
}

// drain reads one pipe to exhaustion, collecting lines and, in
// capture-to-log mode, streaming each non-blank line to the log sink.
func (r *Runner) drain(wg *sync.WaitGroup, pipe io.Reader, cmd Command, isStderr bool, out *[]string) {
	defer wg.Done()

	sc := bufio.NewScanner(pipe)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Text()
		*out = append(*out, line)

		if cmd.Capture != CaptureToLog || strings.TrimSpace(line) == "" {
			continue
		}
		msg := cmd.CommandLine() + ": " + line
		if isStderr {
			r.notifier.LogError(msg)
		} else {
			r.notifier.LogInfo(msg)
		}
	}
}
