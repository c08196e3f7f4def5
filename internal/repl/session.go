// Package repl manages the lifecycle of a long-lived interactive
// compiler process. The wire protocol (sending source, parsing the
// compiler's replies) is delegated to an injected exchange function;
// this package owns only the process and its observable state.
package repl

import (
	"fmt"
	"os/exec"
	"sync"

	"replkit/internal/notify"
)

// LoadOutcome is the result of loading one file into a session.
type LoadOutcome struct {
	Stderr []string
	Failed bool
}

// Session is the surface the load orchestrator depends on.
type Session interface {
	State() State

	// Start, Restart and Stop are idempotent with respect to state:
	// starting a Starting/Available session is a no-op.
	Start() error
	Restart() error
	Stop() error

	// Load loads the file and returns the outcome, or nil if the
	// session cannot accept a load in its current state. Blocks while
	// the session is Busy with another load.
	Load(file string) *LoadOutcome

	// IsLoaded reports the last known load status of the file.
	IsLoaded(file string) IsFileLoaded
}

// LoadFunc performs the wire exchange for one file load against a
// running REPL process. It is only called while the session holds the
// Busy state.
type LoadFunc func(file string) *LoadOutcome

// ManagedSession runs one external REPL process and tracks its state.
type ManagedSession struct {
	name     string
	dir      string
	path     string
	args     []string
	loadFn   LoadFunc
	notifier notify.Notifier

	mu     sync.Mutex
	cond   *sync.Cond
	state  State
	proc   *exec.Cmd
	epoch  int // bumped on every (re)start so crash watchers ignore stale processes
	loaded map[string]IsFileLoaded
}

var _ Session = (*ManagedSession)(nil)

// NewManagedSession creates a stopped session that will run the given
// command when started.
func NewManagedSession(name, dir, path string, args []string, loadFn LoadFunc, notifier notify.Notifier) *ManagedSession {
	s := &ManagedSession{
		name:     name,
		dir:      dir,
		path:     path,
		args:     args,
		loadFn:   loadFn,
		notifier: notifier,
		state:    Stopped,
		loaded:   make(map[string]IsFileLoaded),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *ManagedSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start spawns the REPL process. A no-op unless the session is Stopped.
func (s *ManagedSession) Start() error {
	s.mu.Lock()
	if s.state != Stopped {
		s.mu.Unlock()
		return nil
	}
	s.state = Starting
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	proc := exec.Command(s.path, s.args...)
	if s.dir != "" {
		proc.Dir = s.dir
	}

	if err := proc.Start(); err != nil {
		s.mu.Lock()
		s.state = Stopped
		s.cond.Broadcast()
		s.mu.Unlock()
		return fmt.Errorf("failed to start repl session %s: %w", s.name, err)
	}

	s.mu.Lock()
	if s.epoch != epoch {
		// A concurrent Stop superseded this start; don't resurrect.
		s.mu.Unlock()
		_ = proc.Process.Kill()
		_ = proc.Wait()
		return nil
	}
	s.proc = proc
	s.state = Available
	s.loaded = make(map[string]IsFileLoaded)
	s.cond.Broadcast()
	s.mu.Unlock()

	go s.watch(proc, epoch)
	return nil
}

// Restart tears down the current process, then starts a new one.
func (s *ManagedSession) Restart() error {
	if err := s.Stop(); err != nil {
		return err
	}
	return s.Start()
}

// Stop kills the process if one is running. A no-op when Stopped.
func (s *ManagedSession) Stop() error {
	s.mu.Lock()
	proc := s.proc
	s.proc = nil
	s.epoch++
	s.state = Stopped
	s.cond.Broadcast()
	s.mu.Unlock()

	if proc != nil && proc.Process != nil {
		// Abandoned; the watcher for the old epoch reaps it.
		_ = proc.Process.Kill()
	}
	return nil
}

func (s *ManagedSession) Load(file string) *LoadOutcome {
	s.mu.Lock()
	for s.state == Busy {
		s.cond.Wait()
	}
	if s.state != Available {
		s.mu.Unlock()
		return nil
	}
	s.state = Busy
	s.mu.Unlock()

	out := s.loadFn(file)

	s.mu.Lock()
	if s.state == Busy {
		s.state = Available
	}
	switch {
	case out == nil:
		// Exchange aborted; leave the load status untouched.
	case out.Failed:
		s.loaded[file] = FailedToLoad
	default:
		s.loaded[file] = Loaded
	}
	s.cond.Broadcast()
	s.mu.Unlock()
	return out
}

func (s *ManagedSession) IsLoaded(file string) IsFileLoaded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded[file]
}

// watch reaps the process and marks the session Stopped on crash.
func (s *ManagedSession) watch(proc *exec.Cmd, epoch int) {
	err := proc.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		// A restart or stop already superseded this process.
		return
	}
	s.proc = nil
	s.state = Stopped
	s.cond.Broadcast()
	if err != nil && s.notifier != nil {
		s.notifier.LogError(fmt.Sprintf("repl session %s exited: %v", s.name, err))
	}
}
