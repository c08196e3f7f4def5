// Package loader decides, for a file about to be loaded into the REPL,
// whether a changed dependency must be rebuilt first, whether the
// session needs to be built and (re)started, and which downstream
// caches to invalidate once the load completes.
package loader

import (
	"fmt"
	"time"

	"replkit/internal/notify"
	"replkit/internal/pool"
	"replkit/internal/project"
	"replkit/internal/rebuild"
	"replkit/internal/registry"
	"replkit/internal/repl"
	"replkit/internal/runner"
)

const (
	// editorQueryTimeout bounds the editor-selection query; past it the
	// file is treated as not active.
	editorQueryTimeout = 5 * time.Second

	editorPollInterval = time.Millisecond
)

// LoadResult is the outcome of one load attempt. A nil *LoadResult
// from Load means no load was attempted.
type LoadResult struct {
	Stderr []string
	Failed bool
}

// Orchestrator coordinates rebuilds, session lifecycle and cache
// invalidation around REPL file loads for one project.
type Orchestrator struct {
	proj      *registry.Project
	meta      *project.Resolver
	runner    *runner.Runner
	editor    EditorState
	annotator Annotator
	builder   ProjectBuilder
	caches    CacheInvalidator
	workers   *pool.Pool
	notifier  notify.Notifier

	// rebuildCommand renders the external command that rebuilds one
	// build target. Injected because command construction is
	// project-configuration plumbing.
	rebuildCommand func(target string) runner.Command

	editorTimeout time.Duration
}

// New creates an Orchestrator. The pool carries every side-effecting
// dispatch so the calling thread only ever blocks on the load itself.
func New(
	proj *registry.Project,
	meta *project.Resolver,
	run *runner.Runner,
	editor EditorState,
	annotator Annotator,
	builder ProjectBuilder,
	caches CacheInvalidator,
	workers *pool.Pool,
	notifier notify.Notifier,
	rebuildCommand func(target string) runner.Command,
) *Orchestrator {
	return &Orchestrator{
		proj:           proj,
		meta:           meta,
		runner:         run,
		editor:         editor,
		annotator:      annotator,
		builder:        builder,
		caches:         caches,
		workers:        workers,
		notifier:       notifier,
		rebuildCommand: rebuildCommand,
		editorTimeout:  editorQueryTimeout,
	}
}

// Load loads the file into the project's REPL session, running any
// pending dependency rebuild first and recovering a stopped session
// via a full build. Returns nil when no session could accept the load;
// callers must not assume a load occurred.
//
// currentContext is the editor context around the caret, used to warm
// the type-info cache for library and test files.
func (o *Orchestrator) Load(file, currentContext string) *LoadResult {
	_, stanza, known := o.meta.StanzaFor(file)

	active := o.isSelectedFile(file)

	// Pending rebuilds are only claimed for the active file, and never
	// for files inside a pure library stanza (the library rebuild is
	// what these claims dispatch).
	if active && known && stanza.Kind != project.KindLibrary {
		for _, lib := range o.meta.LibraryDependencies(file) {
			if pending, claimed := o.proj.Tracker().Claim(lib); claimed {
				o.workers.Go(func() {
					o.rebuildAndRestart(lib, pending, file)
				})
			}
			// A lost claim means another load already dispatched this
			// rebuild; skip silently.
		}
	}

	session := o.proj.Session(registry.KindProject)
	if session == nil {
		return nil
	}

	if st := session.State(); st != repl.Available && st != repl.Starting {
		o.workers.Go(func() {
			o.buildAndRecover(session, file)
		})
	}

	outcome := session.Load(file)
	if outcome == nil {
		return nil
	}

	o.workers.Go(func() {
		o.invalidateCaches(file, stanza, known, outcome, currentContext)
	})

	return &LoadResult{Stderr: outcome.Stderr, Failed: outcome.Failed}
}

// IsLoaded reports the project session's last known load status for
// the file. Informational only.
func (o *Orchestrator) IsLoaded(file string) repl.IsFileLoaded {
	session := o.proj.Session(registry.KindProject)
	if session == nil {
		return repl.NotLoaded
	}
	return session.IsLoaded(file)
}

// IsBusy reports whether any of the project's sessions is busy.
func (o *Orchestrator) IsBusy() bool {
	for _, s := range o.proj.Sessions() {
		if s.State() == repl.Busy {
			return true
		}
	}
	return false
}

// IsFileBusy reports whether the session responsible for the file is busy.
func (o *Orchestrator) IsFileBusy(file string) bool {
	if _, _, ok := o.meta.StanzaFor(file); !ok {
		return false
	}
	session := o.proj.Session(registry.KindProject)
	return session != nil && session.State() == repl.Busy
}

// isSelectedFile asks the editor collaborator whether the file is in
// the front-facing editor, with a hard deadline and false on expiry.
func (o *Orchestrator) isSelectedFile(file string) bool {
	answer := make(chan bool, 1)
	go func() {
		answer <- o.editor.SelectedEditorContains(file)
	}()

	deadline := time.After(o.editorTimeout)
	ticker := time.NewTicker(editorPollInterval)
	defer ticker.Stop()
	for {
		select {
		case ok := <-answer:
			return ok
		case <-deadline:
			return false
		case <-ticker.C:
		}
	}
}

// rebuildAndRestart runs a claimed dependency rebuild, restarts the
// project session, and retriggers analysis once it is available again.
func (o *Orchestrator) rebuildAndRestart(library string, pending rebuild.Pending, file string) {
	o.notifier.LogInfo(fmt.Sprintf("rebuilding %s (%s)", library, pending.Reason))

	res, err := o.runner.Run(o.rebuildCommand(pending.Target))
	if err != nil {
		o.notifier.LogError(fmt.Sprintf("failed to rebuild %s: %v", library, err))
		return
	}
	if res.Outcome != runner.Succeeded {
		// Already reported through the runner's diagnostics.
		return
	}

	session := o.proj.Session(registry.KindProject)
	if session == nil {
		return
	}
	if err := session.Restart(); err != nil {
		o.notifier.LogError(fmt.Sprintf("failed to restart session after rebuilding %s: %v", library, err))
		return
	}
	if session.State() == repl.Available {
		o.annotator.RestartAnalysis(file)
	}
}

// buildAndRecover runs a full project build and brings the session
// back: restarted if it came up in the meantime, started if it is
// still stopped.
func (o *Orchestrator) buildAndRecover(session repl.Session, file string) {
	built, ok := o.builder.BuildProject(o.notifier)
	if !ok || !built {
		return
	}

	var err error
	if session.State() == repl.Available {
		err = session.Restart()
	} else {
		err = session.Start()
	}
	if err != nil {
		o.notifier.LogError(fmt.Sprintf("failed to bring session back after build: %v", err))
		return
	}
	if session.State() == repl.Available {
		o.annotator.RestartAnalysis(file)
	}
}

// invalidateCaches drops the downstream caches made stale by the load.
// Per-file caches go unconditionally; name info and the browse indexes
// only survive a failed load, since a failed load leaves them intact.
func (o *Orchestrator) invalidateCaches(file string, stanza *project.Stanza, known bool, outcome *repl.LoadOutcome, currentContext string) {
	o.caches.InvalidateDefinitionLocations(file)
	o.caches.InvalidateTypeInfo(file)

	if !outcome.Failed {
		o.caches.InvalidateNameInfo(file)
		o.caches.InvalidateBrowseIndex()
		if module := o.meta.ModuleName(file); module != "" {
			o.caches.InvalidateModuleBrowseIndex(module)
		}
	}

	if known && (stanza.Kind == project.KindLibrary || stanza.Kind == project.KindTestSuite) {
		o.caches.WarmTypeInfo(file, currentContext)
	}
}
