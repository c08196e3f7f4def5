package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"replkit/internal/config"
	"replkit/internal/loader"
	"replkit/internal/notify"
	"replkit/internal/pool"
	"replkit/internal/project"
	"replkit/internal/registry"
	"replkit/internal/repl"
	"replkit/internal/runner"
)

const workerPoolSize = 4

// env bundles the wired-up components every command needs.
type env struct {
	root     string
	cfg      *config.Config
	notifier notify.Notifier
	runner   *runner.Runner
	resolver *project.Resolver
	proj     *registry.Project
	workers  *pool.Pool
	orch     *loader.Orchestrator
}

// newEnv loads the config from the enclosing project and wires the
// sessions, tracker and orchestrator.
func newEnv() (*env, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	root, err := config.FindProjectRoot(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadAndValidate(root)
	if err != nil {
		return nil, err
	}

	e := &env{
		root:     root,
		cfg:      cfg,
		notifier: notify.NewSlogNotifier(slog.Default()),
		resolver: project.NewResolver(root, cfg.Packages),
		proj:     registry.New().Project(cfg.Project),
		workers:  pool.New(workerPoolSize),
	}
	e.runner = runner.New(e.notifier)

	e.proj.SetSession(registry.KindProject, repl.NewManagedSession(
		"project", root, cfg.Repl.Command, cfg.Repl.Args, e.loadViaTypecheck, e.notifier))
	e.proj.SetSession(registry.KindGlobalInfo, repl.NewManagedSession(
		"global-info", root, cfg.Repl.Command, cfg.Repl.GlobalArgs, e.loadViaTypecheck, e.notifier))

	e.orch = loader.New(
		e.proj,
		e.resolver,
		e.runner,
		cliEditor{},
		loader.NopAnnotator{},
		e,
		loader.NopCaches{},
		e.workers,
		e.notifier,
		func(target string) runner.Command {
			return cfg.RebuildCommand(root, target)
		},
	)
	return e, nil
}

// loadViaTypecheck stands in for the REPL wire exchange: it type-checks
// the file's stanza through the build tool and maps the result onto a
// load outcome.
func (e *env) loadViaTypecheck(file string) *repl.LoadOutcome {
	pkg, stanza, ok := e.resolver.StanzaFor(file)
	if !ok {
		return nil
	}

	cmd := e.cfg.RebuildCommand(e.root, stanza.BuildTarget(pkg.Name))
	res, err := e.runner.Run(cmd)
	if err != nil {
		e.notifier.LogError(fmt.Sprintf("failed to type-check %s: %v", file, err))
		return nil
	}

	return &repl.LoadOutcome{
		Stderr: res.Stderr,
		Failed: res.Outcome != runner.Succeeded,
	}
}

// BuildProject runs the full project build, satisfying the
// orchestrator's builder port.
func (e *env) BuildProject(progress notify.Notifier) (bool, bool) {
	res, err := e.runner.Run(e.cfg.BuildAllCommand(e.root))
	if err != nil {
		progress.LogError(fmt.Sprintf("project build could not run: %v", err))
		return false, false
	}
	return res.Outcome == runner.Succeeded, true
}

func (e *env) shutdown() {
	e.workers.Wait()
	for _, s := range e.proj.Sessions() {
		_ = s.Stop()
	}
}

// cliEditor treats whichever file the user named as the front-facing
// one; there is no editor to ask on the command line.
type cliEditor struct{}

func (cliEditor) SelectedEditorContains(string) bool { return true }
