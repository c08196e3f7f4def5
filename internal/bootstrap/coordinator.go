// Package bootstrap runs the project-open sequence: the REPL sessions
// come up synchronously, then the slow preparation work (cache
// preloading, auxiliary tool builds, search-index rebuild) runs on
// background workers with a bounded join.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"replkit/internal/notify"
	"replkit/internal/registry"
	"replkit/internal/runner"
)

const (
	// DefaultJoinTimeout bounds the wait for the background tasks.
	DefaultJoinTimeout = 15 * time.Minute

	// IndexRebuildTimeout is the extended bound for the search-index
	// rebuild.
	IndexRebuildTimeout = 10 * time.Minute
)

// ErrTimeout is returned when the background tasks do not finish within
// the join timeout. Fatal for bootstrap, not for the caller's process.
var ErrTimeout = errors.New("bootstrap tasks did not finish in time")

// Preloader warms identifier caches from the global session.
type Preloader interface {
	PreloadIdentifierCaches()
}

// NopPreloader is a Preloader that does nothing.
type NopPreloader struct{}

func (NopPreloader) PreloadIdentifierCaches() {}

// ToolProbe describes an external tool whose presence and version are
// checked at startup, with a build to run when the probe fails.
type ToolProbe struct {
	VersionCommand runner.Command
	WantPrefix     string // expected prefix of the version output
	BuildCommand   runner.Command
}

// Coordinator runs the bootstrap sequence for one project.
type Coordinator struct {
	proj      *registry.Project
	runner    *runner.Runner
	preloader Preloader
	notifier  notify.Notifier

	toolProbe    *ToolProbe
	auxBuilds    []runner.Command
	indexRebuild *runner.Command
	joinTimeout  time.Duration
}

// New creates a Coordinator. toolProbe and indexRebuild may be nil;
// auxBuilds may be empty.
func New(proj *registry.Project, run *runner.Runner, preloader Preloader, notifier notify.Notifier,
	toolProbe *ToolProbe, auxBuilds []runner.Command, indexRebuild *runner.Command) *Coordinator {
	if preloader == nil {
		preloader = NopPreloader{}
	}
	return &Coordinator{
		proj:         proj,
		runner:       run,
		preloader:    preloader,
		notifier:     notifier,
		toolProbe:    toolProbe,
		auxBuilds:    auxBuilds,
		indexRebuild: indexRebuild,
		joinTimeout:  DefaultJoinTimeout,
	}
}

// Run executes the bootstrap sequence. The sessions start synchronously
// because nothing else is meaningful until they exist; the remaining
// work runs concurrently and is joined with a bounded wait.
func (c *Coordinator) Run(ctx context.Context) error {
	projSession := c.proj.Session(registry.KindProject)
	if projSession == nil {
		return fmt.Errorf("project %s has no project session registered", c.proj.Name())
	}
	if err := projSession.Start(); err != nil {
		return fmt.Errorf("failed to start project session: %w", err)
	}

	globalSession := c.proj.Session(registry.KindGlobalInfo)
	if globalSession != nil {
		if err := globalSession.Start(); err != nil {
			return fmt.Errorf("failed to start global session: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.preloadTask(gctx)
	})
	g.Go(func() error {
		return c.toolProbeTask(gctx)
	})
	g.Go(func() error {
		return c.buildTask(gctx)
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.joinTimeout):
		return ErrTimeout
	}
}

// preloadTask warms the identifier caches, then restarts the global
// session to release the memory the warm-up made it accumulate.
func (c *Coordinator) preloadTask(ctx context.Context) error {
	c.preloader.PreloadIdentifierCaches()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if globalSession := c.proj.Session(registry.KindGlobalInfo); globalSession != nil {
		if err := globalSession.Restart(); err != nil {
			c.notifier.LogError(fmt.Sprintf("failed to restart global session after preload: %v", err))
		}
	}
	return nil
}

// toolProbeTask checks the external tool's version and builds it when
// the probe fails or reports an unexpected version.
func (c *Coordinator) toolProbeTask(ctx context.Context) error {
	if c.toolProbe == nil {
		return nil
	}

	res, err := c.runner.Run(c.toolProbe.VersionCommand)
	upToDate := err == nil &&
		res.Outcome == runner.Succeeded &&
		len(res.Stdout) > 0 &&
		strings.HasPrefix(res.Stdout[0], c.toolProbe.WantPrefix)
	if upToDate {
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	buildRes, err := c.runner.Run(c.toolProbe.BuildCommand)
	if err != nil {
		c.notifier.LogError(fmt.Sprintf("failed to build tool: %v", err))
		return nil
	}
	if buildRes.Outcome == runner.TimedOut {
		return fmt.Errorf("tool build %s: %w", c.toolProbe.BuildCommand.CommandLine(), ErrTimeout)
	}
	return nil
}

// buildTask builds the auxiliary tools, then rebuilds the search index
// with its extended timeout.
func (c *Coordinator) buildTask(ctx context.Context) error {
	for _, cmd := range c.auxBuilds {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res, err := c.runner.Run(cmd)
		if err != nil {
			c.notifier.LogError(fmt.Sprintf("failed to build auxiliary tool: %v", err))
			continue
		}
		if res.Outcome == runner.TimedOut {
			return fmt.Errorf("auxiliary build %s: %w", cmd.CommandLine(), ErrTimeout)
		}
	}

	if c.indexRebuild == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	cmd := *c.indexRebuild
	if cmd.Timeout == 0 {
		cmd.Timeout = IndexRebuildTimeout
	}
	res, err := c.runner.Run(cmd)
	if err != nil {
		c.notifier.LogError(fmt.Sprintf("failed to rebuild search index: %v", err))
		return nil
	}
	if res.Outcome == runner.TimedOut {
		return fmt.Errorf("search index rebuild: %w", ErrTimeout)
	}
	return nil
}
