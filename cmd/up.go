package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"replkit/internal/bootstrap"
	"replkit/internal/registry"
	"replkit/internal/repl"
	"replkit/internal/runner"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the REPL sessions and run the project bootstrap",
	Long: `Start the REPL sessions and run the project bootstrap.

This command:
1. Starts the project REPL session and the global session
2. Probes the configured external tool and rebuilds it if needed
3. Builds the auxiliary tools
4. Rebuilds the search index

The session starts are synchronous; the rest runs in the background and
is joined before the command returns.`,
	RunE: runUp,
}

func init() {
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.shutdown()

	fmt.Printf("Starting replkit for project: %s\n", e.cfg.Project)

	var probe *bootstrap.ToolProbe
	if p := e.cfg.Tools.Probe; p != nil {
		probe = &bootstrap.ToolProbe{
			VersionCommand: runner.Command{Dir: e.root, Path: p.Command, Args: p.Args},
			WantPrefix:     p.WantPrefix,
			BuildCommand: runner.Command{
				Dir:     e.root,
				Path:    e.cfg.Build.Tool,
				Args:    append([]string{"build"}, p.BuildArgs...),
				Timeout: e.cfg.FullBuildTimeout(),
				Capture: runner.CaptureToLog,
			},
		}
	}

	coordinator := bootstrap.New(
		e.proj,
		e.runner,
		nil,
		e.notifier,
		probe,
		e.cfg.AuxBuildCommands(e.root),
		e.cfg.IndexRebuildCommand(e.root),
	)

	if err := coordinator.Run(ctx); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	for _, kind := range []registry.SessionKind{registry.KindProject, registry.KindGlobalInfo} {
		if s := e.proj.Session(kind); s != nil && s.State() == repl.Available {
			fmt.Printf("  %s session: available\n", kind)
		}
	}
	fmt.Println("Bootstrap complete.")

	return nil
}
