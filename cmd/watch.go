package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"replkit/internal/rebuild"
	"replkit/internal/registry"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch source directories and reload changed files",
	Long: `Watch the declared source directories and reload changed files.

Library changes record a pending rebuild which the next dependent load
claims and dispatches. Runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.shutdown()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if s := e.proj.Session(registry.KindProject); s != nil {
		if err := s.Start(); err != nil {
			return err
		}
	}

	watcher, err := rebuild.NewWatcher(e.root, e.resolver, e.proj.Tracker(), e.notifier)
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", e.root)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopping watcher")
			return nil
		case file := <-watcher.Events():
			if result := e.orch.Load(file, ""); result != nil && result.Failed {
				for _, line := range result.Stderr {
					fmt.Fprintln(cmd.ErrOrStderr(), line)
				}
			}
		}
	}
}
