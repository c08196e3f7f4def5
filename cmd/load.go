package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"replkit/internal/registry"
)

var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load a source file into the project REPL session",
	Long: `Load a source file into the project REPL session.

Any pending rebuild of a library the file depends on runs first; a
stopped session is recovered with a full project build. Compiler
diagnostics are printed to stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.shutdown()

	file := args[0]
	if _, _, ok := e.resolver.StanzaFor(file); !ok {
		return fmt.Errorf("%s does not belong to any declared stanza", file)
	}

	if s := e.proj.Session(registry.KindProject); s != nil {
		if err := s.Start(); err != nil {
			return err
		}
	}

	result := e.orch.Load(file, "")
	if result == nil {
		return fmt.Errorf("no session could load %s", file)
	}

	for _, line := range result.Stderr {
		fmt.Fprintln(cmd.ErrOrStderr(), line)
	}
	if result.Failed {
		return fmt.Errorf("load of %s failed", file)
	}

	fmt.Printf("Loaded %s\n", file)
	return nil
}
