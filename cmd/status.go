package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"replkit/internal/status"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session, rebuild and tool status",
	Long: `Show the state of the REPL sessions, pending library rebuilds and
configured external tools.

Output formats:
  (default)  Tabular dashboard
  --json     Machine-readable JSON output`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}

	st := status.NewCollector(e.cfg, e.proj).Collect()

	if statusJSON {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Project: %s\n\n", st.Project)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTATE")
	for _, s := range st.Sessions {
		fmt.Fprintf(w, "%s\t%s\n", s.Kind, s.State)
	}
	w.Flush()

	if st.Rebuilds.Count() > 0 {
		fmt.Printf("\nPending rebuilds:\n")
		for _, lib := range st.Rebuilds.Pending {
			fmt.Printf("  %s\n", lib)
		}
	} else {
		fmt.Printf("\nNo pending rebuilds\n")
	}

	fmt.Printf("\nTools:\n")
	fmt.Printf("  %s: %s\n", st.Tools.BuildTool, availability(st.Tools.Available))
	for _, aux := range st.Tools.Auxiliary {
		fmt.Printf("  %s: %s\n", aux.Command, availability(aux.Available))
	}

	return nil
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "missing"
}
