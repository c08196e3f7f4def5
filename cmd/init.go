package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"replkit/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new replkit project",
	Long:  `Initialize a new replkit project in the current directory.`,
	RunE:  runInit,
}

var (
	initName string
	initTool string
)

func init() {
	initCmd.Flags().StringVarP(&initName, "name", "n", "", "Project name (default: directory name)")
	initCmd.Flags().StringVarP(&initTool, "tool", "t", "stack", "Build tool executable")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	// Check if already initialized
	if config.Exists(dir) {
		return fmt.Errorf("replkit project already exists in this directory")
	}

	projectName := initName
	if projectName == "" {
		projectName = filepath.Base(dir)
	}

	cfg := config.DefaultConfig(projectName)
	cfg.Build.Tool = initTool
	cfg.Repl.Command = initTool

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(dir, cfg); err != nil {
		return err
	}

	fmt.Printf("Initialized replkit project: %s\n", projectName)
	fmt.Printf("  Build tool: %s\n", cfg.Build.Tool)
	fmt.Printf("\nCreated:\n")
	fmt.Printf("  %s\n", config.ConfigFileName)
	fmt.Printf("\nDeclare your packages and stanzas in %s before running 'replkit up'.\n", config.ConfigFileName)

	return nil
}
