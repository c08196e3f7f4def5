package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"replkit/internal/project"
	"replkit/internal/runner"
)

const (
	// ConfigFileName is the name of the replkit config file
	ConfigFileName = "replkit.yaml"

	defaultFullBuildTimeout = 30 * time.Minute
)

// Config represents the replkit.yaml configuration
type Config struct {
	Project  string            `yaml:"project"`
	Build    BuildConfig       `yaml:"build"`
	Repl     ReplConfig        `yaml:"repl"`
	Packages []project.Package `yaml:"packages"`
	Tools    ToolsConfig       `yaml:"tools,omitempty"`
	Index    *CommandConfig    `yaml:"index,omitempty"`
}

// BuildConfig describes the external build tool
type BuildConfig struct {
	Tool        string   `yaml:"tool"`
	Args        []string `yaml:"args,omitempty"`
	FullTimeout string   `yaml:"full_timeout,omitempty"` // duration string, e.g. "30m"
}

// ReplConfig describes how REPL sessions are launched
type ReplConfig struct {
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args,omitempty"`
	GlobalArgs []string `yaml:"global_args,omitempty"`
}

// ToolsConfig describes the auxiliary tools handled at startup
type ToolsConfig struct {
	Probe     *ProbeConfig    `yaml:"probe,omitempty"`
	Auxiliary []CommandConfig `yaml:"auxiliary,omitempty"`
}

// ProbeConfig describes a version-probed tool and its rebuild
type ProbeConfig struct {
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args,omitempty"`
	WantPrefix string   `yaml:"want_prefix"`
	BuildArgs  []string `yaml:"build_args,omitempty"`
}

// CommandConfig is one configured external command
type CommandConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
	Timeout string   `yaml:"timeout,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig(projectName string) *Config {
	return &Config{
		Project: projectName,
		Build: BuildConfig{
			Tool:        "stack",
			FullTimeout: "30m",
		},
		Repl: ReplConfig{
			Command:    "stack",
			Args:       []string{"repl"},
			GlobalArgs: []string{"repl", "--no-load"},
		},
		Packages: []project.Package{
			{
				Name: projectName,
				Root: ".",
				Stanzas: []project.Stanza{
					{Name: projectName, Kind: project.KindLibrary, SourceDirs: []string{"src"}},
				},
			},
		},
	}
}

// Load reads the config from the specified directory
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// Save writes the config to the specified directory
func Save(dir string, cfg *Config) error {
	configPath := filepath.Join(dir, ConfigFileName)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Exists checks if a config file exists in the directory
func Exists(dir string) bool {
	configPath := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(configPath)
	return err == nil
}

// FindProjectRoot walks up from the starting directory to find replkit.yaml
func FindProjectRoot(startDir string) (string, error) {
	dir := startDir
	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return "", fmt.Errorf("not in a replkit project (no %s found)", ConfigFileName)
		}
		dir = parent
	}
}

// applyDefaults fills in missing values with defaults
func applyDefaults(cfg *Config) {
	if cfg.Build.Tool == "" {
		cfg.Build.Tool = "stack"
	}
	if cfg.Repl.Command == "" {
		cfg.Repl.Command = cfg.Build.Tool
	}
	if len(cfg.Repl.Args) == 0 {
		cfg.Repl.Args = []string{"repl"}
	}
}

// FullBuildTimeout parses the configured full-build timeout
func (c *Config) FullBuildTimeout() time.Duration {
	if c.Build.FullTimeout == "" {
		return defaultFullBuildTimeout
	}
	d, err := time.ParseDuration(c.Build.FullTimeout)
	if err != nil || d <= 0 {
		return defaultFullBuildTimeout
	}
	return d
}

// RebuildCommand renders the command rebuilding one build target.
// Build output is continuous, so it streams to the log.
func (c *Config) RebuildCommand(root, target string) runner.Command {
	args := append([]string{"build"}, c.Build.Args...)
	args = append(args, target)
	return runner.Command{
		Dir:           root,
		Path:          c.Build.Tool,
		Args:          args,
		Timeout:       c.FullBuildTimeout(),
		Capture:       runner.CaptureToLog,
		NotifyOnError: true,
	}
}

// BuildAllCommand renders the full project build
func (c *Config) BuildAllCommand(root string) runner.Command {
	return runner.Command{
		Dir:           root,
		Path:          c.Build.Tool,
		Args:          append([]string{"build"}, c.Build.Args...),
		Timeout:       c.FullBuildTimeout(),
		Capture:       runner.CaptureToLog,
		NotifyOnError: true,
	}
}

// AuxBuildCommands renders the auxiliary tool builds
func (c *Config) AuxBuildCommands(root string) []runner.Command {
	cmds := make([]runner.Command, 0, len(c.Tools.Auxiliary))
	for _, t := range c.Tools.Auxiliary {
		cmds = append(cmds, t.toCommand(root))
	}
	return cmds
}

// IndexRebuildCommand renders the search-index rebuild, if configured
func (c *Config) IndexRebuildCommand(root string) *runner.Command {
	if c.Index == nil {
		return nil
	}
	cmd := c.Index.toCommand(root)
	return &cmd
}

func (cc CommandConfig) toCommand(root string) runner.Command {
	cmd := runner.Command{
		Dir:     root,
		Path:    cc.Command,
		Args:    cc.Args,
		Capture: runner.CaptureToLog,
	}
	if d, err := time.ParseDuration(cc.Timeout); err == nil && d > 0 {
		cmd.Timeout = d
	}
	return cmd
}
