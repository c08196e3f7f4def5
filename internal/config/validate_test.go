package config

import (
	"strings"
	"testing"

	"replkit/internal/project"
)

// Helper that builds a minimal valid config
func validConfig() *Config {
	cfg := DefaultConfig("myproject")
	applyDefaults(cfg)
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config failed validation: %v", err)
	}
}

func TestValidate_ProjectName(t *testing.T) {
	tests := []struct {
		name    string
		project string
		wantErr string
	}{
		{"empty", "", "project name is required"},
		{"too short", "a", "at least"},
		{"starts with digit", "1proj", "starting with a letter"},
		{"underscore", "my_proj", "starting with a letter"},
		{"too long", "a" + strings.Repeat("b", 64), "cannot exceed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Project = tt.project
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_BuildTool(t *testing.T) {
	cfg := validConfig()
	cfg.Build.Tool = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "build.tool") {
		t.Errorf("missing build tool not rejected: %v", err)
	}

	cfg = validConfig()
	cfg.Build.FullTimeout = "soon"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "full_timeout") {
		t.Errorf("bad timeout not rejected: %v", err)
	}
}

func TestValidate_Stanzas(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			"no packages",
			func(c *Config) { c.Packages = nil },
			"at least one package",
		},
		{
			"package without stanzas",
			func(c *Config) { c.Packages[0].Stanzas = nil },
			"no stanzas",
		},
		{
			"invalid kind",
			func(c *Config) { c.Packages[0].Stanzas[0].Kind = "benchmark" },
			"invalid kind",
		},
		{
			"no source dirs",
			func(c *Config) { c.Packages[0].Stanzas[0].SourceDirs = nil },
			"no source_dirs",
		},
		{
			"unknown dependency",
			func(c *Config) {
				c.Packages[0].Stanzas = append(c.Packages[0].Stanzas, project.Stanza{
					Name:       "cli",
					Kind:       project.KindExecutable,
					SourceDirs: []string{"app"},
					DependsOn:  []string{"missing-lib"},
				})
			},
			"unknown library",
		},
		{
			"duplicate stanza",
			func(c *Config) {
				c.Packages[0].Stanzas = append(c.Packages[0].Stanzas, c.Packages[0].Stanzas[0])
			},
			"duplicate stanza",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CrossPackageDependency(t *testing.T) {
	cfg := validConfig()
	cfg.Packages = append(cfg.Packages, project.Package{
		Name: "app",
		Root: "app",
		Stanzas: []project.Stanza{
			{
				Name:       "app-exe",
				Kind:       project.KindExecutable,
				SourceDirs: []string{"exe"},
				DependsOn:  []string{"myproject"}, // library from the other package
			},
		},
	})
	if err := cfg.Validate(); err != nil {
		t.Errorf("cross-package library dependency rejected: %v", err)
	}
}

func TestValidate_ToolProbe(t *testing.T) {
	cfg := validConfig()
	cfg.Tools.Probe = &ProbeConfig{Command: "hoogle"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "want_prefix") {
		t.Errorf("probe without want_prefix not rejected: %v", err)
	}

	cfg = validConfig()
	cfg.Tools.Auxiliary = []CommandConfig{{Command: "hlint", Timeout: "never"}}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "not a valid duration") {
		t.Errorf("bad auxiliary timeout not rejected: %v", err)
	}
}
