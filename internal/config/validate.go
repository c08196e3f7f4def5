package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"replkit/internal/project"
)

const (
	// Project name limits
	MinProjectNameLen = 2
	MaxProjectNameLen = 64
)

var (
	validProjectName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)
	validStanzaKinds = map[project.StanzaKind]struct{}{
		project.KindLibrary: {}, project.KindExecutable: {}, project.KindTestSuite: {},
	}
)

// ValidationError collects multiple validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s",
		strings.Join(e.Errors, "\n  - "))
}

// Add appends a validation error message
func (e *ValidationError) Add(msg string) {
	e.Errors = append(e.Errors, msg)
}

// HasErrors returns true if there are any validation errors
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate checks the config for semantic errors
func (c *Config) Validate() error {
	errs := &ValidationError{}

	// Project name
	if c.Project == "" {
		errs.Add("project name is required")
	} else {
		if !validProjectName.MatchString(c.Project) {
			errs.Add("project name must be alphanumeric with hyphens, starting with a letter")
		}
		if len(c.Project) < MinProjectNameLen {
			errs.Add(fmt.Sprintf("project name must be at least %d characters", MinProjectNameLen))
		}
		if len(c.Project) > MaxProjectNameLen {
			errs.Add(fmt.Sprintf("project name cannot exceed %d characters", MaxProjectNameLen))
		}
	}

	// Build tool
	if c.Build.Tool == "" {
		errs.Add("build.tool is required")
	}
	if c.Build.FullTimeout != "" {
		if d, err := time.ParseDuration(c.Build.FullTimeout); err != nil || d <= 0 {
			errs.Add(fmt.Sprintf("build.full_timeout %q is not a valid duration", c.Build.FullTimeout))
		}
	}

	// Packages and stanzas
	if len(c.Packages) == 0 {
		errs.Add("at least one package is required")
	}
	libraries := make(map[string]bool)
	for _, pkg := range c.Packages {
		for _, st := range pkg.Stanzas {
			if st.Kind == project.KindLibrary {
				libraries[st.Name] = true
			}
		}
	}
	seenStanzas := make(map[string]bool)
	for _, pkg := range c.Packages {
		if pkg.Name == "" {
			errs.Add("package name is required")
			continue
		}
		if len(pkg.Stanzas) == 0 {
			errs.Add(fmt.Sprintf("package %s has no stanzas", pkg.Name))
		}
		for _, st := range pkg.Stanzas {
			if st.Name == "" {
				errs.Add(fmt.Sprintf("package %s has a stanza without a name", pkg.Name))
				continue
			}
			key := pkg.Name + "/" + st.Name
			if seenStanzas[key] {
				errs.Add(fmt.Sprintf("duplicate stanza %s in package %s", st.Name, pkg.Name))
			}
			seenStanzas[key] = true

			if _, ok := validStanzaKinds[st.Kind]; !ok {
				errs.Add(fmt.Sprintf("stanza %s has invalid kind %q (library, executable or test-suite)", st.Name, st.Kind))
			}
			if len(st.SourceDirs) == 0 {
				errs.Add(fmt.Sprintf("stanza %s has no source_dirs", st.Name))
			}
			for _, dep := range st.DependsOn {
				if !libraries[dep] {
					errs.Add(fmt.Sprintf("stanza %s depends on unknown library %q", st.Name, dep))
				}
			}
		}
	}

	// Tool probe
	if c.Tools.Probe != nil {
		if c.Tools.Probe.Command == "" {
			errs.Add("tools.probe.command is required when a probe is configured")
		}
		if c.Tools.Probe.WantPrefix == "" {
			errs.Add("tools.probe.want_prefix is required when a probe is configured")
		}
	}
	for _, aux := range c.Tools.Auxiliary {
		if aux.Command == "" {
			errs.Add("tools.auxiliary entries need a command")
		}
		if aux.Timeout != "" {
			if d, err := time.ParseDuration(aux.Timeout); err != nil || d <= 0 {
				errs.Add(fmt.Sprintf("tools.auxiliary timeout %q is not a valid duration", aux.Timeout))
			}
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// LoadAndValidate reads and validates the config
func LoadAndValidate(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
