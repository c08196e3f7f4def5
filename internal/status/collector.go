package status

import (
	"os/exec"
	"sort"
	"sync"
	"time"

	"replkit/internal/config"
	"replkit/internal/registry"
)

// Collector gathers status information from the project's sessions,
// rebuild tracker and configured tools
type Collector struct {
	cfg  *config.Config
	proj *registry.Project
}

// NewCollector creates a status collector
func NewCollector(cfg *config.Config, proj *registry.Project) *Collector {
	return &Collector{cfg: cfg, proj: proj}
}

// Collect gathers all status information in parallel
func (c *Collector) Collect() *Status {
	status := &Status{
		Project:   c.cfg.Project,
		Timestamp: time.Now(),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		sessions := c.collectSessions()
		mu.Lock()
		status.Sessions = sessions
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		rebuilds := c.collectRebuilds()
		mu.Lock()
		status.Rebuilds = rebuilds
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		tools := c.collectTools()
		mu.Lock()
		status.Tools = tools
		mu.Unlock()
	}()

	wg.Wait()

	return status
}

// collectSessions reports the state of every registered session
func (c *Collector) collectSessions() []SessionStatus {
	var result []SessionStatus
	for _, kind := range []registry.SessionKind{registry.KindProject, registry.KindGlobalInfo} {
		session := c.proj.Session(kind)
		if session == nil {
			continue
		}
		result = append(result, SessionStatus{
			Kind:  string(kind),
			State: session.State().String(),
		})
	}
	return result
}

// collectRebuilds lists libraries awaiting a rebuild
func (c *Collector) collectRebuilds() RebuildSummary {
	pending := c.proj.Tracker().Libraries()
	sort.Strings(pending)
	return RebuildSummary{Pending: pending}
}

// collectTools checks which configured tools are on PATH
func (c *Collector) collectTools() ToolStatus {
	tools := ToolStatus{BuildTool: c.cfg.Build.Tool}

	if _, err := exec.LookPath(c.cfg.Build.Tool); err == nil {
		tools.Available = true
	}

	for _, aux := range c.cfg.Tools.Auxiliary {
		_, err := exec.LookPath(aux.Command)
		tools.Auxiliary = append(tools.Auxiliary, AuxToolEntry{
			Command:   aux.Command,
			Available: err == nil,
		})
	}
	return tools
}
