// Package registry holds the per-project handles shared between the
// load orchestrator and the bootstrap coordinator: one REPL session per
// {project, kind} and one rebuild tracker per project. Handles are
// explicit; there are no ambient singletons.
package registry

import (
	"sync"

	"replkit/internal/rebuild"
	"replkit/internal/repl"
)

// SessionKind distinguishes the sessions a project owns.
type SessionKind string

const (
	// KindProject is the foreground session that loads project files.
	KindProject SessionKind = "project"

	// KindGlobalInfo is the auxiliary session used for global identifier
	// and documentation queries.
	KindGlobalInfo SessionKind = "global-info"
)

// Project bundles one project's sessions and rebuild tracker.
type Project struct {
	name string

	mu       sync.Mutex
	sessions map[SessionKind]repl.Session
	tracker  *rebuild.Tracker
}

// NewProject creates an empty project handle.
func NewProject(name string) *Project {
	return &Project{
		name:     name,
		sessions: make(map[SessionKind]repl.Session),
		tracker:  rebuild.NewTracker(),
	}
}

func (p *Project) Name() string {
	return p.name
}

// SetSession registers the session for a kind, replacing any previous one.
func (p *Project) SetSession(kind SessionKind, s repl.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[kind] = s
}

// Session returns the session for a kind, or nil if none is registered.
func (p *Project) Session(kind SessionKind) repl.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[kind]
}

// Sessions returns all registered sessions.
func (p *Project) Sessions() []repl.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]repl.Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		out = append(out, s)
	}
	return out
}

func (p *Project) Tracker() *rebuild.Tracker {
	return p.tracker
}

// Registry maps project names to their handles.
type Registry struct {
	mu       sync.Mutex
	projects map[string]*Project
}

func New() *Registry {
	return &Registry{projects: make(map[string]*Project)}
}

// Project returns the handle for the named project, creating it on
// first use.
func (r *Registry) Project(name string) *Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[name]
	if !ok {
		p = NewProject(name)
		r.projects[name] = p
	}
	return p
}

// Remove drops the handle for a closed project, stopping its sessions.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	p, ok := r.projects[name]
	delete(r.projects, name)
	r.mu.Unlock()

	if ok {
		for _, s := range p.Sessions() {
			_ = s.Stop()
		}
	}
}
