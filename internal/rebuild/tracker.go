// Package rebuild tracks pending library rebuilds. A file watcher
// records an entry when a library's source changes; the load
// orchestrator claims it when dispatching the rebuild. Claim is the
// single point of mutual exclusion between racing loads: exactly one
// claimant wins a given entry.
package rebuild

import "sync"

// Pending is the metadata for one library awaiting a rebuild.
type Pending struct {
	Target string // build-tool target string
	Reason string // what changed, for diagnostics
}

// Tracker maps library names to pending rebuilds. At most one entry per
// library: a newer change overwrites. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]Pending
}

func NewTracker() *Tracker {
	return &Tracker{pending: make(map[string]Pending)}
}

// Record notes that the library needs a rebuild, replacing any entry
// already pending for it.
func (t *Tracker) Record(library string, p Pending) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[library] = p
}

// Claim atomically removes and returns the pending entry for the
// library. At most one caller observes a given entry; a caller that
// loses the race gets ok=false, which is benign.
func (t *Tracker) Claim(library string) (Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[library]
	if ok {
		delete(t.pending, library)
	}
	return p, ok
}

// Libraries returns the names with a rebuild currently pending.
func (t *Tracker) Libraries() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.pending))
	for name := range t.pending {
		names = append(names, name)
	}
	return names
}
