package notify

import "sync"

// Entry is one recorded notification.
type Entry struct {
	Level   string // "info", "error", "balloon"
	Message string
}

// Recorder captures notifications in memory. Used in tests and as a
// progress sink for background builds whose output is inspected later.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

var _ Notifier = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) LogInfo(msg string) {
	r.append(Entry{Level: "info", Message: msg})
}

func (r *Recorder) LogError(msg string) {
	r.append(Entry{Level: "error", Message: msg})
}

func (r *Recorder) LogErrorBalloon(msg string) {
	r.append(Entry{Level: "balloon", Message: msg})
}

func (r *Recorder) append(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// ByLevel returns the recorded entries with the given level.
func (r *Recorder) ByLevel(level string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
