package repl

// State is the lifecycle state of a REPL session. Exactly one value
// holds at any instant.
//
// Transitions: Stopped→Starting (start), Starting→Available (process
// ready), Available→Busy (load in flight), Busy→Available (load
// returns), Available/Busy→Starting (restart, old process torn down
// first), any→Stopped (stop or crash).
type State int

const (
	Stopped State = iota
	Starting
	Available
	Busy
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Available:
		return "available"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// IsFileLoaded reports whether a file has been loaded into a session.
// Informational only; callers must not treat it as authoritative for
// deciding whether to load.
type IsFileLoaded int

const (
	NotLoaded IsFileLoaded = iota
	Loaded
	FailedToLoad
)

func (l IsFileLoaded) String() string {
	switch l {
	case Loaded:
		return "loaded"
	case FailedToLoad:
		return "failed"
	default:
		return "not loaded"
	}
}
