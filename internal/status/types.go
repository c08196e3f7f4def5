package status

import "time"

// Status aggregates the current state of a replkit project
type Status struct {
	Project   string          `json:"project"`
	Sessions  []SessionStatus `json:"sessions"`
	Rebuilds  RebuildSummary  `json:"rebuilds"`
	Tools     ToolStatus      `json:"tools"`
	Timestamp time.Time       `json:"timestamp"`
}

// SessionStatus represents the state of one REPL session
type SessionStatus struct {
	Kind  string `json:"kind"`
	State string `json:"state"`
}

// RebuildSummary lists the libraries with a rebuild pending
type RebuildSummary struct {
	Pending []string `json:"pending,omitempty"`
}

// Count returns the number of pending rebuilds
func (r RebuildSummary) Count() int {
	return len(r.Pending)
}

// ToolStatus reports which configured external tools are on PATH
type ToolStatus struct {
	BuildTool string         `json:"build_tool"`
	Available bool           `json:"available"`
	Auxiliary []AuxToolEntry `json:"auxiliary,omitempty"`
}

// AuxToolEntry is one auxiliary tool's availability
type AuxToolEntry struct {
	Command   string `json:"command"`
	Available bool   `json:"available"`
}
