package protocol

import "time"

// AgentState represents the current state of a spawned agent-pool instance,
// as reported by the local control plane.
type AgentState string

const (
	StateRunning AgentState = "running" // subprocess alive, result not yet observed
	StateExited  AgentState = "exited"  // subprocess exited, awaiting result handling
)

// AgentInfo is a status snapshot record for one agent-pool instance. The
// daemon's control methods do not return it; their status reply is built
// from the scheduler pool's own instance records.
type AgentInfo struct {
	ID        AgentID    `json:"id"`
	TaskID    string     `json:"task_id"`
	Role      string     `json:"role"`
	State     AgentState `json:"state"`
	PID       int        `json:"pid"`
	StartedAt int64      `json:"started_at"` // Unix milliseconds
	Retries   int        `json:"retries"`
	Worktree  string     `json:"worktree,omitempty"`
}

// IsStale reports whether the instance has been running longer than max.
func (a *AgentInfo) IsStale(max time.Duration) bool {
	return time.Since(time.UnixMilli(a.StartedAt)) > max
}
