// Package remote is a thin typed wrapper over the external task-store
// HTTP/JSON REST API (spec §4.7, §6.4). It is the only component that
// speaks to the remote store; every other package depends on the Client
// type, never on net/http directly.
package remote

// Priority is the task priority band. Claim ordering is strict priority
// (P0 highest) with FIFO within a priority, enforced server-side.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// Reserved queue names. Queues are not a closed enum — the flow
// registration API expands the server's accepted set — but these are
// well-known members every flow can assume exist.
const (
	QueueIncoming          = "incoming"
	QueueClaimed           = "claimed"
	QueueProvisional       = "provisional"
	QueueDone              = "done"
	QueueFailed            = "failed"
	QueueRejected          = "rejected"
	QueueNeedsContinuation = "needs_continuation"
)

// Task is the local typed view of the remote-owned task entity (spec
// §3.4). Extra is tagged json:"-", so decoding a server response never
// fills it: unknown server-side fields are dropped, not kept. UpdateTask
// sends only the fields map it is given, not a whole Task.
type Task struct {
	ID             string         `json:"id"`
	Queue          string         `json:"queue"`
	Role           string         `json:"role"`
	Priority       Priority       `json:"priority"`
	Branch         string         `json:"branch"`
	Flow           string         `json:"flow"`
	ProjectID      string         `json:"project_id,omitempty"`
	BlockedBy      string         `json:"blocked_by,omitempty"` // comma-separated ids
	ClaimedBy      string         `json:"claimed_by,omitempty"`
	ClaimedAt      string         `json:"claimed_at,omitempty"` // RFC3339
	PRUrl          string         `json:"pr_url,omitempty"`
	PRNumber       int            `json:"pr_number,omitempty"`
	CommitsCount   int            `json:"commits_count,omitempty"`
	TurnsUsed      int            `json:"turns_used,omitempty"`
	RejectionCount int            `json:"rejection_count,omitempty"`
	NeedsRebase    bool           `json:"needs_rebase,omitempty"`
	Hooks          []TaskHook     `json:"hooks,omitempty"`
	Extra          map[string]any `json:"-"`
}

// TaskHook is one entry of a task's hooks list (spec §3.4).
type TaskHook struct {
	Name   string `json:"name"`
	Point  string `json:"point"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// BlockerIDs splits BlockedBy into its component ids, ignoring blanks.
func (t *Task) BlockerIDs() []string {
	if t.BlockedBy == "" {
		return nil
	}
	var ids []string
	for _, part := range splitComma(t.BlockedBy) {
		if part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, trimSpace(s[start:i]))
			start = i + 1
		}
	}
	out = append(out, trimSpace(s[start:]))
	return out
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}

// ListFilters narrows a tasks.list call.
type ListFilters struct {
	Queue     string
	Role      string
	ProjectID string
	Flow      string
}

// ClaimRequest is the body of a tasks.claim call.
type ClaimRequest struct {
	OrchestratorID string `json:"orchestrator_id"`
	AgentName      string `json:"agent_name"`
	RoleFilter     string `json:"role_filter,omitempty"`
	TypeFilter     string `json:"type_filter,omitempty"`
}

// SubmitRequest is the body of a tasks.submit call.
type SubmitRequest struct {
	CommitsCount   int    `json:"commits_count"`
	TurnsUsed      int    `json:"turns_used"`
	ExecutionNotes string `json:"execution_notes,omitempty"`
}

// UpdateRequest is the body of a generic tasks.update call. Fields is a
// sparse map of server-accepted field names to new values.
type UpdateRequest struct {
	Fields map[string]any `json:"fields"`
}

// Project mirrors the server's project entity, scoped down to what the
// orchestrator needs to select a child flow and list child tasks.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Flow string `json:"flow,omitempty"`
}

// Message is a thread/inbox entry exposed by the remote store's
// append-only /messages endpoints. Distinct from protocol.Message, which
// is the local dispatcher's own envelope.
type Message struct {
	ID      string `json:"id"`
	TaskID  string `json:"task_id,omitempty"`
	Author  string `json:"author"`
	Content string `json:"content"`
	TS      string `json:"ts"`
}

// Action is an admin/out-of-band action tracked by the remote store
// (spec §6.4's /actions endpoints).
type Action struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// PollResult is the cheap queue-count summary returned by GET /scheduler/poll.
type PollResult struct {
	QueueCounts map[string]int `json:"queue_counts"`
}
