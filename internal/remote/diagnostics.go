package remote

// Diagnostics is a read-only health snapshot over a set of tasks: how
// many sit in each queue, and which tasks list a blocker id that doesn't
// exist among the given tasks. Scoped down from
// original_source/tests/test_queue_diagnostics.py's file/DB-mismatch and
// zombie-claim detectors (which assume a dual file+sqlite store this
// module doesn't have — the remote store is the sole authority here) to
// the one check that still applies: dangling blocked_by references.
type Diagnostics struct {
	QueueCounts    map[string]int  `json:"queue_counts"`
	DanglingBlocks []DanglingBlock `json:"dangling_blocks,omitempty"`
}

// DanglingBlock records a task whose BlockedBy names an id absent from
// the diagnosed task set.
type DanglingBlock struct {
	TaskID    string `json:"task_id"`
	MissingID string `json:"missing_id"`
}

// DiagnoseQueue computes per-queue counts and flags dangling blocker
// references across tasks. Read-only: it never calls the remote store
// itself, so it can be run over any task list a caller already fetched
// (e.g. via ListTasks), exercised by `octl status`.
func DiagnoseQueue(tasks []Task) Diagnostics {
	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}

	d := Diagnostics{QueueCounts: map[string]int{}}
	for _, t := range tasks {
		d.QueueCounts[t.Queue]++

		for _, blocker := range t.BlockerIDs() {
			if !known[blocker] {
				d.DanglingBlocks = append(d.DanglingBlocks, DanglingBlock{
					TaskID:    t.ID,
					MissingID: blocker,
				})
			}
		}
	}
	return d
}
