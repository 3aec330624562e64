package planning

import (
	"testing"

	"github.com/octopoid/octopoid/internal/taskfile"
)

func TestDraftEscalationTask(t *testing.T) {
	original := &taskfile.TaskFile{
		Title:   "Add retry to the poll loop",
		Branch:  "main",
		Context: "Retries should use backoff.",
	}

	tf := DraftEscalationTask("TASK-1", original, ".octopoid/plans/PLAN-1.md")

	if tf.Title != "Create implementation plan for: Add retry to the poll loop" {
		t.Errorf("Title = %q", tf.Title)
	}
	if tf.OriginalTask != "TASK-1" {
		t.Errorf("OriginalTask = %q, want TASK-1", tf.OriginalTask)
	}
	if tf.Branch != "main" {
		t.Errorf("Branch = %q, want main", tf.Branch)
	}
	if len(tf.AcceptanceCriteria) != 5 {
		t.Fatalf("AcceptanceCriteria = %v, want 5 entries", tf.AcceptanceCriteria)
	}
	if tf.Context == "" {
		t.Error("Context should embed the original task's context")
	}
}

func TestParsePlanDocument(t *testing.T) {
	doc := `# Plan: Add retry to the poll loop

## Analysis

The poll loop didn't handle transient errors.

## Micro-Tasks

### 1. Add backoff helper

**Description:** Implement an exponential backoff helper.

**Acceptance Criteria:**
- [ ] Helper computes delay with jitter
- [x] Helper is unit tested

**Dependencies:** None

### 2. Wire backoff into poll loop

**Description:** Use the backoff helper when a poll request fails.

**Acceptance Criteria:**
- [ ] Poll loop retries failed requests

**Dependencies:** Task 1
`

	tasks := ParsePlanDocument(doc)
	if len(tasks) != 2 {
		t.Fatalf("got %d micro-tasks, want 2", len(tasks))
	}

	first := tasks[0]
	if first.Number != 1 || first.Title != "Add backoff helper" {
		t.Errorf("tasks[0] = %+v", first)
	}
	if first.Description != "Implement an exponential backoff helper." {
		t.Errorf("tasks[0].Description = %q", first.Description)
	}
	if len(first.AcceptanceCriteria) != 2 {
		t.Fatalf("tasks[0].AcceptanceCriteria = %v, want 2", first.AcceptanceCriteria)
	}
	if len(first.Dependencies) != 0 {
		t.Errorf("tasks[0].Dependencies = %v, want none", first.Dependencies)
	}

	second := tasks[1]
	if second.Number != 2 {
		t.Errorf("tasks[1].Number = %d, want 2", second.Number)
	}
	if len(second.Dependencies) != 1 || second.Dependencies[0] != 1 {
		t.Errorf("tasks[1].Dependencies = %v, want [1]", second.Dependencies)
	}
}

func TestParsePlanDocumentNoMicroTasks(t *testing.T) {
	tasks := ParsePlanDocument("# Plan: empty\n\n## Analysis\n\nNothing here.\n")
	if len(tasks) != 0 {
		t.Errorf("got %d micro-tasks, want 0", len(tasks))
	}
}

func TestMicroTasksToFiles(t *testing.T) {
	microTasks := []MicroTask{
		{Number: 1, Title: "First", Description: "Do first thing", AcceptanceCriteria: []string{"a"}},
		{Number: 2, Title: "Second", Dependencies: []int{1}},
	}

	files, deps := MicroTasksToFiles(microTasks, "TASK-9", "main", "planner")
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if files[0].Title != "First" || files[0].OriginalTask != "TASK-9" {
		t.Errorf("files[0] = %+v", files[0])
	}
	if files[1].Context == "" {
		t.Error("files[1].Context should fall back to a generated description")
	}
	if len(files[1].AcceptanceCriteria) != 1 || files[1].AcceptanceCriteria[0].Text != "Complete the task" {
		t.Errorf("files[1].AcceptanceCriteria = %v, want default fallback", files[1].AcceptanceCriteria)
	}

	if len(deps) != 1 {
		t.Fatalf("deps = %v, want one entry for index 1", deps)
	}
	if idx, ok := deps[1]; !ok || len(idx) != 1 || idx[0] != 0 {
		t.Errorf("deps[1] = %v, want [0] (index of micro-task #1)", deps[1])
	}
}

func TestMicroTasksToFilesIgnoresUnknownDependencyNumbers(t *testing.T) {
	microTasks := []MicroTask{
		{Number: 5, Title: "Only task", Dependencies: []int{99}},
	}

	_, deps := MicroTasksToFiles(microTasks, "TASK-1", "main", "planner")
	if len(deps) != 0 {
		t.Errorf("deps = %v, want empty when dependency number doesn't resolve", deps)
	}
}

func TestSplitIntoTasksFromNumberedDescription(t *testing.T) {
	description := `1. Add the config loader
Load YAML config at startup.

2. Wire the HTTP client
Use the config's base URL.
`
	drafts := SplitIntoTasks(description)
	if len(drafts) != 2 {
		t.Fatalf("got %d drafts, want 2", len(drafts))
	}
	if drafts[0].Title != "Add the config loader" {
		t.Errorf("drafts[0].Title = %q", drafts[0].Title)
	}
	if drafts[0].Context != "Load YAML config at startup." {
		t.Errorf("drafts[0].Context = %q", drafts[0].Context)
	}
	if drafts[1].Title != "Wire the HTTP client" {
		t.Errorf("drafts[1].Title = %q", drafts[1].Title)
	}
}

func TestSplitIntoTasksFromBulletedDescription(t *testing.T) {
	drafts := SplitIntoTasks("- First item\n- Second item\n")
	if len(drafts) != 2 {
		t.Fatalf("got %d drafts, want 2", len(drafts))
	}
	if drafts[0].Title != "First item" || drafts[1].Title != "Second item" {
		t.Errorf("drafts = %+v", drafts)
	}
}

func TestSplitIntoTasksFallsBackToSingleDraft(t *testing.T) {
	drafts := SplitIntoTasks("Just build the thing.\nIt should be fast.")
	if len(drafts) != 1 {
		t.Fatalf("got %d drafts, want 1", len(drafts))
	}
	if drafts[0].Title != "Just build the thing." {
		t.Errorf("Title = %q", drafts[0].Title)
	}
}

func TestSplitIntoTasksEmptyDescription(t *testing.T) {
	if drafts := SplitIntoTasks("   \n"); len(drafts) != 0 {
		t.Errorf("got %d drafts, want 0 for blank description", len(drafts))
	}
}
