// Package planning drafts escalation and micro-task breakdown content for
// tasks that have failed repeatedly, scoped to the deterministic
// template-expansion path of original_source/orchestrator/planning.py
// (its LLM-authoring path has no analog in this module: no example repo
// in the pack wires an LLM-completion client, and the agent subprocess is
// the only external-AI surface this module talks to). Task persistence
// stays with the caller — this package only builds taskfile.TaskFile
// values for the caller to hand to internal/remote.
package planning

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/octopoid/octopoid/internal/taskfile"
)

// DraftEscalationTask builds the task file that asks an agent to analyze
// a repeatedly-failed task and produce a plan document breaking it into
// micro-tasks. Grounded on planning.py's create_planning_task template.
func DraftEscalationTask(originalTaskID string, original *taskfile.TaskFile, planPath string) *taskfile.TaskFile {
	context := fmt.Sprintf(`The following task has failed multiple implementation attempts and needs to be broken down into smaller, more achievable steps.

### Original Task

%s`, original.Context)

	return &taskfile.TaskFile{
		Title:        fmt.Sprintf("Create implementation plan for: %s", original.Title),
		Role:         "implementer",
		Priority:     "P1",
		Branch:       original.Branch,
		OriginalTask: originalTaskID,
		Context:      context,
		AcceptanceCriteria: []taskfile.Criterion{
			{Text: "Analyze why the original task may have failed"},
			{Text: fmt.Sprintf("Create a plan document at `%s`", planPath)},
			{Text: "Break the task into 2-5 micro-tasks with clear acceptance criteria"},
			{Text: "Each micro-task should be achievable in a single implementation session"},
			{Text: "Specify dependencies between micro-tasks if any exist"},
		},
	}
}

// MicroTask is one "### N. Title" section parsed out of a plan document.
type MicroTask struct {
	Number             int
	Title              string
	Description        string
	AcceptanceCriteria []string
	Dependencies       []int // other micro-tasks' Number this one depends on
}

var (
	taskHeaderPattern = regexp.MustCompile(`^###\s*(\d+)\.\s*(.+)$`)
	planHeaderPattern = regexp.MustCompile(`^##\s+\S`)
	labelPattern      = regexp.MustCompile(`^\*\*([^*]+):\*\*\s*(.*)$`)
	checkboxPattern   = regexp.MustCompile(`^[-*]\s*\[[ xX]\]\s*(.+)$`)
	depNumberPattern  = regexp.MustCompile(`(?:Task\s*)?(\d+)`)
)

// ParsePlanDocument extracts micro-tasks from a plan document's Markdown
// body. Grounded on planning.py's parse_plan_document, re-expressed
// without Python's lookahead regex (Go's RE2 has none) as a line-scanned
// section split plus a per-section labeled-block scan, matching the
// bufio.Scanner idiom internal/taskfile already uses for this format.
func ParsePlanDocument(content string) []MicroTask {
	var tasks []MicroTask
	for _, sec := range splitMicroTaskSections(content) {
		tasks = append(tasks, parseMicroTaskSection(sec))
	}
	return tasks
}

type rawSection struct {
	number int
	title  string
	body   []string
}

func splitMicroTaskSections(content string) []rawSection {
	var sections []rawSection
	var current *rawSection

	flush := func() {
		if current != nil {
			sections = append(sections, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if m := taskHeaderPattern.FindStringSubmatch(line); m != nil {
			flush()
			num, _ := strconv.Atoi(m[1])
			current = &rawSection{number: num, title: strings.TrimSpace(m[2])}
			continue
		}
		if planHeaderPattern.MatchString(line) {
			flush()
			continue
		}
		if current != nil {
			current.body = append(current.body, line)
		}
	}
	flush()
	return sections
}

func parseMicroTaskSection(sec rawSection) MicroTask {
	mt := MicroTask{Number: sec.number, Title: sec.title}

	var label string
	var buf []string
	flushLabel := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		switch strings.ToLower(label) {
		case "description":
			mt.Description = text
		case "acceptance criteria":
			mt.AcceptanceCriteria = extractCheckboxes(buf)
		case "dependencies":
			mt.Dependencies = parseDependencies(text)
		}
		buf = nil
	}

	for _, line := range sec.body {
		trimmed := strings.TrimSpace(line)
		if m := labelPattern.FindStringSubmatch(trimmed); m != nil {
			if label != "" {
				flushLabel()
			}
			label = m[1]
			if m[2] != "" {
				buf = append(buf, m[2])
			}
			continue
		}
		if label != "" {
			buf = append(buf, line)
		}
	}
	if label != "" {
		flushLabel()
	}
	return mt
}

func extractCheckboxes(lines []string) []string {
	var out []string
	for _, line := range lines {
		m := checkboxPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m != nil {
			out = append(out, strings.TrimSpace(m[1]))
		}
	}
	return out
}

func parseDependencies(text string) []int {
	norm := strings.ToLower(strings.TrimSpace(text))
	if norm == "" || norm == "none" || norm == "n/a" || norm == "-" {
		return nil
	}
	var deps []int
	for _, m := range depNumberPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			deps = append(deps, n)
		}
	}
	return deps
}

// MicroTasksToFiles converts parsed micro-tasks into draft task files, in
// the same order as the input. Dependencies are returned as indices into
// the result slice rather than resolved task IDs, since task IDs are
// assigned by the remote store on creation — the caller creates each
// file via remote.Client.CreateTask, then uses the returned deps map (a
// micro-task's index -> the indices it depends on) to set BlockedBy with
// the real IDs. This mirrors planning.py's create_micro_tasks two-pass
// create-then-link structure, just without planning.py's direct
// filesystem/DB writes baked in.
func MicroTasksToFiles(microTasks []MicroTask, originalTaskID, branch, createdBy string) ([]*taskfile.TaskFile, map[int][]int) {
	numberToIndex := make(map[int]int, len(microTasks))
	for i, mt := range microTasks {
		numberToIndex[mt.Number] = i
	}

	files := make([]*taskfile.TaskFile, len(microTasks))
	deps := make(map[int][]int)

	for i, mt := range microTasks {
		context := mt.Description
		if context == "" {
			context = fmt.Sprintf("Micro-task from escalated task %s", originalTaskID)
		}
		criteria := mt.AcceptanceCriteria
		if len(criteria) == 0 {
			criteria = []string{"Complete the task"}
		}

		tf := &taskfile.TaskFile{
			Title:        mt.Title,
			Role:         "implementer",
			Priority:     "P1",
			Branch:       branch,
			CreatedBy:    createdBy,
			OriginalTask: originalTaskID,
			Context:      context,
		}
		for _, c := range criteria {
			tf.AcceptanceCriteria = append(tf.AcceptanceCriteria, taskfile.Criterion{Text: c})
		}
		files[i] = tf

		var idxDeps []int
		for _, depNum := range mt.Dependencies {
			if idx, ok := numberToIndex[depNum]; ok {
				idxDeps = append(idxDeps, idx)
			}
		}
		if len(idxDeps) > 0 {
			deps[i] = idxDeps
		}
	}

	return files, deps
}

// TaskDraft is a lightweight preview of a task to create, returned by
// SplitIntoTasks for a human to review before any task is actually
// created via the remote store.
type TaskDraft struct {
	Title   string
	Context string
}

var listItemPattern = regexp.MustCompile(`^(?:\d+[.)]|[-*])\s+(.+)$`)

// SplitIntoTasks drafts child tasks from a free-text project description,
// the entry point for the `octl plan` subcommand. It looks for a
// top-level numbered or bulleted list in the description and drafts one
// task per item; a description with no list structure becomes a single
// draft carrying the whole text. This is the module's template-based
// stand-in for planning.py's LLM-backed breakdown — no example repo in
// the pack wires an LLM-completion client, so splitting is done on
// structure the user already provided rather than invented by inference.
func SplitIntoTasks(description string) []TaskDraft {
	var drafts []TaskDraft
	var currentTitle string
	var currentBody []string

	flush := func() {
		if currentTitle == "" {
			return
		}
		drafts = append(drafts, TaskDraft{
			Title:   currentTitle,
			Context: strings.TrimSpace(strings.Join(currentBody, "\n")),
		})
		currentTitle = ""
		currentBody = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(description))
	for scanner.Scan() {
		line := scanner.Text()
		if m := listItemPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			currentTitle = strings.TrimSpace(m[1])
			continue
		}
		if currentTitle != "" {
			currentBody = append(currentBody, line)
		}
	}
	flush()

	if len(drafts) == 0 {
		trimmed := strings.TrimSpace(description)
		if trimmed == "" {
			return nil
		}
		title := trimmed
		if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
			title = trimmed[:idx]
		}
		return []TaskDraft{{Title: strings.TrimSpace(title), Context: trimmed}}
	}
	return drafts
}
