// Package resulthandler implements the result-reading and flow-transition
// dispatch that runs after an agent process exits (spec §4.4). Ported
// faithfully in semantics from
// original_source/orchestrator/result_handler.py: read_result_json /
// _read_or_infer_result, _perform_transition's to_state-keyed dispatch,
// and the outcome classification in handle_agent_result /
// handle_agent_result_via_flow.
package resulthandler

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Outcome is the implementer-path classification of a finished run.
type Outcome string

const (
	OutcomeDone              Outcome = "done"
	OutcomeSubmitted         Outcome = "submitted"
	OutcomeFailed            Outcome = "failed"
	OutcomeError             Outcome = "error"
	OutcomeNeedsContinuation Outcome = "needs_continuation"
)

// AgentResult is the union of the two result.json shapes an agent
// process can produce: the implementer shape (Outcome/Reason) and the
// gatekeeper/review shape (Status/Decision/Message). Steps consult
// whichever fields their role populated.
type AgentResult struct {
	// Implementer shape.
	Outcome Outcome `json:"outcome,omitempty"`
	Reason  string  `json:"reason,omitempty"`

	// Gatekeeper/review shape.
	Status   string `json:"status,omitempty"`
	Decision string `json:"decision,omitempty"`
	Message  string `json:"message,omitempty"`

	// Shared fields consulted by steps.
	Comment   string `json:"comment,omitempty"`
	Summary   string `json:"summary,omitempty"`
	TurnsUsed int    `json:"turns_used,omitempty"`
}

const (
	resultFileName = "result.json"
	notesFileName  = "notes.md"
)

// ReadResultJSON parses result.json from a task directory, returning a
// failure-shaped result rather than an error when the file is missing or
// malformed — the gatekeeper path always gets a result to act on.
func ReadResultJSON(taskDir string) AgentResult {
	data, err := os.ReadFile(filepath.Join(taskDir, resultFileName))
	if err != nil {
		return AgentResult{Status: "failure", Message: "No result.json produced"}
	}
	var r AgentResult
	if err := json.Unmarshal(data, &r); err != nil {
		return AgentResult{Status: "failure", Message: "Invalid result.json"}
	}
	return r
}

// ReadOrInfer is the implementer path: it reads result.json, and when
// that is absent falls back to treating a non-empty notes.md as a
// continuation signal, finally defaulting to an error outcome.
func ReadOrInfer(taskDir string) AgentResult {
	data, err := os.ReadFile(filepath.Join(taskDir, resultFileName))
	if err == nil {
		var r AgentResult
		if jsonErr := json.Unmarshal(data, &r); jsonErr != nil {
			return AgentResult{Outcome: OutcomeError, Reason: "Invalid result.json"}
		}
		return r
	}

	notes, notesErr := os.ReadFile(filepath.Join(taskDir, notesFileName))
	if notesErr == nil && strings.TrimSpace(string(notes)) != "" {
		return AgentResult{Outcome: OutcomeNeedsContinuation}
	}

	return AgentResult{Outcome: OutcomeError, Reason: "No result.json produced"}
}
