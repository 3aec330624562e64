package resulthandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/octopoid/octopoid/internal/flow"
	"github.com/octopoid/octopoid/internal/remote"
	"github.com/octopoid/octopoid/internal/stepcount"
)

// StepRunner executes a named list of flow steps against a task. Defined
// here rather than imported from internal/steps to avoid a dependency
// cycle: internal/steps imports AgentResult from this package.
type StepRunner interface {
	Execute(ctx context.Context, names []string, task *remote.Task, result AgentResult, taskDir string) error
}

// Handler owns the post-run dispatch for both implementer and gatekeeper
// agents: read the result, classify it, run the transition's steps, and
// perform (or retry, or give up on) the state change.
type Handler struct {
	Client    *remote.Client
	Steps     StepRunner
	FlowsDir  string
	Threshold int
	Log       *slog.Logger
}

// keepPID is returned by the handling functions to tell the scheduler
// whether the process-tracking record may be discarded. true means the
// task reached a terminal decision (transitioned, discarded as stale, or
// gone); false means the caller should retry next tick.
type keepPID = bool

const (
	removePID keepPID = true
	retainPID keepPID = false
)

func (h *Handler) logf(format string, args ...any) {
	if h.Log != nil {
		h.Log.Debug(fmt.Sprintf(format, args...))
	}
}

// HandleAgentResult is the implementer path (spec §4.4): read or infer
// the outcome, then dispatch on it. A step failure increments the
// per-task circuit breaker; after Threshold consecutive failures the
// task is force-moved to failed and the breaker resets.
func (h *Handler) HandleAgentResult(ctx context.Context, taskID, taskDir string) (bool, error) {
	result := ReadOrInfer(taskDir)
	h.logf("task %s result: outcome=%s", taskID, result.Outcome)

	task, err := h.Client.GetTask(ctx, taskID)
	if err != nil {
		if err == remote.ErrNotFound {
			h.logf("task %s: not found on server, skipping result handling", taskID)
			return removePID, nil
		}
		return retainPID, err
	}

	done, handleErr := h.dispatchOutcome(ctx, task, result, taskDir)
	if handleErr == nil {
		stepcount.Reset(taskDir)
		return done, nil
	}

	count, countErr := stepcount.Increment(taskDir)
	if countErr != nil {
		return retainPID, countErr
	}
	h.logf("task %s: step failure #%d: %v", taskID, count, handleErr)

	if stepcount.Tripped(count, h.Threshold) {
		h.logf("task %s: %d consecutive step failures, moving to failed", taskID, count)
		updateErr := h.Client.UpdateTask(ctx, taskID, map[string]any{
			"queue":           remote.QueueFailed,
			"execution_notes": fmt.Sprintf("step failure after %d attempts: %v", count, handleErr),
		})
		stepcount.Reset(taskDir)
		return removePID, updateErr
	}

	return retainPID, handleErr
}

func (h *Handler) dispatchOutcome(ctx context.Context, task *remote.Task, result AgentResult, taskDir string) (bool, error) {
	switch result.Outcome {
	case OutcomeDone, OutcomeSubmitted:
		return h.handleDone(ctx, task, result, taskDir)
	case OutcomeFailed, OutcomeError:
		reason := result.Reason
		if reason == "" {
			reason = "agent reported failure"
		}
		return h.handleFail(ctx, task, reason)
	case OutcomeNeedsContinuation:
		return h.handleContinuation(ctx, task)
	default:
		return h.handleFail(ctx, task, fmt.Sprintf("unknown outcome: %s", result.Outcome))
	}
}

func (h *Handler) handleDone(ctx context.Context, task *remote.Task, result AgentResult, taskDir string) (bool, error) {
	if task.Queue != remote.QueueClaimed {
		h.logf("task %s: outcome=done but queue=%s, skipping", task.ID, task.Queue)
		return retainPID, nil
	}

	transition, err := h.lookupTransition(task, remote.QueueClaimed)
	if err != nil {
		return retainPID, err
	}
	if transition == nil {
		if err := h.Client.SubmitTask(ctx, task.ID, remote.SubmitRequest{}); err != nil {
			return retainPID, err
		}
		h.logf("task %s: no flow transition from claimed, used direct submit", task.ID)
		return removePID, nil
	}

	if len(transition.Runs) > 0 {
		if err := h.Steps.Execute(ctx, transition.Runs, task, result, taskDir); err != nil {
			return retainPID, err
		}
	}

	if err := h.performTransition(ctx, task.ID, transition.ToState); err != nil {
		return retainPID, err
	}
	return removePID, nil
}

func (h *Handler) handleFail(ctx context.Context, task *remote.Task, reason string) (bool, error) {
	if task.Queue != remote.QueueClaimed {
		h.logf("task %s: outcome=failed but queue=%s, skipping", task.ID, task.Queue)
		return retainPID, nil
	}
	target := h.failTarget(task, remote.QueueClaimed)
	if err := h.Client.UpdateTask(ctx, task.ID, map[string]any{"queue": target}); err != nil {
		return retainPID, err
	}
	h.logf("task %s: failed (claimed -> %s): %s", task.ID, target, reason)
	return removePID, nil
}

func (h *Handler) handleContinuation(ctx context.Context, task *remote.Task) (bool, error) {
	if task.Queue != remote.QueueClaimed {
		h.logf("task %s: outcome=needs_continuation but queue=%s, skipping", task.ID, task.Queue)
		return retainPID, nil
	}
	if err := h.Client.UpdateTask(ctx, task.ID, map[string]any{"queue": remote.QueueNeedsContinuation}); err != nil {
		return retainPID, err
	}
	h.logf("task %s: needs continuation (-> %s)", task.ID, remote.QueueNeedsContinuation)
	return removePID, nil
}

// HandleAgentResultViaFlow is the gatekeeper/review path (spec §4.4):
// the agent reports status+decision rather than an outcome, and the
// handler consults the transition from the queue the agent claimed from.
func (h *Handler) HandleAgentResultViaFlow(ctx context.Context, taskID, agentName, taskDir, expectedQueue string) (bool, error) {
	result := ReadResultJSON(taskDir)
	h.logf("flow dispatch: task=%s agent=%s status=%s decision=%s", taskID, agentName, result.Status, result.Decision)

	task, err := h.Client.GetTask(ctx, taskID)
	if err != nil {
		if err == remote.ErrNotFound {
			h.logf("flow dispatch: task %s not found on server, skipping", taskID)
			return removePID, nil
		}
		return retainPID, err
	}

	if expectedQueue != "" && task.Queue != expectedQueue && task.Queue != remote.QueueClaimed {
		h.logf("flow dispatch: task %s moved from expected %q to %q, discarding stale result", taskID, expectedQueue, task.Queue)
		return removePID, nil
	}

	lookupQueue := expectedQueue
	if lookupQueue == "" {
		lookupQueue = task.Queue
	}

	transition, err := h.lookupTransition(task, lookupQueue)
	if err != nil {
		return retainPID, err
	}
	if transition == nil {
		h.logf("flow dispatch: no transition from %q for task %s", lookupQueue, taskID)
		return removePID, nil
	}

	if result.Status == "failure" {
		message := result.Message
		if message == "" {
			message = "agent could not complete review"
		}
		target := ""
		for _, c := range transition.Conditions {
			if c.Type == flow.ConditionAgent && c.OnFail != "" {
				target = c.OnFail
				break
			}
		}
		h.logf("flow dispatch: agent failure for %s: %s (-> %s)", taskID, message, target)
		return removePID, h.Client.RejectTask(ctx, taskID, message, agentName)
	}

	switch result.Decision {
	case "reject":
		h.logf("flow dispatch: agent rejected task %s", taskID)
		return removePID, h.Steps.Execute(ctx, []string{"reject_with_feedback"}, task, result, taskDir)
	case "approve":
		if len(transition.Runs) > 0 {
			h.logf("flow dispatch: executing steps %v for task %s", transition.Runs, taskID)
			if err := h.Steps.Execute(ctx, transition.Runs, task, result, taskDir); err != nil {
				return retainPID, err
			}
		}
		if err := h.performTransition(ctx, taskID, transition.ToState); err != nil {
			return retainPID, err
		}
		return removePID, nil
	default:
		h.logf("flow dispatch: unknown decision %q for %s, leaving in %s for human review", result.Decision, taskID, task.Queue)
		return removePID, nil
	}
}

// performTransition is the to_state-keyed dispatch: "provisional" submits,
// "done" accepts directly, anything else is a generic queue update.
func (h *Handler) performTransition(ctx context.Context, taskID, toState string) error {
	switch toState {
	case remote.QueueProvisional:
		return h.Client.SubmitTask(ctx, taskID, remote.SubmitRequest{})
	case remote.QueueDone:
		return h.Client.AcceptTask(ctx, taskID, "flow-engine")
	default:
		return h.Client.UpdateTask(ctx, taskID, map[string]any{"queue": toState})
	}
}

func (h *Handler) lookupTransition(task *remote.Task, fromState string) (*flow.Transition, error) {
	flowName := task.Flow
	if flowName == "" {
		flowName = "default"
	}
	f, err := flow.LoadFlow(h.FlowsDir, flowName)
	if err != nil {
		return nil, err
	}
	if task.ProjectID != "" && f.ChildFlow != nil {
		f = f.ChildFlow
	}
	transitions := f.TransitionsFrom(fromState)
	if len(transitions) == 0 {
		return nil, nil
	}
	return &transitions[0], nil
}

// failTarget consults the flow for the on_fail target of the transition
// from fromState, falling back to the failed queue when none is defined.
func (h *Handler) failTarget(task *remote.Task, fromState string) string {
	transition, err := h.lookupTransition(task, fromState)
	if err != nil || transition == nil {
		return remote.QueueFailed
	}
	for _, c := range transition.Conditions {
		if c.OnFail != "" {
			return c.OnFail
		}
	}
	return remote.QueueFailed
}
