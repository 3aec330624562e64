// Package steps implements the flow step library (spec §4.2): a
// registry mapping step name to function, invoked by the scheduler after
// an agent's run completes and before a flow transition is applied.
// Grounded on the teacher's registry-of-named-things idiom (NameGenerator
// in internal/protocol) and directly on original_source/tests/test_steps.go's
// step-by-name dispatch expectations.
package steps

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/octopoid/octopoid/internal/remote"
	"github.com/octopoid/octopoid/internal/repo"
	"github.com/octopoid/octopoid/internal/resulthandler"
	"github.com/octopoid/octopoid/internal/thread"
)

// Func is one named step. It raises (returns a non-nil error) rather
// than mutating task state itself -- the flow engine applies the
// transition only after every run in the list has completed without
// error (spec §4.2 invariant).
type Func func(ctx context.Context, task *remote.Task, result resulthandler.AgentResult, taskDir string) error

// Registry is a read-only-after-init map of step name to Func.
type Registry struct {
	fns map[string]Func
}

// RepoFactory builds a repo.Manager rooted at a task's worktree. Injected
// so tests can substitute a scripted CommandRunner without touching disk.
type RepoFactory func(worktree string) *repo.Manager

// defaultRepoFactory builds a Manager targeting "main" via the real git/gh
// CLIs.
func defaultRepoFactory(worktree string) *repo.Manager {
	return repo.New(worktree, "main")
}

// NewRegistry builds the registry wired against a remote client, a
// thread store for feedback, and a worktree-root resolver shared by
// every repo.Manager the steps construct.
func NewRegistry(client *remote.Client, threads *thread.Store, worktreeRoot func(taskDir string) string) *Registry {
	return newRegistry(client, threads, worktreeRoot, defaultRepoFactory)
}

func newRegistry(client *remote.Client, threads *thread.Store, worktreeRoot func(taskDir string) string, newRepo RepoFactory) *Registry {
	r := &Registry{fns: map[string]Func{}}

	r.fns["push_branch"] = func(ctx context.Context, task *remote.Task, result resulthandler.AgentResult, taskDir string) error {
		mgr := newRepo(worktreeRoot(taskDir))
		if _, err := mgr.EnsureOnBranch(ctx, branchName(task.ID)); err != nil {
			return fmt.Errorf("push_branch: %w", err)
		}
		if _, err := mgr.PushBranch(ctx, false); err != nil {
			return fmt.Errorf("push_branch: %w", err)
		}
		return nil
	}

	r.fns["run_tests"] = func(ctx context.Context, task *remote.Task, result resulthandler.AgentResult, taskDir string) error {
		return runTests(ctx, worktreeRoot(taskDir))
	}

	r.fns["create_pr"] = func(ctx context.Context, task *remote.Task, result resulthandler.AgentResult, taskDir string) error {
		mgr := newRepo(worktreeRoot(taskDir))
		info, err := mgr.CreatePR(ctx, prTitle(task), prBody(result), branchName(task.ID))
		if err != nil {
			return fmt.Errorf("create_pr: %w", err)
		}
		return client.UpdateTask(ctx, task.ID, map[string]any{
			"pr_url":    info.URL,
			"pr_number": info.Number,
		})
	}

	r.fns["merge_pr"] = func(ctx context.Context, task *remote.Task, result resulthandler.AgentResult, taskDir string) error {
		mgr := newRepo(worktreeRoot(taskDir))
		if mgr.MergePR(ctx, task.PRNumber, "squash") {
			return nil
		}
		if err := client.UpdateTask(ctx, task.ID, map[string]any{"needs_rebase": true}); err != nil {
			return fmt.Errorf("merge_pr: mark needs_rebase: %w", err)
		}
		return fmt.Errorf("merge_pr: PR #%d is in a merge-blocking state", task.PRNumber)
	}

	r.fns["submit_to_server"] = func(ctx context.Context, task *remote.Task, result resulthandler.AgentResult, taskDir string) error {
		mgr := newRepo(worktreeRoot(taskDir))
		status, err := mgr.GetStatus(ctx)
		if err != nil {
			return fmt.Errorf("submit_to_server: %w", err)
		}
		return client.SubmitTask(ctx, task.ID, remote.SubmitRequest{
			CommitsCount:   status.CommitsAhead,
			TurnsUsed:      result.TurnsUsed,
			ExecutionNotes: result.Summary,
		})
	}

	r.fns["reject_with_feedback"] = func(ctx context.Context, task *remote.Task, result resulthandler.AgentResult, taskDir string) error {
		if result.Comment != "" {
			if err := threads.Append(task.ID, thread.Entry{
				Role:    "gatekeeper",
				Content: result.Comment,
			}); err != nil {
				return fmt.Errorf("reject_with_feedback: %w", err)
			}
		}
		return client.RejectTask(ctx, task.ID, result.Comment, "gatekeeper")
	}

	r.fns["post_review_comment"] = func(ctx context.Context, task *remote.Task, result resulthandler.AgentResult, taskDir string) error {
		if result.Comment == "" {
			return nil
		}
		return client.PostMessage(ctx, task.ID, remote.Message{
			Author:  "gatekeeper",
			Content: result.Comment,
		})
	}

	r.fns["rebase_on_main"] = func(ctx context.Context, task *remote.Task, result resulthandler.AgentResult, taskDir string) error {
		mgr := newRepo(worktreeRoot(taskDir))
		rr := mgr.RebaseOnBase(ctx)
		if rr.Status == repo.RebaseConflict || rr.Status == repo.RebaseError {
			return fmt.Errorf("rebase_on_main: %s: %s", rr.Status, rr.Message)
		}
		return nil
	}

	return r
}

// Execute runs the named steps in order, stopping at the first error.
func (r *Registry) Execute(ctx context.Context, names []string, task *remote.Task, result resulthandler.AgentResult, taskDir string) error {
	for _, name := range names {
		fn, ok := r.fns[name]
		if !ok {
			return fmt.Errorf("steps: unknown step %q", name)
		}
		if err := fn(ctx, task, result, taskDir); err != nil {
			return err
		}
	}
	return nil
}

func branchName(taskID string) string {
	return "agent/" + taskID
}

func prTitle(task *remote.Task) string {
	return fmt.Sprintf("[%s] %s", task.ID, task.Role)
}

func prBody(result resulthandler.AgentResult) string {
	if result.Summary != "" {
		return result.Summary
	}
	return ""
}

// WorktreePath is the conventional worktreeRoot resolver: <taskDir>/worktree.
func WorktreePath(taskDir string) string {
	return filepath.Join(taskDir, "worktree")
}
