// Package scheduler implements the tick-driven supervisor (spec §4.5):
// for each agent blueprint, claim and spawn while idle capacity remains,
// reap exited instances through the result handler, then run the message
// dispatcher once. Directly adapted from the teacher's
// internal/daemon/daemon.go Run() plus pool.go's spawn/reap/respawn shape
// -- the poll-claim-spawn-reap cycle is kept, the transport underneath it
// is swapped from a local `prog` CLI to the HTTP remote-store client.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/octopoid/octopoid/internal/dispatch"
	"github.com/octopoid/octopoid/internal/remote"
	"github.com/octopoid/octopoid/internal/repo"
	"github.com/octopoid/octopoid/internal/resulthandler"
	"github.com/octopoid/octopoid/internal/thread"
)

// Scheduler wires the blueprint set, the remote client, the agent pool,
// the result handler, and the message dispatcher into one cooperative
// tick loop.
type Scheduler struct {
	Client         *remote.Client
	Pool           *Pool
	Handler        *resulthandler.Handler
	Dispatcher     *dispatch.Dispatcher
	Threads        *thread.Store
	Blueprints     []Blueprint
	OrchestratorID string
	BaseRepo       string // git repo worktrees are materialized from
	TasksDir       string // <project>/.octopoid/runtime/tasks
	PromptDir      string // "" uses embedded prompt templates
	SpawnCmd       string
	WorktreeRunner repo.CommandRunner
	Log            *slog.Logger

	byName map[string]Blueprint
}

// NewScheduler builds a Scheduler ready to Tick. Blueprints are indexed
// by name for the O(1) gatekeeper-vs-implementer lookup Tick needs when
// an instance exits.
func NewScheduler(s Scheduler) *Scheduler {
	if s.WorktreeRunner == nil {
		s.WorktreeRunner = repo.DefaultRunner
	}
	byName := make(map[string]Blueprint, len(s.Blueprints))
	for _, bp := range s.Blueprints {
		byName[bp.Name] = bp
	}
	s.byName = byName
	return &s
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.Log != nil {
		s.Log.Debug(fmt.Sprintf(format, args...))
	}
}

// Run ticks on interval until ctx is cancelled. Per-tick errors are
// logged and never stop the loop (spec §7 propagation policy: per-task
// and per-tick errors never crash the scheduler).
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil && s.Log != nil {
				s.Log.Error("scheduler tick failed", "error", err)
			}
		}
	}
}

// Tick runs one cooperative cycle (spec §4.5):
//  1. claim and spawn against every blueprint while idle capacity remains;
//  2. reap exited instances through the result handler;
//  3. run the message dispatcher once.
func (s *Scheduler) Tick(ctx context.Context) error {
	for _, bp := range s.Blueprints {
		if err := s.claimAndSpawn(ctx, bp); err != nil {
			s.logf("blueprint %s: %v", bp.Name, err)
		}
	}

	for _, inst := range s.Pool.Exited() {
		s.reapInstance(ctx, inst)
	}

	if s.Dispatcher != nil {
		if err := s.Dispatcher.Tick(ctx); err != nil {
			return fmt.Errorf("dispatcher tick: %w", err)
		}
	}
	return nil
}

// claimAndSpawn claims tasks against one blueprint while it has idle
// capacity and claimable work remains. A claim miss (ErrNotFound) ends
// the loop for this blueprint this tick -- there is nothing left to claim.
func (s *Scheduler) claimAndSpawn(ctx context.Context, bp Blueprint) error {
	for s.Pool.IdleCapacity(bp) > 0 {
		task, err := s.Client.ClaimTask(ctx, remote.ClaimRequest{
			OrchestratorID: s.OrchestratorID,
			AgentName:      bp.Name,
			RoleFilter:     bp.RoleFilter,
			TypeFilter:     bp.TypeFilter,
		})
		if err == remote.ErrNotFound {
			return nil
		}
		if err != nil {
			return fmt.Errorf("claiming for blueprint %s: %w", bp.Name, err)
		}

		if err := s.spawnForTask(ctx, bp, task); err != nil {
			s.logf("task %s: spawn failed: %v", task.ID, err)
			return err
		}
	}
	return nil
}

// spawnForTask materializes a worktree, renders the role prompt, and
// spawns the agent subprocess (spec §4.5 step 1a-c).
func (s *Scheduler) spawnForTask(ctx context.Context, bp Blueprint, task *remote.Task) error {
	taskDir := filepath.Join(s.TasksDir, task.ID)
	worktree := filepath.Join(taskDir, "worktree")
	resultFile := filepath.Join(taskDir, "result.json")

	if err := os.MkdirAll(taskDir, 0o700); err != nil {
		return fmt.Errorf("creating task dir: %w", err)
	}

	branch := "agent/" + task.ID
	if err := materializeWorktree(ctx, s.WorktreeRunner, s.BaseRepo, worktree, branch); err != nil {
		return fmt.Errorf("materializing worktree: %w", err)
	}

	var feedback string
	if s.Threads != nil {
		entries, err := s.Threads.Read(task.ID)
		if err == nil && len(entries) > 0 {
			feedback = "## Feedback from previous attempts\n\n" + thread.FormatForPrompt(entries)
		}
	}

	role := "implementer"
	if bp.Gatekeeper {
		role = "gatekeeper"
	}

	prompt, err := RenderPrompt(s.PromptDir, role, PromptVars{
		TaskID:     task.ID,
		Role:       bp.Role,
		Worktree:   worktree,
		ResultFile: resultFile,
		Context:    taskContext(task),
		Feedback:   feedback,
	})
	if err != nil {
		return fmt.Errorf("rendering prompt: %w", err)
	}
	if err := os.WriteFile(filepath.Join(taskDir, "prompt.md"), []byte(prompt), 0o600); err != nil {
		return fmt.Errorf("writing prompt: %w", err)
	}

	env := []string{
		"TASK_DIR=" + taskDir,
		"TASK_WORKTREE=" + worktree,
		"RESULT_FILE=" + resultFile,
	}

	spawnCmd := s.SpawnCmd
	if spawnCmd == "" {
		spawnCmd = "octopoid-agent"
	}

	_, err = s.Pool.Spawn(ctx, bp, spawnCmd, task.ID, worktree, task.Queue, env)
	return err
}

// taskContext returns the "context" string from a task's Extra bag,
// falling back to a minimal description when absent. Extra is not filled
// when a task is decoded from the remote store (see remote.Task), so a
// claimed task gets the fallback.
func taskContext(task *remote.Task) string {
	if task.Extra != nil {
		if v, ok := task.Extra["context"]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("No additional context was provided for task %s.", task.ID)
}

// materializeWorktree creates a fresh git worktree for a task's branch,
// creating the branch from HEAD on first claim and reusing it on retry
// (respawn after a crash leaves the branch in place).
func materializeWorktree(ctx context.Context, runner repo.CommandRunner, baseRepo, worktreeDir, branch string) error {
	if _, err := runner(ctx, baseRepo, "git", "worktree", "add", "-b", branch, worktreeDir); err == nil {
		return nil
	}
	_, err := runner(ctx, baseRepo, "git", "worktree", "add", worktreeDir, branch)
	if err != nil {
		return fmt.Errorf("git worktree add %s %s: %w", worktreeDir, branch, err)
	}
	return nil
}

// reapInstance invokes the result handler for an exited instance and, if
// the handler signals a terminal decision, removes the instance from the
// pool and cleans up its worktree. If the handler returns an error, or
// signals the task should be retried, the instance is left tracked for
// the next tick (spec §4.5 step 2, §4.4 circuit breaker).
func (s *Scheduler) reapInstance(ctx context.Context, inst *RunningInstance) {
	taskDir := filepath.Join(s.TasksDir, inst.TaskID)

	bp := s.byName[inst.Blueprint]

	var done bool
	var err error
	if bp.Gatekeeper {
		done, err = s.Handler.HandleAgentResultViaFlow(ctx, inst.TaskID, inst.Blueprint, taskDir, inst.ExpectedQueue)
	} else {
		done, err = s.Handler.HandleAgentResult(ctx, inst.TaskID, taskDir)
	}

	if err != nil {
		s.logf("task %s: result handling error, retaining for retry: %v", inst.TaskID, err)
		return
	}
	if !done {
		s.logf("task %s: result handler requested retry", inst.TaskID)
		return
	}

	if _, rmErr := s.WorktreeRunner(ctx, s.BaseRepo, "git", "worktree", "remove", "--force", inst.WorktreePath); rmErr != nil {
		s.logf("task %s: failed to remove worktree %s: %v", inst.TaskID, inst.WorktreePath, rmErr)
	}
	s.Pool.Remove(inst.TaskID)
}
