package dispatch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/octopoid/octopoid/internal/protocol"
	"github.com/octopoid/octopoid/internal/remote"
)

// AgentRunner runs a single short-lived action agent synchronously and
// returns whether it succeeded and its captured output (the dispatcher
// truncates it when building notices). Exists as a seam over exec.Cmd, matching the
// scheduler's ProcessStarter pattern but synchronous rather than
// fire-and-reap since action agents are meant to finish in a few turns.
type AgentRunner func(ctx context.Context, prompt string) (ok bool, output string, err error)

// DefaultAgentRunner spawns `claude -p <prompt>` with a turn cap and the
// constrained tool set action agents are allowed, clearing the in-agent
// marker env var before spawning so the child doesn't think it's nested.
func DefaultAgentRunner(workDir string) AgentRunner {
	return func(ctx context.Context, prompt string) (bool, string, error) {
		cmd := exec.CommandContext(ctx, "claude",
			"-p", prompt,
			"--allowedTools", "Read,Write,Edit,Glob,Grep,Bash,Skill",
			"--max-turns", "10",
		)
		cmd.Dir = workDir
		cmd.Env = stripInAgentMarker(os.Environ())

		out, err := cmd.Output()
		if err != nil {
			var stderr string
			if ee, ok := err.(*exec.ExitError); ok {
				stderr = string(ee.Stderr)
			}
			return false, strings.TrimSpace(stderr + "\n" + string(out)), nil
		}
		return true, strings.TrimSpace(string(out)), nil
	}
}

func stripInAgentMarker(env []string) []string {
	out := env[:0:0]
	for _, kv := range env {
		if strings.HasPrefix(kv, "CLAUDECODE=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// PromptBuilder renders an action agent's full prompt from a message and
// the project's global instructions.
type PromptBuilder func(msg protocol.Message) string

// DefaultPromptBuilder reads globalInstructionsPath (if it exists) and
// prepends it to a fixed action-agent preamble, mirroring
// message_dispatcher.py's _build_agent_prompt.
func DefaultPromptBuilder(globalInstructionsPath string) PromptBuilder {
	return func(msg protocol.Message) string {
		var instructions string
		if data, err := os.ReadFile(globalInstructionsPath); err == nil {
			instructions = string(data)
		}
		return fmt.Sprintf(`%s

---

# Action Agent

You are a lightweight action agent for the Octopoid orchestration system.
You receive a single command and execute it, then you are done.

**Message ID:** %s
**Task ID:** %s

**Execution constraints:**
- Allowed: Read any file, SDK calls (server API), write files under project-management/ only
- Not allowed: Git operations (no git add/commit/push/checkout), writes outside project-management/
- No long-running work -- complete within a few tool calls

**Command to execute:**
%s

---

Execute the command above. When done, output a brief summary of what you did.`,
			instructions, msg.ID, msg.TaskID, msg.Summary)
	}
}

// Dispatcher polls for pending action_command messages and processes one
// per Tick call (spec §4.6's seven-step algorithm).
type Dispatcher struct {
	Client  *remote.Client
	State   *Store
	Run     AgentRunner
	Prompt  PromptBuilder
	Timeout time.Duration
	Now     func() time.Time
}

// NewDispatcher wires a Dispatcher with the default 3-minute agent
// timeout and real wall-clock time.
func NewDispatcher(client *remote.Client, st *Store, run AgentRunner, prompt PromptBuilder) *Dispatcher {
	return &Dispatcher{
		Client:  client,
		State:   st,
		Run:     run,
		Prompt:  prompt,
		Timeout: AgentTimeout,
		Now:     time.Now,
	}
}

// Tick runs one pass of the seven-step algorithm: list pending messages,
// sweep stuck ones, pick the first unprocessed message, mark it
// processing, run its agent, and record the outcome. Processes at most
// one message, by design (spec §4.6 "serial, one per tick").
func (d *Dispatcher) Tick(ctx context.Context) error {
	messages, err := d.Client.ListActionMessages(ctx, "agent", protocol.TypeActionCommand)
	if err != nil {
		return fmt.Errorf("dispatch: list action messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	st, err := d.State.load()
	if err != nil {
		return err
	}

	d.sweepStuck(ctx, &st, messages)
	if err := d.State.save(st); err != nil {
		return err
	}

	for _, msg := range messages {
		if msg.ID == "" {
			continue
		}
		if isIn(st.Done, msg.ID) || isIn(st.Failed, msg.ID) {
			continue
		}
		if _, inProgress := st.Processing[msg.ID]; inProgress {
			continue
		}

		return d.process(ctx, &st, msg)
	}
	return nil
}

func (d *Dispatcher) sweepStuck(ctx context.Context, st *state, messages []protocol.Message) {
	now := d.Now()
	for id, entry := range st.Processing {
		if now.Sub(entry.StartedAt) <= StuckThreshold {
			continue
		}
		st.Failed = append(st.Failed, id)
		delete(st.Processing, id)

		for _, msg := range messages {
			if msg.ID != id {
				continue
			}
			notice := protocol.NewMessage(
				protocol.Address{Type: "agent"},
				protocol.Address{Type: "human"},
				protocol.TypeWorkerResult,
				fmt.Sprintf("Action failed (stuck/timeout): %s", truncate(entry.Content, 200)),
			)
			notice.TaskID = msg.TaskID
			d.Client.PostActionMessage(ctx, notice)
			break
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, st *state, msg protocol.Message) error {
	st.Processing[msg.ID] = processingEntry{StartedAt: d.Now(), Content: truncate(msg.Summary, 200)}
	if err := d.State.save(*st); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	ok, output, runErr := d.Run(runCtx, d.Prompt(msg))
	delete(st.Processing, msg.ID)

	var notice *protocol.Message
	if runErr != nil || !ok {
		st.Failed = append(st.Failed, msg.ID)
		text := output
		if runErr != nil {
			text = runErr.Error()
		}
		notice = protocol.NewMessage(
			protocol.Address{Type: "agent"},
			protocol.Address{Type: "human"},
			protocol.TypeWorkerResult,
			fmt.Sprintf("Action failed: %s", truncate(text, 500)),
		)
	} else {
		st.Done = append(st.Done, msg.ID)
		summary := output
		if summary == "" {
			summary = fmt.Sprintf("Action completed: %s", truncate(msg.Summary, 100))
		}
		notice = protocol.NewMessage(
			protocol.Address{Type: "agent"},
			protocol.Address{Type: "human"},
			protocol.TypeWorkerResult,
			summary,
		)
	}
	notice.TaskID = msg.TaskID

	if err := d.State.save(*st); err != nil {
		return err
	}
	return d.Client.PostActionMessage(ctx, notice)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
