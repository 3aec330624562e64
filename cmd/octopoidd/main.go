// Command octopoidd is the octopoid daemon: it loads configuration and
// agent blueprints, wires the remote task-store client into the
// scheduler, dispatcher, and result handler, and serves the local
// control-plane socket until stopped. Grounded on the teacher's
// cmd/aetherd — a small standalone binary distinct from its CLI — kept as
// the same kind of thin composition-root main.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/octopoid/octopoid/internal/config"
	"github.com/octopoid/octopoid/internal/daemon"
	"github.com/octopoid/octopoid/internal/dispatch"
	"github.com/octopoid/octopoid/internal/flow"
	"github.com/octopoid/octopoid/internal/remote"
	"github.com/octopoid/octopoid/internal/resulthandler"
	"github.com/octopoid/octopoid/internal/scheduler"
	"github.com/octopoid/octopoid/internal/steps"
	"github.com/octopoid/octopoid/internal/thread"
)

func main() {
	var (
		root       = flag.String("root", "", "project root containing .octopoid/ (default: cwd)")
		serverURL  = flag.String("server", "", "remote task-store root URL")
		apiKey     = flag.String("api-key", "", "remote task-store API key")
		scope      = flag.String("scope", "", "tenant scope")
		socketPath = flag.String("socket", "", "control-plane socket path override")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := config.Config{Root: *root, ServerURL: *serverURL, APIKey: *apiKey, Scope: *scope, SocketPath: *socketPath, Logger: log}

	paths := config.PathsFor(cfg.Root)
	cfg.ApplyEnv()
	if err := config.LoadConfigFile(paths.ConfigFile, &cfg); err != nil {
		fatal(log, "loading config file: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		fatal(log, "invalid config: %v", err)
	}

	if err := flow.EnsureDefaults(paths.FlowsDir); err != nil {
		fatal(log, "writing default flows to %s: %v", paths.FlowsDir, err)
	}

	blueprints, err := scheduler.LoadBlueprints(paths.AgentsFile)
	if err != nil {
		fatal(log, "loading agent blueprints from %s: %v", paths.AgentsFile, err)
	}

	client := remote.New(cfg.ServerURL, cfg.Scope, cfg.APIKey, 0)
	threads := thread.New(paths.ThreadsDir)
	registry := steps.NewRegistry(client, threads, steps.WorktreePath)
	handler := &resulthandler.Handler{
		Client:    client,
		Steps:     registry,
		FlowsDir:  paths.FlowsDir,
		Threshold: cfg.Threshold,
		Log:       log,
	}

	pool := scheduler.NewPool(paths.AgentsDir, nil, log)

	dispatchStore := dispatch.NewStore(paths.RuntimeDir)
	dispatcher := dispatch.NewDispatcher(
		client,
		dispatchStore,
		dispatch.DefaultAgentRunner(cfg.Root),
		dispatch.DefaultPromptBuilder(paths.Dir+"/GLOBAL_INSTRUCTIONS.md"),
	)

	sched := scheduler.NewScheduler(scheduler.Scheduler{
		Client:         client,
		Pool:           pool,
		Handler:        handler,
		Dispatcher:     dispatcher,
		Threads:        threads,
		Blueprints:     blueprints,
		OrchestratorID: cfg.MachineID,
		BaseRepo:       cfg.Root,
		TasksDir:       paths.TasksDir,
		PromptDir:      cfg.PromptDir,
		SpawnCmd:       cfg.SpawnCmd,
		Log:            log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go sched.Run(ctx, cfg.PollInterval)

	statePath := paths.RuntimeDir + "/pool_state.json"
	defer func() {
		if err := pool.SaveState(statePath); err != nil {
			log.Warn("saving pool state on exit", "error", err)
		}
	}()

	d := daemon.New(pool, cfg.SocketPath, cancel, log)
	if err := d.Run(ctx); err != nil {
		fatal(log, "%v", err)
	}
}

func fatal(log *slog.Logger, format string, args ...any) {
	log.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
