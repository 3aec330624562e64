// Package cmd implements octl, the operator CLI for the octopoid daemon:
// status, pool control, and plan splitting. Grounded on the teacher's
// cmd/af/cmd — the persistent-flags-plus-resolveSocketPath shape is kept,
// re-pointed at octopoid's scope-keyed socket convention instead of a
// project-keyed one.
package cmd

import (
	"fmt"
	"os"

	"github.com/octopoid/octopoid/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "octl",
	Short: "octopoid CLI — operate the agent-pool scheduler daemon",
	Long: `octl is the operator CLI for octopoid, a tick-driven scheduler that
claims tasks from a remote task store, spawns agent subprocesses against
them, and drives each task through a declarative flow of review and merge
steps.

The daemon (octopoidd) must be running for most commands to work.`,
}

// SetVersion is called from main to stamp the build version into the
// root command (set by goreleaser via ldflags).
func SetVersion(v string) { version = v }

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("root", "r", "", "project root containing .octopoid/ (default: cwd)")
	rootCmd.PersistentFlags().StringP("scope", "s", "", "tenant scope (derives socket path, overrides config file)")
	rootCmd.PersistentFlags().String("socket", "", "Unix socket path (overrides --scope and config)")
}

// resolveSocketPath determines the daemon socket path from the CLI flag,
// config file, or default convention. Priority:
//  1. Explicit --socket flag (full path)
//  2. Explicit --scope flag -> scope-scoped socket path
//  3. socket_path from config file, else its scope -> scope-scoped socket path
//  4. The built-in default socket path
func resolveSocketPath(cmd *cobra.Command) string {
	if cmd.Flags().Changed("socket") {
		s, _ := cmd.Flags().GetString("socket")
		return s
	}

	cfg := config.Config{}
	if cmd.Flags().Changed("scope") {
		cfg.Scope, _ = cmd.Flags().GetString("scope")
	} else {
		root, _ := cmd.Flags().GetString("root")
		paths := config.PathsFor(root)
		if err := config.LoadConfigFile(paths.ConfigFile, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to parse %s: %v (using default socket)\n", paths.ConfigFile, err)
		}
	}
	cfg.ApplyDefaults()
	return cfg.SocketPath
}

// resolveRemoteConfig loads the remote task-store connection settings
// (server URL, API key, scope) the same way octopoidd does: flags, then
// env, then config file, then defaults. Used by commands that talk to the
// remote store directly rather than through the daemon socket.
func resolveRemoteConfig(cmd *cobra.Command) config.Config {
	root, _ := cmd.Flags().GetString("root")
	cfg := config.Config{Root: root}
	if cmd.Flags().Changed("scope") {
		cfg.Scope, _ = cmd.Flags().GetString("scope")
	}

	paths := config.PathsFor(cfg.Root)
	cfg.ApplyEnv()
	if err := config.LoadConfigFile(paths.ConfigFile, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to parse %s: %v\n", paths.ConfigFile, err)
	}
	cfg.ApplyDefaults()
	return cfg
}

// Fatal prints an error and exits.
func Fatal(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+msg+"\n", args...)
	os.Exit(1)
}
