package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/octopoid/octopoid/internal/daemon"
	"github.com/spf13/cobra"
)

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Control the agent pool's scheduling mode",
}

var poolDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Stop scheduling new tasks, let running agents finish",
	Long: `Transition the pool to draining mode.

No new tasks are claimed, but instances already running continue until
they exit.

Use 'octl pool resume' to return to normal scheduling.`,
	Run: func(cmd *cobra.Command, args []string) { callPoolMode(cmd, "pool.drain") },
}

var poolPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Freeze the pool — no new scheduling",
	Long: `Transition the pool to paused mode.

No new tasks are claimed. Instances already running continue until they
exit or crash. Paused and draining both stop new claims in the same way.

Use 'octl pool resume' to return to normal scheduling.`,
	Run: func(cmd *cobra.Command, args []string) { callPoolMode(cmd, "pool.pause") },
}

var poolResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume normal pool scheduling",
	Run:   func(cmd *cobra.Command, args []string) { callPoolMode(cmd, "pool.resume") },
}

func callPoolMode(cmd *cobra.Command, method string) {
	socketPath := resolveSocketPath(cmd)
	if _, err := daemon.Call(socketPath, method, nil, 3*time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	raw, err := daemon.Call(socketPath, "status", nil, 3*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var status daemon.Status
	if err := json.Unmarshal(raw, &status); err != nil {
		Fatal("decoding status: %v", err)
	}
	fmt.Printf("pool %s\n", status.Mode)
}

func init() {
	rootCmd.AddCommand(poolCmd)
	poolCmd.AddCommand(poolDrainCmd, poolPauseCmd, poolResumeCmd)
}
