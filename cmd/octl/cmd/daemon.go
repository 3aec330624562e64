package cmd

import (
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/octopoid/octopoid/internal/daemon"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Check or control the octopoidd daemon process",
	Run: func(cmd *cobra.Command, args []string) {
		socketPath := resolveSocketPath(cmd)
		if _, err := daemon.Call(socketPath, "status", nil, time.Second); err != nil {
			fmt.Println("not running")
			fmt.Println("\nTo start: octl daemon start")
			return
		}
		fmt.Println("running")
	},
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start octopoidd in the background",
	Long: `Launch the octopoidd binary as a detached background process.

octopoidd must be on PATH, or built alongside octl (e.g. via
"go build ./cmd/octopoidd").`,
	Run: func(cmd *cobra.Command, args []string) {
		root, _ := cmd.Flags().GetString("root")
		scope, _ := cmd.Flags().GetString("scope")

		exe, err := exec.LookPath("octopoidd")
		if err != nil {
			Fatal("octopoidd not found on PATH: %v", err)
		}

		cmdArgs := []string{}
		if root != "" {
			cmdArgs = append(cmdArgs, "-root", root)
		}
		if scope != "" {
			cmdArgs = append(cmdArgs, "-scope", scope)
		}

		proc := exec.Command(exe, cmdArgs...)
		proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		if err := proc.Start(); err != nil {
			Fatal("failed to start daemon: %v", err)
		}
		fmt.Printf("daemon started (pid %d)\n", proc.Process.Pid)
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	Run: func(cmd *cobra.Command, args []string) {
		socketPath := resolveSocketPath(cmd)
		if _, err := daemon.Call(socketPath, "shutdown", nil, 3*time.Second); err != nil {
			Fatal("%v", err)
		}
		fmt.Println("daemon stopped")
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd)
}
