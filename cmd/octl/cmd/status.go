package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/octopoid/octopoid/internal/daemon"
	"github.com/octopoid/octopoid/internal/remote"
	"github.com/octopoid/octopoid/internal/scheduler"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	runningCell = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	exitedCell  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	modeStyle   = map[string]lipgloss.Style{
		"active":   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		"draining": lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"paused":   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pool mode and running agent instances",
	Long: `Show the agent pool's current mode (active/draining/paused) and a
table of every tracked instance: task, blueprint, PID, uptime, and state.

Requires a running daemon. With --diagnose, also fetches every task from
the remote store and reports per-queue counts and dangling blocker
references (tasks whose blocked_by names an id that doesn't exist).`,
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")
		diagnose, _ := cmd.Flags().GetBool("diagnose")
		socketPath := resolveSocketPath(cmd)

		raw, err := daemon.Call(socketPath, "status", nil, 3*time.Second)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			fmt.Fprintf(os.Stderr, "\nIs the daemon running? Start it with: octopoidd\n")
			os.Exit(1)
		}

		var status daemon.Status
		if err := json.Unmarshal(raw, &status); err != nil {
			Fatal("decoding status: %v", err)
		}

		var diag *remote.Diagnostics
		if diagnose {
			d, err := fetchDiagnostics(cmd)
			if err != nil {
				Fatal("diagnosing queues: %v", err)
			}
			diag = &d
		}

		if asJSON {
			out := struct {
				daemon.Status
				Diagnostics *remote.Diagnostics `json:"diagnostics,omitempty"`
			}{status, diag}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(out)
			return
		}

		printStatus(status)
		if diag != nil {
			printDiagnostics(*diag)
		}
	},
}

// fetchDiagnostics pulls every task visible to this scope from the
// remote store and runs the dangling-blocker/queue-count check over it.
func fetchDiagnostics(cmd *cobra.Command) (remote.Diagnostics, error) {
	cfg := resolveRemoteConfig(cmd)
	client := remote.New(cfg.ServerURL, cfg.Scope, cfg.APIKey, 10*time.Second)

	tasks, err := client.ListTasks(context.Background(), remote.ListFilters{})
	if err != nil {
		return remote.Diagnostics{}, err
	}
	return remote.DiagnoseQueue(tasks), nil
}

func printDiagnostics(d remote.Diagnostics) {
	fmt.Println()
	fmt.Println(headerStyle.Render("Queues:"))
	for queue, count := range d.QueueCounts {
		fmt.Printf("  %-12s %d\n", queue, count)
	}
	if len(d.DanglingBlocks) == 0 {
		fmt.Println(dimStyle.Render("no dangling blockers"))
		return
	}
	fmt.Println(headerStyle.Render("Dangling blockers:"))
	for _, b := range d.DanglingBlocks {
		fmt.Printf("  %s blocked_by missing task %s\n", b.TaskID, b.MissingID)
	}
}

func printStatus(s daemon.Status) {
	style, ok := modeStyle[s.Mode]
	if !ok {
		style = lipgloss.NewStyle()
	}
	fmt.Printf("%s %s\n", headerStyle.Render("Pool:"), style.Render(s.Mode))

	if len(s.Instances) == 0 {
		fmt.Println(dimStyle.Render("no agents running"))
		return
	}

	rows := make([][]string, 0, len(s.Instances))
	for _, inst := range s.Instances {
		rows = append(rows, []string{
			inst.TaskID,
			inst.Blueprint,
			inst.AgentID.String(),
			fmt.Sprintf("%d", inst.PID),
			formatUptime(inst.StartedAt),
			instanceStateLabel(inst.State),
		})
	}

	headers := []string{"TASK", "BLUEPRINT", "AGENT", "PID", "UPTIME", "STATE"}
	fmt.Println(renderTable(headers, rows))
}

func instanceStateLabel(state scheduler.InstanceState) string {
	if state == scheduler.InstanceExited {
		return exitedCell.Render("exited")
	}
	return runningCell.Render("running")
}

func formatUptime(started time.Time) string {
	if started.IsZero() {
		return "?"
	}
	d := time.Since(started)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// renderTable lays out headers/rows into fixed-width, lipgloss-styled
// columns — octl's only interactive-terminal surface (spec §3 scopes out
// a full TUI; this is plain column rendering, not a dashboard).
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := lipgloss.Width(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var out string
	for i, h := range headers {
		out += headerStyle.Render(padRight(h, widths[i])) + "  "
	}
	out += "\n"
	for _, row := range rows {
		for i, cell := range row {
			out += padRight(cell, widths[i]) + "  "
		}
		out += "\n"
	}
	return out
}

func padRight(s string, width int) string {
	n := lipgloss.Width(s)
	if n >= width {
		return s
	}
	pad := ""
	for i := 0; i < width-n; i++ {
		pad += " "
	}
	return s + pad
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("json", false, "Output raw JSON")
	statusCmd.Flags().Bool("diagnose", false, "Also fetch all tasks and report queue/blocker diagnostics")
}
