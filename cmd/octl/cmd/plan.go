package cmd

import (
	"fmt"
	"os"

	"github.com/octopoid/octopoid/internal/planning"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan <description-file>",
	Short: "Split a free-text project description into task drafts",
	Long: `Read a project description and print the task drafts it would split
into: a title and context block per drafted task.

This previews what 'octl plan' would hand the remote task store — no
tasks are created by this command.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			Fatal("reading %s: %v", args[0], err)
		}

		drafts := planning.SplitIntoTasks(string(data))
		if len(drafts) == 0 {
			fmt.Println("no tasks drafted from this description")
			return
		}

		for i, d := range drafts {
			fmt.Printf("%d. %s\n", i+1, d.Title)
			if d.Context != "" {
				fmt.Printf("   %s\n", d.Context)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}
