package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sarchlab/tactsched/input"
	"github.com/sarchlab/tactsched/sim/task"
)

var generateCmd = &cobra.Command{
	Use:   "generate [count]",
	Short: "Print a random task list that run --tasks can read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid task count %q", args[0])
		}

		seed, err := cmd.Flags().GetInt64("seed")
		if err != nil {
			return err
		}

		return input.WriteTasks(cmd.OutOrStdout(), task.NewGenerator(seed).Generate(n))
	},
}

func init() {
	generateCmd.Flags().Int64("seed", 1, "random seed for durations")
	rootCmd.AddCommand(generateCmd)
}
