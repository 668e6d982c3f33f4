// Package cmd provides the command-line interface of tactsched.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tactsched",
	Short: "Simulate a two-stage task scheduler tact by tact.",
	Long: `tactsched moves tasks from a backlog through a bounded stack, ` +
		`a first processor, a bounded queue and a second processor, one ` +
		`tact at a time, and prints the board after every tact.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Registered exit handlers run before a failing exit.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
