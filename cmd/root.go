// Package cmd implements the lauruschat CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "lauruschat",
	Short: "lauruschat — Laurus Education student assistant",
	Long:  "lauruschat — WhatsApp and HTTP assistant bridge for Laurus Education student enquiries",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(assistantCmd)
	rootCmd.AddCommand(sweepCmd)
}
