// Package cli implements the genied command-line interface using Cobra.
// The serve command runs the API server; the remaining commands are thin
// clients over its HTTP surface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "genied",
	Short: "genied — asynchronous agent task service",
	Long: `genied runs agent and benchmark work in the background and streams
per-task logs to any number of observers over SSE, with a polling status
endpoint as the authoritative fallback.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the genied server")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
