// Package cmd contains the CLI commands for escalctl.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Used for flags
	serverURL string
	authToken string
	verbose   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "escalctl",
	Short: "Escalator - Incident escalation control tool",
	Long: `Escalctl manages a running escalatord instance and its data.

Most commands talk to the escalatord HTTP API and need a bearer token
(--token or ESCALATOR_TOKEN). Rule validation and directory commands
work locally without a server.

Examples:
  # Validate a rule set before deploying it
  escalctl rules validate rules.yaml

  # Escalate an incident through the rule set
  escalctl escalate INC-1042

  # Manually escalate to management
  escalctl escalate INC-1042 --manual --reason "customer call"

  # Show what the engine did
  escalctl history --incident INC-1042`,
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "escalatord API base URL (default http://localhost:8080, env ESCALATOR_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&authToken, "token", "t", "", "API bearer token (env ESCALATOR_TOKEN)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// resolveServer returns the API base URL from flag, env, or default.
func resolveServer() string {
	if serverURL != "" {
		return serverURL
	}
	if env := os.Getenv("ESCALATOR_SERVER"); env != "" {
		return env
	}
	return "http://localhost:8080"
}

// resolveToken returns the bearer token from flag or env.
func resolveToken() string {
	if authToken != "" {
		return authToken
	}
	return os.Getenv("ESCALATOR_TOKEN")
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}
