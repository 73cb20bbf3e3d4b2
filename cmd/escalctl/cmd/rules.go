package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/safetrack-hq/escalator/internal/rules"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

// rulesCmd represents the rules command group
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Rule set commands",
	Long: `Commands for inspecting and managing the escalation rule set.

Examples:
  # Validate a rule file locally before deploying it
  escalctl rules validate rules.yaml

  # List the rules a running escalatord is using
  escalctl rules list

  # Ask escalatord to reload its rule file
  escalctl rules reload`,
}

// rulesValidateCmd validates a rule file locally.
var rulesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a rule set file",
	Long: `Validate a rule set file without contacting a server.

Checks YAML syntax, rule ids, trigger dimensions, action types, and
channel names.

Example:
  escalctl rules validate rules.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		ruleSet, err := rules.LoadFromFile(path)
		if err != nil {
			red.Printf("✗ %s\n", path)
			return err
		}

		green.Printf("✓ %s\n", path)
		fmt.Printf("  %d rule(s)\n", len(ruleSet))
		for _, rule := range ruleSet {
			state := ""
			if !rule.IsEnabled() {
				state = yellow.Sprint(" (disabled)")
			}
			fmt.Printf("  - %s: priority %d, %d action(s)%s\n",
				rule.ID, rule.Priority, len(rule.Actions), state)
		}
		return nil
	},
}

// rulesListCmd lists the active rules of a running server.
var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active rules",
	Long: `List the enabled rules of a running escalatord, in evaluation order.

Example:
  escalctl rules list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()

		var result struct {
			Rules []struct {
				ID       string `json:"id"`
				Name     string `json:"name"`
				Priority int    `json:"priority"`
				CatchAll bool   `json:"catch_all"`
				Actions  []struct {
					Type   string `json:"type"`
					Target string `json:"target"`
				} `json:"actions"`
			} `json:"rules"`
			Total int `json:"total"`
		}
		if err := client.get("/api/v1/rules", &result); err != nil {
			return err
		}

		if result.Total == 0 {
			fmt.Println("No active rules.")
			return nil
		}

		fmt.Printf("\n%-24s  %-30s  %-8s  %s\n", "ID", "NAME", "PRIORITY", "ACTIONS")
		fmt.Println(strings.Repeat("-", 90))
		for _, r := range result.Rules {
			var actions []string
			for _, a := range r.Actions {
				if a.Target != "" {
					actions = append(actions, fmt.Sprintf("%s(%s)", a.Type, a.Target))
				} else {
					actions = append(actions, a.Type)
				}
			}
			name := r.Name
			if r.CatchAll {
				name += " [catch-all]"
			}
			fmt.Printf("%-24s  %-30s  %-8d  %s\n",
				truncate(r.ID, 24), truncate(name, 30), r.Priority,
				strings.Join(actions, ", "))
		}
		fmt.Printf("\nTotal: %d rule(s)\n", result.Total)
		return nil
	},
}

// rulesReloadCmd asks the server to reload its rule file.
var rulesReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the server's rule set",
	Long: `Ask a running escalatord to reload its rule file. An invalid file
leaves the previous rule set active.

Example:
  escalctl rules reload`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()

		var result struct {
			Status string `json:"status"`
			Rules  int    `json:"rules"`
		}
		if err := client.post("/api/v1/rules/reload", nil, &result); err != nil {
			return err
		}

		green.Println("✓ rules reloaded")
		fmt.Printf("  %d active rule(s)\n", result.Rules)
		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-2] + ".."
}

func init() {
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesReloadCmd)
	rootCmd.AddCommand(rulesCmd)
}
