package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	escalateManual bool
	escalateReason string
	escalateBy     string
)

// escalateCmd triggers escalation for one incident.
var escalateCmd = &cobra.Command{
	Use:   "escalate <incident-id>",
	Short: "Escalate an incident",
	Long: `Escalate an incident on a running escalatord.

Without flags the incident is run through the rule set. With --manual
it is escalated straight to management, bypassing the rules; --reason
is required in that case.

Examples:
  # Run the rule set against an incident
  escalctl escalate INC-1042

  # Manual escalation to management
  escalctl escalate INC-1042 --manual --reason "customer called twice" --by alice`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		incidentID := args[0]
		client := newAPIClient()

		if escalateManual {
			if escalateReason == "" {
				return fmt.Errorf("--reason is required with --manual")
			}
			body := map[string]string{
				"reason":       escalateReason,
				"escalated_by": escalateBy,
			}
			var result struct {
				Status      string `json:"status"`
				EscalatedBy string `json:"escalated_by"`
			}
			if err := client.post("/api/v1/incidents/"+incidentID+"/escalate/manual", body, &result); err != nil {
				return err
			}
			green.Printf("✓ incident %s escalated to management", incidentID)
			if result.EscalatedBy != "" {
				fmt.Printf(" (by %s)", result.EscalatedBy)
			}
			fmt.Println()
			return nil
		}

		if err := client.post("/api/v1/incidents/"+incidentID+"/escalate", nil, nil); err != nil {
			return err
		}
		green.Printf("✓ incident %s escalated\n", incidentID)
		return nil
	},
}

func init() {
	escalateCmd.Flags().BoolVar(&escalateManual, "manual", false, "escalate to management outside the rule set")
	escalateCmd.Flags().StringVar(&escalateReason, "reason", "", "reason for a manual escalation")
	escalateCmd.Flags().StringVar(&escalateBy, "by", "", "who requested the escalation")
	rootCmd.AddCommand(escalateCmd)
}
