package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// scanCmd triggers one overdue sweep on the server.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run an overdue-incident sweep",
	Long: `Ask a running escalatord to sweep for overdue incidents now,
instead of waiting for the next scheduled run.

Example:
  escalctl scan`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()

		var result struct {
			Status   string `json:"status"`
			Duration string `json:"duration"`
		}
		if err := client.post("/api/v1/scan", nil, &result); err != nil {
			return err
		}

		green.Println("✓ sweep completed")
		if result.Duration != "" {
			fmt.Printf("  took %s\n", result.Duration)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
