package cmd

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyIncident string
	historyPage     int
	historyPerPage  int
)

// historyEntry mirrors the server's history payload.
type historyEntry struct {
	IncidentID   string    `json:"incident_id"`
	RuleID       string    `json:"rule_id"`
	RuleName     string    `json:"rule_name"`
	ActionType   string    `json:"action_type"`
	ActionTarget string    `json:"action_target"`
	Details      string    `json:"details"`
	IsSuccessful bool      `json:"is_successful"`
	ExecutedBy   string    `json:"executed_by"`
	ExecutedAt   time.Time `json:"executed_at"`
}

// historyCmd lists escalation history entries.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show escalation history",
	Long: `Show what the engine did, newest first.

Examples:
  # Recent activity across all incidents
  escalctl history

  # Everything that happened to one incident
  escalctl history --incident INC-1042`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()

		path := "/api/v1/history"
		if historyIncident != "" {
			path = "/api/v1/incidents/" + url.PathEscape(historyIncident) + "/history"
		}
		query := url.Values{}
		if historyPage > 1 {
			query.Set("page", strconv.Itoa(historyPage))
		}
		if historyPerPage > 0 {
			query.Set("per_page", strconv.Itoa(historyPerPage))
		}
		if len(query) > 0 {
			path += "?" + query.Encode()
		}

		var result struct {
			Items      []historyEntry `json:"items"`
			Total      int64          `json:"total"`
			Page       int            `json:"page"`
			TotalPages int            `json:"total_pages"`
		}
		if err := client.get(path, &result); err != nil {
			return err
		}

		if len(result.Items) == 0 {
			fmt.Println("No history entries.")
			return nil
		}

		fmt.Printf("\n%-3s %-16s  %-12s  %-22s  %-20s  %s\n",
			"", "TIME", "INCIDENT", "ACTION", "TARGET", "RULE")
		fmt.Println(strings.Repeat("-", 100))
		for _, e := range result.Items {
			status := green.Sprint("✓")
			if !e.IsSuccessful {
				status = red.Sprint("✗")
			}
			rule := e.RuleName
			if rule == "" {
				rule = "(manual by " + e.ExecutedBy + ")"
			}
			fmt.Printf("%-3s %-16s  %-12s  %-22s  %-20s  %s\n",
				status,
				e.ExecutedAt.Local().Format("2006-01-02 15:04"),
				truncate(e.IncidentID, 12),
				truncate(e.ActionType, 22),
				truncate(e.ActionTarget, 20),
				rule,
			)
			if verbose && e.Details != "" {
				fmt.Printf("      %s\n", e.Details)
			}
		}
		fmt.Printf("\nTotal: %d entries (page %d of %d)\n",
			result.Total, result.Page, result.TotalPages)
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyIncident, "incident", "", "limit to one incident")
	historyCmd.Flags().IntVar(&historyPage, "page", 1, "result page")
	historyCmd.Flags().IntVar(&historyPerPage, "per-page", 50, "entries per page")
	rootCmd.AddCommand(historyCmd)
}
