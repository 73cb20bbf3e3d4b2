package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/safetrack-hq/escalator/internal/models"
	"github.com/safetrack-hq/escalator/internal/storage"
)

var (
	incidentDBPath   string
	incidentID       string
	incidentTitle    string
	incidentSeverity string
	incidentStatus   string
	incidentDept     string
	incidentLocation string
	incidentAge      time.Duration
)

// incidentCmd represents the incident command group
var incidentCmd = &cobra.Command{
	Use:   "incident",
	Short: "Incident seeding commands",
	Long: `Commands for seeding incident snapshots into the local database.

Incidents normally arrive from the incident management system; these
commands exist for local testing and demos.

Example:
  escalctl incident create --title "Checkout down" --severity critical --department payments`,
}

// incidentCreateCmd seeds one incident snapshot
var incidentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an incident snapshot",
	Long: `Create an incident snapshot in the local database.

--age backdates the creation time, which is useful for exercising
no-response triggers and the overdue scanner.

Example:
  escalctl incident create --title "Checkout down" --severity critical --age 25h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		severity, ok := models.ParseSeverity(incidentSeverity)
		if !ok {
			return fmt.Errorf("invalid severity %q", incidentSeverity)
		}
		status, ok := models.ParseStatus(incidentStatus)
		if !ok {
			return fmt.Errorf("invalid status %q", incidentStatus)
		}

		store := storage.NewSQLiteStorage(incidentDBPath)
		if err := store.Open(); err != nil {
			return fmt.Errorf("open database %s: %w", incidentDBPath, err)
		}
		defer store.Close()
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}

		id := incidentID
		if id == "" {
			id = uuid.New().String()
		}

		inc := &models.IncidentSnapshot{
			ID:         id,
			Title:      incidentTitle,
			Severity:   severity,
			Status:     status,
			Department: incidentDept,
			Location:   incidentLocation,
			CreatedAt:  time.Now().UTC().Add(-incidentAge),
		}
		if err := store.Incidents().Create(context.Background(), inc); err != nil {
			return fmt.Errorf("create incident: %w", err)
		}

		green.Printf("✓ incident %s created\n", id)
		fmt.Printf("  severity %s, status %s, created %s\n",
			severity, status, inc.CreatedAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	incidentCmd.PersistentFlags().StringVar(&incidentDBPath, "db", defaultDBPath, "database file path")

	incidentCreateCmd.Flags().StringVar(&incidentID, "id", "", "incident id (generated when empty)")
	incidentCreateCmd.Flags().StringVar(&incidentTitle, "title", "", "incident title")
	incidentCreateCmd.Flags().StringVar(&incidentSeverity, "severity", "minor", "severity (minor, major, critical, emergency)")
	incidentCreateCmd.Flags().StringVar(&incidentStatus, "status", "open", "status (open, in_progress, resolved, closed)")
	incidentCreateCmd.Flags().StringVar(&incidentDept, "department", "", "owning department")
	incidentCreateCmd.Flags().StringVar(&incidentLocation, "location", "", "location")
	incidentCreateCmd.Flags().DurationVar(&incidentAge, "age", 0, "backdate creation by this duration")

	incidentCmd.AddCommand(incidentCreateCmd)
	rootCmd.AddCommand(incidentCmd)
}
