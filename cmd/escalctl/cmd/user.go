package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/safetrack-hq/escalator/internal/storage"
)

// defaultDBPath is the default database path, can be overridden via ESCALATOR_DB_PATH env var
var defaultDBPath = "data/escalator.db"

func init() {
	if envPath := os.Getenv("ESCALATOR_DB_PATH"); envPath != "" {
		defaultDBPath = envPath
	}
}

var (
	userDBPath      string
	userID          string
	userName        string
	userEmail       string
	userPhone       string
	userPushToken   string
	userRole        string
	userDept        string
	userManagement  bool
	userEmergency   bool
	userRegulatory  bool
)

// userCmd represents the user command group
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User directory commands",
	Long: `Commands for managing the escalation user directory.

The directory maps escalation targets (users, roles, departments,
management, emergency contacts, the regulatory team) to delivery
addresses. These commands operate directly on the database file.

Examples:
  # List all directory users
  escalctl user list

  # Add an on-call engineer
  escalctl user add --name "Alice Chen" --email alice@example.com \
      --role on-call --department platform

  # Add an emergency contact
  escalctl user add --name "Site Security" --email security@example.com \
      --phone +15550100 --emergency-contact`,
}

// userListCmd lists all directory users
var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List directory users",
	Long: `List all users in the directory with their roles and flags.

Example:
  escalctl user list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDirectoryDB()
		if err != nil {
			return err
		}
		defer store.Close()

		users, err := store.Directory().ListUsers(context.Background())
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}

		if len(users) == 0 {
			fmt.Println("No directory users found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-20s  %-14s  %-14s  %s\n",
			"ID", "NAME", "ROLE", "DEPARTMENT", "FLAGS")
		fmt.Println(strings.Repeat("-", 100))
		for _, u := range users {
			var flags []string
			if u.IsManagement {
				flags = append(flags, "management")
			}
			if u.IsEmergencyContact {
				flags = append(flags, "emergency")
			}
			if u.IsRegulatory {
				flags = append(flags, "regulatory")
			}
			fmt.Printf("%-36s  %-20s  %-14s  %-14s  %s\n",
				u.ID,
				truncate(u.Name, 20),
				truncate(u.Role, 14),
				truncate(u.Department, 14),
				strings.Join(flags, ","),
			)
		}
		fmt.Printf("\nTotal: %d user(s)\n", len(users))
		return nil
	},
}

// userAddCmd adds a directory user
var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a directory user",
	Long: `Add a user to the directory.

At least one delivery address (--email, --phone, or --push-token) should
be set, otherwise no channel can reach the user.

Example:
  escalctl user add --name "Alice Chen" --email alice@example.com --role on-call`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if userName == "" {
			return fmt.Errorf("--name is required")
		}
		if userEmail == "" && userPhone == "" && userPushToken == "" {
			fmt.Fprintln(os.Stderr, "Warning: user has no delivery address, notifications to them will fail")
		}

		store, err := openDirectoryDB()
		if err != nil {
			return err
		}
		defer store.Close()

		id := userID
		if id == "" {
			id = uuid.New().String()
		}

		user := &storage.DirectoryUser{
			ID:                 id,
			Name:               userName,
			Email:              userEmail,
			Phone:              userPhone,
			PushToken:          userPushToken,
			Role:               userRole,
			Department:         userDept,
			IsManagement:       userManagement,
			IsEmergencyContact: userEmergency,
			IsRegulatory:       userRegulatory,
		}
		if err := store.Directory().CreateUser(context.Background(), user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		green.Printf("✓ user %s created\n", userName)
		fmt.Printf("  id: %s\n", id)
		return nil
	},
}

// openDirectoryDB opens the sqlite database for direct access.
func openDirectoryDB() (storage.Storage, error) {
	store := storage.NewSQLiteStorage(userDBPath)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open database %s: %w", userDBPath, err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

func init() {
	userCmd.PersistentFlags().StringVar(&userDBPath, "db", defaultDBPath, "database file path")

	userAddCmd.Flags().StringVar(&userID, "id", "", "user id (generated when empty)")
	userAddCmd.Flags().StringVar(&userName, "name", "", "display name")
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	userAddCmd.Flags().StringVar(&userPhone, "phone", "", "phone number for SMS and WhatsApp")
	userAddCmd.Flags().StringVar(&userPushToken, "push-token", "", "push notification token")
	userAddCmd.Flags().StringVar(&userRole, "role", "", "role name (escalation target)")
	userAddCmd.Flags().StringVar(&userDept, "department", "", "department name")
	userAddCmd.Flags().BoolVar(&userManagement, "management", false, "mark as management")
	userAddCmd.Flags().BoolVar(&userEmergency, "emergency-contact", false, "mark as emergency contact")
	userAddCmd.Flags().BoolVar(&userRegulatory, "regulatory", false, "mark as regulatory team member")

	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}
