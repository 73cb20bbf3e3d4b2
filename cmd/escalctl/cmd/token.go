package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/safetrack-hq/escalator/internal/api/auth"
)

var (
	tokenService string
	tokenTTL     time.Duration
)

// tokenCmd generates API tokens.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate an API token",
	Long: `Generate a bearer token for the escalatord API.

The token is signed with the server's auth secret, taken from the
ESCALATOR_AUTH_SECRET environment variable or prompted for.

Example:
  escalctl token --service incident-portal --ttl 720h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv("ESCALATOR_AUTH_SECRET")
		if secret == "" {
			var err error
			secret, err = promptSecret("Auth secret: ")
			if err != nil {
				return fmt.Errorf("read secret: %w", err)
			}
		}
		if secret == "" {
			return fmt.Errorf("auth secret is required")
		}

		jwtService := auth.NewJWTService([]byte(secret), tokenTTL)
		token, err := jwtService.GenerateToken(tokenService)
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}

		fmt.Println(token)
		return nil
	},
}

// promptSecret prompts for a secret without echoing to the terminal.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	// Check if stdin is a terminal
	fd := syscall.Stdin
	if term.IsTerminal(fd) {
		secretBytes, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr) // Add newline after secret input
		if err != nil {
			return "", err
		}
		return string(secretBytes), nil
	}

	// Fallback for non-terminal input (e.g., piped input)
	reader := bufio.NewReader(os.Stdin)
	secret, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(secret), nil
}

func init() {
	tokenCmd.Flags().StringVar(&tokenService, "service", "escalctl", "service name embedded in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
