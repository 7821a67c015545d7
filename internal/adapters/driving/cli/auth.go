package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage source credentials",
	Long: `Stores the credential bundle a platform connector needs to sync.

Tokens are stored per source; they never appear in logs or sync history.

Examples:
  # Store a GitHub personal access token
  kbengine auth set <source-id> --token ghp_xxx

  # Store an OAuth token with refresh and expiry
  kbengine auth set <source-id> --token ya29.xxx --refresh-token 1//xxx --expires-in 3600`,
}

var authSetCmd = &cobra.Command{
	Use:   "set [source-id]",
	Short: "Store credentials for a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthSet,
}

// Flags for auth set.
var (
	authToken        string
	authRefreshToken string
	authScope        string
	authExpiresIn    int
)

func init() {
	authSetCmd.Flags().StringVar(&authToken, "token", "", "Access token")
	authSetCmd.Flags().StringVar(&authRefreshToken, "refresh-token", "", "Refresh token")
	authSetCmd.Flags().StringVar(&authScope, "scope", "", "Granted OAuth scope")
	authSetCmd.Flags().IntVar(&authExpiresIn, "expires-in", 0, "Token lifetime in seconds (0 = no expiry)")

	authCmd.AddCommand(authSetCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	if authToken == "" {
		return errors.New("--token is required")
	}

	sourceID := args[0]
	ctx := context.Background()

	creds := domain.Credentials{
		AccessToken:  authToken,
		RefreshToken: authRefreshToken,
		Scope:        authScope,
	}
	if authExpiresIn > 0 {
		creds.Expiry = time.Now().Add(time.Duration(authExpiresIn) * time.Second)
	}

	if err := knowledgeService.SetCredentials(ctx, flagTenant, sourceID, creds); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	cmd.Printf("Credentials stored for source: %s\n", sourceID)
	cmd.Println("Trigger a sync with: kbengine sync " + sourceID)
	return nil
}
