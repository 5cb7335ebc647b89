package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"dialogue-backend/internal/middleware"
)

var (
	tokenPerms []string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint an access token for a user",
	Long: `Mint a signed access token for an existing user.

By default the token carries both dialogue permissions. Pass --perm to
narrow them.

Examples:
  dialogue-admin token 8d0c6d3e-6b1f-4e0b-9a57-2f3f3f0e0c11
  dialogue-admin token 8d0c6d3e-6b1f-4e0b-9a57-2f3f3f0e0c11 --perm dialogue.view_dialogue --ttl 1h`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringSliceVar(&tokenPerms, "perm",
		[]string{middleware.PermViewDialogue, middleware.PermAddDialogue}, "permissions to grant")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", args[0], err)
	}

	user, err := app.users.GetByID(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}

	token, err := app.tokens.GenerateAccessToken(user.ID, user.Username, tokenPerms, tokenTTL)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
