package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"dialogue-backend/internal/models"
)

var userID string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage local users",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a local user",
	Long: `Create a local user record that dialogues can belong to.

Use --id to mirror a user id issued by the identity service.

Examples:
  dialogue-admin user add alice
  dialogue-admin user add bob --id 8d0c6d3e-6b1f-4e0b-9a57-2f3f3f0e0c11`,
	Args: cobra.ExactArgs(1),
	RunE: runUserAdd,
}

func init() {
	userAddCmd.Flags().StringVar(&userID, "id", "", "user id (generated when empty)")
	userCmd.AddCommand(userAddCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	user := &models.User{Username: args[0]}
	if userID != "" {
		id, err := uuid.Parse(userID)
		if err != nil {
			return fmt.Errorf("invalid --id %q: %w", userID, err)
		}
		user.ID = id
	}

	if err := app.users.Create(cmd.Context(), user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created user: %s (%s)\n", user.Username, user.ID)
	return nil
}
