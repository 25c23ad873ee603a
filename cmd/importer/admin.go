package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/foodgram-dev/foodgram/backend/internal/apperr"
	"github.com/foodgram-dev/foodgram/backend/internal/service"
	"github.com/foodgram-dev/foodgram/backend/internal/types"
)

var admin types.RegisterRequest

// createAdminCmd registers an administrator, or promotes an existing
// account with the same email
var createAdminCmd = &cobra.Command{
	Use:   "createadmin",
	Short: "Create or promote an administrator account",
	Long: `Create an administrator account. When the email is already
registered the existing account is promoted instead.

Examples:
  importer createadmin --email admin@example.com --username admin --password s3cret-pass`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if admin.Email == "" || admin.Username == "" || len(admin.Password) < 8 {
			return errors.New("--email, --username and a --password of at least 8 characters are required")
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		// Tokens are never issued here, so the secret is irrelevant.
		auth := service.NewAuthService(db, "unused", time.Hour)

		user, err := auth.Register(cmd.Context(), &admin)
		var appErr *apperr.Error
		switch {
		case err == nil:
		case errors.As(err, &appErr) && appErr.Kind == apperr.KindConflict && appErr.Field == "email":
			user, err = auth.GetUserByEmail(cmd.Context(), admin.Email)
			if err != nil {
				return err
			}
		default:
			return err
		}

		if err := auth.GrantAdmin(cmd.Context(), user.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is an administrator\n", user.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createAdminCmd)

	createAdminCmd.Flags().StringVar(&admin.Email, "email", "", "Administrator email")
	createAdminCmd.Flags().StringVar(&admin.Username, "username", "", "Administrator username")
	createAdminCmd.Flags().StringVar(&admin.Password, "password", "", "Administrator password")
	createAdminCmd.Flags().StringVar(&admin.FirstName, "first-name", "Admin", "First name")
	createAdminCmd.Flags().StringVar(&admin.LastName, "last-name", "Admin", "Last name")
}
