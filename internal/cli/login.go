package cli

import (
	"errors"
	"fmt"
	"os"

	"session-relay/internal/client/sessioncache"
	"session-relay/internal/domain"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in through the relay and keep the session cookie",
		Long: `Log in with an email and password. The password may also be given in
SESSIONCTL_PASSWORD to keep it out of shell history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("SESSIONCTL_PASSWORD")
			}
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}

			cached, err := a.cache.Login(cmd.Context(), email, password)
			if errors.Is(err, domain.ErrInvalidCredentials) {
				return errors.New("login rejected: invalid credentials")
			}
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := a.persist(); err != nil {
				return err
			}
			if cached.Status != sessioncache.StatusResolved {
				return errors.New("login accepted but the session could not be resolved")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", cached.Identity.Email, cached.Identity.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}
