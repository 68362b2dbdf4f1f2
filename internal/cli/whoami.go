package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"session-relay/internal/client/sessioncache"

	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in")

func newWhoamiCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity behind the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cached := a.cache.Resolve(cmd.Context())
			if cached.Status != sessioncache.StatusResolved {
				return errNotLoggedIn
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cached.Identity)
			}

			id := cached.Identity
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\n", id.DisplayName())
			fmt.Fprintf(w, "  id:    %s\n", id.ID)
			fmt.Fprintf(w, "  email: %s\n", id.Email)
			fmt.Fprintf(w, "  role:  %s\n", id.Role)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
