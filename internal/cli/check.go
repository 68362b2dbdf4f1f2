package cli

import (
	"errors"
	"fmt"
	"strings"

	"session-relay/internal/client/guard"
	"session-relay/internal/domain"

	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	var role, path string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Decide whether the saved session may open a view",
		Long: `Resolve the saved session and apply an access policy, either a bare
--role or the policy of a front-end --path. Exits non-zero when the guard
would redirect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, protected, err := checkPolicy(role, path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !protected {
				fmt.Fprintf(out, "allow (%s is public)\n", path)
				return nil
			}

			ctx := cmd.Context()
			go a.cache.Resolve(ctx)
			res, err := guard.Await(ctx, a.cache, policy)
			if err != nil {
				return err
			}

			switch res.Decision {
			case guard.Allow:
				fmt.Fprintln(out, "allow")
				return nil
			case guard.Redirect:
				fmt.Fprintf(out, "redirect %s\n", res.RedirectTo)
				return fmt.Errorf("access denied, redirect to %s", res.RedirectTo)
			default:
				return errors.New("identity still unresolved")
			}
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "required role (REGULAR or ADMINISTRATOR)")
	cmd.Flags().StringVar(&path, "path", "", "front-end view path to check")
	cmd.MarkFlagsMutuallyExclusive("role", "path")
	return cmd
}

func checkPolicy(role, path string) (guard.Policy, bool, error) {
	switch {
	case path != "":
		p, ok := guard.NewDefault().PolicyFor(path)
		return p, ok, nil
	case role != "":
		if !isKnownRole(role) {
			return guard.Policy{}, false, fmt.Errorf("unknown role %q", role)
		}
		return guard.Policy{RequiredRole: domain.ParseRole(role), RedirectTo: guard.DefaultRedirect}, true, nil
	default:
		return guard.Policy{}, false, errors.New("one of --role or --path is required")
	}
}

func isKnownRole(role string) bool {
	switch strings.ToUpper(role) {
	case "REGULAR", "ADMIN", "ADMINISTRATOR":
		return true
	}
	return false
}
