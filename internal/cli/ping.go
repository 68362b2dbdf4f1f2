package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Ask the relay whether the identity service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.client.Ping(cmd.Context())
			if err != nil {
				return fmt.Errorf("relay: %w", err)
			}

			out := cmd.OutOrStdout()
			if !result.Reachable {
				fmt.Fprintln(out, "identity service unreachable")
				return fmt.Errorf("identity service unreachable: %s", result.Error)
			}
			fmt.Fprintf(out, "identity service reachable (status %d)\n", result.Status)
			return nil
		},
	}
}
