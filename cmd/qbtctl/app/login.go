package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewLoginCommand checks the configured credentials against the daemon.
func NewLoginCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify the connection settings and credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := opts.connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			auth := client.Auth()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s (session valid for %s)\n",
				client.Config().BaseURL, auth.Username(), auth.RemainingSessionTime().Round(time.Minute))
			return nil
		},
	}
}
