package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand prints the daemon and Web API versions.
func NewVersionCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the daemon version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := opts.connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			app, err := client.Application().Version(ctx)
			if err != nil {
				return err
			}
			if err := checkResult("version", app); err != nil {
				return err
			}
			api, err := client.Application().WebAPIVersion(ctx)
			if err != nil {
				return err
			}
			if err := checkResult("webapiVersion", api); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "qBittorrent %s (Web API %s)\n", app.Data(), api.Data())
			return nil
		},
	}
}
