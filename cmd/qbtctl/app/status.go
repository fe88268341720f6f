package app

import (
	"fmt"
	"text/tabwriter"

	qbt "github.com/jfxdev/go-qbtapi"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStatusCommand summarizes the daemon: version, transfer state and
// torrent counts, fetched concurrently.
func NewStatusCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show transfer and torrent summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := opts.connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			var (
				version  *qbt.VersionResponse
				info     *qbt.TransferInfoResponse
				alt      *qbt.SpeedLimitsModeResponse
				torrents *qbt.TorrentListResponse
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				version, err = client.Application().Version(gctx)
				return err
			})
			g.Go(func() (err error) {
				info, err = client.Transfer().Info(gctx)
				return err
			})
			g.Go(func() (err error) {
				alt, err = client.Transfer().SpeedLimitsMode(gctx)
				return err
			})
			g.Go(func() (err error) {
				torrents, err = client.Torrents().List(gctx, qbt.ListOptions{})
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			for name, res := range map[string]qbt.Response{"version": version, "transfer": info, "speed mode": alt, "torrents": torrents} {
				if err := checkResult(name, res); err != nil {
					return err
				}
			}

			states := map[string]int{}
			for _, t := range torrents.Data() {
				states[t.State]++
			}
			mode := "global"
			if alt.Data() {
				mode = "alternative"
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Version:\t%s\n", version.Data())
			fmt.Fprintf(w, "Connection:\t%s (%d DHT nodes)\n", info.Data().ConnectionStatus, info.Data().DhtNodes)
			fmt.Fprintf(w, "Download:\t%s/s (limit %s)\n", formatBytes(info.Data().DlInfoSpeed), formatLimit(info.Data().DlRateLimit))
			fmt.Fprintf(w, "Upload:\t%s/s (limit %s)\n", formatBytes(info.Data().UpInfoSpeed), formatLimit(info.Data().UpRateLimit))
			fmt.Fprintf(w, "Speed limits:\t%s\n", mode)
			fmt.Fprintf(w, "Torrents:\t%d\n", len(torrents.Data()))
			for _, state := range sortedStates(states) {
				fmt.Fprintf(w, "  %s:\t%d\n", state, states[state])
			}
			return w.Flush()
		},
	}
}
