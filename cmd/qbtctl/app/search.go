package app

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	qbt "github.com/jfxdev/go-qbtapi"
	"github.com/spf13/cobra"
)

type searchOptions struct {
	plugins  []string
	category string
	wait     time.Duration
	interval time.Duration
	limit    int
}

// NewSearchCommand runs a search job to completion and prints its hits.
func NewSearchCommand(opts *GlobalOptions) *cobra.Command {
	so := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search PATTERN",
		Short: "Search torrents with the daemon's search plugins",
		Example: `  qbtctl search "debian netinst" --category software --limit 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := qbt.NewSearchStartRequest(args[0], so.plugins...)
			if so.category != "" {
				req.Category = so.category
			}

			ctx := cmd.Context()
			client, err := opts.connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			started, err := client.Search().Start(ctx, req)
			if err != nil {
				return err
			}
			if err := checkResult("search", started); err != nil {
				return err
			}
			id := started.Data()
			defer client.Search().Delete(context.WithoutCancel(ctx), id)

			if err := waitSearch(ctx, client, id, so.wait, so.interval); err != nil {
				return err
			}

			res, err := client.Search().Results(ctx, id, so.limit, 0)
			if err != nil {
				return err
			}
			if err := checkResult("results", res); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			hits := res.Data()
			if len(hits.Results) == 0 {
				fmt.Fprintln(out, "No results.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tSEEDS\tLEECHERS\tSITE")
			for _, r := range hits.Results {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", r.FileName, formatBytes(r.FileSize), r.NbSeeders, r.NbLeechers, r.SiteURL)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d of %d results\n", len(hits.Results), hits.Total)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&so.plugins, "plugins", nil, "plugins to use (default: all enabled)")
	cmd.Flags().StringVar(&so.category, "category", "", "search category (default: all)")
	cmd.Flags().DurationVar(&so.wait, "wait", 30*time.Second, "how long to wait for the job")
	cmd.Flags().DurationVar(&so.interval, "interval", time.Second, "status polling interval")
	cmd.Flags().IntVarP(&so.limit, "limit", "n", 20, "maximum number of results (0 for all)")
	return cmd
}

// waitSearch polls the job until it stops running or wait elapses. A job
// still running after wait is stopped so its partial results can be read.
func waitSearch(ctx context.Context, client *qbt.Client, id int, wait, interval time.Duration) error {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		res, err := client.Search().Status(ctx, id)
		if err != nil {
			return err
		}
		if err := checkResult("search status", res); err != nil {
			return err
		}
		jobs := res.Data()
		if len(jobs) == 0 || !jobs[0].IsRunning() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			stopped, err := client.Search().Stop(ctx, id)
			if err != nil {
				return err
			}
			return checkResult("search stop", stopped)
		case <-tick.C:
		}
	}
}
