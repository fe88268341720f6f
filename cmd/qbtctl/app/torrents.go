package app

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	qbt "github.com/jfxdev/go-qbtapi"
	"github.com/spf13/cobra"
)

// NewTorrentsCommand groups torrent management commands.
func NewTorrentsCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "torrents",
		Aliases: []string{"t"},
		Short:   "Manage torrents",
	}
	cmd.AddCommand(
		newTorrentsListCommand(opts),
		newTorrentsAddCommand(opts),
		newTorrentsActionCommand(opts, "pause", "Pause torrents", qbt.OpTorrentsPause),
		newTorrentsActionCommand(opts, "resume", "Resume torrents", qbt.OpTorrentsResume),
		newTorrentsActionCommand(opts, "stop", "Stop torrents (Web API 2.11+)", qbt.OpTorrentsStop),
		newTorrentsActionCommand(opts, "start", "Start torrents (Web API 2.11+)", qbt.OpTorrentsStart),
		newTorrentsActionCommand(opts, "recheck", "Recheck torrent data", qbt.OpTorrentsRecheck),
		newTorrentsDeleteCommand(opts),
	)
	return cmd
}

type torrentsListOptions struct {
	filter   string
	category string
	tag      string
	sort     string
	limit    int
}

func newTorrentsListCommand(opts *GlobalOptions) *cobra.Command {
	lo := &torrentsListOptions{}
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List torrents",
		Example: `  # Downloading torrents of the movies category
  qbtctl torrents ls --filter downloading --category movies`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := opts.connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			res, err := client.Torrents().List(ctx, qbt.ListOptions{
				Filter:   lo.filter,
				Category: lo.category,
				Tag:      lo.tag,
				Sort:     lo.sort,
				Limit:    lo.limit,
			})
			if err != nil {
				return err
			}
			if err := checkResult("list", res); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(res.Data()) == 0 {
				fmt.Fprintln(out, "No torrents.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "HASH\tNAME\tSTATE\tPROGRESS\tSIZE\tCATEGORY")
			for _, t := range res.Data() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.1f%%\t%s\t%s\n",
					t.Hash, t.Name, t.State, t.Progress*100, formatBytes(t.Size), t.Category)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&lo.filter, "filter", "f", "", "state filter (downloading, seeding, stopped, ...)")
	cmd.Flags().StringVar(&lo.category, "category", "", "only torrents of this category")
	cmd.Flags().StringVar(&lo.tag, "tag", "", "only torrents with this tag")
	cmd.Flags().StringVar(&lo.sort, "sort", "name", "sort field")
	cmd.Flags().IntVarP(&lo.limit, "limit", "n", 0, "maximum number of torrents")
	return cmd
}

type torrentsAddOptions struct {
	savePath string
	category string
	tags     []string
	paused   bool
	skip     bool
}

func newTorrentsAddCommand(opts *GlobalOptions) *cobra.Command {
	ao := &torrentsAddOptions{}
	cmd := &cobra.Command{
		Use:   "add SOURCE...",
		Short: "Add torrents from magnet links, URLs or .torrent files",
		Example: `  qbtctl torrents add 'magnet:?xt=urn:btih:...' --category linux
  qbtctl torrents add ./debian.torrent --paused`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := qbt.NewAddTorrentRequest()
			for _, src := range args {
				if strings.Contains(src, "://") || strings.HasPrefix(src, "magnet:") {
					req.URLs = append(req.URLs, src)
					continue
				}
				data, err := os.ReadFile(src)
				if err != nil {
					return err
				}
				req.AddFile(src, data)
			}
			req.SavePath = ao.savePath
			req.Category = ao.category
			req.Tags = ao.tags
			req.Paused = ao.paused
			req.SkipChecking = ao.skip

			ctx := cmd.Context()
			client, err := opts.connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			res, err := client.Torrents().Add(ctx, req)
			if err != nil {
				return err
			}
			if err := checkResult("add", res); err != nil {
				return err
			}
			for _, h := range req.InfoHashes() {
				fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", h)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ao.savePath, "savepath", "", "download directory")
	cmd.Flags().StringVar(&ao.category, "category", "", "category")
	cmd.Flags().StringSliceVar(&ao.tags, "tags", nil, "comma separated tags")
	cmd.Flags().BoolVar(&ao.paused, "paused", false, "add without starting")
	cmd.Flags().BoolVar(&ao.skip, "skip-checking", false, "skip hash checking")
	return cmd
}

func newTorrentsActionCommand(opts *GlobalOptions, use, short string, kind qbt.RequestKind) *cobra.Command {
	return &cobra.Command{
		Use:   use + " HASH...|all",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := qbt.NewTorrentsActionRequest(kind, args...)
			return runRequest(cmd, opts, req, use)
		},
	}
}

func newTorrentsDeleteCommand(opts *GlobalOptions) *cobra.Command {
	var deleteFiles bool
	cmd := &cobra.Command{
		Use:     "rm HASH...|all",
		Aliases: []string{"delete"},
		Short:   "Delete torrents",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, opts, qbt.NewDeleteTorrentsRequest(deleteFiles, args...), "delete")
		},
	}
	cmd.Flags().BoolVar(&deleteFiles, "files", false, "also delete downloaded data")
	return cmd
}

// runRequest validates req locally, prints its warnings and executes it.
func runRequest(cmd *cobra.Command, opts *GlobalOptions, req qbt.Request, what string) error {
	v := req.Validate()
	if !v.IsValid() {
		return qbt.NewValidationError(req, v)
	}
	for _, w := range v.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}

	ctx := cmd.Context()
	client, err := opts.connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	res, err := client.Execute(ctx, req)
	if err != nil {
		return err
	}
	return checkResult(what, res)
}
