package app

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	qbt "github.com/jfxdev/go-qbtapi"
	"github.com/spf13/cobra"
)

// NewCallCommand executes any request kind from key=value arguments.
func NewCallCommand(opts *GlobalOptions) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "call KIND [KEY=VALUE...]",
		Short: "Execute a raw Web API request",
		Long: `Execute any supported request and print the daemon's answer as JSON.

Lists such as hashes or urls are separated with "|".`,
		Example: `  qbtctl call --list
  qbtctl call torrents.info filter=seeding limit=5
  qbtctl call torrents.addTags hashes='abc...|def...' tags=linux`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				for _, k := range qbt.Kinds() {
					fmt.Fprintln(out, k)
				}
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("a request kind is required (see --list)")
			}

			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			req, err := qbt.BuildRequest(qbt.RequestKind(args[0]), params)
			if err != nil {
				return err
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
			if err := checkResult(args[0], res); err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := json.Indent(&buf, res.Data(), "", "  "); err != nil {
				return err
			}
			buf.WriteByte('\n')
			_, err = buf.WriteTo(out)
			return err
		},
	}
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list supported request kinds")
	return cmd
}

func parseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", arg)
		}
		params[key] = value
	}
	return params, nil
}
