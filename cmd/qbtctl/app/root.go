// Package app implements the qbtctl commands.
//
// Settings come from the JSON file given with --config, or else from the
// QBITTORRENT_* environment variables. Flags override both.
package app

import (
	"context"
	"fmt"
	"time"

	qbt "github.com/jfxdev/go-qbtapi"
	"github.com/jfxdev/go-qbtapi/internal/logger"
	"github.com/spf13/cobra"
)

const cliName = "qbtctl"

// GlobalOptions holds flags shared by every command.
type GlobalOptions struct {
	ConfigFile string
	BaseURL    string
	Username   string
	Password   string
	Timeout    time.Duration
	Insecure   bool
	Verbose    bool
}

// NewRootCommand creates the qbtctl command with all subcommands.
func NewRootCommand() *cobra.Command {
	opts := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:   cliName,
		Short: "qbtctl - command line client for the qBittorrent Web API",
		Long: `qbtctl talks to a qBittorrent daemon through its Web API.

Connection settings come from a JSON config file (--config) or, without
one, from QBITTORRENT_* environment variables. Flags override both.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "JSON config file")
	flags.StringVar(&opts.BaseURL, "url", "", "daemon address (e.g. http://localhost:8080)")
	flags.StringVarP(&opts.Username, "username", "u", "", "Web UI username")
	flags.StringVarP(&opts.Password, "password", "p", "", "Web UI password")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "request timeout (default 30s)")
	flags.BoolVarP(&opts.Insecure, "insecure", "k", false, "skip TLS certificate verification")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log every exchange")

	cmd.AddCommand(
		NewLoginCommand(opts),
		NewVersionCommand(opts),
		NewStatusCommand(opts),
		NewTorrentsCommand(opts),
		NewSearchCommand(opts),
		NewCallCommand(opts),
	)
	return cmd
}

func (o *GlobalOptions) config(cmd *cobra.Command) (qbt.Config, error) {
	var (
		cfg qbt.Config
		err error
	)
	if o.ConfigFile != "" {
		cfg, err = qbt.LoadConfigFile(o.ConfigFile)
	} else {
		cfg, err = qbt.ConfigFromEnv(qbt.DefaultEnvPrefix)
	}
	if err != nil {
		return qbt.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.BaseURL = o.BaseURL
	}
	if flags.Changed("username") {
		cfg.Username = o.Username
	}
	if flags.Changed("password") {
		cfg.Password = o.Password
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout = o.Timeout
	}
	if flags.Changed("insecure") {
		cfg.InsecureSkipVerify = o.Insecure
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	return cfg, nil
}

// connect builds a client and logs in. The caller must Close it.
func (o *GlobalOptions) connect(ctx context.Context, cmd *cobra.Command) (*qbt.Client, error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, err
	}

	level := "warn"
	if o.Verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Prefix: cliName, Level: level, Output: cmd.ErrOrStderr(), File: cfg.LogFile})
	if err != nil {
		return nil, err
	}

	client, err := qbt.New(cfg, qbt.WithLogger(log))
	if err != nil {
		return nil, err
	}
	res, err := client.Login(ctx)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("login to %s: %w", cfg.BaseURL, err)
	}
	return client, nil
}

// checkResult turns a failed response into an error.
func checkResult(what string, res qbt.Response) error {
	if res.IsSuccess() {
		return nil
	}
	return fmt.Errorf("%s failed (status %d): %v", what, res.StatusCode(), res.Errors())
}
