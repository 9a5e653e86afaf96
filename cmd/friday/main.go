// Command friday is the command line front end of the assistant: it runs
// utterances locally, validates the skill catalog and manages taught
// expressions.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"friday/internal/app"
	"friday/internal/client"
	"friday/internal/config"
	"friday/internal/db"
	"friday/internal/logging"
	"friday/internal/skills"
)

var errNoDatabase = errors.New("db.dsn is not configured")

// cli carries state shared by every command.
type cli struct {
	configFile string
	serverURL  string
	cfg        *config.Config
	in         io.Reader
	out        io.Writer

	store *db.Store
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	c := &cli{in: in, out: out}

	root := &cobra.Command{
		Use:           "friday",
		Short:         "Talk to the assistant from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(c.configFile)
			if err != nil {
				return err
			}
			c.cfg = cfg
			logging.SetLevel(cfg.Log.Level)
			logging.GetLogger().SetOutput(cmd.ErrOrStderr())
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.store != nil {
				c.store.Close()
				c.store = nil
			}
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "path to config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&c.serverURL, "server", "", "talk to a running friday-server at this URL instead of running locally")

	root.AddCommand(
		newUnderstandCmd(c),
		newReplCmd(c),
		newValidateCmd(c),
		newExpressionsCmd(c),
	)
	return root
}

// remote returns a client for --server, or nil when running locally.
func (c *cli) remote() *client.Client {
	if c.serverURL == "" {
		return nil
	}
	return client.New(c.serverURL, c.cfg.ToolTimeout+10*time.Second)
}

// openStore connects to the configured database, or returns nil when none
// is configured and required is false.
func (c *cli) openStore(ctx context.Context, required bool) (*db.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	if c.cfg.DB.DSN == "" {
		if required {
			return nil, errNoDatabase
		}
		return nil, nil
	}
	store, err := db.New(ctx, c.cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	c.store = store
	return store, nil
}

// catalog builds the full catalog, taught expressions included when a
// database is configured. Remote skills cannot run from the command line.
func (c *cli) catalog(ctx context.Context) (*skills.Catalog, error) {
	store, err := c.openStore(ctx, false)
	if err != nil {
		return nil, err
	}
	var taught app.TaughtSource
	if store != nil {
		taught = store
	}
	return app.BuildCatalog(ctx, c.cfg, taught, nil, logging.GetLogger())
}
