package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ukydev/aero-console/internal/config"
	"github.com/ukydev/aero-console/internal/confirm"
	"github.com/ukydev/aero-console/internal/session"
)

var errNotSignedIn = errors.New("not signed in; run aeroctl login first")

// cli holds the global flags and the session factory shared by every
// subcommand.
type cli struct {
	source   string
	logLevel string
	in       io.Reader

	// newApp overrides how sessions are opened.
	newApp func(ctx context.Context) (*session.App, func(), error)
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:          "aeroctl",
		Short:        "Operate the fleet from the command line",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.source, "source", "", "data source: live, mock or mqtt (default from AERO_DATA_SOURCE)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (default from AERO_LOG_LEVEL)")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.mockModeCmd(),
		c.watchCmd(),
		c.commandCmd(),
		c.missionsCmd(),
		c.actionsCmd(),
	)
	return root
}

// open builds and starts a session for one command run.
func (c *cli) open(ctx context.Context) (*session.App, func(), error) {
	if c.newApp != nil {
		return c.newApp(ctx)
	}
	cfg := config.Load()
	if c.source != "" {
		cfg.DataSource = c.source
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	logger := log.StandardLogger()
	if err := cfg.ConfigureLogger(logger); err != nil {
		return nil, nil, err
	}

	store, closeStore, err := session.OpenPersister(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	app, err := session.New(ctx, cfg, session.WithPersister(store), session.WithLogger(logger))
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	if err := app.Init(ctx); err != nil {
		closeStore()
		return nil, nil, err
	}
	return app, func() {
		app.Shutdown(context.Background())
		closeStore()
	}, nil
}

// openSignedIn opens a session and refreshes the fleet and mission stores.
func (c *cli) openSignedIn(ctx context.Context) (*session.App, func(), error) {
	app, closeFn, err := c.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !app.Session.Authenticated() {
		closeFn()
		return nil, nil, errNotSignedIn
	}
	if err := app.Refresh(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return app, closeFn, nil
}

// settle resolves a pending confirmation of kind: confirmed with --yes or an
// affirmative answer, cancelled otherwise. It reports whether the action ran.
func (c *cli) settle(cmd *cobra.Command, app *session.App, kind confirm.Kind, res confirm.Result, yes bool) (bool, error) {
	out := cmd.OutOrStdout()
	switch res.State {
	case confirm.StateDenied:
		return false, fmt.Errorf("not permitted for role %q", app.Session.Role())
	case confirm.StatePending:
	default:
		return true, nil
	}

	if !yes {
		marker := ""
		if res.Danger {
			marker = "[DANGER] "
		}
		fmt.Fprintf(out, "%s%s [y/N]: ", marker, res.Prompt)
		if !c.affirm() {
			app.Pipeline.Cancel(kind)
			fmt.Fprintln(out, "Cancelled")
			return false, nil
		}
	}
	_, err := app.Pipeline.Confirm(cmd.Context(), kind)
	return true, err
}

func (c *cli) affirm() bool {
	if c.in == nil {
		return false
	}
	line, _ := bufio.NewReader(c.in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// printToasts writes the session's pending notifications.
func printToasts(w io.Writer, app *session.App) {
	for _, t := range app.UI.Toasts() {
		fmt.Fprintf(w, "%s: %s\n", t.Title, t.Message)
		app.UI.RemoveToast(t.ID)
	}
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
