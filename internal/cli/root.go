// Package cli implements sessionctl, a terminal client for the edge relay.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"session-relay/internal/client/relayclient"
	"session-relay/internal/client/sessioncache"

	"github.com/spf13/cobra"
)

const (
	defaultRelayURL = "http://localhost:3001"
	defaultTimeout  = 10 * time.Second
)

// app holds the flags and clients shared by every subcommand.
type app struct {
	relayURL   string
	cookieFile string
	timeout    time.Duration
	verbose    bool

	logger  *slog.Logger
	client  *relayclient.Client
	cache   *sessioncache.Cache
	cookies *cookieFile
}

// Execute runs sessionctl with os.Args.
func Execute(ctx context.Context, version string) error {
	return newRootCmd(version).ExecuteContext(ctx)
}

func newRootCmd(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sessionctl",
		Short: "Session relay command-line client",
		Long: `sessionctl logs in through the edge relay and keeps the session cookie
in a local file, so later commands act as the same browser.

Example usage:
  sessionctl login --email user@example.com --password password
  sessionctl whoami
  sessionctl check --role ADMINISTRATOR
  sessionctl check --path /admin/books
  sessionctl logout`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.relayURL, "relay-url", envOr("SESSIONCTL_RELAY_URL", defaultRelayURL), "edge relay base URL")
	root.PersistentFlags().StringVar(&a.cookieFile, "cookie-file", envOr("SESSIONCTL_COOKIE_FILE", defaultCookiePath()), "where the session cookie is kept")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", defaultTimeout, "per-request timeout")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newLoginCmd(a),
		newWhoamiCmd(a),
		newCheckCmd(a),
		newPingCmd(a),
		newLogoutCmd(a),
	)
	return root
}

func (a *app) init(stderr io.Writer) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	client, err := relayclient.New(a.relayURL, a.timeout)
	if err != nil {
		return err
	}
	a.client = client

	a.cookies = &cookieFile{path: a.cookieFile}
	saved, err := a.cookies.Load()
	if err != nil {
		return fmt.Errorf("loading cookies: %w", err)
	}
	client.ImportCookies(saved)

	a.cache = sessioncache.New(client,
		sessioncache.WithLogger(a.logger),
		sessioncache.WithResolveTimeout(a.timeout))

	a.logger.Debug("client ready",
		"relay_url", a.relayURL,
		"cookie_file", a.cookieFile,
		"saved_cookies", len(saved))
	return nil
}

// persist writes the jar back to the cookie file.
func (a *app) persist() error {
	if err := a.cookies.Save(a.client.ExportCookies()); err != nil {
		return fmt.Errorf("saving cookies: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultCookiePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".sessionctl-cookies.json"
	}
	return filepath.Join(dir, "sessionctl", "cookies.json")
}
