package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"arenacli/internal/cli"
	"arenacli/internal/session"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates there is no session or it expired.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the Discord flow failed.
	ExitCodeAuthFailed = 3
)

// globalFlags are shared by every subcommand.
var globalFlags cli.CommandFlags

// rootCmd represents the base command for the arena application.
var rootCmd = &cobra.Command{
	Use:   "arena",
	Short: "Command line client for the Arena gaming community",
	Long: `arena talks to the Arena community API: log in with Discord, browse
the feed, upload media, join tournaments, RSVP to events, trade on the
marketplace and chat.

The session is kept under the configuration directory and expires after a
period of inactivity.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	// Errors are printed by Execute so API errors show their user message.
	SilenceErrors: true,
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a code matching the error.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "arena version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(errors.New(cli.Describe(err))))
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authExpired *cli.AuthExpiredError
	if errors.As(err, &authExpired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

// newApp builds the client stack for cmd from the global flags. Without an
// explicit --output the selected context may choose the format.
func newApp(cmd *cobra.Command) (*cli.App, error) {
	flags := globalFlags
	if f := cmd.Flags().Lookup("output"); f != nil && !f.Changed {
		flags.OutputFormat = ""
	}
	return cli.NewApp(flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// withSession runs fn with a restored, active session. Running a command
// counts as user activity.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, app *cli.App) error) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if err := app.RequireSession(ctx); err != nil {
		return err
	}
	app.Session.RecordActivity(session.ActivityKey)
	return app.Translate(fn(ctx, app))
}

// withClient runs fn without requiring a session. A stored session is still
// restored so its token is sent when present.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, app *cli.App) error) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if _, err := app.Session.Start(ctx); err != nil {
		return app.Translate(err)
	}
	return app.Translate(fn(ctx, app))
}

func init() {
	cli.RegisterCommonFlags(rootCmd, &globalFlags)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
