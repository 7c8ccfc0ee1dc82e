package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arenacli/internal/cli"
	"arenacli/internal/session"

	"github.com/spf13/cobra"
)

// sessionCmd represents the session command group
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Observe the session lifecycle",
}

// sessionWatchCmd represents the session watch command
var sessionWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the session alive and report when it ends",
	Long: `Keep the session open in the foreground.

The token is revalidated periodically and the session expires after the
configured inactivity timeout. A logout from another arena process is
picked up from the state directory. The command exits with code 2 once the
session ends, or cleanly on Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runSessionWatch,
}

// watchActivity makes the watch count as user activity.
var watchActivity bool

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionWatchCmd)

	sessionWatchCmd.Flags().BoolVar(&watchActivity, "keep-alive", false, "Record activity once a minute so the session does not idle out")
}

func runSessionWatch(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Files == nil {
		return errors.New("session watch needs the state directory, drop --ephemeral")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	expired := make(chan session.Expiration, 1)
	unsubscribe := app.Session.OnExpired(func(e session.Expiration) {
		select {
		case expired <- e:
		default:
		}
	})
	defer unsubscribe()

	if err := app.RequireSession(ctx); err != nil {
		return err
	}
	if err := app.Session.WatchExternal(ctx, app.Files); err != nil {
		return fmt.Errorf("failed to watch the state directory: %w", err)
	}

	st := app.Session.Status()
	app.Println("%s", cli.FormatSuccess(fmt.Sprintf("Session active for %s, watching (Ctrl-C to stop)", st.Username)))

	var keepAlive <-chan time.Time
	if watchActivity {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		keepAlive = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-keepAlive:
			app.Session.RecordActivity(session.ActivityKey)
		case e := <-expired:
			fmt.Fprintln(app.ErrOut, cli.FormatWarning(fmt.Sprintf("Session ended at %s: %s", e.At.Format(time.Kitchen), e.Reason)))
			return &cli.AuthExpiredError{Endpoint: app.Endpoint(), Reason: e.Reason}
		}
	}
}
