package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"arenacli/internal/cli"
	"arenacli/internal/oauth"
	"arenacli/pkg/logging"

	"github.com/spf13/cobra"
)

// openBrowser is swapped out in tests.
var openBrowser = oauth.OpenBrowser

// loginHintDelay separates a failed flow from the hint to start over.
var loginHintDelay = 2 * time.Second

// Login-specific flags
var (
	loginNoBrowser bool
	loginReturnURL string
)

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with Discord",
	Long: `Log in with Discord.

A local callback listener is started and the Discord authorization page
opens in your browser. Once you approve, the backend issues a session token
which is validated and stored. With --return-url, that page is opened once
you are logged in.

Examples:
  arena auth login
  arena auth login --no-browser        # Print the URL instead of opening it
  arena auth login --return-url /tournaments/42`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiscordFlow(cmd, "login")
	},
}

// authLinkCmd represents the auth link command
var authLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link a Discord account to the current user",
	Long: `Link a Discord account to the account you are logged in with.

Requires an active session; the session token is kept as is.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiscordFlow(cmd, "link")
	},
}

func init() {
	for _, c := range []*cobra.Command{authLoginCmd, authLinkCmd} {
		c.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
		c.Flags().StringVar(&loginReturnURL, "return-url", "", "Page to open once the flow completes (relative paths use the API host)")
	}
}

func runDiscordFlow(cmd *cobra.Command, action string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if action == "link" {
		if err := app.RequireSession(ctx); err != nil {
			return err
		}
	}

	server := oauth.NewCallbackServer(app.Config.OAuth.CallbackPort, action)
	redirectURL, err := server.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start callback listener: %w", err)
	}
	defer server.Stop()

	flow, err := app.NewFlow(redirectURL)
	if err != nil {
		return err
	}
	authz, err := flow.Initiate(ctx, loginReturnURL)
	if err != nil {
		return err
	}

	if loginNoBrowser {
		fmt.Fprintf(app.Out, "Open this URL to continue with Discord:\n  %s\n", authz.URL)
	} else {
		app.Println("Opening your browser to continue with Discord...")
		if err := openBrowser(authz.URL); err != nil {
			logging.Warn("CLI", "Could not open browser: %v", err)
			fmt.Fprintf(app.Out, "Open this URL to continue with Discord:\n  %s\n", authz.URL)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, oauth.CallbackTimeout)
	defer cancel()

	var params oauth.CallbackParams
	err = app.Spin("Waiting for Discord", func() error {
		var err error
		params, err = server.WaitForCallback(waitCtx)
		return err
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("no response from the browser within %s", oauth.CallbackTimeout)
		}
		return loginFailed(ctx, app, &cli.AuthFailedError{Endpoint: app.Endpoint(), Reason: err})
	}

	if action == "link" {
		linked, err := flow.Link(ctx, params)
		if err != nil {
			return loginFailed(ctx, app, app.Translate(err))
		}
		fmt.Fprintln(app.Out, cli.FormatSuccess("Discord account linked to "+linked.User.Username))
		openReturnURL(app, linked.ReturnURL)
		return nil
	}

	sess, err := flow.Complete(ctx, params)
	if err != nil {
		return loginFailed(ctx, app, app.Translate(err))
	}
	name := "your account"
	if sess.User != nil {
		name = sess.User.Username
	}
	fmt.Fprintln(app.Out, cli.FormatSuccess("Logged in as "+name))
	openReturnURL(app, sess.ReturnURL)
	return nil
}

// loginFailed reports a failed flow right away and returns err, which
// carries the 'arena auth login' hint, after loginHintDelay.
func loginFailed(ctx context.Context, app *cli.App, err error) error {
	var failed *cli.AuthFailedError
	if !errors.As(err, &failed) {
		return err
	}
	if !app.Flags.Quiet {
		fmt.Fprintln(app.ErrOut, cli.FormatError(errors.New("Discord login did not complete")))
	}

	t := time.NewTimer(loginHintDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return err
}

// openReturnURL takes the user back to the page the flow started from.
func openReturnURL(app *cli.App, returnURL string) {
	if returnURL == "" {
		return
	}
	target, err := resolveReturnURL(app.Config.API.BaseURL, returnURL)
	if err != nil {
		logging.Warn("CLI", "Ignoring return URL %q: %v", returnURL, err)
		return
	}
	if loginNoBrowser {
		fmt.Fprintf(app.Out, "Continue at:\n  %s\n", target)
		return
	}
	if err := openBrowser(target); err != nil {
		logging.Warn("CLI", "Could not open browser: %v", err)
		fmt.Fprintf(app.Out, "Continue at:\n  %s\n", target)
	}
}

// resolveReturnURL makes a relative return URL absolute against the origin
// of baseURL. Absolute URLs must be http or https.
func resolveReturnURL(baseURL, returnURL string) (string, error) {
	ref, err := url.Parse(returnURL)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return "", fmt.Errorf("unsupported scheme %q", ref.Scheme)
		}
		return ref.String(), nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	origin := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"}
	return origin.ResolveReference(ref).String(), nil
}
