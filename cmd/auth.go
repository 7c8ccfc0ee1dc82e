package cmd

import (
	"context"
	"fmt"

	"arenacli/internal/cli"

	"github.com/spf13/cobra"
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your Arena session",
	Long: `Log in with Discord, link a Discord account, inspect or end the
current session.

Examples:
  arena auth login                     # Log in with Discord in the browser
  arena auth link                      # Link Discord to the current account
  arena auth status                    # Show the session state
  arena auth whoami                    # Show the logged in user
  arena auth logout                    # End the session`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Long: `End the current session.

The stored token is removed right away; the server is told in the
background and a failure there does not keep you logged in.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogout,
}

// authWhoamiCmd represents the auth whoami command
var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	Args:  cobra.NoArgs,
	RunE:  runAuthWhoami,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLinkCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authWhoamiCmd)
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	// Close waits for the background server logout.
	defer app.Close()

	app.Session.Logout(cmd.Context())
	fmt.Fprintln(app.Out, cli.FormatSuccess("Logged out"))
	return nil
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, app *cli.App) error {
		user, err := app.Services.Auth.Me(ctx)
		if err != nil {
			return err
		}
		discord := user.DiscordID
		if discord == "" {
			discord = "not linked"
		}
		return app.Printer().Print(user,
			[]string{"id", "username", "display name", "discord"},
			[][]string{{user.ID, user.Username, user.DisplayName, discord}})
	})
}
