package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"arenacli/internal/cli"
	"arenacli/internal/services"

	"github.com/spf13/cobra"
)

// profileCmd represents the profile command group
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "View and edit profiles",
}

var profileShowCmd = &cobra.Command{
	Use:   "show [user-id]",
	Short: "Show a profile, yours by default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *cli.App) error {
			var (
				user *services.User
				err  error
			)
			if len(args) == 1 {
				user, err = app.Services.Profile.Get(ctx, args[0])
			} else {
				user, err = app.Services.Auth.Me(ctx)
			}
			if err != nil {
				return err
			}
			return printProfile(app, user)
		})
	},
}

var (
	profileDisplayName string
	profileBio         string
)

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change your display name or bio",
	Example: `  arena profile update --display-name "Ace"
  arena profile update --bio ""        # clear the bio`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var update services.ProfileUpdate
		if cmd.Flags().Changed("display-name") {
			update.DisplayName = &profileDisplayName
		}
		if cmd.Flags().Changed("bio") {
			update.Bio = &profileBio
		}
		if update.DisplayName == nil && update.Bio == nil {
			return errors.New("nothing to update, pass --display-name or --bio")
		}
		return withSession(cmd, func(ctx context.Context, app *cli.App) error {
			user, err := app.Services.Profile.Update(ctx, update)
			if err != nil {
				return err
			}
			return printProfile(app, user)
		})
	},
}

var profileAvatarCmd = &cobra.Command{
	Use:   "avatar <image>",
	Short: "Upload a new avatar",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *cli.App) error {
			// #nosec G304 -- the path is chosen by the user
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read avatar: %w", err)
			}
			var user *services.User
			err = app.Spin("Uploading avatar", func() error {
				var err error
				user, err = app.Services.Profile.UploadAvatar(ctx, args[0], content)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, cli.FormatSuccess("Avatar updated: "+user.AvatarURL))
			return nil
		})
	},
}

func printProfile(app *cli.App, u *services.User) error {
	return app.Printer().Print(u,
		[]string{"id", "username", "display name", "bio", "joined"},
		[][]string{{u.ID, u.Username, u.DisplayName, cli.Truncate(u.Bio, 50), formatTime(u.CreatedAt)}})
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileShowCmd, profileUpdateCmd, profileAvatarCmd)

	profileUpdateCmd.Flags().StringVar(&profileDisplayName, "display-name", "", "New display name")
	profileUpdateCmd.Flags().StringVar(&profileBio, "bio", "", "New bio")
}
