package cmd

import (
	"context"
	"fmt"

	"arenacli/internal/cli"
	"arenacli/internal/services"

	"github.com/spf13/cobra"
)

// tournamentsCmd represents the tournaments command group
var tournamentsCmd = &cobra.Command{
	Use:     "tournaments",
	Aliases: []string{"tournament", "t"},
	Short:   "Find and enter tournaments",
}

var tournamentFilter services.TournamentFilter

var tournamentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tournaments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, app *cli.App) error {
			page, err := app.Services.Tournaments.List(ctx, tournamentFilter)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(page.Items))
			for _, t := range page.Items {
				rows = append(rows, tournamentRow(t))
			}
			if err := app.Printer().Print(page, tournamentHeaders, rows); err != nil {
				return err
			}
			printPageFooter(app.Out, page, app.Flags.Quiet || app.Flags.OutputFormat != string(cli.OutputFormatTable))
			return nil
		})
	},
}

var tournamentsShowCmd = &cobra.Command{
	Use:   "show <tournament-id>",
	Short: "Show a tournament",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, app *cli.App) error {
			t, err := app.Services.Tournaments.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return app.Printer().Print(t, tournamentHeaders, [][]string{tournamentRow(*t)})
		})
	},
}

var tournamentsJoinCmd = &cobra.Command{
	Use:   "join <tournament-id>",
	Short: "Register for a tournament",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *cli.App) error {
			t, err := app.Services.Tournaments.Join(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, cli.FormatSuccess(fmt.Sprintf("Registered for %s (%d/%d)", t.Name, t.Participants, t.MaxParticipants)))
			return nil
		})
	},
}

var tournamentsLeaveCmd = &cobra.Command{
	Use:   "leave <tournament-id>",
	Short: "Withdraw from a tournament",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *cli.App) error {
			if err := app.Services.Tournaments.Leave(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, cli.FormatSuccess("Withdrawn"))
			return nil
		})
	},
}

var tournamentHeaders = []string{"id", "name", "game", "status", "players", "starts"}

func tournamentRow(t services.Tournament) []string {
	return []string{
		t.ID, cli.Truncate(t.Name, 40), t.Game, t.Status,
		fmt.Sprintf("%d/%d", t.Participants, t.MaxParticipants), formatTime(t.StartsAt),
	}
}

func init() {
	rootCmd.AddCommand(tournamentsCmd)
	tournamentsCmd.AddCommand(tournamentsListCmd, tournamentsShowCmd, tournamentsJoinCmd, tournamentsLeaveCmd)

	addPageFlags(tournamentsListCmd, &tournamentFilter.ListOptions)
	tournamentsListCmd.Flags().StringVar(&tournamentFilter.Game, "game", "", "Only tournaments for this game")
	tournamentsListCmd.Flags().StringVar(&tournamentFilter.Status, "status", "", "Only tournaments in this status (e.g. upcoming, live, finished)")
}
