package cmd

import (
	"context"
	"fmt"
	"strconv"

	"arenacli/internal/cli"
	"arenacli/internal/services"

	"github.com/spf13/cobra"
)

// eventsCmd represents the events command group
var eventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"event"},
	Short:   "Community events",
}

var eventsListOpts services.ListOptions

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List upcoming events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, app *cli.App) error {
			page, err := app.Services.Events.Upcoming(ctx, eventsListOpts)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(page.Items))
			for _, e := range page.Items {
				rows = append(rows, []string{
					e.ID, cli.Truncate(e.Title, 40), e.Location, formatTime(e.StartsAt), strconv.Itoa(e.Attendees),
				})
			}
			if err := app.Printer().Print(page, []string{"id", "title", "location", "starts", "attendees"}, rows); err != nil {
				return err
			}
			printPageFooter(app.Out, page, app.Flags.Quiet || app.Flags.OutputFormat != string(cli.OutputFormatTable))
			return nil
		})
	},
}

var eventsRSVPCmd = &cobra.Command{
	Use:       "rsvp <event-id> <going|maybe|declined>",
	Short:     "Reply to an event",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(services.RSVPGoing), string(services.RSVPMaybe), string(services.RSVPDeclined)},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *cli.App) error {
			if err := app.Services.Events.RSVP(ctx, args[0], services.RSVPStatus(args[1])); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, cli.FormatSuccess("RSVP saved: "+args[1]))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListCmd, eventsRSVPCmd)

	addPageFlags(eventsListCmd, &eventsListOpts)
}
