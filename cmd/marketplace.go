package cmd

import (
	"context"
	"fmt"

	"arenacli/internal/cli"
	"arenacli/internal/services"

	"github.com/spf13/cobra"
)

// marketCmd represents the marketplace command group
var marketCmd = &cobra.Command{
	Use:     "market",
	Aliases: []string{"marketplace"},
	Short:   "Buy and sell on the community marketplace",
}

var (
	marketSearch   string
	marketListOpts services.ListOptions
	newListing     services.NewListing
)

var marketListCmd = &cobra.Command{
	Use:   "list",
	Short: "Browse listings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, app *cli.App) error {
			page, err := app.Services.Marketplace.Listings(ctx, marketSearch, marketListOpts)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(page.Items))
			for _, l := range page.Items {
				rows = append(rows, []string{l.ID, cli.Truncate(l.Title, 40), formatPrice(l.Price, l.Currency), l.Status, formatTime(l.CreatedAt)})
			}
			if err := app.Printer().Print(page, []string{"id", "title", "price", "status", "listed"}, rows); err != nil {
				return err
			}
			printPageFooter(app.Out, page, app.Flags.Quiet || app.Flags.OutputFormat != string(cli.OutputFormatTable))
			return nil
		})
	},
}

var marketSellCmd = &cobra.Command{
	Use:   "sell",
	Short: "Create a listing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *cli.App) error {
			if newListing.Title == "" {
				return fmt.Errorf("--title is required")
			}
			if newListing.Price <= 0 {
				return fmt.Errorf("--price must be greater than zero")
			}
			l, err := app.Services.Marketplace.CreateListing(ctx, newListing)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, cli.FormatSuccess(fmt.Sprintf("Listed %s for %s (%s)", l.Title, formatPrice(l.Price, l.Currency), l.ID)))
			return nil
		})
	},
}

var marketBuyCmd = &cobra.Command{
	Use:   "buy <listing-id>",
	Short: "Purchase a listing",
	Long: `Purchase a listing.

The request carries an idempotency key, so a retry after a dropped
connection never buys the item twice.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *cli.App) error {
			var p *services.Purchase
			err := app.Spin("Purchasing", func() error {
				var err error
				p, err = app.Services.Marketplace.Purchase(ctx, args[0])
				return err
			})
			if err != nil {
				return err
			}
			return app.Printer().Print(p, []string{"purchase", "listing", "status"}, [][]string{{p.ID, p.ListingID, p.Status}})
		})
	},
}

func init() {
	rootCmd.AddCommand(marketCmd)
	marketCmd.AddCommand(marketListCmd, marketSellCmd, marketBuyCmd)

	addPageFlags(marketListCmd, &marketListOpts)
	marketListCmd.Flags().StringVar(&marketSearch, "search", "", "Filter listings by text")

	marketSellCmd.Flags().StringVar(&newListing.Title, "title", "", "Listing title")
	marketSellCmd.Flags().StringVar(&newListing.Description, "description", "", "Listing description")
	marketSellCmd.Flags().Float64Var(&newListing.Price, "price", 0, "Asking price")
	marketSellCmd.Flags().StringVar(&newListing.Currency, "currency", "", "Currency code (default USD)")
}
