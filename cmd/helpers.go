package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"arenacli/internal/services"

	"github.com/spf13/cobra"
)

// addPageFlags registers --page and --limit on cmd.
func addPageFlags(cmd *cobra.Command, opts *services.ListOptions) {
	cmd.Flags().IntVar(&opts.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&opts.PageSize, "limit", 20, "Items per page")
}

// printPageFooter tells table readers there is more to fetch.
func printPageFooter[T any](w io.Writer, page *services.Page[T], quiet bool) {
	if quiet || page == nil || !page.HasMore {
		return
	}
	fmt.Fprintf(w, "\nShowing page %d (%d of %d). Use --page %d for more.\n",
		page.Page, len(page.Items), page.Total, page.Page+1)
}

// formatTime renders t for table output; zero times stay blank.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatPrice(amount float64, currency string) string {
	return strconv.FormatFloat(amount, 'f', 2, 64) + " " + currency
}
