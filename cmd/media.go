package cmd

import (
	"context"
	"fmt"
	"os"

	"arenacli/internal/cli"
	"arenacli/internal/services"

	"github.com/spf13/cobra"
)

// mediaCmd represents the media command group
var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Upload and manage your media",
}

var mediaCaption string

var mediaUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload an image or video",
	Long: `Upload an image or video.

Accepted types are JPEG, PNG, GIF, WebP, MP4 and WebM up to 50 MiB; other
files are rejected before anything is sent.`,
	Args: cobra.ExactArgs(1),
	RunE: runMediaUpload,
}

var mediaListOpts services.ListOptions

var mediaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your uploads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *cli.App) error {
			page, err := app.Services.Media.List(ctx, mediaListOpts)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(page.Items))
			for _, m := range page.Items {
				rows = append(rows, []string{m.ID, m.FileName, m.ContentType, formatSize(m.Size), formatTime(m.UploadedAt)})
			}
			if err := app.Printer().Print(page, []string{"id", "file", "type", "size", "uploaded"}, rows); err != nil {
				return err
			}
			printPageFooter(app.Out, page, app.Flags.Quiet || app.Flags.OutputFormat != string(cli.OutputFormatTable))
			return nil
		})
	},
}

var mediaDeleteCmd = &cobra.Command{
	Use:   "delete <media-id>",
	Short: "Delete an upload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *cli.App) error {
			if err := app.Services.Media.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, cli.FormatSuccess("Media deleted"))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(mediaCmd)
	mediaCmd.AddCommand(mediaUploadCmd, mediaListCmd, mediaDeleteCmd)

	mediaUploadCmd.Flags().StringVar(&mediaCaption, "caption", "", "Caption shown with the upload")
	addPageFlags(mediaListCmd, &mediaListOpts)
}

func runMediaUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	return withSession(cmd, func(ctx context.Context, app *cli.App) error {
		// #nosec G304 -- the path is chosen by the user
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}

		var m *services.Media
		err = app.Spin(fmt.Sprintf("Uploading %s (%s)", info.Name(), formatSize(info.Size())), func() error {
			var err error
			m, err = app.Services.Media.Upload(ctx, path, f, info.Size(), mediaCaption)
			return err
		})
		if err != nil {
			return err
		}
		return app.Printer().Print(m, []string{"id", "url", "type", "size"},
			[][]string{{m.ID, m.URL, m.ContentType, formatSize(m.Size)}})
	})
}

// formatSize renders a byte count with a binary unit.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
