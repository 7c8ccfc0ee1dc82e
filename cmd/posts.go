package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"arenacli/internal/cli"
	"arenacli/internal/httpclient"
	"arenacli/internal/services"

	"github.com/spf13/cobra"
)

// postsCmd represents the posts command group
var postsCmd = &cobra.Command{
	Use:     "posts",
	Aliases: []string{"post", "feed"},
	Short:   "Browse and publish community posts",
}

var postsListOpts services.ListOptions

var postsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the community feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, app *cli.App) error {
			page, err := app.Services.Posts.List(ctx, postsListOpts)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(page.Items))
			for _, p := range page.Items {
				author := p.AuthorID
				if p.Author != nil {
					author = p.Author.Username
				}
				rows = append(rows, []string{
					p.ID, cli.Truncate(p.Title, 40), author,
					strconv.Itoa(p.Likes), strconv.Itoa(p.Comments), formatTime(p.CreatedAt),
				})
			}
			if err := app.Printer().Print(page, []string{"id", "title", "author", "likes", "comments", "created"}, rows); err != nil {
				return err
			}
			printPageFooter(app.Out, page, app.Flags.Quiet || app.Flags.OutputFormat != string(cli.OutputFormatTable))
			return nil
		})
	},
}

var postsShowCmd = &cobra.Command{
	Use:   "show <post-id>",
	Short: "Show a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, app *cli.App) error {
			p, err := app.Services.Posts.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return app.Printer().Print(p,
				[]string{"id", "title", "content", "likes", "media"},
				[][]string{{p.ID, p.Title, cli.Truncate(p.Content, 60), strconv.Itoa(p.Likes), strconv.Itoa(len(p.MediaURLs))}})
		})
	},
}

var (
	newPost    services.NewPost
	postFiles  []string
	postMedias []string
)

var postsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Publish a post",
	Long: `Publish a post to the community feed.

A title is required, plus content or at least one attachment. Files given
with --file are uploaded with the post; --media references media that was
uploaded before with "arena media upload".

Examples:
  arena posts create --title "GG" --content "What a match"
  arena posts create --title "Clip" --file ./clip.mp4`,
	Args: cobra.NoArgs,
	RunE: runPostsCreate,
}

var postsDeleteCmd = &cobra.Command{
	Use:   "delete <post-id>",
	Short: "Delete one of your posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *cli.App) error {
			if err := app.Services.Posts.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, cli.FormatSuccess("Post deleted"))
			return nil
		})
	},
}

var postsLikeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Toggle your like on a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *cli.App) error {
			p, err := app.Services.Posts.Like(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, cli.FormatSuccess(fmt.Sprintf("%s now has %d likes", p.ID, p.Likes)))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(postsCmd)
	postsCmd.AddCommand(postsListCmd, postsShowCmd, postsCreateCmd, postsDeleteCmd, postsLikeCmd)

	addPageFlags(postsListCmd, &postsListOpts)

	postsCreateCmd.Flags().StringVar(&newPost.Title, "title", "", "Post title")
	postsCreateCmd.Flags().StringVar(&newPost.Content, "content", "", "Post body")
	postsCreateCmd.Flags().StringVar(&newPost.GameTitle, "game", "", "Game the post is about")
	postsCreateCmd.Flags().StringArrayVar(&postFiles, "file", nil, "File to attach (repeatable)")
	postsCreateCmd.Flags().StringArrayVar(&postMedias, "media", nil, "ID of previously uploaded media (repeatable)")
}

func runPostsCreate(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, app *cli.App) error {
		post := newPost
		post.MediaIDs = postMedias

		parts := make([]httpclient.FilePart, 0, len(postFiles))
		for _, path := range postFiles {
			// #nosec G304 -- the path is chosen by the user
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open attachment: %w", err)
			}
			defer f.Close()

			head := make([]byte, 512)
			n, _ := f.Read(head)
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("failed to read attachment: %w", err)
			}
			parts = append(parts, httpclient.FilePart{
				FileName:    filepath.Base(path),
				ContentType: services.DetectContentType(path, head[:n]),
				Content:     f,
			})
		}

		var created *services.Post
		err := app.Spin("Publishing post", func() error {
			var err error
			created, err = app.Services.Posts.Create(ctx, post, parts...)
			return err
		})
		if err != nil {
			return err
		}
		if cli.OutputFormat(app.Flags.OutputFormat) != cli.OutputFormatTable {
			return app.Printer().Print(created, nil, nil)
		}
		fmt.Fprintln(app.Out, cli.FormatSuccess("Published post "+created.ID))
		return nil
	})
}
