package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"arenacli/internal/chat"
	"arenacli/internal/cli"
	"arenacli/internal/session"

	"github.com/spf13/cobra"
)

// chatCmd represents the chat command group
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk in community chat rooms",
}

var chatRoomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List chat rooms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *cli.App) error {
			rooms, err := app.Services.Chat.Rooms(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(rooms))
			for _, r := range rooms {
				rows = append(rows, []string{r.ID, r.Name, strconv.Itoa(r.Members) + "/" + strconv.Itoa(r.MaxMembers)})
			}
			return app.Printer().Print(rooms, []string{"id", "name", "members"}, rows)
		})
	},
}

var chatSendCmd = &cobra.Command{
	Use:   "send <room-id> <message...>",
	Short: "Send one message to a room",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, app *cli.App) error {
			msg, err := app.Services.Chat.Send(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			app.Println("%s", cli.FormatSuccess("Sent "+msg.ID))
			return nil
		})
	},
}

var chatJoinCmd = &cobra.Command{
	Use:   "join <room-id>",
	Short: "Join a room and chat interactively",
	Long: `Join a room and chat interactively.

Lines you type are sent to the room; new messages appear as they arrive.
Type /help for the available commands and /quit (or Ctrl-D) to leave.
Typing counts as activity, so the session stays open while you chat.`,
	Args: cobra.ExactArgs(1),
	RunE: runChatJoin,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.AddCommand(chatRoomsCmd, chatSendCmd, chatJoinCmd)
}

func runChatJoin(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	expired := make(chan session.Expiration, 1)
	unsubscribe := app.Session.OnExpired(func(e session.Expiration) {
		select {
		case expired <- e:
		default:
		}
		cancel()
	})
	defer unsubscribe()

	if err := app.RequireSession(ctx); err != nil {
		return err
	}

	opts := chat.Options{
		SelfID: app.Session.Status().UserID,
		OnActivity: func() {
			app.Session.RecordActivity(session.ActivityKey)
		},
	}
	if app.Files != nil {
		opts.HistoryFile = chat.DefaultHistoryFile(app.Files.Dir())
	}
	repl := chat.NewREPL(app.Services.Chat, app.Out, opts)

	if err := repl.Join(ctx, args[0]); err != nil {
		return app.Translate(err)
	}
	if err := repl.Run(ctx); err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	select {
	case e := <-expired:
		return &cli.AuthExpiredError{Endpoint: app.Endpoint(), Reason: e.Reason}
	default:
		return nil
	}
}
