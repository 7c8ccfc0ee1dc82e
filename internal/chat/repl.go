package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/text"

	"arenacli/internal/apierror"
	"arenacli/internal/services"
	"arenacli/pkg/logging"
)

// DefaultPollInterval is how often new messages are fetched.
const DefaultPollInterval = 3 * time.Second

// errExit ends the loop without an error.
var errExit = errors.New("exit")

// Service is the part of services.ChatService the REPL needs.
type Service interface {
	Rooms(ctx context.Context) ([]services.ChatRoom, error)
	Join(ctx context.Context, roomID string) (*services.ChatRoom, error)
	Messages(ctx context.Context, roomID string, since time.Time) ([]services.ChatMessage, error)
	Send(ctx context.Context, roomID, content string) (*services.ChatMessage, error)
}

// Options tune a REPL.
type Options struct {
	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
	// SelfID marks the current user's messages.
	SelfID string
	// HistoryFile keeps input history between runs; empty disables it.
	HistoryFile string
	// OnActivity runs after every line the user enters.
	OnActivity func()
	// Stdin overrides the terminal, mostly for tests.
	Stdin io.ReadCloser
}

// REPL is an interactive chat prompt: lines are sent to the current room,
// lines starting with "/" are commands.
type REPL struct {
	svc  Service
	out  io.Writer
	opts Options

	mu    sync.Mutex
	room  *services.ChatRoom
	since time.Time
	seen  map[string]struct{}
	rl    *readline.Instance
}

// NewREPL creates a REPL writing to out.
func NewREPL(svc Service, out io.Writer, opts Options) *REPL {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &REPL{
		svc:  svc,
		out:  out,
		opts: opts,
		seen: make(map[string]struct{}),
	}
}

// DefaultHistoryFile returns the history path under dir.
func DefaultHistoryFile(dir string) string {
	return filepath.Join(dir, "chat_history")
}

// Room returns the room currently joined, if any.
func (r *REPL) Room() (services.ChatRoom, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.room == nil {
		return services.ChatRoom{}, false
	}
	return *r.room, true
}

// Join enters roomID and prints its recent messages.
func (r *REPL) Join(ctx context.Context, roomID string) error {
	room, err := r.svc.Join(ctx, roomID)
	if err != nil {
		return err
	}
	recent, err := r.svc.Messages(ctx, room.ID, time.Time{})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.room = room
	r.since = time.Time{}
	r.seen = make(map[string]struct{})
	r.mu.Unlock()

	r.printf("%s\n", text.FgCyan.Sprintf("Joined #%s (%d/%d)", room.Name, room.Members, room.MaxMembers))
	r.show(room.ID, recent)
	r.updatePrompt()
	return nil
}

// Poll fetches and prints messages newer than the last one shown.
func (r *REPL) Poll(ctx context.Context) error {
	r.mu.Lock()
	if r.room == nil {
		r.mu.Unlock()
		return nil
	}
	roomID, since := r.room.ID, r.since
	r.mu.Unlock()

	msgs, err := r.svc.Messages(ctx, roomID, since)
	if err != nil {
		return err
	}
	r.show(roomID, msgs)
	return nil
}

// Execute handles one input line.
func (r *REPL) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if r.opts.OnActivity != nil {
		r.opts.OnActivity()
	}

	if !strings.HasPrefix(line, "/") {
		return r.send(ctx, line)
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return errExit
	case "/help":
		r.printf("%s", helpText)
		return nil
	case "/rooms":
		return r.listRooms(ctx)
	case "/join":
		if len(fields) != 2 {
			return errors.New("usage: /join <room-id>")
		}
		return r.Join(ctx, fields[1])
	default:
		return fmt.Errorf("unknown command %s, try /help", fields[0])
	}
}

const helpText = `Commands:
  /rooms          list rooms
  /join <room>    switch room
  /help           show this help
  /quit           leave the chat
Anything else is sent to the current room.
`

func (r *REPL) send(ctx context.Context, content string) error {
	room, ok := r.Room()
	if !ok {
		return errors.New("not in a room, use /join <room-id>")
	}
	msg, err := r.svc.Send(ctx, room.ID, content)
	if err != nil {
		return err
	}
	r.show(room.ID, []services.ChatMessage{*msg})
	return nil
}

func (r *REPL) listRooms(ctx context.Context) error {
	rooms, err := r.svc.Rooms(ctx)
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		r.printf("No rooms.\n")
		return nil
	}
	for _, room := range rooms {
		r.printf("  %-20s %-24s %d/%d\n", room.ID, room.Name, room.Members, room.MaxMembers)
	}
	return nil
}

// show prints msgs once each, oldest first, if roomID is still current.
func (r *REPL) show(roomID string, msgs []services.ChatMessage) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].SentAt.Before(msgs[j].SentAt) })

	r.mu.Lock()
	if r.room == nil || r.room.ID != roomID {
		r.mu.Unlock()
		return
	}
	var fresh []services.ChatMessage
	for _, m := range msgs {
		if _, dup := r.seen[m.ID]; dup && m.ID != "" {
			continue
		}
		r.seen[m.ID] = struct{}{}
		if m.SentAt.After(r.since) {
			r.since = m.SentAt
		}
		fresh = append(fresh, m)
	}
	r.mu.Unlock()

	for _, m := range fresh {
		r.printf("%s\n", r.format(m))
	}
}

func (r *REPL) format(m services.ChatMessage) string {
	sender := text.FgYellow.Sprint(m.SenderID)
	if r.opts.SelfID != "" && m.SenderID == r.opts.SelfID {
		sender = text.FgGreen.Sprint("you")
	}
	return fmt.Sprintf("[%s] %s: %s", m.SentAt.Local().Format("15:04"), sender, m.Content)
}

func (r *REPL) printf(format string, args ...any) {
	r.mu.Lock()
	rl := r.rl
	r.mu.Unlock()
	if rl != nil {
		fmt.Fprintf(rl.Stdout(), format, args...)
		return
	}
	fmt.Fprintf(r.out, format, args...)
}

func (r *REPL) prompt() string {
	if room, ok := r.Room(); ok {
		return fmt.Sprintf("#%s> ", room.Name)
	}
	return "chat> "
}

func (r *REPL) updatePrompt() {
	r.mu.Lock()
	rl := r.rl
	r.mu.Unlock()
	if rl != nil {
		rl.SetPrompt(r.prompt())
		rl.Refresh()
	}
}

// Run reads lines until /quit, Ctrl-D or ctx is done, polling the room in
// the background.
func (r *REPL) Run(ctx context.Context) error {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("/rooms"),
		readline.PcItem("/join"),
		readline.PcItem("/help"),
		readline.PcItem("/quit"),
	)
	config := &readline.Config{
		Prompt:          r.prompt(),
		HistoryFile:     r.opts.HistoryFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
		Stdout:          r.out,
	}
	if r.opts.Stdin != nil {
		config.Stdin = r.opts.Stdin
	}
	rl, err := readline.NewEx(config)
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}

	r.mu.Lock()
	r.rl = rl
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.rl = nil
		r.mu.Unlock()
		_ = rl.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.pollLoop(ctx)
	}()

	// Readline blocks; closing the instance unblocks it on cancellation.
	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			// Ctrl-C drops the current line
			continue
		case errors.Is(err, io.EOF), ctx.Err() != nil:
			return nil
		case err != nil:
			return fmt.Errorf("readline error: %w", err)
		}

		if err := r.Execute(ctx, line); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			r.printf("%s\n", text.FgRed.Sprint(describe(err)))
		}
	}
}

func (r *REPL) pollLoop(ctx context.Context) {
	t := time.NewTicker(r.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := r.Poll(ctx); err != nil && ctx.Err() == nil {
				logging.Debug("Chat", "Polling messages failed: %v", err)
			}
		}
	}
}

func describe(err error) string {
	if apiErr, ok := apierror.As(err); ok {
		return apiErr.UserMessage()
	}
	return err.Error()
}
