package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"arenacli/internal/apierror"
	"arenacli/internal/httpclient"
)

// MaxMessageLength is the longest chat message, in characters.
const MaxMessageLength = 2000

// ChatService reads and posts chat messages.
type ChatService struct {
	base
}

// Rooms lists the chat rooms visible to the user.
func (s *ChatService) Rooms(ctx context.Context) ([]ChatRoom, error) {
	return httpclient.Do[[]ChatRoom](ctx, s.client, "/chat/rooms", httpclient.RequestOptions{Retry: s.retry})
}

// Join enters a room. A full room comes back as CHAT_ROOM_FULL.
func (s *ChatService) Join(ctx context.Context, roomID string) (*ChatRoom, error) {
	room, err := httpclient.Do[ChatRoom](ctx, s.client, "/chat/rooms/"+url.PathEscape(roomID)+"/join", httpclient.RequestOptions{
		Method: http.MethodPost,
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Messages returns messages posted after since. A zero since returns the
// most recent page.
func (s *ChatService) Messages(ctx context.Context, roomID string, since time.Time) ([]ChatMessage, error) {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339Nano))
	}
	return httpclient.Do[[]ChatMessage](ctx, s.client, "/chat/rooms/"+url.PathEscape(roomID)+"/messages", httpclient.RequestOptions{
		Query: q,
		Retry: s.retry,
	})
}

// Send posts a message. The length limit is enforced locally and the
// generated client id lets the backend drop a replayed send.
func (s *ChatService) Send(ctx context.Context, roomID, content string) (*ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apierror.New(apierror.ValidationError, http.StatusBadRequest, "Message is empty",
			map[string]string{"content": "Message is empty"})
	}
	if n := utf8.RuneCountInString(content); n > MaxMessageLength {
		return nil, apierror.New(apierror.MessageTooLong, http.StatusBadRequest,
			fmt.Sprintf("Message is %d characters, the limit is %d", n, MaxMessageLength), nil)
	}

	msg, err := httpclient.Do[ChatMessage](ctx, s.client, "/chat/rooms/"+url.PathEscape(roomID)+"/messages", httpclient.RequestOptions{
		Method:     http.MethodPost,
		Body:       ChatMessage{ClientID: uuid.NewString(), RoomID: roomID, Content: content},
		Retry:      s.retry,
		Idempotent: boolPtr(true),
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
