package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"arenacli/internal/httpclient"
)

// EventService covers community events and RSVPs.
type EventService struct {
	base
}

// Upcoming lists events that have not started yet.
func (s *EventService) Upcoming(ctx context.Context, opts ListOptions) (*Page[Event], error) {
	q := opts.query()
	q.Set("upcoming", "true")
	page, err := httpclient.Do[Page[Event]](ctx, s.client, "/events", httpclient.RequestOptions{
		Query: q,
		Retry: s.retry,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// RSVP records the user's reply. Setting the same status twice has the same
// effect, so PUT is used and retried.
func (s *EventService) RSVP(ctx context.Context, id string, status RSVPStatus) error {
	switch status {
	case RSVPGoing, RSVPMaybe, RSVPDeclined:
	default:
		return fmt.Errorf("unknown RSVP status %q", status)
	}
	_, err := s.client.Request(ctx, "/events/"+url.PathEscape(id)+"/rsvp", httpclient.RequestOptions{
		Method: http.MethodPut,
		Body:   map[string]RSVPStatus{"status": status},
		Retry:  s.retry,
	})
	return err
}
