package services

import (
	"context"
	"net/http"
	"net/url"

	"arenacli/internal/httpclient"
)

// TournamentService lists tournaments and manages registrations.
type TournamentService struct {
	base
}

// TournamentFilter narrows a tournament listing.
type TournamentFilter struct {
	ListOptions
	Game   string
	Status string
}

// List returns tournaments matching f.
func (s *TournamentService) List(ctx context.Context, f TournamentFilter) (*Page[Tournament], error) {
	q := f.query()
	if f.Game != "" {
		q.Set("game", f.Game)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	page, err := httpclient.Do[Page[Tournament]](ctx, s.client, "/tournaments", httpclient.RequestOptions{
		Query: q,
		Retry: s.retry,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Get returns one tournament.
func (s *TournamentService) Get(ctx context.Context, id string) (*Tournament, error) {
	t, err := httpclient.Do[Tournament](ctx, s.client, "/tournaments/"+url.PathEscape(id), httpclient.RequestOptions{Retry: s.retry})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Join registers the current user. A second registration comes back as a
// conflict and is not retried.
func (s *TournamentService) Join(ctx context.Context, id string) (*Tournament, error) {
	t, err := httpclient.Do[Tournament](ctx, s.client, "/tournaments/"+url.PathEscape(id)+"/join", httpclient.RequestOptions{
		Method: http.MethodPost,
		Retry:  s.retry,
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Leave withdraws the current user.
func (s *TournamentService) Leave(ctx context.Context, id string) error {
	_, err := s.client.Request(ctx, "/tournaments/"+url.PathEscape(id)+"/join", httpclient.RequestOptions{
		Method: http.MethodDelete,
		Retry:  s.retry,
	})
	return err
}
