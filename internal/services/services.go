package services

import (
	"net/url"
	"strconv"

	"arenacli/internal/httpclient"
	"arenacli/internal/retry"
)

// Services bundles every domain service around one HTTP client.
type Services struct {
	Auth        *AuthService
	Posts       *PostService
	Media       *MediaService
	Tournaments *TournamentService
	Events      *EventService
	Marketplace *MarketplaceService
	Chat        *ChatService
	Profile     *ProfileService
}

// New wires all services. readRetry is applied to idempotent reads and to
// writes whose call site marks them idempotent; nil disables retries.
func New(client *httpclient.Client, readRetry *retry.Policy) *Services {
	b := base{client: client, retry: readRetry}
	return &Services{
		Auth:        &AuthService{base: b},
		Posts:       &PostService{base: b},
		Media:       &MediaService{base: b},
		Tournaments: &TournamentService{base: b},
		Events:      &EventService{base: b},
		Marketplace: &MarketplaceService{base: b},
		Chat:        &ChatService{base: b},
		Profile:     &ProfileService{base: b},
	}
}

type base struct {
	client *httpclient.Client
	retry  *retry.Policy
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		q.Set("limit", strconv.Itoa(o.PageSize))
	}
	return q
}

func boolPtr(b bool) *bool { return &b }
