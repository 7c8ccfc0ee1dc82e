package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"arenacli/internal/httpclient"
	"arenacli/pkg/logging"
)

// HeaderIdempotencyKey lets the backend collapse replays of the same write.
const HeaderIdempotencyKey = "Idempotency-Key"

// MarketplaceService browses listings and places purchases.
type MarketplaceService struct {
	base
}

// Listings returns active listings, optionally filtered by a search term.
func (s *MarketplaceService) Listings(ctx context.Context, search string, opts ListOptions) (*Page[Listing], error) {
	q := opts.query()
	if search != "" {
		q.Set("q", search)
	}
	page, err := httpclient.Do[Page[Listing]](ctx, s.client, "/marketplace/listings", httpclient.RequestOptions{
		Query: q,
		Retry: s.retry,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// NewListing is the body of a listing creation.
type NewListing struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
}

// CreateListing puts an item up for sale. Creation is not idempotent, so
// only server and network failures are retried.
func (s *MarketplaceService) CreateListing(ctx context.Context, l NewListing) (*Listing, error) {
	if l.Currency == "" {
		l.Currency = "USD"
	}
	created, err := httpclient.Do[Listing](ctx, s.client, "/marketplace/listings", httpclient.RequestOptions{
		Method: http.MethodPost,
		Body:   l,
		Retry:  s.retry,
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Purchase buys a listing. Every attempt carries the same idempotency key,
// which is what makes it safe to flag the POST as idempotent.
func (s *MarketplaceService) Purchase(ctx context.Context, listingID string) (*Purchase, error) {
	key := uuid.NewString()
	logging.Info("Marketplace", "Purchasing listing %s (key %s)", listingID, key)
	p, err := httpclient.Do[Purchase](ctx, s.client, "/marketplace/listings/"+url.PathEscape(listingID)+"/purchase", httpclient.RequestOptions{
		Method:     http.MethodPost,
		Headers:    map[string]string{HeaderIdempotencyKey: key},
		Retry:      s.retry,
		Idempotent: boolPtr(true),
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}
