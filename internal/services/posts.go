package services

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"arenacli/internal/apierror"
	"arenacli/internal/httpclient"
)

// PostService manages the community feed.
type PostService struct {
	base
}

// NewPost is the body of a post creation.
type NewPost struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	MediaIDs  []string `json:"mediaIds,omitempty"`
	GameTitle string   `json:"game,omitempty"`
}

func (p NewPost) validate(hasAttachments bool) error {
	fields := map[string]string{}
	if strings.TrimSpace(p.Title) == "" {
		fields["title"] = "Title required"
	}
	if strings.TrimSpace(p.Content) == "" && len(p.MediaIDs) == 0 && !hasAttachments {
		fields["content"] = "Content or media required"
	}
	if len(fields) > 0 {
		return apierror.New(apierror.ValidationError, http.StatusBadRequest, "Invalid post", fields)
	}
	return nil
}

// List returns a page of the feed.
func (s *PostService) List(ctx context.Context, opts ListOptions) (*Page[Post], error) {
	page, err := httpclient.Do[Page[Post]](ctx, s.client, "/posts", httpclient.RequestOptions{
		Query: opts.query(),
		Retry: s.retry,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Get returns one post.
func (s *PostService) Get(ctx context.Context, id string) (*Post, error) {
	p, err := httpclient.Do[Post](ctx, s.client, "/posts/"+url.PathEscape(id), httpclient.RequestOptions{Retry: s.retry})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create publishes a post. Required fields are checked before any request.
// Attached files switch the request to multipart/form-data.
func (s *PostService) Create(ctx context.Context, p NewPost, files ...httpclient.FilePart) (*Post, error) {
	if err := p.validate(len(files) > 0); err != nil {
		return nil, err
	}
	opts := httpclient.RequestOptions{Method: http.MethodPost, Body: p}
	if len(files) > 0 {
		form := httpclient.NewMultipartForm().
			AddField("title", p.Title).
			AddField("content", p.Content)
		if p.GameTitle != "" {
			form.AddField("game", p.GameTitle)
		}
		for _, f := range files {
			if f.FieldName == "" {
				f.FieldName = "media"
			}
			form.AddFile(f)
		}
		opts = httpclient.RequestOptions{Method: http.MethodPost, Form: form}
	}
	created, err := httpclient.Do[Post](ctx, s.client, "/posts", opts)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Delete removes a post owned by the current user.
func (s *PostService) Delete(ctx context.Context, id string) error {
	_, err := s.client.Request(ctx, "/posts/"+url.PathEscape(id), httpclient.RequestOptions{
		Method: http.MethodDelete,
		Retry:  s.retry,
	})
	return err
}

// Like toggles a like on a post. Toggling is not idempotent, so the call
// opts out of the method based inference.
func (s *PostService) Like(ctx context.Context, id string) (*Post, error) {
	p, err := httpclient.Do[Post](ctx, s.client, "/posts/"+url.PathEscape(id)+"/like", httpclient.RequestOptions{
		Method:     http.MethodPut,
		Retry:      s.retry,
		Idempotent: boolPtr(false),
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}
