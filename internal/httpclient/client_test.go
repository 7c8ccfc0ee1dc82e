package httpclient

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"arenacli/internal/apierror"
	"arenacli/internal/retry"
)

type errTokenSource struct{}

func (errTokenSource) Token() (*oauth2.Token, error) { return nil, errors.New("storage disabled") }

func noSleepPolicy() *retry.Policy {
	p := retry.DefaultPolicy()
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return &p
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens oauth2.TokenSource) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/api", Tokens: tokens})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "https://api.example.com/api"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api/", c.BaseURL())
}

func TestResolveURL(t *testing.T) {
	c, err := New(Config{BaseURL: "https://api.example.com/api/"})
	require.NoError(t, err)

	u, err := c.ResolveURL("/posts", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api/posts", u)

	u, err = c.ResolveURL("posts?page=2", map[string][]string{"limit": {"10"}})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api/posts?limit=10&page=2", u)

	u, err = c.ResolveURL("https://cdn.example.com/x", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/x", u)
}

func TestRequest_JSONDefaultsAndAuth(t *testing.T) {
	var got *http.Request
	var gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		writeJSON(w, http.StatusCreated, `{"success":true,"data":{"id":"p1","title":"hello"}}`)
	}, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok-123"}))

	type post struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	p, err := Do[post](context.Background(), c, "/posts", RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"title": "hello"},
	})
	require.NoError(t, err)

	assert.Equal(t, post{ID: "p1", Title: "hello"}, p)
	assert.Equal(t, "/api/posts", got.URL.Path)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer tok-123", got.Header.Get("Authorization"))
	assert.NotEmpty(t, got.Header.Get(HeaderRequestID))
	assert.Equal(t, DefaultUserAgent, got.Header.Get("User-Agent"))
	assert.JSONEq(t, `{"title":"hello"}`, gotBody)
}

func TestRequest_CallerContentTypeOverride(t *testing.T) {
	var contentType string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}, nil)

	_, err := c.Request(context.Background(), "/raw", RequestOptions{
		Method:  http.MethodPut,
		Body:    "x",
		Headers: map[string]string{"Content-Type": "text/plain"},
	})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", contentType)
}

func TestRequest_AnonymousMultipartPost(t *testing.T) {
	var got *http.Request
	var fields = map[string]string{}
	var fileContent string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		mr, err := r.MultipartReader()
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if !assert.NoError(t, err) {
				break
			}
			b, _ := io.ReadAll(part)
			if part.FileName() != "" {
				fileContent = string(b)
			} else {
				fields[part.FormName()] = string(b)
			}
		}
		writeJSON(w, http.StatusCreated, `{"data":{"id":"p9"}}`)
	}, nil)

	form := NewMultipartForm().
		AddField("title", "clip").
		AddFile(FilePart{FieldName: "media", FileName: "clip.mp4", ContentType: "video/mp4", Content: strings.NewReader("binary")})

	_, err := c.Request(context.Background(), "/posts", RequestOptions{
		Method: http.MethodPost,
		Form:   form,
		// a caller supplied content type would carry the wrong boundary
		Headers: map[string]string{"content-type": "multipart/form-data; boundary=manual"},
	})
	require.NoError(t, err)

	assert.Empty(t, got.Header.Get("Authorization"))
	mediaType, params, err := mime.ParseMediaType(got.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)
	assert.NotEqual(t, "manual", params["boundary"])
	assert.Equal(t, "clip", fields["title"])
	assert.Equal(t, "binary", fileContent)
}

func TestRequest_TokenSourceErrorMeansAnonymous(t *testing.T) {
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		writeJSON(w, 200, `{}`)
	}, errTokenSource{})

	_, err := c.Request(context.Background(), "/feed", RequestOptions{})
	require.NoError(t, err)
	assert.Empty(t, auth)
}

func TestRequest_SuccessShapes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"wrapped", 200, `{"data":{"a":1}}`, `{"a":1}`},
		{"flat", 200, `{"a":1}`, `{"a":1}`},
		{"flat array", 200, `[1,2]`, `[1,2]`},
		{"empty body", 200, ``, `{}`},
		{"no content", 204, ``, `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, nil)
			raw, err := c.Request(context.Background(), "/x", RequestOptions{})
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestRequest_SuccessBodyNotJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html>Sign in to the hotel wifi</html>")
	}, nil)

	raw, err := c.Request(context.Background(), "/auth/validate", RequestOptions{})
	assert.Nil(t, raw)
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.UnknownError, apiErr.Code())
	assert.Equal(t, 200, apiErr.StatusCode())
	assert.Contains(t, apiErr.Message(), "not JSON")
}

func TestRequest_AttemptTimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-time.After(300 * time.Millisecond):
		case <-r.Context().Done():
		}
		writeJSON(w, 200, `{}`)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		calls.Store(0)
		_, err = c.Request(context.Background(), "/slow", RequestOptions{Method: method, Retry: noSleepPolicy()})
		apiErr, ok := apierror.As(err)
		require.True(t, ok, method)
		assert.True(t, apiErr.IsNetworkError(), method)
		assert.Equal(t, int32(3), calls.Load(), method)
	}
}

func TestRequest_ValidationEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest,
			`{"success":false,"message":"Validation failed","errorCode":"VALIDATION_ERROR","errors":{"title":"Title required"}}`)
	}, nil)

	_, err := c.Request(context.Background(), "/posts", RequestOptions{Method: http.MethodPost, Body: map[string]string{}})
	require.Error(t, err)

	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.ValidationError, apiErr.Code())
	assert.Equal(t, 400, apiErr.StatusCode())
	assert.Equal(t, "Validation failed", apiErr.Message())
	assert.Equal(t, "Title required", apiErr.UserMessage())
}

func TestRequest_FieldErrorLists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 422, `{"message":"bad","errors":{"price":["must be positive","too small"]}}`)
	}, nil)

	_, err := c.Request(context.Background(), "/listings", RequestOptions{Method: http.MethodPost})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.UnknownError, apiErr.Code())
	assert.Equal(t, "must be positive", apiErr.FieldErrors()["price"])
}

func TestRequest_NonJSONError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	}, nil)

	_, err := c.Request(context.Background(), "/feed", RequestOptions{})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.InternalError, apiErr.Code())
	assert.Equal(t, "HTTP 502: Bad Gateway", apiErr.Message())
}

func TestRequest_NetworkErrorIsNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base})
	require.NoError(t, err)

	_, err = c.Request(context.Background(), "/feed", RequestOptions{})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.NetworkError, apiErr.Code())
	assert.Equal(t, 0, apiErr.StatusCode())
}

func TestRequest_RetriesIdempotentServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, 503, `{"message":"down"}`)
			return
		}
		writeJSON(w, 200, `{"data":{"ok":true}}`)
	}, nil)

	raw, err := c.Request(context.Background(), "/tournaments", RequestOptions{Retry: noSleepPolicy()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, int32(3), calls.Load())
}

func TestRequest_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, 500, `{"message":"boom","errorCode":"INTERNAL_ERROR"}`)
	}, nil)

	_, err := c.Request(context.Background(), "/tournaments", RequestOptions{Retry: noSleepPolicy()})
	assert.True(t, errors.Is(err, apierror.ErrInternal))
	assert.Equal(t, int32(3), calls.Load())
}

func TestRequest_NonIdempotentClientErrorsNotRetried(t *testing.T) {
	for _, status := range []int{400, 404, 409} {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			writeJSON(w, status, `{"message":"nope"}`)
		}, nil)

		_, err := c.Request(context.Background(), "/marketplace/purchase", RequestOptions{
			Method: http.MethodPost,
			Retry:  noSleepPolicy(),
		})
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load(), "status %d", status)
	}
}

func TestRequest_IdempotentOverride(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, 503, `{}`)
	}, nil)

	notIdempotent := false
	p := noSleepPolicy()
	p.RetryIf = func(error) bool { return false }

	// DELETE is idempotent by method, but the override routes it through the
	// write rules, where 5xx is still retried and the predicate is ignored.
	_, err := c.Request(context.Background(), "/tournaments/t1/registration", RequestOptions{
		Method:     http.MethodDelete,
		Retry:      p,
		Idempotent: &notIdempotent,
	})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRequest_AuthErrorsNotRetried(t *testing.T) {
	for _, status := range []int{401, 403} {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			writeJSON(w, status, `{}`)
		}, nil)
		_, err := c.Request(context.Background(), "/me", RequestOptions{Retry: noSleepPolicy()})
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	}
}

func TestRequest_UnauthorizedHook(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 401, `{"message":"expired","errorCode":"AUTH_REQUIRED"}`)
	}

	var hookCalls int
	c := newTestClient(t, handler, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"}))
	c.SetUnauthorizedHandler(func(err *apierror.APIError) {
		hookCalls++
		assert.Equal(t, apierror.AuthRequired, err.Code())
	})
	_, err := c.Request(context.Background(), "/me", RequestOptions{})
	require.Error(t, err)
	assert.Equal(t, 1, hookCalls)

	// anonymous 401s are not a session problem
	anon := newTestClient(t, handler, nil)
	anon.SetUnauthorizedHandler(func(*apierror.APIError) { hookCalls++ })
	_, err = anon.Request(context.Background(), "/me", RequestOptions{})
	require.Error(t, err)
	assert.Equal(t, 1, hookCalls)
}

func TestRequest_CancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{}`)
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Request(ctx, "/feed", RequestOptions{Retry: noSleepPolicy()})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsNetworkError())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_DecodeFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"data":"not an object"}`)
	}, nil)

	type thing struct{ ID string }
	_, err := Do[thing](context.Background(), c, "/x", RequestOptions{})
	_, ok := apierror.As(err)
	assert.True(t, ok)
}
