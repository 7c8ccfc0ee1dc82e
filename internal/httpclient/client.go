package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"arenacli/internal/apierror"
	"arenacli/internal/retry"
	"arenacli/pkg/logging"
)

// DefaultTimeout is the per-attempt timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent identifies the client to the backend.
const DefaultUserAgent = "arena-cli"

// HeaderRequestID carries a per-request UUID for log correlation.
const HeaderRequestID = "X-Request-ID"

// Config configures a Client.
type Config struct {
	// BaseURL is prepended to every relative request path.
	BaseURL string

	// Timeout bounds a single attempt. Defaults to DefaultTimeout.
	Timeout time.Duration

	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// Tokens supplies the bearer token. A nil source, an error, or an empty
	// token all mean the request goes out without Authorization.
	Tokens oauth2.TokenSource

	// HTTPClient overrides the underlying client. A cookie jar is attached
	// when the client has none.
	HTTPClient *http.Client

	// Limiter paces outgoing attempts. Nil disables pacing.
	Limiter *rate.Limiter

	// OnUnauthorized is called when an authenticated request gets a 401.
	OnUnauthorized func(err *apierror.APIError)
}

// Client is the HTTP Client Layer shared by every domain service.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	userAgent      string
	tokens         oauth2.TokenSource
	limiter        *rate.Limiter
	onUnauthorized func(err *apierror.APIError)
}

// RequestOptions describes one request.
type RequestOptions struct {
	// Method defaults to GET.
	Method string

	// Query is appended to the URL.
	Query url.Values

	// Body is encoded as JSON. Ignored when Form is set.
	Body any

	// Form sends multipart/form-data with a generated boundary.
	Form *MultipartForm

	// Headers are added to the request. Content-Type is ignored for forms.
	Headers map[string]string

	// Retry enables retries under the given policy.
	Retry *retry.Policy

	// Idempotent overrides the method based idempotency inference.
	Idempotent *bool
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		baseURL:        base,
		httpClient:     httpClient,
		userAgent:      userAgent,
		tokens:         cfg.Tokens,
		limiter:        cfg.Limiter,
		onUnauthorized: cfg.OnUnauthorized,
	}, nil
}

// BaseURL returns the configured base URL with a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// SetTokenSource replaces the token source. It exists so the session
// manager, which itself calls the backend through this client, can be
// attached after both are constructed.
func (c *Client) SetTokenSource(ts oauth2.TokenSource) { c.tokens = ts }

// SetUnauthorizedHandler replaces the 401 hook.
func (c *Client) SetUnauthorizedHandler(fn func(err *apierror.APIError)) { c.onUnauthorized = fn }

// ResolveURL joins path onto the base URL. Absolute URLs pass through.
func (c *Client) ResolveURL(path string, query url.Values) (string, error) {
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		path = strings.TrimLeft(path, "/")
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}
	u := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Request performs the call and returns the unwrapped success payload.
// Every failure is an *apierror.APIError.
func (c *Client) Request(ctx context.Context, path string, opts RequestOptions) (json.RawMessage, error) {
	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}

	target, err := c.ResolveURL(path, opts.Query)
	if err != nil {
		return nil, apierror.New(apierror.ValidationError, 0, err.Error(), nil)
	}

	payload, contentType, err := encodeBody(opts)
	if err != nil {
		return nil, apierror.New(apierror.ValidationError, 0, err.Error(), nil)
	}

	if opts.Retry == nil {
		return c.attempt(ctx, method, target, payload, contentType, opts)
	}

	var result json.RawMessage
	idempotent := retry.Idempotent(method, opts.Idempotent)
	err = retry.Do(ctx, *opts.Retry, idempotent, func(ctx context.Context, attempt int) error {
		var attemptErr error
		result, attemptErr = c.attempt(ctx, method, target, payload, contentType, opts)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Do performs the request and decodes the payload into T.
func Do[T any](ctx context.Context, c *Client, path string, opts RequestOptions) (T, error) {
	var out T
	raw, err := c.Request(ctx, path, opts)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, apierror.New(apierror.UnknownError, 0, fmt.Sprintf("failed to decode response from %s: %v", path, err), nil)
	}
	return out, nil
}

// encodeBody renders the request body once. contentType is empty when the
// request has no form; JSON defaults are applied per attempt.
func encodeBody(opts RequestOptions) ([]byte, string, error) {
	if opts.Form != nil {
		return opts.Form.encode()
	}
	if opts.Body == nil {
		return nil, "", nil
	}
	if raw, ok := opts.Body.(json.RawMessage); ok {
		return raw, "", nil
	}
	data, err := json.Marshal(opts.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode request body: %w", err)
	}
	return data, "", nil
}

func (c *Client) attempt(ctx context.Context, method, target string, payload []byte, formContentType string, opts RequestOptions) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apierror.Network(err)
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, apierror.Network(err)
	}

	authenticated := c.applyHeaders(req, formContentType, opts)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Debug("HTTP", "%s %s failed after %s: %v", method, req.URL.Path, time.Since(start), err)
		return nil, apierror.Network(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierror.Network(fmt.Errorf("failed to read response body: %w", err))
	}

	logging.Debug("HTTP", "%s %s -> %d (%s) request_id=%s",
		method, req.URL.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond), req.Header.Get(HeaderRequestID))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return decodeSuccess(resp.StatusCode, respBody)
	}

	apiErr := decodeError(resp, respBody)
	if authenticated && resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized(apiErr)
	}
	return nil, apiErr
}

// applyHeaders sets content negotiation, identity and auth headers. It
// reports whether a bearer token was attached.
func (c *Client) applyHeaders(req *http.Request, formContentType string, opts RequestOptions) bool {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, uuid.NewString())

	for k, v := range opts.Headers {
		if opts.Form != nil && http.CanonicalHeaderKey(k) == "Content-Type" {
			// the boundary must come from the multipart writer
			continue
		}
		req.Header.Set(k, v)
	}

	if opts.Form != nil {
		req.Header.Set("Content-Type", formContentType)
	} else if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens == nil {
		return false
	}
	tok, err := c.tokens.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		return false
	}
	tok.SetAuthHeader(req)
	return true
}
