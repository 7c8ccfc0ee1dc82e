package oauth

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Masterminds/sprig/v3"

	"arenacli/pkg/logging"
)

// DefaultCallbackPort is the loopback port used when none is configured.
const DefaultCallbackPort = 8765

// CallbackTimeout is how long the CLI waits for the browser to come back.
const CallbackTimeout = 5 * time.Minute

// CallbackPath is the route the backend redirects to.
const CallbackPath = "/callback"

//go:embed templates/callback_success.html
var callbackSuccessHTML string

//go:embed templates/callback_error.html
var callbackErrorHTML string

var (
	successTmpl = template.Must(template.New("success").Funcs(sprig.HtmlFuncMap()).Parse(callbackSuccessHTML))
	errorTmpl   = template.Must(template.New("error").Funcs(sprig.HtmlFuncMap()).Parse(callbackErrorHTML))
)

// CallbackServer is a single-shot loopback server for the provider redirect.
type CallbackServer struct {
	port     int
	action   string
	server   *http.Server
	listener net.Listener
	resultCh chan CallbackParams
	errorCh  chan error
	once     sync.Once
	stopOnce sync.Once
	baseURL  string
}

// NewCallbackServer creates a server on 127.0.0.1:port. Port 0 picks a free
// port. action ("login" or "link") only affects the rendered page.
func NewCallbackServer(port int, action string) *CallbackServer {
	if action == "" {
		action = "login"
	}
	return &CallbackServer{
		port:     port,
		action:   action,
		resultCh: make(chan CallbackParams, 1),
		errorCh:  make(chan error, 1),
	}
}

// Start listens and returns the redirect URL. The server stops when ctx is
// done.
func (s *CallbackServer) Start(ctx context.Context) (string, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}
	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.baseURL = fmt.Sprintf("http://localhost:%d", s.port)

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errorCh <- err:
			default:
			}
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	logging.Debug("OAuth", "Callback server listening on %s", s.baseURL)
	return s.RedirectURL(), nil
}

// WaitForCallback blocks until the redirect arrives, the server fails or ctx
// is done.
func (s *CallbackServer) WaitForCallback(ctx context.Context) (CallbackParams, error) {
	select {
	case p := <-s.resultCh:
		return p, nil
	case err := <-s.errorCh:
		return CallbackParams{}, err
	case <-ctx.Done():
		return CallbackParams{}, ctx.Err()
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	handled := false
	s.once.Do(func() {
		handled = true
		s.processCallback(w, r)
	})
	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

func (s *CallbackServer) processCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	params := ParamsFromQuery(r.URL.Query())
	data := map[string]any{
		"Provider":    "discord",
		"Action":      s.action,
		"Error":       params.Error,
		"Description": params.ErrorDescription,
		"ReceivedAt":  time.Now(),
	}

	tmpl := successTmpl
	if params.Error != "" || params.Code == "" {
		tmpl = errorTmpl
		if params.Error == "" {
			data["Error"] = string(ReasonMissingParams)
		}
		w.WriteHeader(http.StatusBadRequest)
	}
	if err := tmpl.Execute(w, data); err != nil {
		logging.Warn("OAuth", "Failed to render callback page: %v", err)
	}

	select {
	case s.resultCh <- params:
	default:
	}

	// give the browser time to receive the page
	time.AfterFunc(time.Second, s.Stop)
}

// Stop shuts the server down. It is safe to call more than once.
func (s *CallbackServer) Stop() {
	s.stopOnce.Do(func() {
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.server.Shutdown(ctx)
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}

// RedirectURL is the URL the backend must redirect to.
func (s *CallbackServer) RedirectURL() string { return s.baseURL + CallbackPath }

// Port returns the bound port.
func (s *CallbackServer) Port() int { return s.port }
