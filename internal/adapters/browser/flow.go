package browser

// Package browser implements the interactive leg of the authorization-code
// flow: it serves the OAuth redirect on a loopback listener, opens the system
// browser at the authorization URL, and waits for exactly one of three
// outcomes: a code, a cancellation, or a redirect without a code.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/openhrms/fieldlink/internal/errors"
	"github.com/openhrms/fieldlink/internal/ports"
)

// Flow implements ports.Authorizer over a loopback redirect listener.
type Flow struct {
	authCodeURL func(state string) string
	redirectURL string
	openBrowser func(url string) error
	logger      *slog.Logger
	newState    func() string
}

var _ ports.Authorizer = (*Flow)(nil)

// FlowConfig holds configuration for the interactive flow.
type FlowConfig struct {
	// AuthCodeURL builds the provider authorization URL for a state value.
	AuthCodeURL func(state string) string
	// RedirectURL is the loopback redirect the provider will call back on.
	// Its host, port, and path determine the listener.
	RedirectURL string
	// OpenBrowser launches the user's browser. Optional; defaults to the
	// platform opener.
	OpenBrowser func(url string) error
	// Logger is optional.
	Logger *slog.Logger
}

// NewFlow creates a new interactive authorization flow.
func NewFlow(cfg FlowConfig) (*Flow, error) {
	if cfg.AuthCodeURL == nil {
		return nil, errors.New("auth code URL builder is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	open := cfg.OpenBrowser
	if open == nil {
		open = openSystemBrowser
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow{
		authCodeURL: cfg.AuthCodeURL,
		redirectURL: cfg.RedirectURL,
		openBrowser: open,
		logger:      logger,
		newState:    uuid.NewString,
	}, nil
}

// callbackResult is the outcome delivered by the redirect handler.
type callbackResult struct {
	code string
	err  error
}

// Authorize runs one interactive login attempt. It never retries: the user
// either completes the provider prompt, cancels it, or the provider redirects
// back without a code.
func (f *Flow) Authorize(ctx context.Context) (string, error) {
	redirect, err := url.Parse(f.redirectURL)
	if err != nil {
		return "", fmt.Errorf("parse redirect URL: %w", err)
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeAuthCancelled,
			"redirect listener unavailable")
	}

	state := f.newState()
	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		res := resultFromCallback(r.URL.Query(), state)
		if res.err != nil {
			http.Error(w, "Login failed. You may close this window.", http.StatusBadRequest)
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>Login complete. You may close this window.</body></html>"))
		}
		select {
		case results <- res:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			select {
			case results <- callbackResult{err: apperrors.Wrap(serveErr,
				apperrors.ErrCodeAuthCancelled, "redirect listener failed")}:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authURL := f.authCodeURL(state)
	f.logger.Info("opening browser for login", "url", authURL)
	if openErr := f.openBrowser(authURL); openErr != nil {
		return "", apperrors.Wrap(openErr, apperrors.ErrCodeAuthCancelled,
			"could not open browser")
	}

	select {
	case <-ctx.Done():
		return "", apperrors.Wrap(ctx.Err(), apperrors.ErrCodeAuthCancelled,
			"login cancelled")
	case res := <-results:
		return res.code, res.err
	}
}

// resultFromCallback classifies a provider redirect. The three outcomes are
// mutually exclusive: an error parameter reports cancellation/denial, a
// missing code is a malformed redirect, anything else is a code.
func resultFromCallback(q url.Values, expectedState string) callbackResult {
	if errParam := q.Get("error"); errParam != "" {
		msg := errParam
		if desc := q.Get("error_description"); desc != "" {
			msg = desc
		}
		return callbackResult{err: apperrors.AuthCancelled(msg)}
	}

	code := q.Get("code")
	if code == "" {
		return callbackResult{err: apperrors.MissingAuthorizationCode(
			"provider redirected without an authorization code")}
	}

	if got := q.Get("state"); got != expectedState {
		return callbackResult{err: apperrors.AuthCancelled("state mismatch on redirect")}
	}

	return callbackResult{code: code}
}

// openSystemBrowser launches the platform default browser.
func openSystemBrowser(u string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", u).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", u).Start()
	default:
		return exec.Command("xdg-open", u).Start()
	}
}
