package frappe

// Package frappe provides the REST client for the Frappe/HRMS backend.
// Endpoints come in two envelope families: /api/resource/* wraps payloads
// in {"data": ...} and /api/method/* wraps them in {"message": ...}.
// Envelope extraction is expressed as JMESPath queries so nested payloads
// (child tables, report shapes) stay declarative.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	apperrors "github.com/openhrms/fieldlink/internal/errors"
)

// Client issues bearer-authenticated requests against one Frappe site.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// ClientConfig holds configuration for the Frappe client.
type ClientConfig struct {
	// BaseURL is the site root, e.g. "https://hrms.example.com".
	BaseURL string
	// Timeout bounds each request. Zero disables the bound.
	Timeout time.Duration
	// HTTPClient is optional and defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// NewClient creates a new Frappe client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
		timeout:    cfg.Timeout,
	}, nil
}

// ResourcePath returns the /api/resource path for a doctype record.
func ResourcePath(doctype string, name ...string) string {
	p := "/api/resource/" + url.PathEscape(doctype)
	for _, n := range name {
		p += "/" + url.PathEscape(n)
	}
	return p
}

// MethodPath returns the /api/method path for a whitelisted function.
func MethodPath(fn string) string {
	return "/api/method/" + fn
}

// Get issues a GET request and returns the raw response body.
func (c *Client) Get(ctx context.Context, accessToken, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, accessToken, path, query, nil)
}

// Post issues a POST request with a JSON body and returns the raw response body.
func (c *Client) Post(ctx context.Context, accessToken, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, accessToken, path, nil, body)
}

// GetJSON issues a GET request and decodes the envelope field selected by
// the JMESPath expression into out. A nil selection leaves out untouched.
func (c *Client) GetJSON(ctx context.Context, accessToken, path string, query url.Values, expr string, out any) error {
	raw, err := c.Get(ctx, accessToken, path, query)
	if err != nil {
		return err
	}
	return decodeEnvelope(raw, expr, out)
}

// PostJSON issues a POST request and decodes the selected envelope field into out.
func (c *Client) PostJSON(ctx context.Context, accessToken, path string, body any, expr string, out any) error {
	raw, err := c.Post(ctx, accessToken, path, body)
	if err != nil {
		return err
	}
	return decodeEnvelope(raw, expr, out)
}

func (c *Client) do(ctx context.Context, method, accessToken, path string, query url.Values, body any) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.FetchError{Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.FetchError{Status: resp.StatusCode, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperrors.FetchError{
			Status: resp.StatusCode,
			Body:   compactBody(raw),
		}
	}

	return raw, nil
}

// decodeEnvelope selects expr from the parsed body and re-decodes the
// selection into out.
func decodeEnvelope(raw []byte, expr string, out any) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	selected, err := jmespath.Search(expr, doc)
	if err != nil {
		return fmt.Errorf("select %q: %w", expr, err)
	}
	if selected == nil {
		return nil
	}

	reencoded, err := json.Marshal(selected)
	if err != nil {
		return fmt.Errorf("re-encode selection: %w", err)
	}
	if err := json.Unmarshal(reencoded, out); err != nil {
		return fmt.Errorf("decode selection: %w", err)
	}
	return nil
}

// compactBody normalizes an error body: valid JSON is compacted, anything
// else is returned as trimmed text.
func compactBody(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		return buf.String()
	}
	return strings.TrimSpace(string(raw))
}
