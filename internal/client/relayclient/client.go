package relayclient

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

	"session-relay/internal/domain"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBody = 1 << 20

// StatusError is a relay answer outside 2xx.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay returned status %d", e.Status)
}

// PingResult mirrors the relay's /ping body.
type PingResult struct {
	Reachable bool   `json:"reachable"`
	Status    int    `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Client talks to the edge relay with one cookie jar, standing in for a
// browser context.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	jar        http.CookieJar
}

// New creates a client for the relay at baseURL.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid relay url %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: u,
		jar:     jar,
		httpClient: &http.Client{
			Timeout:   timeout,
			Jar:       jar,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login posts credentials; the session cookie lands in the jar. The response
// body is not returned: identity always comes from UserDetails.
func (c *Client) Login(ctx context.Context, email, password string) error {
	payload, err := json.Marshal(loginBody{Email: email, Password: password})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, "/login", bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	if resp.Status == http.StatusUnauthorized {
		return domain.ErrInvalidCredentials
	}
	return resp.err()
}

// UserDetails resolves the identity behind the jar's session cookie.
func (c *Client) UserDetails(ctx context.Context) (*domain.Identity, error) {
	resp, err := c.do(ctx, http.MethodGet, "/userdetails", nil, "")
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusUnauthorized {
		return nil, domain.ErrSessionNotFound
	}
	if err := resp.err(); err != nil {
		return nil, err
	}

	var identity domain.Identity
	if err := json.Unmarshal(resp.Body, &identity); err != nil {
		return nil, fmt.Errorf("%w: decode identity: %w", domain.ErrMalformedRequest, err)
	}
	identity.Role = domain.ParseRole(string(identity.Role))
	return &identity, nil
}

// Logout asks the relay to end the session; the expiring cookie clears the jar.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/logout", nil, "")
	if err != nil {
		return err
	}
	return resp.err()
}

// Ping reports whether the relay can reach the identity service.
func (c *Client) Ping(ctx context.Context) (*PingResult, error) {
	resp, err := c.do(ctx, http.MethodGet, "/ping", nil, "")
	if err != nil {
		return nil, err
	}
	var result PingResult
	if jsonErr := json.Unmarshal(resp.Body, &result); jsonErr != nil {
		if err := resp.err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: decode ping: %w", domain.ErrMalformedRequest, jsonErr)
	}
	return &result, nil
}

// ExportCookies returns the jar's cookies for the relay URL.
func (c *Client) ExportCookies() []*http.Cookie {
	return c.jar.Cookies(c.baseURL)
}

// ImportCookies seeds the jar, e.g. from a saved CLI session.
func (c *Client) ImportCookies(cookies []*http.Cookie) {
	c.jar.SetCookies(c.baseURL, cookies)
}

type response struct {
	Status int
	Body   []byte
}

func (r *response) err() error {
	if r.Status >= 200 && r.Status < 300 {
		return nil
	}
	return &StatusError{Status: r.Status, Body: string(r.Body)}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedRequest, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrUpstreamUnreachable, err)
	}
	return &response{Status: resp.StatusCode, Body: data}, nil
}
