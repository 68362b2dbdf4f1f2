package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"session-relay/internal/domain"
	"session-relay/utils/logger"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxUpstreamBody caps how much of an identity service response is relayed.
const maxUpstreamBody = 1 << 20

// ErrResponseTooLarge reports an identity service body over maxUpstreamBody.
// It wraps domain.ErrUpstreamUnreachable so callers answer 502.
var ErrResponseTooLarge = fmt.Errorf("%w: response body exceeds %d bytes", domain.ErrUpstreamUnreachable, maxUpstreamBody)

// Forwarded is an identity service response as the relay passes it on.
type Forwarded struct {
	Status int
	Header http.Header
	Body   []byte
}

// IdentityGateway calls the identity service on behalf of browser requests.
type IdentityGateway struct {
	baseURL    string
	httpClient *http.Client
}

// NewIdentityGateway creates a gateway with a tuned, traced HTTP transport.
func NewIdentityGateway(baseURL string, timeout time.Duration) *IdentityGateway {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}

	return &IdentityGateway{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
			// Redirects are relayed to the browser, never followed here.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Login forwards a login body unchanged to /users/login.
func (g *IdentityGateway) Login(ctx context.Context, contentType string, body io.Reader) (*Forwarded, error) {
	req, err := g.newRequest(ctx, http.MethodPost, "/users/login", body)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	return g.forward(req)
}

// UserDetails forwards the browser's Cookie header to /users/userdetails.
func (g *IdentityGateway) UserDetails(ctx context.Context, cookie string) (*Forwarded, error) {
	req, err := g.newRequest(ctx, http.MethodGet, "/users/userdetails", nil)
	if err != nil {
		return nil, err
	}
	setCookieHeader(req, cookie)
	return g.forward(req)
}

// Logout forwards the browser's Cookie header to /users/logout.
func (g *IdentityGateway) Logout(ctx context.Context, cookie string) (*Forwarded, error) {
	req, err := g.newRequest(ctx, http.MethodPost, "/users/logout", nil)
	if err != nil {
		return nil, err
	}
	setCookieHeader(req, cookie)
	return g.forward(req)
}

// Ping issues GET / and reports the status of any HTTP response. A transport
// failure wraps domain.ErrUpstreamUnreachable; a request that cannot be built
// wraps domain.ErrMalformedRequest.
func (g *IdentityGateway) Ping(ctx context.Context) (int, error) {
	req, err := g.newRequest(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return 0, err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxUpstreamBody))
	return resp.StatusCode, nil
}

func (g *IdentityGateway) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedRequest, err)
	}
	if requestID, ok := ctx.Value(logger.RequestIDKey).(string); ok && requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
	}
	return req, nil
}

func (g *IdentityGateway) forward(req *http.Request) (*Forwarded, error) {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody+1))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: reading response: %w", domain.ErrUpstreamUnreachable, err)
	}
	if len(body) > maxUpstreamBody {
		return nil, ErrResponseTooLarge
	}

	return &Forwarded{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

func setCookieHeader(req *http.Request, cookie string) {
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
}
