package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"session-relay/internal/domain"
	"session-relay/internal/infrastructure/credential"
	"session-relay/internal/infrastructure/store"
	"session-relay/internal/infrastructure/token"
	"session-relay/internal/usecase"
	"session-relay/utils/validator"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testBackendSecret = "test-backend-secret-0123456789abcdef"

type testServer struct {
	e        *echo.Echo
	sessions *store.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	creds, err := credential.NewDemoStore(bcrypt.MinCost)
	require.NoError(t, err)
	sessions := store.NewMemoryStore(time.Minute)
	t.Cleanup(func() { _ = sessions.Close() })

	logger := slog.Default()
	cookies := domain.CookiePolicy{Name: "jsession", SameSite: domain.SameSiteLax}
	resolve := usecase.NewResolveSession(sessions, logger)
	issuer := token.NewJWTIssuer(token.JWTConfig{
		Secret:   testBackendSecret,
		Issuer:   "identity-service",
		Audience: "library-service",
		TTL:      5 * time.Minute,
	})

	h := Handlers{
		Login:       NewLoginHandler(usecase.NewLogin(creds, sessions, token.NewRandomSessionIDGenerator(), cookies, time.Hour, logger), validator.New()),
		UserDetails: NewUserDetailsHandler(resolve, "jsession"),
		Logout:      NewLogoutHandler(usecase.NewLogout(sessions, cookies, logger), "jsession"),
		Validate:    NewValidateHandler(usecase.NewValidateSession(resolve, issuer, logger), "jsession"),
		Health:      NewHealthHandler("identity-service"),
	}

	e := echo.New()
	h.Register(e, nil, nil)
	return &testServer{e: e, sessions: sessions}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) loginJSON(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return s.do(req)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "jsession" {
			return c
		}
	}
	t.Fatalf("no jsession cookie in response")
	return nil
}

func withCookie(req *http.Request, c *http.Cookie) *http.Request {
	req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	return req
}

func TestLogin_JSONSetsSessionCookie(t *testing.T) {
	s := newTestServer(t)

	rec := s.loginJSON(t, "user@example.com", "password")
	require.Equal(t, http.StatusOK, rec.Code)

	raw := rec.Header().Get(echo.HeaderSetCookie)
	assert.Contains(t, raw, "Path=/")
	assert.Contains(t, raw, "Max-Age=3600")
	assert.Contains(t, raw, "HttpOnly")
	assert.Contains(t, raw, "SameSite=Lax")

	cookie := sessionCookie(t, rec)
	assert.NotEmpty(t, cookie.Value)

	var body struct {
		Message string          `json:"message"`
		User    domain.Identity `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Message)
	assert.Equal(t, "user@example.com", body.User.Email)
	assert.Equal(t, domain.RoleRegular, body.User.Role)
}

func TestLogin_FormWithUsername(t *testing.T) {
	s := newTestServer(t)

	form := url.Values{"username": {"admin@example.com"}, "password": {"password"}}
	req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := s.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, sessionCookie(t, rec).Value)
	assert.Contains(t, rec.Body.String(), `"role":"ADMINISTRATOR"`)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "user@example.com", "nope"},
		{"unknown email", "ghost@example.com", "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			rec := s.loginJSON(t, tt.email, tt.password)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, rec.Header().Get(echo.HeaderSetCookie))
			assert.JSONEq(t, `{"message":"invalid credentials"}`, rec.Body.String())

			count, err := s.sessions.Count(t.Context())
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestLogin_BadRequests(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"malformed json", echo.MIMEApplicationJSON, `{"email":`},
		{"missing password", echo.MIMEApplicationJSON, `{"email":"user@example.com"}`},
		{"not an email", echo.MIMEApplicationJSON, `{"email":"user","password":"password"}`},
		{"empty body", echo.MIMEApplicationJSON, ``},
		{"unsupported media type", echo.MIMETextPlain, `user@example.com:password`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, tt.contentType)
			rec := s.do(req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, rec.Header().Get(echo.HeaderSetCookie))
		})
	}
}

func TestUserDetails(t *testing.T) {
	s := newTestServer(t)
	cookie := sessionCookie(t, s.loginJSON(t, "admin@example.com", "password"))

	for _, path := range []string{"/users/userdetails", "/users/user-details"} {
		t.Run(path, func(t *testing.T) {
			rec := s.do(withCookie(httptest.NewRequest(http.MethodGet, path, nil), cookie))

			require.Equal(t, http.StatusOK, rec.Code)
			var identity map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &identity))
			assert.Equal(t, "admin@example.com", identity["email"])
			assert.Equal(t, "Demo", identity["firstName"])
			assert.Equal(t, "Librarian", identity["lastName"])
			assert.Equal(t, "ADMINISTRATOR", identity["role"])
			assert.NotEmpty(t, identity["id"])
			assert.Empty(t, rec.Header().Get(echo.HeaderSetCookie))
		})
	}
}

func TestUserDetails_Unauthenticated(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no cookie", nil},
		{"unknown session", &http.Cookie{Name: "jsession", Value: "does-not-exist"}},
		{"other cookie name", &http.Cookie{Name: "session", Value: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/userdetails", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := s.do(req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestUserDetails_ExpiredSession(t *testing.T) {
	s := newTestServer(t)
	now := time.Now()
	require.NoError(t, s.sessions.Insert(t.Context(), &domain.Session{
		ID:        "expired-session",
		Identity:  domain.Identity{ID: "u-1", Email: "user@example.com", Role: domain.RoleRegular},
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/userdetails", nil)
	req.AddCookie(&http.Cookie{Name: "jsession", Value: "expired-session"})
	rec := s.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, err := s.sessions.Get(t.Context(), "expired-session")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestLogout_ExpiresCookieAndSession(t *testing.T) {
	s := newTestServer(t)
	cookie := sessionCookie(t, s.loginJSON(t, "user@example.com", "password"))

	rec := s.do(withCookie(httptest.NewRequest(http.MethodPost, "/users/logout", nil), cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	raw := rec.Header().Get(echo.HeaderSetCookie)
	assert.Contains(t, raw, "jsession=;")
	assert.Contains(t, raw, "Max-Age=0")

	rec = s.do(withCookie(httptest.NewRequest(http.MethodGet, "/users/userdetails", nil), cookie))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_WithoutSession(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(httptest.NewRequest(http.MethodPost, "/users/logout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderSetCookie), "Max-Age=0")
}

func TestValidate(t *testing.T) {
	s := newTestServer(t)
	cookie := sessionCookie(t, s.loginJSON(t, "admin@example.com", "password"))

	rec := s.do(withCookie(httptest.NewRequest(http.MethodGet, "/validate", nil), cookie))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderUserID))
	assert.Equal(t, "admin@example.com", rec.Header().Get(HeaderUserEmail))
	assert.Equal(t, "ADMINISTRATOR", rec.Header().Get(HeaderUserRole))

	parsed, err := jwt.Parse(rec.Header().Get(HeaderBackendToken), func(*jwt.Token) (any, error) {
		return []byte(testBackendSecret), nil
	}, jwt.WithAudience("library-service"), jwt.WithIssuer("identity-service"))
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "ADMINISTRATOR", claims["role"])
	assert.Equal(t, rec.Header().Get(HeaderUserID), claims["sub"])
}

func TestValidate_Unauthenticated(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/validate", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get(HeaderUserID))
	assert.Empty(t, rec.Header().Get(HeaderBackendToken))
}

func TestHealthAndBanner(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"service":"identity-service"}`, rec.Body.String())
}

func TestRegister_Guards(t *testing.T) {
	s := newTestServer(t)
	blocked := func(echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot) }
	}
	e := echo.New()
	Handlers{
		Login:       NewLoginHandler(nil, validator.New()),
		UserDetails: NewUserDetailsHandler(nil, "jsession"),
		Logout:      NewLogoutHandler(nil, "jsession"),
		Validate:    NewValidateHandler(nil, "jsession"),
		Health:      NewHealthHandler("identity-service"),
	}.Register(e, blocked, blocked)
	s.e = e

	assert.Equal(t, http.StatusTeapot, s.loginJSON(t, "user@example.com", "password").Code)
	assert.Equal(t, http.StatusTeapot, s.do(httptest.NewRequest(http.MethodGet, "/validate", nil)).Code)
}
