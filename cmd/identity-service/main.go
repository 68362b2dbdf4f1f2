package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"session-relay/config"
	adapterhandler "session-relay/internal/adapter/handler"
	"session-relay/internal/domain"
	"session-relay/internal/infrastructure/credential"
	"session-relay/internal/infrastructure/store"
	infratoken "session-relay/internal/infrastructure/token"
	"session-relay/internal/usecase"
	appmiddleware "session-relay/middleware"
	"session-relay/utils/logger"
	"session-relay/utils/otel"
	"session-relay/utils/validator"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName = "identity-service"
	// expiredRetention keeps expired sessions around long enough to report
	// them as expired rather than unknown.
	expiredRetention = 10 * time.Minute
	loginBurst       = 5
)

func main() {
	// Handle healthcheck subcommand (for Docker healthcheck in distroless image)
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		if err := runHealthcheck("4000"); err != nil {
			fmt.Fprintf(os.Stderr, "Healthcheck failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Initialize OpenTelemetry
	otelCfg := otel.ConfigFromEnv(serviceName)
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		slog.Warn("failed to initialize OpenTelemetry, continuing without tracing", "error", err)
		otelCfg.Enabled = false
		otelShutdown = func(context.Context) error { return nil }
	}

	log := logger.Init(serviceName, otelCfg.Enabled)

	cfg, err := config.LoadIdentity()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "configuration loaded",
		"port", cfg.Port,
		"session_ttl", cfg.SessionTTL,
		"store", cfg.StoreBackend,
		"cookie_secure", cfg.CookieSecure,
		"backend_token", cfg.BackendTokenSecret != "")

	// Infrastructure
	sessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer sessions.Close()

	creds, err := newCredentialStore(cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load credentials", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "credential store ready", "identities", creds.Len())

	var issuer domain.TokenIssuer
	if cfg.BackendTokenSecret != "" {
		issuer = infratoken.NewJWTIssuer(infratoken.JWTConfig{
			Secret:   cfg.BackendTokenSecret,
			Issuer:   cfg.BackendTokenIssuer,
			Audience: cfg.BackendTokenAudience,
			TTL:      cfg.BackendTokenTTL,
		})
	}

	cookies := domain.CookiePolicy{
		Name:     cfg.CookieName,
		Secure:   cfg.CookieSecure,
		SameSite: parseSameSite(cfg.CookieSameSite),
	}

	// Usecases
	loginUC := usecase.NewLogin(creds, sessions, infratoken.NewRandomSessionIDGenerator(), cookies, cfg.SessionTTL, log)
	resolveUC := usecase.NewResolveSession(sessions, log)
	logoutUC := usecase.NewLogout(sessions, cookies, log)
	validateUC := usecase.NewValidateSession(resolveUC, issuer, log)

	// Handlers
	handlers := adapterhandler.Handlers{
		Login:       adapterhandler.NewLoginHandler(loginUC, validator.New()),
		UserDetails: adapterhandler.NewUserDetailsHandler(resolveUC, cfg.CookieName),
		Logout:      adapterhandler.NewLogoutHandler(logoutUC, cfg.CookieName),
		Validate:    adapterhandler.NewValidateHandler(validateUC, cfg.CookieName),
		Health:      adapterhandler.NewHealthHandler(serviceName),
	}

	e := newServer(otelCfg)
	e.Use(appmiddleware.SecurityHeaders(cfg.CookieSecure))
	e.Use(appmiddleware.CORS(cfg.AllowedOrigins))

	loginRL := appmiddleware.NewRateLimiter(appmiddleware.PerMinute(cfg.LoginRatePerMinute), loginBurst)
	defer loginRL.Close()

	var validateGuard echo.MiddlewareFunc
	if cfg.InternalAuthSecret != "" {
		validateGuard = appmiddleware.InternalAuth(cfg.InternalAuthSecret)
	}
	handlers.Register(e, loginRL.Middleware(), validateGuard)

	if err := serve(ctx, e, cfg.Port, otelShutdown); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server exited properly")
}

type sessionStore interface {
	domain.SessionStore
	io.Closer
}

func newSessionStore(ctx context.Context, cfg *config.IdentityConfig) (sessionStore, error) {
	if cfg.StoreBackend != config.StoreRedis {
		return store.NewMemoryStore(expiredRetention), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	rs := store.NewRedisStore(client, "", expiredRetention)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	return redisSessionStore{RedisStore: rs, client: client}, nil
}

type redisSessionStore struct {
	*store.RedisStore
	client *redis.Client
}

func (s redisSessionStore) Close() error {
	return s.client.Close()
}

func newCredentialStore(cfg *config.IdentityConfig) (*credential.Store, error) {
	if cfg.CredentialsFile != "" {
		return credential.LoadFile(cfg.CredentialsFile)
	}
	slog.Warn("CREDENTIALS_FILE not set, seeding demo accounts")
	return credential.NewDemoStore(bcrypt.DefaultCost)
}

func parseSameSite(s string) domain.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return domain.SameSiteStrict
	case "none":
		return domain.SameSiteNone
	default:
		return domain.SameSiteLax
	}
}

func newServer(otelCfg otel.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(appmiddleware.RequestContext())

	if otelCfg.Enabled {
		e.Use(otelecho.Middleware(otelCfg.ServiceName))
		e.Use(appmiddleware.OTelStatusMiddleware())
	}

	e.Use(appmiddleware.RequestLogger())
	e.Use(middleware.Recover())
	return e
}

func serve(ctx context.Context, e *echo.Echo, port string, otelShutdown otel.ShutdownFunc) error {
	address := fmt.Sprintf(":%s", port)
	slog.InfoContext(ctx, "starting identity service", "address", address)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return otelShutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// runHealthcheck performs a health check against the local server.
func runHealthcheck(defaultPort string) error {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%s/health", port))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned status: %d", resp.StatusCode)
	}
	return nil
}
