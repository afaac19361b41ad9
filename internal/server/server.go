// Package server собирает сервис синхронизации: хранилище, обработчики,
// middleware и жизненный цикл HTTP сервера.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/vaultsync/internal/crypto"
	"github.com/iudanet/vaultsync/internal/server/config"
	"github.com/iudanet/vaultsync/internal/server/handlers"
	"github.com/iudanet/vaultsync/internal/server/jwt"
	"github.com/iudanet/vaultsync/internal/server/middleware"
	"github.com/iudanet/vaultsync/internal/server/storage"
	"github.com/iudanet/vaultsync/internal/server/storage/s3envelope"
	"github.com/iudanet/vaultsync/internal/server/storage/sqlstore"
)

const healthPath = "/health"

// Server сервис синхронизации
type Server struct {
	cfg            *config.Config
	logger         *slog.Logger
	store          *sqlstore.Storage
	handler        http.Handler
	stopLimiter    func()
	now            func() time.Time
	passwordParams *crypto.PasswordParams
}

// Option настраивает Server
type Option func(*Server)

// WithPasswordParams задает параметры argon2id (в тестах - облегченные)
func WithPasswordParams(p crypto.PasswordParams) Option {
	return func(s *Server) { s.passwordParams = &p }
}

// New открывает хранилище и собирает HTTP обработчик.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string, opts ...Option) (*Server, error) {
	store, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		store:  store,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	envelopes, err := s.envelopeStorage(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	s.handler = s.routes(envelopes, version)
	return s, nil
}

func (s *Server) envelopeStorage(ctx context.Context) (storage.EnvelopeStorage, error) {
	if s.cfg.Envelopes.Backend != config.EnvelopeBackendS3 {
		return s.store, nil
	}

	s3cfg := s.cfg.Envelopes.S3
	store, err := s3envelope.New(ctx, s3envelope.Config{
		Bucket:    s3cfg.Bucket,
		Region:    s3cfg.Region,
		Endpoint:  s3cfg.Endpoint,
		AccessKey: s3cfg.AccessKey,
		SecretKey: s3cfg.SecretKey,
		Prefix:    s3cfg.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init s3 envelope storage: %w", err)
	}
	s.logger.InfoContext(ctx, "key envelopes stored in s3", slog.String("bucket", s3cfg.Bucket))
	return store, nil
}

// routes регистрирует маршруты и оборачивает их в middleware
func (s *Server) routes(envelopes storage.EnvelopeStorage, version string) http.Handler {
	jwtService := jwt.NewService(
		s.cfg.Auth.JWTSecret,
		s.cfg.Auth.AccessTokenTTL.Duration,
		s.cfg.Auth.RefreshTokenTTL.Duration,
	)

	params := crypto.DefaultPasswordParams
	if s.passwordParams != nil {
		params = *s.passwordParams
	}

	authHandler := handlers.NewAuthHandler(s.logger, s.store, s.store, s.store, jwtService, params)
	syncHandler := handlers.NewSyncHandler(s.logger, s.store, s.store)
	keysHandler := handlers.NewKeysHandler(s.logger, envelopes)
	devicesHandler := handlers.NewDevicesHandler(s.logger, s.store)
	healthHandler := handlers.NewHealthHandler(s.logger, s.store, version)

	authed := middleware.AuthMiddleware(s.logger, jwtService)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+healthPath, healthHandler.Health)

	mux.HandleFunc("POST /v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /v1/auth/logout", authHandler.Logout)
	mux.Handle("POST /v1/auth/mfa/enroll", authed(http.HandlerFunc(authHandler.MFAEnroll)))
	mux.Handle("POST /v1/auth/mfa/confirm", authed(http.HandlerFunc(authHandler.MFAConfirm)))

	mux.Handle("GET /v1/keys/envelope", authed(http.HandlerFunc(keysHandler.GetEnvelope)))
	mux.Handle("PUT /v1/keys/envelope", authed(http.HandlerFunc(keysHandler.PutEnvelope)))

	mux.Handle("POST /v1/sync/push", authed(http.HandlerFunc(syncHandler.Push)))
	mux.Handle("GET /v1/sync/pull", authed(http.HandlerFunc(syncHandler.Pull)))

	mux.Handle("GET /v1/devices", authed(http.HandlerFunc(devicesHandler.List)))

	var handler http.Handler = mux
	if s.cfg.Auth.RateLimit > 0 {
		limit, stop := middleware.RateLimitByPathMiddleware([]middleware.PathRateLimit{{
			Prefix: "/v1/auth/",
			Rate:   s.cfg.Auth.RateLimit,
			Window: s.cfg.Auth.RateWindow.Duration,
		}}, s.cfg.Auth.TrustProxy, s.logger)
		handler = limit(handler)
		s.stopLimiter = stop
	}
	handler = middleware.LoggingMiddleware(s.logger, healthPath)(handler)
	handler = middleware.RecoveryMiddleware(s.logger)(handler)

	return handler
}

// Handler возвращает корневой HTTP обработчик
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run обслуживает запросы на адресе из конфигурации до отмены ctx.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает запросы на ln, периодически удаляет просроченные refresh
// токены и корректно завершает работу при отмене ctx.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.InfoContext(gctx, "server listening", slog.String("addr", ln.Addr().String()))
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.cleanupLoop(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), s.cfg.ShutdownTimeout.Duration)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// cleanupLoop удаляет просроченные refresh токены по таймеру
func (s *Server) cleanupLoop(ctx context.Context) {
	interval := s.cfg.TokenCleanupInterval.Duration
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purgeExpiredTokens(ctx)
		}
	}
}

func (s *Server) purgeExpiredTokens(ctx context.Context) {
	n, err := s.store.DeleteExpiredTokens(ctx, s.now().UnixMilli())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete expired tokens", slog.Any("error", err))
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired refresh tokens deleted", slog.Int("count", n))
	}
}

// Close освобождает ресурсы сервера
func (s *Server) Close() error {
	if s.stopLimiter != nil {
		s.stopLimiter()
	}
	return s.store.Close()
}
