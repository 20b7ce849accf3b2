// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"luckylogic-crm/internal/config"
	domainauth "luckylogic-crm/internal/domain/auth"
	"luckylogic-crm/internal/domain/customer"
	authHandler "luckylogic-crm/internal/handlers/auth"
	customerHandler "luckylogic-crm/internal/handlers/customer"
	dashboardHandler "luckylogic-crm/internal/handlers/dashboard"
	webHandler "luckylogic-crm/internal/handlers/web"
	wsHandler "luckylogic-crm/internal/handlers/websocket"
	"luckylogic-crm/internal/kvstore"
	"luckylogic-crm/internal/middleware"
	"luckylogic-crm/internal/pkg/jwt"
	"luckylogic-crm/internal/pkg/ratelimit"
	"luckylogic-crm/internal/pkg/session"
	"luckylogic-crm/internal/repository/postgres"
	"luckylogic-crm/internal/repository/supabase"
	authUsecase "luckylogic-crm/internal/service/auth"
	customersvc "luckylogic-crm/internal/service/customer"
	dashboardsvc "luckylogic-crm/internal/service/dashboard"
	"luckylogic-crm/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Server struct {
	cfg        config.AppConfig
	logger     *zap.Logger
	httpServer *http.Server
	store      kvstore.Store
	pool       *pgxpool.Pool
	cancel     context.CancelFunc
	hubDone    <-chan struct{}
}

// NewServer returns a server that is not yet listening.
func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Start connects the backends and serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	// ----- Counter store -----
	store, err := kvstore.Open(s.cfg.KV)
	if err != nil {
		return fmt.Errorf("failed to open counter store: %w", err)
	}
	s.store = store
	s.logger.Info("counter store connected", zap.String("backend", store.Backend()))

	// ----- Data service -----
	var (
		repo     customer.Repository
		sbClient *supabase.Client
	)
	if s.cfg.SupabaseURL != "" && s.cfg.SupabaseKey != "" {
		sbClient = supabase.NewClient(supabase.Config{
			URL:     s.cfg.SupabaseURL,
			Key:     s.cfg.SupabaseKey,
			MaxRPS:  s.cfg.DataMaxRPS,
			Timeout: s.cfg.DataTimeout,
		}, nil, s.logger)
	}

	switch s.cfg.DataBackend {
	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, s.cfg.DatabaseURL, s.cfg.DBMaxConns)
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		s.pool = pool
		repo = postgres.NewCustomerRepository(pool)
	default:
		repo = supabase.NewCustomerRepository(sbClient)
	}
	s.logger.Info("data service ready", zap.String("backend", s.cfg.DataBackend))

	// ----- Authenticator -----
	var authenticator domainauth.Authenticator
	switch s.cfg.AuthProvider {
	case config.AuthLocal:
		local, err := authUsecase.NewLocalAuthenticator(s.cfg.AdminEmail, s.cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("failed to set up local admin: %w", err)
		}
		authenticator = local
	default:
		authenticator = supabase.NewPasswordAuthenticator(sbClient)
	}

	engine, hub, err := buildEngine(ctx, s.cfg, s.logger, store, repo, authenticator)
	if err != nil {
		return err
	}
	s.hubDone = hub.Done()

	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP connections, stops the realtime hub and closes the
// backends.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.hubDone != nil {
		select {
		case <-s.hubDone:
		case <-ctx.Done():
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.store != nil {
		if cerr := s.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// buildEngine wires services, handlers and middleware over the given
// backends. The realtime hub runs until ctx is cancelled.
func buildEngine(
	ctx context.Context,
	cfg config.AppConfig,
	logger *zap.Logger,
	store kvstore.Store,
	repo customer.Repository,
	authenticator domainauth.Authenticator,
) (*gin.Engine, *websocket.Hub, error) {
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(cfg.JWT)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load JWT manager: %w", err)
	}
	if jwtManager.Ephemeral {
		logger.Warn("no JWT key pair configured, using a generated key; tokens will not survive a restart")
	}

	// ----- Session Manager & Login Limiter -----
	sessionManager := session.NewManager(store)
	loginLimiter := session.NewRateLimiter(store)

	// ----- Services -----
	authService := authUsecase.NewAuthService(authenticator, jwtManager, sessionManager, loginLimiter, logger)

	hub := websocket.NewHub(authService, logger)
	authService.SetRevoker(hub)
	go hub.Run(ctx)

	cache := customersvc.NewListCache(store, cfg.ListCacheTTL, logger)
	customerService := customersvc.NewCustomerService(repo, cache, hub, logger)
	dashboardService := dashboardsvc.NewDashboardService(repo, logger)

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:      authHandler.NewAuthHandler(authService, logger),
		CustomerHandler:  customerHandler.NewCustomerHandler(customerService, logger),
		DashboardHandler: dashboardHandler.NewDashboardHandler(dashboardService, logger),
		LandingHandler:   webHandler.NewLandingHandler(cfg.AppName, logger),
		WSHandler:        wsHandler.NewWebSocketHandler(hub, cfg.AllowedOrigins, logger),
		AuthMiddleware:   middleware.NewAuthMiddleware(authService),
	}

	// ----- Middlewares -----
	var stats ratelimit.StatsRecorder
	if cfg.RateAnalytics {
		stats = ratelimit.NewStats(store, "ratelimit:analytics", cfg.AnalyticsTTL)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.Gate(middleware.GateOptions{
			Limiter:  ratelimit.NewSlidingWindow(store, cfg.RateLimit, cfg.RateWindow),
			FailMode: middleware.FailMode(cfg.RateFailMode),
			Stats:    stats,
			Logger:   logger,
		}),
	)

	SetupRouter(engine, handlers)
	return engine, hub, nil
}
