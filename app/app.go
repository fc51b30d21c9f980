package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tidecartapp/tidecart/internal/auth"
	"github.com/tidecartapp/tidecart/internal/cache"
	"github.com/tidecartapp/tidecart/internal/catalog"
	"github.com/tidecartapp/tidecart/internal/checkout"
	"github.com/tidecartapp/tidecart/internal/config"
	"github.com/tidecartapp/tidecart/internal/crypto"
	"github.com/tidecartapp/tidecart/internal/db"
	"github.com/tidecartapp/tidecart/internal/email"
	"github.com/tidecartapp/tidecart/internal/handlers"
	"github.com/tidecartapp/tidecart/internal/payments"
	"github.com/tidecartapp/tidecart/internal/services"
	"github.com/tidecartapp/tidecart/internal/session"
)

type App struct {
	Config         *config.Config
	Logger         *slog.Logger
	DB             *pgxpool.Pool
	CacheProvider  cache.Provider
	SessionManager *session.Manager
	Handlers       *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	storefront, err := loadStorefront(cfg.StorefrontFile)
	if err != nil {
		return nil, err
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:      cfg.CacheProvider,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	sessionStore, err := session.NewStore(startupCtx, session.Config{
		Provider:      cfg.SessionStoreProvider,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		Encryptor:     encryptor,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	sessionManager := session.NewManager(sessionStore, handlers.SecureCookiesFromConfig(cfg))

	cleanup := func() {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, "tidecart", 0)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	emailProvider, err := email.NewProvider(email.Config{
		Provider: cfg.EmailProvider,
		APIKey:   cfg.EmailAPIKey,
		From:     cfg.EmailFrom,
		Domain:   cfg.EmailDomain,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}

	orderStore := db.NewOrderStore(database)
	couponStore := db.NewCouponStore(database)
	userStore := db.NewUserStore(database)
	settingsStore := db.NewSettingsStore(database)

	registrationService, err := services.NewRegistrationService(userStore, tokens, logger.With("component", "registration_service"))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to initialize registration service: %w", err)
	}

	couponService, err := services.NewCouponService(couponStore, cacheProvider, logger.With("component", "coupon_service"))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to initialize coupon service: %w", err)
	}

	settingsService, err := services.NewSettingsService(storefront, settingsStore, cacheProvider, logger.With("component", "settings_service"))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to initialize settings service: %w", err)
	}

	orderService, err := newOrderService(cfg, storefront, orderStore, emailProvider, logger)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to initialize order service: %w", err)
	}

	controller, err := checkout.NewController(checkout.Dependencies{
		Registrar: registrationService,
		Coupons:   couponService,
		Settings:  settingsService,
		Sink:      orderService,
		Logger:    logger.With("component", "checkout"),
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to initialize checkout controller: %w", err)
	}

	h, err := handlers.New(handlers.Dependencies{
		Config:         cfg,
		DB:             database,
		Storefront:     storefront,
		Checkout:       controller,
		Orders:         orderService,
		Registration:   registrationService,
		SessionManager: sessionManager,
		CacheProvider:  cacheProvider,
		Logger:         logger,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:         cfg,
		Logger:         logger,
		DB:             database,
		CacheProvider:  cacheProvider,
		SessionManager: sessionManager,
		Handlers:       h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.SessionManager != nil {
		closeSessionManager(a.Logger, a.SessionManager)
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func loadStorefront(path string) (*catalog.StorefrontConfig, error) {
	storefront, err := catalog.NewParser().ParseFile(path)
	if err != nil {
		return nil, err
	}
	if err := catalog.NewValidator().Validate(storefront); err != nil {
		return nil, fmt.Errorf("invalid storefront configuration: %w", err)
	}
	return storefront, nil
}

// newOrderService keeps the typed-nil payment client out of the order
// service; without a Stripe key orders are accepted but never charged.
func newOrderService(cfg *config.Config, storefront *catalog.StorefrontConfig, orderStore *db.OrderStore, emailProvider email.Provider, logger *slog.Logger) (*services.OrderService, error) {
	orderLogger := logger.With("component", "order_service")
	shopName := storefront.Shop.Name

	if strings.TrimSpace(cfg.StripeSecretKey) == "" {
		logger.Warn("STRIPE_SECRET_KEY is not set, payment sessions are disabled")
		return services.NewOrderService(orderStore, nil, emailProvider, shopName, cfg.BaseURL, orderLogger)
	}

	stripeClient := payments.NewClient(cfg.StripeSecretKey, storefront.Shop.Currency, cfg.BaseURL)
	return services.NewOrderService(orderStore, stripeClient, emailProvider, shopName, cfg.BaseURL, orderLogger)
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	case "text", "":
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level: cfg.LogLevel,
		}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel}))
}

func closeSessionManager(logger *slog.Logger, manager *session.Manager) {
	if manager == nil {
		return
	}
	if err := manager.Close(); err != nil && logger != nil {
		logger.Warn("failed to close session manager", "error", err)
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
