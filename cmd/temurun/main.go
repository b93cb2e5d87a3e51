package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/temurun/internal/cache"
	"github.com/Skotchmaster/temurun/internal/events"
	"github.com/Skotchmaster/temurun/internal/httpserver"
	"github.com/Skotchmaster/temurun/internal/models"
	"github.com/Skotchmaster/temurun/internal/ratelimit"
	"github.com/Skotchmaster/temurun/internal/repo"
	"github.com/Skotchmaster/temurun/internal/search"
	"github.com/Skotchmaster/temurun/internal/service"
	"github.com/Skotchmaster/temurun/internal/session"
	"github.com/Skotchmaster/temurun/internal/storage"
	"github.com/Skotchmaster/temurun/pkg/config"
	pkgdb "github.com/Skotchmaster/temurun/pkg/db"
	"github.com/Skotchmaster/temurun/pkg/logging"
	loggingmw "github.com/Skotchmaster/temurun/pkg/middleware/logging"
	"github.com/Skotchmaster/temurun/pkg/middleware/metrics"
)

const usage = `usage: temurun [serve|migrate|reindex|passcode-hash <passcode>]`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "passcode-hash":
		if len(os.Args) != 3 || os.Args[2] == "" {
			log.Fatal(usage)
		}
		hash, err := session.HashPasscode(os.Args[2])
		if err != nil {
			log.Fatalf("hash passcode: %v", err)
		}
		fmt.Println(hash)
		return
	case "serve", "migrate", "reindex":
	default:
		log.Fatal(usage)
	}

	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer closeDB(db)

	switch cmd {
	case "migrate":
		if err := pkgdb.Migrate(db, models.All()...); err != nil {
			log.Fatalf("%v", err)
		}
		logger.Info("migrate_done")
		return
	case "reindex":
		index := openIndex(cfg)
		if index == nil {
			log.Fatal("reindex needs ES_URL")
		}
		catalog := &service.CatalogService{Repo: &repo.GormRepo{DB: db}, Index: index}
		n, err := catalog.ReindexAll(context.Background())
		if err != nil {
			log.Fatalf("reindex: %v", err)
		}
		logger.Info("reindex_done", "documents", n)
		return
	}

	serve(cfg, db, logger)
}

func serve(cfg config.Config, db *gorm.DB, logger *slog.Logger) {
	cfg.MustAdminSecrets()

	secure := cfg.SecureCookies()
	r := &repo.GormRepo{DB: db}

	var redisCache *cache.Redis
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		cancel()
		if err != nil {
			logger.Warn("redis_unavailable", "addr", cfg.RedisAddr, "error", err)
		} else {
			redisCache = rc
			defer func() { _ = rc.Client.Close() }()
		}
	}

	var orderCache cache.Cache = cache.Nop{}
	if redisCache != nil {
		orderCache = redisCache
	}

	var limitStore ratelimit.Store = &ratelimit.GormStore{DB: db}
	if cfg.RateLimitBackend == "redis" {
		if redisCache == nil {
			logger.Warn("rate_limit_backend_fallback", "wanted", "redis", "using", "db")
		} else {
			limitStore = &ratelimit.RedisStore{Client: redisCache.Client, Prefix: "temurun:rl:"}
		}
	}
	limiter := &ratelimit.Limiter{Store: limitStore, Strict: cfg.RateLimitStrict}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	auth := session.NewAuthenticator(session.Options{
		Secret:       cfg.AdminSessionSecret,
		Passcode:     cfg.AdminPasscode,
		PasscodeHash: cfg.AdminPasscodeHash,
		TTL:          cfg.AdminSessionTTL,
	})
	if !auth.PasscodeConfigured() {
		logger.Warn("admin_passcode_missing", "reason", "sign-in will reject every attempt")
	}

	settings := &service.SettingsService{Repo: r, EnvWANumber: cfg.WANumber}
	orderSvc := &service.OrderService{
		Repo:        r,
		Settings:    settings,
		Cache:       orderCache,
		CacheTTL:    cfg.OrderCacheTTL,
		Events:      publisher,
		Topic:       cfg.KafkaOrderTopic,
		AuditStrict: cfg.AuditStrict,
	}
	catalog := &service.CatalogService{
		Repo:  r,
		Blobs: &storage.FSStore{Root: cfg.UploadsDir, BaseURL: cfg.PublicImageBase},
		Index: openIndex(cfg),
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(metrics.Middleware())
	e.Use(echomw.SecureWithConfig(echomw.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "same-origin",
	}))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowCredentials: true,
		}))
	}

	httpserver.Register(e, &httpserver.Deps{
		DB: db,
		Shop: &httpserver.ShopHTTP{
			Catalog:        catalog,
			Orders:         orderSvc,
			Limiter:        limiter,
			CheckoutLimit:  cfg.CheckoutRateLimit,
			CheckoutWindow: cfg.CheckoutRateWindow,
			Secure:         secure,
		},
		Admin: &httpserver.AdminHTTP{
			Auth:         auth,
			CookieName:   cfg.AdminCookieName,
			Secure:       secure,
			Limiter:      limiter,
			SignInLimit:  cfg.SigninRateLimit,
			SignInWindow: cfg.SigninRateWindow,
			Orders:       orderSvc,
			Catalog:      catalog,
			Settings:     settings,
			Analytics:    &service.AnalyticsService{Repo: r},
		},
		Guard:      &session.Guard{Auth: auth, CookieName: cfg.AdminCookieName},
		ImagesBase: cfg.PublicImageBase,
		UploadsDir: cfg.UploadsDir,

		UploadLimit: cfg.UploadMaxBody,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown", "error", err)
	}
	logger.Info("server_stopped")
}

// openIndex returns nil when search is not configured or unreachable.
func openIndex(cfg config.Config) *search.Index {
	if cfg.ESURL == "" {
		return nil
	}
	index, err := search.NewIndex(search.Config{
		URL:      cfg.ESURL,
		User:     cfg.ESUser,
		Password: cfg.ESPassword,
		Index:    cfg.ESIndex,
	})
	if err != nil {
		slog.Warn("search_unavailable", "url", cfg.ESURL, "error", err)
		return nil
	}
	return index
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
