package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "bahafit/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"bahafit/internal/auth"
	"bahafit/internal/cache"
	"bahafit/internal/config"
	"bahafit/internal/db"
	"bahafit/internal/handler"
	"bahafit/internal/logger"
	"bahafit/internal/notify"
	"bahafit/internal/payment"
	"bahafit/internal/repository"
	"bahafit/internal/router"
	"bahafit/internal/service"
)

// @title Bahafit API
// @version 1.0
// @description Fitness directory and event registration API with tiered pricing, hosted payments and admin moderation.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	gormDB, err := db.Open(cfg.DBDriver, cfg.MySQLDSN, cfg.SQLitePath)
	if err != nil {
		zl.Fatal("database init", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		zl.Fatal("migrate", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	publisher, err := notify.New(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		// Notifications are best effort; run without them.
		zl.Warn("amqp unavailable, registration messages disabled", zap.Error(err))
		publisher = notify.Nop{}
	}
	defer publisher.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	eventRepo := repository.NewEventRepository(gormDB)
	userEventRepo := repository.NewUserEventRepository(gormDB, time.Now)
	registrationRepo := repository.NewRegistrationRepository(gormDB, time.Now)
	listingRepo := repository.NewListingRepository(gormDB)
	transactor := repository.NewTransactor(gormDB, time.Now)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	tokenStore := auth.NewTokenStore(cacheClient)
	providers := auth.NewProviders(strings.TrimRight(cfg.SiteURL, "/")+"/api/auth/oauth",
		auth.OAuthCredentials{ClientID: cfg.GoogleClientID, ClientSecret: cfg.GoogleClientSecret},
		auth.OAuthCredentials{ClientID: cfg.FacebookClientID, ClientSecret: cfg.FacebookClientSecret},
	)

	var gateway payment.Gateway
	if cfg.PaymentsEnabled() {
		gateway = payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, nil)
	} else {
		zl.Info("no payment provider configured, paid registrations wait for manual payment")
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, zl)
	eventService := service.NewEventService(eventRepo, userEventRepo, registrationRepo, cacheClient, zl, time.Now)
	registrationService := service.NewRegistrationService(service.RegistrationDeps{
		Events:        eventRepo,
		Registrations: registrationRepo,
		Tx:            transactor,
		Gateway:       gateway,
		URLs:          service.NewSiteURLs(cfg.SiteURL),
		Publisher:     publisher,
		Cache:         cacheClient,
		Log:           zl,
		Now:           time.Now,
	})
	dashboardService := service.NewDashboardService(registrationRepo, userEventRepo)
	listingService := service.NewListingService(listingRepo, cacheClient)
	adminService := service.NewAdminService(eventRepo, listingRepo, cacheClient, zl)
	userService := service.NewUserService(userRepo, cacheClient, zl)
	importService := service.NewImportService(eventRepo, listingRepo, userRepo, cacheClient, zl)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, created, err := importService.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword, "Administrator"); err != nil {
			zl.Error("bootstrap admin", zap.Error(err))
		} else if created {
			zl.Info("admin account created", zap.String("email", cfg.AdminEmail))
		}
	}

	// Initialize handlers
	handlers := router.Handlers{
		Auth: handler.NewAuthHandler(authService, handler.AuthHandlerConfig{
			JWT:           jwtService,
			Providers:     providers,
			SiteURL:       cfg.SiteURL,
			SecureCookies: cfg.IsProduction(),
			Log:           zl,
		}),
		Events:        handler.NewEventHandler(eventService),
		Registrations: handler.NewRegistrationHandler(registrationService, dashboardService),
		Listings:      handler.NewListingHandler(listingService),
		Admin:         handler.NewAdminHandler(adminService, registrationService),
		Users:         handler.NewUserHandler(userService),
		Seed:          handler.NewSeedHandler(importService, cfg.CMSExport),
		Payments:      handler.NewPaymentHandler(registrationService),
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{JWT: jwtService, AuthService: authService, Log: zl}, handlers)

	swaggerHost := cfg.SwaggerHost
	if swaggerHost == "" {
		swaggerHost = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(swaggerHost, "http://") && !strings.HasPrefix(swaggerHost, "https://") {
		swaggerHost = "http://" + swaggerHost
	}
	zl.Info("swagger documentation available", zap.String("url", swaggerHost+"/swagger/index.html"))

	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server start", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		zl.Error("server shutdown", zap.Error(err))
	}
}
