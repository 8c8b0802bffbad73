package main

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/aslaburda/aslp_backend/config"
	"github.com/aslaburda/aslp_backend/controllers"
	"github.com/aslaburda/aslp_backend/logger"
	"github.com/aslaburda/aslp_backend/metrics"
	"github.com/aslaburda/aslp_backend/middleware"
	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/repositories"
	"github.com/aslaburda/aslp_backend/routes"
	"github.com/aslaburda/aslp_backend/security"
	"github.com/aslaburda/aslp_backend/services"
	"github.com/aslaburda/aslp_backend/utils"
	"github.com/aslaburda/aslp_backend/websocket"
)

// deps are the external collaborators of the server. Optional ones may be nil.
type deps struct {
	store  repositories.Store
	nonces security.NonceStore
	cache  *redis.Client
	mailer services.Mailer
	pusher services.Pusher
	hub    *websocket.Hub
	ai     *http.Client
	log    *zap.Logger
}

// server is the assembled application.
type server struct {
	echo     *echo.Echo
	users    *services.UserService
	settings *services.SettingsService
	nonces   *security.NonceManager
	jwt      *middleware.JWTManager
}

func main() {
	cfg := config.Load()
	log := logger.InitLogger(cfg.Env, cfg.LogLevel)
	defer log.Sync()

	_ = mime.AddExtensionType(".webmanifest", "application/manifest+json")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := config.ConnectDB(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	d := deps{
		store: repositories.NewMongoStore(db),
		hub:   websocket.NewHub(),
		log:   log,
	}

	d.cache = config.ConnectRedis(cfg, log)
	if d.cache != nil {
		d.nonces = security.NewRedisNonceStore(d.cache)
		defer d.cache.Close()
	} else {
		d.nonces = security.NewMemoryNonceStore()
	}

	if fcm := config.InitMessaging(ctx, cfg, log); fcm != nil {
		d.pusher = services.NewFCMPusher(fcm)
	}
	if cfg.SMTPHost != "" {
		d.mailer = services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	} else {
		log.Info("SMTP not configured; emails are skipped")
	}

	go d.hub.Run(ctx)

	srv, err := newServer(cfg, d)
	if err != nil {
		log.Fatal("Failed to build server", zap.Error(err))
	}

	if cfg.AdminEmail != "" {
		if err := srv.users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Error("Failed to ensure administrator", zap.Error(err))
		}
	}

	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		log.Fatal("Failed to create uploads directory", zap.Error(err))
	}

	go func() {
		log.Info("Server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.echo.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.echo.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// newServer wires services, controllers and routes on top of d.
func newServer(cfg *config.Config, d deps) (*server, error) {
	jwtManager, err := middleware.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}
	validate := utils.NewValidator()
	store := d.store

	settings := services.NewSettingsService(store, d.cache, models.DefaultSettings(cfg.AIEndpoint, cfg.AIModel), d.log)
	nonces := security.NewNonceManager(d.nonces, cfg.NonceTTL)

	var hub services.Broadcaster
	if d.hub != nil {
		hub = d.hub
	}
	users := services.NewUserService(store, jwtManager, d.log)
	notifications := services.NewNotificationService(store, store, settings, hub, d.mailer, d.pusher, d.log)
	apps := services.NewAppBuilderService(store, store, validate, cfg.UploadsDir, cfg.PublicBaseURL, d.log)
	menus := services.NewMenuService(store, validate)
	listings := services.NewListingService(store, store, store, notifications, validate, d.log)
	affiliates := services.NewAffiliateService(services.AffiliateStores{
		Affiliates:  store,
		Tiers:       store,
		Commissions: store,
		Payouts:     store,
		Creatives:   store,
		Users:       store,
		Analytics:   store,
	}, notifications, validate, cfg.PublicBaseURL, d.log)
	analytics := services.NewAnalyticsService(store)
	tools := services.NewToolsService(store, d.log)
	ai := services.NewAIAgentService(d.ai, store, store, store, tools, d.log)

	ajax := controllers.NewAjaxController(nonces, settings)
	ajax.Register(controllers.AppActions(apps, menus)...)
	ajax.Register(controllers.ListingActions(listings)...)
	ajax.Register(controllers.AffiliateActions(affiliates)...)
	ajax.Register(controllers.AdminActions(settings, analytics, ai, tools)...)
	ajax.Register(controllers.NotificationActions(notifications)...)

	e := echo.New()
	e.HideBanner = true
	e.Validator = &utils.CustomValidator{Validator: validate}

	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(logger.Middleware(d.log))
	e.Use(metrics.Middleware)
	e.Use(middleware.GlobalCORS(cfg.CORSOrigins))
	e.Use(middleware.SecurityHeadersWithConfig(middleware.SecurityConfig{
		AllowedDomains:       cfg.CORSOrigins,
		InlineScriptPrefixes: []string{"/apps/"},
	}))
	e.Use(middleware.NewRateLimiter(cfg.RateLimit).RateLimit())
	e.Use(middleware.OptionalJWT(jwtManager))
	e.Use(middleware.LoadPrincipal(store))

	site := controllers.NewSiteController(apps, affiliates, analytics, settings, d.hub,
		websocket.NewUpgrader(cfg.CORSOrigins), cfg.PublicBaseURL)
	routes.SetupRoutes(e, routes.Handlers{
		Ajax: ajax,
		Auth: controllers.NewAuthController(users, nonces),
		Site: site,
	}, jwtManager, cfg.UploadsDir)

	return &server{echo: e, users: users, settings: settings, nonces: nonces, jwt: jwtManager}, nil
}
