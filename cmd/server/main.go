package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"gp-connect/internal/config"
	"gp-connect/internal/database"
	"gp-connect/internal/models"
	"gp-connect/internal/modules/admin"
	"gp-connect/internal/modules/auth"
	"gp-connect/internal/modules/delivery"
	"gp-connect/internal/modules/matching"
	"gp-connect/internal/modules/messaging"
	"gp-connect/internal/modules/reviews"
	"gp-connect/internal/modules/trips"
	"gp-connect/internal/modules/users"
	"gp-connect/internal/notify"
	"gp-connect/internal/storage"
	"gp-connect/internal/ws"
	"gp-connect/pkg/mailer"
	"gp-connect/pkg/payment"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Object storage is optional in local development.
	var media *storage.Storage
	if cfg.S3Endpoint != "" {
		media, err = storage.New(cfg)
		if err != nil {
			log.Fatalf("Failed to init object storage: %v", err)
		}
		if err := media.EnsureBucket(ctx); err != nil {
			log.Fatalf("Failed to ensure media bucket: %v", err)
		}
	}

	var mail mailer.ServiceInterface
	if cfg.MailSender != "" {
		ses, err := mailer.NewSESService(ctx, cfg.MailSender)
		if err != nil {
			log.Fatalf("Failed to init mailer: %v", err)
		}
		mail = ses
	}

	hub := ws.NewHub()
	notifier := notify.New(pool, mail, hub)
	payments := payment.NewStripeService(cfg.StripeAPIKey)

	var googleOAuth *oauth2.Config
	if cfg.GoogleClientID != "" {
		googleOAuth = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	authHandler := auth.NewHandler(auth.NewService(auth.NewRepository(pool), cfg.JWTSecret, googleOAuth))
	tripHandler := trips.NewHandler(trips.NewService(trips.NewRepository(pool)))
	matchHandler := matching.NewHandler(matching.NewService(matching.NewRepository(pool), notifier))
	deliveryHandler := delivery.NewHandler(
		delivery.NewService(delivery.NewRepository(pool), payments, notifier, hub), media, hub)
	messageHandler := messaging.NewHandler(
		messaging.NewService(messaging.NewRepository(pool), hub), hub)
	userHandler := users.NewHandler(users.NewService(users.NewRepository(pool)), media, hub)
	reviewHandler := reviews.NewHandler(reviews.NewService(reviews.NewRepository(pool)))
	adminHandler := admin.NewHandler(admin.NewService(admin.NewRepository(pool), notifier))

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.ClientOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowCredentials: true,
	}))

	public := e.Group("")
	authHandler.RegisterRoutes(public)

	authed := e.Group("", auth.JWTMiddleware(cfg.JWTSecret))
	tripHandler.RegisterRoutes(authed)
	matchHandler.RegisterRoutes(authed)
	deliveryHandler.RegisterRoutes(authed)
	messageHandler.RegisterRoutes(authed)
	userHandler.RegisterRoutes(authed)
	reviewHandler.RegisterRoutes(e, authed)

	adminGroup := e.Group("/admin", auth.JWTMiddleware(cfg.JWTSecret), auth.RequireRole(models.RoleAdmin))
	adminHandler.RegisterRoutes(adminGroup)

	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown: %v", err)
	}
}
