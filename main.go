// Command exthub is the entry point of the exthub API server. It wires
// configuration, the database pool, migrations, the auth primitives and the
// feature modules together, mounts the HTTP router and runs the server with
// graceful shutdown.
//
// @title Exthub API
// @version 1.0
// @description User-account management and extension build registry.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/user/exthub-go/apperror"
	"github.com/user/exthub-go/auth"
	"github.com/user/exthub-go/config"
	"github.com/user/exthub-go/db"
	"github.com/user/exthub-go/extensions"
	"github.com/user/exthub-go/response"
	"github.com/user/exthub-go/users"
)

func main() {
	// .env is a development convenience; in production variables are set
	// directly in the environment.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading it: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := db.NewPool(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(cfg.DB, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Secrets are validated here, once, so misconfiguration kills the
	// process instead of surfacing per request.
	issuer, err := auth.NewTokenIssuer(cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to create token issuer: %v", err)
	}

	errWriter := response.NewErrorWriter(cfg.Server.IsProduction())

	userRepo := users.NewPostgresRepository(pool)
	userService := users.NewService(userRepo, issuer)
	userHandlers := users.NewHandlers(userService, errWriter)

	extensionRepo := extensions.NewPostgresRepository(pool)
	extensionService := extensions.NewService(extensionRepo)
	extensionHandlers := extensions.NewHandlers(extensionService, errWriter)

	requireSecret, err := extensions.NewSecretMiddleware(cfg.Extension.Secret, errWriter)
	if err != nil {
		log.Fatalf("Failed to create extension secret middleware: %v", err)
	}

	authenticate := auth.Authenticate(issuer, errWriter)
	requireAdmin := auth.RequireAdmin(userService, errWriter)

	r := chi.NewRouter()

	// Global middleware, registered before any routes.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Unmatched routes get the uniform envelope instead of the default
	// plain-text 404.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errWriter.WriteError(w, r, apperror.NewNotFoundError("Route not found", nil))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, "OK", nil)
	})

	r.Route("/users", func(r chi.Router) {
		userHandlers.RegisterRoutes(r, authenticate, requireAdmin)
	})
	r.Route("/extensions", func(r chi.Router) {
		extensionHandlers.RegisterRoutes(r, requireSecret)
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run the server in a goroutine so the main goroutine can wait for
	// shutdown signals.
	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped gracefully")
}
