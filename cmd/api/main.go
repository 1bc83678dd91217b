// Package main is the entry point for the live chat API server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"livechat/internal/auth"
	"livechat/internal/config"
	"livechat/internal/database"
	"livechat/internal/handlers"
	appwebsocket "livechat/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// main initializes the application, sets up dependencies, defines routes,
// and starts the HTTP server with graceful shutdown.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Critical error loading configuration: %v", err)
	}

	// --- Dependency Injection ---
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Critical error! Failed to connect to the database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatalf("Critical error during database migration: %v", err)
	}

	authSvc, err := auth.NewAuthService(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Critical error: failed to create authentication service: %v", err)
	}

	validate := validator.New()
	assistant := appwebsocket.NewAssistant(db, db, authSvc)
	hub := appwebsocket.NewHub()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go hub.Run(ctx)

	// --- Router and Server Setup ---
	router := setupRouter(db, cfg, assistant, hub, validate)
	srv := &http.Server{Addr: cfg.ServerAddr, Handler: router}

	go func() {
		log.Printf("Server is ready for connections and listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed with error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutdown signal received. Starting graceful shutdown...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Error during graceful server shutdown: %v", err)
	}

	log.Println("Server stopped successfully.")
}

// setupRouter initializes all handlers and registers all API routes.
func setupRouter(db *database.DB, cfg *config.AppConfig, assistant appwebsocket.Assistant, hub *appwebsocket.Hub, validate *validator.Validate) *chi.Mux {
	authGuard := &handlers.Auth{Assistant: assistant}
	chatMessagesHandler := handlers.NewChatMessagesHandler(db, validate)
	blockedUsersHandler := handlers.NewBlockedUsersHandler(db, validate)
	wsHandler := handlers.NewWSHandler(hub, assistant, cfg)

	r := chi.NewRouter()

	// --- Middleware Stack ---
	setupCORS(r, cfg)
	r.Use(chimiddleware.RequestID, chimiddleware.Logger, chimiddleware.Recoverer)

	// --- Route Registration ---

	// The chat channel authenticates per join event, not per connection.
	r.Get("/ws", wsHandler.ServeWs)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authGuard.Middleware)

			// Chat messages
			r.Get("/chat_messages", chatMessagesHandler.Filter)
			r.Post("/chat_messages", chatMessagesHandler.Create)
			r.Put("/chat_messages/{id}", chatMessagesHandler.Update)
			r.Delete("/chat_messages/{id}", chatMessagesHandler.Delete)
			r.Get("/chat_messages/{id}/logs", chatMessagesHandler.Logs)

			// Blocked users
			r.Get("/blocked_users/{streamId}", blockedUsersHandler.List)
			r.Post("/blocked_users", blockedUsersHandler.Create)
			r.Delete("/blocked_users", blockedUsersHandler.Delete)
		})
	})

	return r
}

// --- Middleware Configuration ---

func setupCORS(r *chi.Mux, cfg *config.AppConfig) {
	allowedOrigins := strings.Split(cfg.CORSAllowedOrigins, ",")
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		MaxAge:           cfg.CORSMaxAge,
	}).Handler)
}
