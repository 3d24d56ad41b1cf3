package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/upbartr/backend/internal/config"
	"github.com/upbartr/backend/internal/database"
	postgresrepo "github.com/upbartr/backend/internal/repository/postgres"
	"github.com/upbartr/backend/internal/service"
	"github.com/upbartr/backend/internal/transport/http/handlers"
	"github.com/upbartr/backend/internal/transport/http/middleware"
	"github.com/upbartr/backend/internal/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Database
	pool, err := database.Connect(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to database")
	}
	defer pool.Close()
	log.Info().Msg("connected to database")

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	convRepo := postgresrepo.NewConversationRepo(pool)
	msgRepo := postgresrepo.NewMessageRepo(pool)

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	convService := service.NewConversationService(convRepo, msgRepo, userRepo)

	// WebSocket hub: room joins are authorized against conversation
	// membership through the conversation service.
	hub := ws.NewHub(convService)
	go hub.Run()
	defer hub.Close()
	convService.SetNotifier(ws.NewHubNotifier(hub))

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	convHandler := handlers.NewConversationHandler(convService)

	// Auth middleware
	auth := middleware.Auth(cfg.JWTSecret)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /ws", ws.ServeWS(hub, cfg.JWTSecret))

	// Protected - Conversations
	mux.Handle("GET /api/conversations", auth(http.HandlerFunc(convHandler.List)))
	mux.Handle("GET /api/conversations/stats", auth(http.HandlerFunc(convHandler.Stats)))
	mux.Handle("GET /api/conversations/{conversationId}/messages", auth(http.HandlerFunc(convHandler.Messages)))
	mux.Handle("POST /api/conversations/{conversationId}/messages", auth(http.HandlerFunc(convHandler.Send)))
	mux.Handle("POST /api/conversations/messages", auth(http.HandlerFunc(convHandler.SendDirect)))
	mux.Handle("POST /api/conversations/{conversationId}/star", auth(http.HandlerFunc(convHandler.ToggleStar)))

	// Legacy alias, same handler as the messages list above.
	mux.Handle("GET /api/messages/{conversationId}", auth(http.HandlerFunc(convHandler.Messages)))

	// Start server with CORS
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Info().Str("addr", addr).Msg("starting server")
	if err := http.ListenAndServe(addr, middleware.CORS(mux)); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
