package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rtchat/internal/cache"
	"rtchat/internal/config"
	"rtchat/internal/database"
	"rtchat/internal/handlers"
	"rtchat/internal/services"
	"rtchat/internal/session"
	ws "rtchat/internal/websocket"
	"rtchat/pkg/logger"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresDB(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Invalid Redis URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis: %v", err)
	}
	logger.Info("Connected to Redis successfully")

	// Sessions: Redis-backed store behind pluggable token decoders
	sessionStore := session.NewStore(redisClient, cfg.Session.TTL)
	cookies := session.NewCookieDecoder(cfg.Session.Secret)
	jwts := session.NewJWTDecoder(cfg.Session.Secret)
	resolver := session.NewResolver(sessionStore, cookies, jwts)

	// Recent-message cache in front of the message log
	messageCache := cache.NewMessageCache(redisClient, cfg.Cache.Capacity, cfg.Cache.TTL)

	// Initialize services
	roomService := services.NewRoomService(db)
	messageService := services.NewMessageService(db, messageCache)

	// Room broadcast registry shared by all connections
	registry := ws.NewRegistry()

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(db, sessionStore, cookies, jwts, resolver, cfg.Session.TTL)
	roomHandlers := handlers.NewRoomHandlers(roomService, messageService, resolver)
	wsHandlers := handlers.NewWebSocketHandlers(resolver, roomService, messageService, registry)

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, authHandlers, roomHandlers, wsHandlers, db, messageCache)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	logger.Info("🚀 Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("📡 WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)
	printAPIEndpoints()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
}

func setupRoutes(mux *http.ServeMux, authHandlers *handlers.AuthHandlers, roomHandlers *handlers.RoomHandlers, wsHandlers *handlers.WebSocketHandlers, db database.Database, messageCache *cache.MessageCache) {
	// Auth routes
	mux.HandleFunc("POST /api/auth/register", authHandlers.Register)
	mux.HandleFunc("POST /api/auth/login", authHandlers.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandlers.Logout)
	mux.HandleFunc("GET /api/auth/profile", authHandlers.Profile)

	// Room routes
	mux.HandleFunc("POST /api/rooms", roomHandlers.CreateRoom)
	mux.HandleFunc("GET /api/rooms", roomHandlers.ListRooms)
	mux.HandleFunc("POST /api/rooms/{roomId}/join", roomHandlers.JoinRoom)
	mux.HandleFunc("GET /api/rooms/{roomId}/messages", roomHandlers.GetMessages)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "OK", "postgres": "connected", "redis": "connected"}
		code := http.StatusOK
		if err := db.Ping(r.Context()); err != nil {
			status["status"] = "DEGRADED"
			status["postgres"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
		if err := messageCache.Ping(r.Context()); err != nil {
			status["status"] = "DEGRADED"
			status["redis"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	})

	// WebSocket route
	mux.HandleFunc("GET /ws", wsHandlers.HandleWebSocket)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func printAPIEndpoints() {
	logger.Info("🔗 API endpoints:")
	logger.Info("   POST /api/auth/register")
	logger.Info("   POST /api/auth/login")
	logger.Info("   POST /api/auth/logout")
	logger.Info("   GET  /api/auth/profile")
	logger.Info("   GET  /api/rooms")
	logger.Info("   POST /api/rooms")
	logger.Info("   POST /api/rooms/{roomId}/join")
	logger.Info("   GET  /api/rooms/{roomId}/messages")
	logger.Info("   GET  /health")
}
