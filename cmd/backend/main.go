package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dataops-hq/dataops-assistant/internal/llm"
	"github.com/dataops-hq/dataops-assistant/internal/mcp"
	"github.com/dataops-hq/dataops-assistant/internal/orchestrator"
)

// main is the entry point for the backend. Its primary role is the
// "Composition Root": it loads configuration, initializes all services,
// injects dependencies, and starts the server.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	buildInfo := GetBuildInfo()
	log.Printf("🚀 Starting MCP DataOps Backend | Version: %s | Commit: %s", buildInfo.Version, buildInfo.GitCommit)

	// 1. LOAD CONFIGURATION
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("❌ FATAL: Configuration Error: %v", err)
	}
	log.Println("✅ Configuration loaded.")

	// 2. INITIALIZE SERVICES
	rdb := initializeCache(cfg)

	reasoner, err := llm.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("❌ FATAL: Could not create Gemini client: %v", err)
	}
	log.Printf("✅ Reasoning client initialized (model=%s).", cfg.GeminiModel)

	gateway := mcp.NewClient(cfg.MCPServerURL)
	log.Printf("✅ Tool gateway initialized (server=%s).", cfg.MCPServerURL)

	temperature := cfg.Temperature
	generationConfig := &llm.GenerationConfig{
		Model:       cfg.GeminiModel,
		Temperature: &temperature,
		MaxTokens:   cfg.MaxTokens,
	}
	orch := orchestrator.New(reasoner, gateway, generationConfig)

	chatHandler := NewChatHandler(orch, cfg, rdb)
	log.Println("✅ All services initialized.")

	// 3. SETUP AND RUN THE WEB SERVER
	gin.SetMode(os.Getenv("GIN_MODE"))
	engine := gin.Default()
	engine.GET("/", chatHandler.HandleRoot)
	engine.GET("/health", chatHandler.HandleHealth)
	engine.POST("/chat", chatHandler.HandleChat)

	srv := &http.Server{Addr: fmt.Sprintf(":%s", cfg.Port), Handler: engine}
	runServerWithGracefulShutdown(srv)
}

// initializeCache connects to Redis when an address is configured. The
// cache is an optimization, not a dependency: an unreachable Redis logs a
// warning and the backend runs uncached.
func initializeCache(cfg *AppConfig) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Println("ℹ️ REDIS_ADDR not set, response caching disabled.")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("WARNING: Could not connect to Redis at %s, response caching disabled: %v", cfg.RedisAddr, err)
		return nil
	}
	log.Printf("✅ Redis response cache connected (%s).", cfg.RedisAddr)
	return rdb
}

// runServerWithGracefulShutdown handles the server lifecycle.
func runServerWithGracefulShutdown(srv *http.Server) {
	go func() {
		log.Printf("👂 Backend is listening on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Listen error: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server shutdown failed:", err)
	}

	log.Println("👋 Server exited gracefully.")
}
