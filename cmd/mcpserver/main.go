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

	"github.com/dataops-hq/dataops-assistant/internal/dataops"
	"github.com/dataops-hq/dataops-assistant/internal/registry"
)

// main is the entry point for the MCP server. Its primary role is the
// "Composition Root": it loads configuration, builds the workspace and
// tool registry, injects dependencies, and starts the server.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("🚀 Starting MCP DataOps Server")

	// 1. LOAD CONFIGURATION
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("❌ FATAL: Configuration Error: %v", err)
	}
	log.Println("✅ Configuration loaded.")

	// 2. INITIALIZE SERVICES
	ws, err := dataops.LoadWorkspace(cfg.WorkspacePath)
	if err != nil {
		log.Fatalf("❌ FATAL: Could not load workspace snapshot: %v", err)
	}
	log.Printf("✅ Workspace loaded: %d pipelines, %d runs, %d secrets, %d resources (env=%s)",
		len(ws.Pipelines), len(ws.Runs), len(ws.Secrets), len(ws.Resources), ws.Environment)

	reg := registry.New()
	toolset := dataops.NewToolset(ws, cfg.TerraformPlansDir, cfg.AppLogPath)
	if err := toolset.RegisterAll(reg); err != nil {
		log.Fatalf("❌ FATAL: Could not register tools: %v", err)
	}
	log.Printf("✅ Registered %d MCP tools.", reg.Count())

	handler := NewToolServerHandler(reg)

	// 3. SETUP AND RUN THE WEB SERVER
	gin.SetMode(os.Getenv("GIN_MODE"))
	engine := gin.Default()
	engine.GET("/", handler.HandleRoot)
	engine.GET("/health", handler.HandleHealth)
	engine.GET("/tools", handler.HandleListTools)
	engine.GET("/tools/:name", handler.HandleGetTool)
	engine.POST("/execute", handler.HandleExecute)

	srv := &http.Server{Addr: fmt.Sprintf(":%s", cfg.Port), Handler: engine}
	runServerWithGracefulShutdown(srv)
}

// runServerWithGracefulShutdown handles the server lifecycle.
func runServerWithGracefulShutdown(srv *http.Server) {
	go func() {
		log.Printf("👂 MCP server is listening on http://localhost%s", srv.Addr)
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
