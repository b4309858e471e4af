package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dataops-hq/dataops-assistant/internal/api"
	"github.com/dataops-hq/dataops-assistant/internal/orchestrator"
	cacheversion "github.com/dataops-hq/dataops-assistant/internal/version"
)

// ChatHandler owns the chat endpoint: cache lookup, orchestration, and
// response caching.
type ChatHandler struct {
	orchestrator *orchestrator.Orchestrator
	config       *AppConfig
	rdb          *redis.Client
}

func NewChatHandler(orch *orchestrator.Orchestrator, config *AppConfig, rdb *redis.Client) *ChatHandler {
	return &ChatHandler{
		orchestrator: orch,
		config:       config,
		rdb:          rdb,
	}
}

// HandleRoot reports liveness plus service metadata.
func (h *ChatHandler) HandleRoot(c *gin.Context) {
	buildInfo := GetBuildInfo()
	c.JSON(http.StatusOK, gin.H{
		"service":     "MCP DataOps Backend",
		"status":      "healthy",
		"environment": h.config.Environment,
		"model":       h.config.GeminiModel,
		"build":       buildInfo,
	})
}

// HandleHealth reports liveness.
func (h *ChatHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// HandleChat runs one orchestration. History-free questions are answered
// from the response cache when possible; requests carrying history always
// go through the full loop, since the cached answer would ignore their
// context.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	startTime := time.Now()
	requestID := uuid.NewString()

	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	log.Printf("--- New Chat Request (ID: %s, Env: %s, Message: '%.60s...') ---", requestID, req.Environment, req.Message)

	cacheable := h.rdb != nil && len(req.History) == 0
	cacheKey := cacheversion.GenerateVersionedCacheKey("chatcache", req.Message, req.Environment)

	if cacheable {
		if cachedVal, err := h.rdb.Get(c.Request.Context(), cacheKey).Result(); err == nil {
			var cachedResp api.ChatResponse
			if json.Unmarshal([]byte(cachedVal), &cachedResp) == nil {
				log.Println("✅ Cache HIT")
				c.JSON(http.StatusOK, cachedResp)
				return
			}
		} else if err != redis.Nil {
			log.Printf("WARNING: Cache lookup failed: %v", err)
		}
		log.Println("⚠️ Cache MISS")
	}

	resp, err := h.orchestrator.Run(c.Request.Context(), req)
	if err != nil {
		log.Printf("Chat error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Chat processing error: " + err.Error()})
		return
	}
	log.Printf("--- Chat Complete (ID: %s, Tools: %d, Latency: %dms) ---",
		requestID, len(resp.ToolTraces), time.Since(startTime).Milliseconds())

	if cacheable {
		respBytes, err := json.Marshal(resp)
		if err != nil {
			log.Printf("WARNING: Failed to marshal response for caching: %v", err)
		} else {
			ttl := time.Duration(h.config.CacheTTLSecs) * time.Second
			if err := h.rdb.Set(c.Request.Context(), cacheKey, string(respBytes), ttl).Err(); err != nil {
				log.Printf("WARNING: Failed to cache response: %v", err)
			} else {
				log.Println("✅ Response CACHED")
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}
