package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dataops-hq/dataops-assistant/internal/api"
	"github.com/dataops-hq/dataops-assistant/internal/registry"
)

// ToolServerHandler exposes the tool registry over HTTP: catalog listing,
// per-tool schema lookup, and execution.
type ToolServerHandler struct {
	registry *registry.Registry
}

func NewToolServerHandler(reg *registry.Registry) *ToolServerHandler {
	return &ToolServerHandler{registry: reg}
}

// HandleRoot reports liveness plus the service name.
func (h *ToolServerHandler) HandleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "MCP DataOps Server"})
}

// HandleHealth reports liveness.
func (h *ToolServerHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// HandleListTools returns the full catalog: every registered tool's name,
// description, and schemas, in registration order.
func (h *ToolServerHandler) HandleListTools(c *gin.Context) {
	defs := h.registry.List()
	catalog := api.ToolCatalog{
		Tools: make([]api.ToolDescriptor, 0, len(defs)),
		Count: h.registry.Count(),
	}
	for _, def := range defs {
		descriptor, err := describeTool(&def)
		if err != nil {
			log.Printf("Error encoding schema for tool %s: %v", def.Name, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		catalog.Tools = append(catalog.Tools, descriptor)
	}
	c.JSON(http.StatusOK, catalog)
}

// HandleGetTool returns one tool's declaration, or 404 for an unknown name.
func (h *ToolServerHandler) HandleGetTool(c *gin.Context) {
	name := c.Param("name")
	def, err := h.registry.Get(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
		return
	}
	descriptor, err := describeTool(def)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, descriptor)
}

// HandleExecute runs one tool invocation. Execution failures of any kind —
// unknown tool, invalid arguments, handler errors — come back as a 200
// envelope with success=false; only an unparseable request is a 4xx.
func (h *ToolServerHandler) HandleExecute(c *gin.Context) {
	var req api.ToolExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	log.Printf("🛠️ Executing tool: %s", req.ToolName)

	result, err := h.registry.Dispatch(c.Request.Context(), req.ToolName, req.InputData)
	if err != nil {
		log.Printf("Tool execution failed: %v", err)
		c.JSON(http.StatusOK, api.ToolExecutionResponse{
			ToolName: req.ToolName,
			Success:  false,
			Error:    err.Error(),
		})
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		log.Printf("Error encoding result for tool %s: %v", req.ToolName, err)
		c.JSON(http.StatusOK, api.ToolExecutionResponse{
			ToolName: req.ToolName,
			Success:  false,
			Error:    "failed to encode tool result: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, api.ToolExecutionResponse{
		ToolName: req.ToolName,
		Success:  true,
		Result:   payload,
	})
}

// describeTool flattens a definition into its wire descriptor.
func describeTool(def *registry.Definition) (api.ToolDescriptor, error) {
	inputSchema, err := json.Marshal(def.InputSchema)
	if err != nil {
		return api.ToolDescriptor{}, err
	}
	descriptor := api.ToolDescriptor{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: inputSchema,
	}
	if def.OutputSchema.Type != "" {
		outputSchema, err := json.Marshal(def.OutputSchema)
		if err != nil {
			return api.ToolDescriptor{}, err
		}
		descriptor.OutputSchema = outputSchema
	}
	return descriptor, nil
}
