package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/gin-gonic/gin"
	"github.com/jayascript1/menubot/internal/logger"
	"github.com/jayascript1/menubot/internal/repository"
)

// Tool names accepted by POST /api/v1/tools/call.
const (
	ToolValidateMenu = "validate_menu"
	ToolAnalyzeMenu  = "analyze_menu"
	ToolGetScan      = "get_scan"
	ToolListScans    = "list_scans"
	ToolSearchDishes = "search_dishes"
)

var errUnknownTool = errors.New("unknown tool")

// ToolInfo describes one callable tool.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type validateMenuParams struct {
	Raw interface{} `json:"raw"`
}

type analyzeMenuParams struct {
	Raw         interface{} `json:"raw"`
	HungerLevel string      `json:"hunger_level,omitempty"`
}

type getScanParams struct {
	ID string `json:"id"`
}

type listScansParams struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

type searchDishesParams struct {
	Query       string  `json:"query"`
	TopK        int     `json:"top_k,omitempty"`
	MaxPrice    float64 `json:"max_price,omitempty"`
	MaxCalories float64 `json:"max_calories,omitempty"`
	ExcludeScan string  `json:"exclude_scan,omitempty"`
}

type toolFunc func(c *gin.Context, req *protocol.CallToolRequest) (interface{}, error)

// ToolHandler exposes the analysis pipeline as MCP-style tool calls so
// assistants can validate menus and query past scans.
type ToolHandler struct {
	scans  ScanService
	dishes DishSearcher
	tools  map[string]toolFunc
}

// NewToolHandler creates a tool handler. dishes may be nil, in which case
// search_dishes is not offered.
func NewToolHandler(scans ScanService, dishes DishSearcher) *ToolHandler {
	h := &ToolHandler{scans: scans, dishes: dishes}
	h.tools = map[string]toolFunc{
		ToolValidateMenu: h.validateMenu,
		ToolAnalyzeMenu:  h.analyzeMenu,
		ToolGetScan:      h.getScan,
		ToolListScans:    h.listScans,
	}
	if dishes != nil {
		h.tools[ToolSearchDishes] = h.searchDishes
	}
	return h
}

// ListTools handles GET /api/v1/tools.
func (h *ToolHandler) ListTools(c *gin.Context) {
	descriptions := map[string]string{
		ToolValidateMenu: "Validate an extractor reply into a clean menu analysis without saving it",
		ToolAnalyzeMenu:  "Validate a client-extracted menu, build a recommendation and save it as a scan",
		ToolGetScan:      "Fetch a saved scan and its recommendation by ID",
		ToolListScans:    "List recent scans, newest first",
		ToolSearchDishes: "Search dishes from past scans by meaning, with optional price and calorie caps",
	}

	tools := make([]ToolInfo, 0, len(h.tools))
	for _, name := range []string{ToolValidateMenu, ToolAnalyzeMenu, ToolGetScan, ToolListScans, ToolSearchDishes} {
		if _, ok := h.tools[name]; ok {
			tools = append(tools, ToolInfo{Name: name, Description: descriptions[name]})
		}
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools})
}

// CallTool handles POST /api/v1/tools/call.
// The body is a CallToolRequest; the reply is a CallToolResult carrying the
// tool output as JSON text.
func (h *ToolHandler) CallTool(c *gin.Context) {
	var req protocol.CallToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON: " + err.Error()})
		return
	}

	fn, ok := h.tools[req.Name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%v: %s", errUnknownTool, req.Name)})
		return
	}

	ctx := logger.WithField(c.Request.Context(), "tool", req.Name)
	c.Request = c.Request.WithContext(ctx)

	data, err := fn(c, &req)
	if err != nil {
		var pe *paramError
		if errors.As(err, &pe) {
			c.JSON(http.StatusBadRequest, gin.H{"error": pe.Error()})
			return
		}
		respondError(c, err)
		return
	}

	result, err := textResult(data)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.CtxDebug(ctx, "Tool call completed")
	c.JSON(http.StatusOK, result)
}

func (h *ToolHandler) validateMenu(c *gin.Context, req *protocol.CallToolRequest) (interface{}, error) {
	var params validateMenuParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.Raw == nil {
		return nil, &paramError{msg: "raw is required"}
	}
	return h.scans.Validate(params.Raw), nil
}

func (h *ToolHandler) analyzeMenu(c *gin.Context, req *protocol.CallToolRequest) (interface{}, error) {
	var params analyzeMenuParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.Raw == nil {
		return nil, &paramError{msg: "raw is required"}
	}
	return h.scans.AnalyzeRaw(c.Request.Context(), params.Raw, params.HungerLevel)
}

func (h *ToolHandler) getScan(c *gin.Context, req *protocol.CallToolRequest) (interface{}, error) {
	var params getScanParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, &paramError{msg: "id is required"}
	}
	return h.scans.GetScan(c.Request.Context(), params.ID)
}

func (h *ToolHandler) listScans(c *gin.Context, req *protocol.CallToolRequest) (interface{}, error) {
	var params listScansParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	scans, err := h.scans.ListScans(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	return gin.H{"scans": scans, "count": len(scans)}, nil
}

func (h *ToolHandler) searchDishes(c *gin.Context, req *protocol.CallToolRequest) (interface{}, error) {
	var params searchDishesParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.Query == "" {
		return nil, &paramError{msg: "query is required"}
	}

	topK := params.TopK
	if topK <= 0 {
		topK = defaultDishTopK
	}
	if topK > maxDishTopK {
		topK = maxDishTopK
	}

	results, err := h.dishes.SearchDishes(c.Request.Context(), params.Query, topK, &repository.SearchFilters{
		MaxPrice:    params.MaxPrice,
		MaxCalories: params.MaxCalories,
		ExcludeScan: params.ExcludeScan,
	})
	if err != nil {
		return nil, err
	}
	return gin.H{"query": params.Query, "results": results, "total": len(results)}, nil
}

// paramError marks a malformed tool argument.
type paramError struct {
	msg string
}

func (e *paramError) Error() string { return "invalid parameters: " + e.msg }

// extractParams decodes the request arguments into target.
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	b, err := json.Marshal(req.Arguments)
	if err != nil {
		return &paramError{msg: err.Error()}
	}
	if err := json.Unmarshal(b, target); err != nil {
		return &paramError{msg: err.Error()}
	}
	return nil
}

func textResult(data interface{}) (*protocol.CallToolResult, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(b),
			},
		},
	}, nil
}
