package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jayascript1/menubot/internal/repository"
	"github.com/jayascript1/menubot/internal/service"
)

const (
	defaultDishTopK = 10
	maxDishTopK     = 50
)

// DishSearcher finds dishes similar to a free-text query.
type DishSearcher interface {
	SearchDishes(ctx context.Context, query string, topK int, filters *repository.SearchFilters) ([]service.DishMatch, error)
}

// DishHandler handles dish search endpoints.
type DishHandler struct {
	searcher DishSearcher
}

// NewDishHandler creates a new dish handler. searcher may be nil when dish
// indexing is disabled.
func NewDishHandler(searcher DishSearcher) *DishHandler {
	return &DishHandler{searcher: searcher}
}

// Search handles GET /api/v1/dishes/search.
// Query parameters: q (required), top_k, max_price, max_calories, exclude_scan.
func (h *DishHandler) Search(c *gin.Context) {
	if h.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Dish search is not enabled"})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}

	topK := defaultDishTopK
	if v, err := strconv.Atoi(c.Query("top_k")); err == nil && v > 0 {
		topK = v
	}
	if topK > maxDishTopK {
		topK = maxDishTopK
	}

	filters := &repository.SearchFilters{ExcludeScan: c.Query("exclude_scan")}
	if v, err := strconv.ParseFloat(c.Query("max_price"), 64); err == nil && v > 0 {
		filters.MaxPrice = v
	}
	if v, err := strconv.ParseFloat(c.Query("max_calories"), 64); err == nil && v > 0 {
		filters.MaxCalories = v
	}

	matches, err := h.searcher.SearchDishes(c.Request.Context(), query, topK, filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": matches,
		"total":   len(matches),
	})
}
