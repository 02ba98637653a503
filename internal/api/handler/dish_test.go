package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jayascript1/menubot/internal/repository"
	"github.com/jayascript1/menubot/internal/service"
)

type fakeDishSearcher struct {
	query   string
	topK    int
	filters *repository.SearchFilters
	err     error
}

func (f *fakeDishSearcher) SearchDishes(_ context.Context, query string, topK int, filters *repository.SearchFilters) ([]service.DishMatch, error) {
	f.query, f.topK, f.filters = query, topK, filters
	if f.err != nil {
		return nil, f.err
	}
	return []service.DishMatch{{ScanID: "scan-1", Name: "Poached Salmon", Similarity: 0.8}}, nil
}

func TestDishHandler_Search(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		err         error
		wantStatus  int
		wantTopK    int
		wantPrice   float64
		wantCals    float64
		wantExclude string
	}{
		{name: "defaults", url: "/search?q=salmon", wantStatus: http.StatusOK, wantTopK: 10},
		{name: "filters", url: "/search?q=salmon&top_k=3&max_price=15.5&max_calories=600&exclude_scan=s1", wantStatus: http.StatusOK, wantTopK: 3, wantPrice: 15.5, wantCals: 600, wantExclude: "s1"},
		{name: "top_k capped", url: "/search?q=salmon&top_k=500", wantStatus: http.StatusOK, wantTopK: 50},
		{name: "bad numbers ignored", url: "/search?q=salmon&top_k=x&max_price=-1", wantStatus: http.StatusOK, wantTopK: 10},
		{name: "missing query", url: "/search", wantStatus: http.StatusBadRequest},
		{name: "backend error", url: "/search?q=salmon", err: errors.New("qdrant down"), wantStatus: http.StatusInternalServerError, wantTopK: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeDishSearcher{err: tt.err}
			r := gin.New()
			r.GET("/search", NewDishHandler(searcher).Search)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantTopK == 0 {
				return
			}
			if searcher.topK != tt.wantTopK {
				t.Errorf("expected top_k %d, got %d", tt.wantTopK, searcher.topK)
			}
			f := searcher.filters
			if f.MaxPrice != tt.wantPrice || f.MaxCalories != tt.wantCals || f.ExcludeScan != tt.wantExclude {
				t.Errorf("unexpected filters %+v", f)
			}
			if rec.Code == http.StatusOK && !strings.Contains(rec.Body.String(), "Poached Salmon") {
				t.Errorf("expected match in body, got %s", rec.Body.String())
			}
		})
	}
}

func TestDishHandler_Disabled(t *testing.T) {
	r := gin.New()
	r.GET("/search", NewDishHandler(nil).Search)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=soup", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
}
