package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jayascript1/menubot/internal/domain"
	"github.com/jayascript1/menubot/internal/logger"
	"github.com/jayascript1/menubot/internal/recommend"
	"github.com/jayascript1/menubot/internal/repository"
)

// dishPointNamespace seeds deterministic Qdrant point IDs so re-indexing a
// scan overwrites its points instead of duplicating them.
var dishPointNamespace = uuid.MustParse("5b0d7f3e-8a52-4c1e-9d7b-3f6a2e9c4b10")

type textEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

type dishVectorStore interface {
	Upsert(ctx context.Context, points []repository.DishPoint) error
	Search(ctx context.Context, vector []float32, topK int, filters *repository.SearchFilters) ([]repository.SearchResult, error)
	DeleteByScan(ctx context.Context, scanID string) error
}

// DishIndexService indexes validated dishes for similarity search across scans.
type DishIndexService struct {
	embedder textEmbedder
	store    dishVectorStore
}

// NewDishIndexService creates a new dish index.
func NewDishIndexService(embedder textEmbedder, store dishVectorStore) *DishIndexService {
	return &DishIndexService{embedder: embedder, store: store}
}

// DishMatch is one search hit.
type DishMatch struct {
	ScanID      string  `json:"scan_id"`
	ItemIndex   int     `json:"item_index"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Calories    float64 `json:"calories"`
	ProteinG    float64 `json:"protein_g"`
	HealthScore float64 `json:"health_score"`
	Similarity  float32 `json:"similarity"`
}

// IndexScan embeds every dish of a scan and upserts them in one batch.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - scanID: owning scan; becomes part of each point ID.
//   - a: validated analysis.
// Returns:
//   - error: non-nil if embedding or upsert fails.
func (s *DishIndexService) IndexScan(ctx context.Context, scanID string, a domain.Analysis) error {
	if len(a.Items) == 0 {
		return nil
	}
	start := time.Now()

	texts := make([]string, len(a.Items))
	for i, item := range a.Items {
		texts[i] = dishText(item)
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed dishes: %w", err)
	}

	points := make([]repository.DishPoint, len(a.Items))
	for i, item := range a.Items {
		points[i] = repository.DishPoint{
			ID:     dishPointID(scanID, i),
			Vector: vectors[i],
			Payload: &repository.DishPayload{
				ScanID:      scanID,
				ItemIndex:   i,
				Name:        item.Name,
				Description: item.Description,
				Price:       item.Price,
				Calories:    item.Calories,
				ProteinG:    item.ProteinG,
				Score:       recommend.Score(item),
			},
		}
	}

	if err := s.store.Upsert(ctx, points); err != nil {
		return fmt.Errorf("failed to store dish vectors: %w", err)
	}

	logger.With(logger.Fields{"stage": "index"}).
		WithCount(len(points)).
		Since(start).
		Debug(ctx, "Indexed dishes")
	return nil
}

// RemoveScan deletes the indexed dishes of a scan.
func (s *DishIndexService) RemoveScan(ctx context.Context, scanID string) error {
	return s.store.DeleteByScan(ctx, scanID)
}

// SearchDishes finds dishes from earlier scans similar to query.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: free text such as "grilled fish under 500 kcal".
//   - topK: maximum number of matches.
//   - filters: optional price/calorie ceilings; may be nil.
// Returns:
//   - []DishMatch: matches ordered by similarity.
//   - error: non-nil if embedding or search fails.
func (s *DishIndexService) SearchDishes(ctx context.Context, query string, topK int, filters *repository.SearchFilters) ([]DishMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []DishMatch{}, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.store.Search(ctx, vector, topK, filters)
	if err != nil {
		return nil, err
	}

	matches := make([]DishMatch, 0, len(results))
	for _, r := range results {
		if r.Payload == nil {
			continue
		}
		matches = append(matches, DishMatch{
			ScanID:      r.Payload.ScanID,
			ItemIndex:   r.Payload.ItemIndex,
			Name:        r.Payload.Name,
			Description: r.Payload.Description,
			Price:       r.Payload.Price,
			Calories:    r.Payload.Calories,
			ProteinG:    r.Payload.ProteinG,
			HealthScore: r.Payload.Score,
			Similarity:  r.Score,
		})
	}
	return matches, nil
}

func dishText(item domain.MenuItem) string {
	if item.Description == "" {
		return item.Name
	}
	return item.Name + ". " + item.Description
}

func dishPointID(scanID string, index int) string {
	return uuid.NewSHA1(dishPointNamespace, []byte(fmt.Sprintf("%s:%d", scanID, index))).String()
}
