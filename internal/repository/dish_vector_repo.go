package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	defaultVectorDimension = 1024
)

// QdrantConnectionConfig holds configuration for Qdrant connection
type QdrantConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS          bool   // Explicitly enable TLS without API Key
	VectorDimension int
}

// apiKeyInterceptor creates a unary interceptor that adds API key to metadata
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// DishVectorRepository stores one embedding per extracted dish so similar
// dishes from earlier scans can be found.
type DishVectorRepository struct {
	conn            *grpc.ClientConn
	pointsClient    pb.PointsClient
	collectClient   pb.CollectionsClient
	collectionName  string
	vectorDimension int
}

// NewDishVectorRepository connects to local Qdrant (insecure) or Qdrant Cloud
// (TLS + API key).
func NewDishVectorRepository(cfg *QdrantConnectionConfig) (*DishVectorRepository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	vectorDimension := cfg.VectorDimension
	if vectorDimension <= 0 {
		vectorDimension = defaultVectorDimension
	}

	var opts []grpc.DialOption
	if cfg.UseTLS || cfg.APIKey != "" {
		// Qdrant Cloud requires TLS 1.3.
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS13})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &DishVectorRepository{
		conn:            conn,
		pointsClient:    pb.NewPointsClient(conn),
		collectClient:   pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		vectorDimension: vectorDimension,
	}, nil
}

// Close closes the gRPC connection
func (r *DishVectorRepository) Close() error {
	return r.conn.Close()
}

// Ping checks that Qdrant is reachable and the collection exists.
func (r *DishVectorRepository) Ping(ctx context.Context) error {
	_, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collectionName,
	})
	return err
}

// EnsureCollection creates the collection if it doesn't exist and checks the
// vector size of an existing one.
func (r *DishVectorRepository) EnsureCollection(ctx context.Context) error {
	info, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collectionName,
	})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok && size != uint64(r.vectorDimension) {
			return fmt.Errorf("collection %s has vector size %d, expected %d", r.collectionName, size, r.vectorDimension)
		}
		return nil
	}

	_, err = r.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.vectorDimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
		HnswConfig: &pb.HnswConfigDiff{
			M:                 optionalUint64(16),
			EfConstruct:       optionalUint64(128),
			FullScanThreshold: optionalUint64(10000),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func optionalUint64(v uint64) *uint64 {
	return &v
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	vectors := info.GetConfig().GetParams().GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}
	if single := vectors.GetParams(); single != nil && single.GetSize() > 0 {
		return single.GetSize(), true
	}
	for _, params := range vectors.GetParamsMap().GetMap() {
		if params.GetSize() > 0 {
			return params.GetSize(), true
		}
	}
	return 0, false
}

// DishPayload is stored alongside each dish vector.
type DishPayload struct {
	ScanID      string  `json:"scan_id"`
	ItemIndex   int     `json:"item_index"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Calories    float64 `json:"calories"`
	ProteinG    float64 `json:"protein_g"`
	Score       float64 `json:"score"`
}

// DishPoint is one vector to upsert.
type DishPoint struct {
	ID      string
	Vector  []float32
	Payload *DishPayload
}

// Upsert inserts or updates dish vectors in one request.
func (r *DishVectorRepository) Upsert(ctx context.Context, points []DishPoint) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*pb.PointStruct, 0, len(points))
	for _, p := range points {
		uid, err := uuid.Parse(p.ID)
		if err != nil {
			return fmt.Errorf("invalid point ID %q: %w", p.ID, err)
		}
		structs = append(structs, &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: uid.String()},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Vector},
				},
			},
			Payload: payloadToValues(p.Payload),
		})
	}

	_, err := r.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collectionName,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

func payloadToValues(p *DishPayload) map[string]*pb.Value {
	if p == nil {
		return nil
	}
	return map[string]*pb.Value{
		"scan_id":     {Kind: &pb.Value_StringValue{StringValue: p.ScanID}},
		"item_index":  {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.ItemIndex)}},
		"name":        {Kind: &pb.Value_StringValue{StringValue: p.Name}},
		"description": {Kind: &pb.Value_StringValue{StringValue: p.Description}},
		"price":       {Kind: &pb.Value_DoubleValue{DoubleValue: p.Price}},
		"calories":    {Kind: &pb.Value_DoubleValue{DoubleValue: p.Calories}},
		"protein_g":   {Kind: &pb.Value_DoubleValue{DoubleValue: p.ProteinG}},
		"score":       {Kind: &pb.Value_DoubleValue{DoubleValue: p.Score}},
	}
}

func parsePayload(payload map[string]*pb.Value) *DishPayload {
	if payload == nil {
		return nil
	}
	return &DishPayload{
		ScanID:      payload["scan_id"].GetStringValue(),
		ItemIndex:   int(payload["item_index"].GetIntegerValue()),
		Name:        payload["name"].GetStringValue(),
		Description: payload["description"].GetStringValue(),
		Price:       payload["price"].GetDoubleValue(),
		Calories:    payload["calories"].GetDoubleValue(),
		ProteinG:    payload["protein_g"].GetDoubleValue(),
		Score:       payload["score"].GetDoubleValue(),
	}
}

// SearchResult represents a search result from Qdrant
type SearchResult struct {
	ID      string
	Score   float32
	Payload *DishPayload
}

// SearchFilters narrows a dish search. Zero values mean no limit.
type SearchFilters struct {
	MaxPrice    float64
	MaxCalories float64
	ExcludeScan string
}

// Search performs a vector similarity search
func (r *DishVectorRepository) Search(ctx context.Context, vector []float32, topK int, filters *SearchFilters) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: r.collectionName,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		Filter: buildFilter(filters),
	}

	resp, err := r.pointsClient.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, len(resp.Result))
	for i, scored := range resp.Result {
		results[i] = SearchResult{
			ID:      scored.Id.GetUuid(),
			Score:   scored.Score,
			Payload: parsePayload(scored.Payload),
		}
	}
	return results, nil
}

func buildFilter(filters *SearchFilters) *pb.Filter {
	if filters == nil {
		return nil
	}

	var must, mustNot []*pb.Condition
	if filters.MaxPrice > 0 {
		must = append(must, rangeCondition("price", filters.MaxPrice))
	}
	if filters.MaxCalories > 0 {
		must = append(must, rangeCondition("calories", filters.MaxCalories))
	}
	if filters.ExcludeScan != "" {
		mustNot = append(mustNot, scanCondition(filters.ExcludeScan))
	}

	if len(must) == 0 && len(mustNot) == 0 {
		return nil
	}
	return &pb.Filter{Must: must, MustNot: mustNot}
}

func rangeCondition(key string, lte float64) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Range: &pb.Range{Lte: &lte},
			},
		},
	}
}

func scanCondition(scanID string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: "scan_id",
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: scanID},
				},
			},
		},
	}
}

// DeleteByScan removes every dish vector that came from one scan.
func (r *DishVectorRepository) DeleteByScan(ctx context.Context, scanID string) error {
	_, err := r.pointsClient.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collectionName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{Must: []*pb.Condition{scanCondition(scanID)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete points of scan %s: %w", scanID, err)
	}
	return nil
}
