// Package app wires configuration into the services shared by the API server
// and the batch analyzer.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jayascript1/menubot/internal/api/handler"
	"github.com/jayascript1/menubot/internal/config"
	"github.com/jayascript1/menubot/internal/logger"
	"github.com/jayascript1/menubot/internal/recommend"
	"github.com/jayascript1/menubot/internal/repository"
	"github.com/jayascript1/menubot/internal/service"
	"github.com/jayascript1/menubot/internal/storage"
	"gorm.io/gorm"
)

// App holds the initialized services and the resources they own.
type App struct {
	DB        *gorm.DB
	Storage   storage.ObjectStorage
	Analysis  *service.AnalysisService
	Batch     *service.BatchService
	DishIndex *service.DishIndexService // nil when embedding is disabled

	dishRepo *repository.DishVectorRepository
}

// New initializes the database, object storage, model clients and the
// optional dish index.
// Parameters:
//   - ctx: context for startup calls (bucket and collection checks).
//   - cfg: loaded configuration.
// Returns:
//   - *App: wired services; call Close when done.
//   - error: non-nil if a required dependency cannot be initialized.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := repository.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	objectStorage, err := storage.NewStorage(&storage.S3Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if b, ok := objectStorage.(interface{ EnsureBucket(context.Context) error }); ok {
		if err := b.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
		}
	}

	vlm := service.NewVLMService(&service.VLMConfig{
		Provider:  cfg.VLM.Provider,
		Model:     cfg.VLM.Model,
		APIKey:    cfg.VLM.APIKey,
		BaseURL:   cfg.VLM.BaseURL,
		MaxTokens: cfg.VLM.MaxTokens,
		Timeout:   time.Duration(cfg.VLM.Timeout) * time.Second,
	})

	analysis := service.NewAnalysisService(vlm, repository.NewScanRepository(db), objectStorage, &service.AnalysisConfig{
		Options: recommend.Options{
			CalorieTolerance: cfg.Recommend.CalorieTolerance,
			BudgetLimit:      cfg.Recommend.BudgetLimit,
			MidRangeLimit:    cfg.Recommend.MidRangeLimit,
		},
		TopN: cfg.Recommend.TopN,
	})

	a := &App{
		DB:       db,
		Storage:  objectStorage,
		Analysis: analysis,
		Batch:    service.NewBatchService(analysis, cfg.Batch.Workers),
	}

	if cfg.Speech.Enabled {
		analysis.SetNarrator(service.NewSpeechService(&service.SpeechConfig{
			Model:   cfg.Speech.Model,
			Voice:   cfg.Speech.Voice,
			APIKey:  cfg.Speech.APIKey,
			BaseURL: cfg.Speech.BaseURL,
		}))
		logger.Info("Speech narration enabled: model=%s, voice=%s", cfg.Speech.Model, cfg.Speech.Voice)
	}

	if cfg.Embedding.Enabled {
		embedding := service.NewEmbeddingService(&service.EmbeddingConfig{
			Provider:   cfg.Embedding.Provider,
			Model:      cfg.Embedding.Model,
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimensions: cfg.Embedding.Dimensions,
		})

		dishRepo, err := repository.NewDishVectorRepository(&repository.QdrantConnectionConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			Collection:      cfg.Qdrant.Collection,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: embedding.Dimensions(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize qdrant repository: %w", err)
		}
		if err := dishRepo.EnsureCollection(ctx); err != nil {
			_ = dishRepo.Close()
			return nil, fmt.Errorf("failed to ensure qdrant collection: %w", err)
		}

		a.dishRepo = dishRepo
		a.DishIndex = service.NewDishIndexService(embedding, dishRepo)
		analysis.SetDishIndexer(a.DishIndex)
		logger.Info("Dish index enabled: collection=%s, model=%s", cfg.Qdrant.Collection, cfg.Embedding.Model)
	}

	return a, nil
}

// HealthChecks returns the dependency probes for the health endpoint.
func (a *App) HealthChecks() map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.dishRepo != nil {
		checks["qdrant"] = a.dishRepo.Ping
	}
	return checks
}

// Close releases the database and Qdrant connections.
func (a *App) Close() {
	if a.dishRepo != nil {
		if err := a.dishRepo.Close(); err != nil {
			logger.Warn("Failed to close qdrant connection: %v", err)
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("Failed to close database: %v", err)
		}
	}
}
