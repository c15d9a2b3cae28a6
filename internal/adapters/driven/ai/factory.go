// Package ai builds the embedding and vector index adapters from resolved
// settings.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/overlayc/internal/adapters/driven/embedding"
	ollamaembed "github.com/custodia-labs/overlayc/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/overlayc/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/overlayc/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
	"github.com/custodia-labs/overlayc/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult holds the backends a command needs. Either may be nil when not
// configured; the compiler and search service report that as unavailable.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	VectorIndex      driven.VectorIndex
	Warnings         []string
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		_ = r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		_ = r.VectorIndex.Close()
	}
}

// Init builds the backends. With requireEmbedding unset an unreachable
// embedding provider only adds a warning, which lets dry runs and browsing
// work offline.
func Init(ctx context.Context, settings domain.AppSettings, requireEmbedding bool) (*InitResult, error) {
	result := &InitResult{}

	svc, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	switch {
	case err != nil && requireEmbedding:
		return nil, err
	case err != nil:
		result.Warnings = append(result.Warnings, err.Error())
	default:
		result.EmbeddingService = svc
	}

	dims := settings.Qdrant.VectorDim
	if dims == 0 {
		dims = embeddingDimensions(&settings.Embedding, result.EmbeddingService)
	}
	index, err := CreateVectorIndex(ctx, &settings.Qdrant, dims)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.VectorIndex = index

	for _, w := range result.Warnings {
		logger.Warn("%s", w)
	}
	return result, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(
	ctx context.Context, settings *domain.EmbeddingSettings,
) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'overlayc config set embedding.<key>' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the embedding service the settings select,
// rate limited when embedding.requests_per_second is set.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var svc driven.EmbeddingService
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	case domain.AIProviderOpenAI:
		openaiSvc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		svc = openaiSvc
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}

	return embedding.NewRateLimited(svc, settings.RequestsPerSecond), nil
}

// CreateVectorIndex connects to Qdrant and ensures the collection exists.
// Returns nil if no Qdrant URL is configured.
func CreateVectorIndex(ctx context.Context, settings *domain.QdrantSettings, dims int) (driven.VectorIndex, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	index, err := qdrant.NewVectorIndex(ctx, qdrant.Config{
		URL:        settings.URL,
		APIKey:     settings.APIKey,
		Collection: settings.Collection,
		VectorDim:  dims,
		MaxRetries: settings.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return index, nil
}

func embeddingDimensions(settings *domain.EmbeddingSettings, svc driven.EmbeddingService) int {
	if svc != nil {
		return svc.Dimensions()
	}
	model := settings.Model
	if model == "" {
		model = domain.DefaultEmbeddingModels()[settings.Provider]
	}
	return domain.EmbeddingDimensions()[model]
}
