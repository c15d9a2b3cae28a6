// Package embedding holds provider-independent wrappers around
// driven.EmbeddingService implementations.
package embedding

import (
	"context"
	"math"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
)

// Ensure RateLimited implements the interface.
var _ driven.EmbeddingService = (*RateLimited)(nil)

// RateLimited throttles calls to an embedding provider with a token bucket.
// One batch call consumes one token.
type RateLimited struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

// NewRateLimited wraps svc so that it makes at most requestsPerSecond calls
// per second. A non-positive rate returns svc unchanged.
func NewRateLimited(svc driven.EmbeddingService, requestsPerSecond float64) driven.EmbeddingService {
	if svc == nil || requestsPerSecond <= 0 {
		return svc
	}
	burst := int(math.Ceil(requestsPerSecond))
	return &RateLimited{
		EmbeddingService: svc,
		limiter:          rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Embed waits for a token and embeds one text.
func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.EmbeddingService.Embed(ctx, text)
}

// EmbedBatch waits for a token and embeds a batch.
func (r *RateLimited) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.EmbeddingService.EmbedBatch(ctx, texts)
}
