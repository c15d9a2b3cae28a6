// Package openai provides an embedding service adapter for the OpenAI API
// and OpenAI-compatible endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	fallbackDimensions = 1536
)

// Config selects the endpoint and model. An API key is required unless
// BaseURL points at a keyless compatible server.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions shortens the vectors. Only text-embedding-3-* models
	// accept it; for others it just sets the reported size.
	Dimensions int
}

// EmbeddingService embeds through go-openai's /embeddings client.
type EmbeddingService struct {
	client     *goopenai.Client
	transport  *http.Client
	model      string
	dimensions int
	shorten    bool
}

func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" && baseURL == DefaultBaseURL {
		return nil, errors.New("openai: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = fallbackDimensions
		if d, ok := domain.EmbeddingDimensions()[model]; ok {
			dimensions = d
		}
	}

	transport := &http.Client{Timeout: timeout}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL
	clientCfg.HTTPClient = transport

	return &EmbeddingService{
		client:     goopenai.NewClientWithConfig(clientCfg),
		transport:  transport,
		model:      model,
		dimensions: dimensions,
		shorten:    cfg.Dimensions > 0 && strings.HasPrefix(model, "text-embedding-3-"),
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds all texts in one request. Vectors are returned in input
// order regardless of the order the API lists them.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(s.model),
	}
	if s.shorten {
		req.Dimensions = s.dimensions
	}

	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, describeError(err)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}
	for i, e := range embeddings {
		if e == nil {
			return nil, fmt.Errorf("openai: no embedding returned for input %d", i)
		}
	}
	return embeddings, nil
}

func (s *EmbeddingService) Dimensions() int   { return s.dimensions }
func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists models, which validates the key without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", describeError(err))
	}
	return nil
}

func (s *EmbeddingService) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}

// describeError adds the HTTP status. Rate limits, server errors and
// transport failures also wrap domain.ErrEmbeddingUnavailable.
func describeError(err error) error {
	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("openai: %w", err)
	}

	if status == 0 || status == http.StatusTooManyRequests || status >= 500 {
		if status == 0 {
			return fmt.Errorf("openai: %w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		return fmt.Errorf("openai error (status %d): %w: %w", status, domain.ErrEmbeddingUnavailable, err)
	}
	return fmt.Errorf("openai error (status %d): %w", status, err)
}
