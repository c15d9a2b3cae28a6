package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/custodia-labs/overlayc/internal/adapters/driven/embedding"
	"github.com/custodia-labs/overlayc/internal/core/domain"
)

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantNil     bool
		wantErr     bool
		errContains string
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unknown provider is not configured",
			settings: &domain.EmbeddingSettings{Provider: "unknown", APIKey: "k"},
			wantNil:  true,
		},
		{
			name: "ollama provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "nomic-embed-text",
			},
		},
		{
			name: "openai provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
		},
		{
			name:     "openai without key is not configured",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantNil:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("expected error containing %q, got %v", tt.errContains, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil && svc != nil {
				t.Errorf("expected nil service, got %T", svc)
			}
			if !tt.wantNil && svc == nil {
				t.Error("expected service, got nil")
			}
			if svc != nil {
				_ = svc.Close()
			}
		})
	}
}

func TestCreateEmbeddingService_RateLimited(t *testing.T) {
	svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider:          domain.AIProviderOllama,
		RequestsPerSecond: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := svc.(*embedding.RateLimited); !ok {
		t.Errorf("expected rate limited service, got %T", svc)
	}
}

func TestCreateAndValidateEmbeddingService_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc, err := CreateAndValidateEmbeddingService(context.Background(), &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	})
	if svc != nil {
		t.Error("expected nil service")
	}
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestCreateAndValidateEmbeddingService_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	svc, err := CreateAndValidateEmbeddingService(context.Background(), &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
		Model:    "all-minilm",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Dimensions() != 384 {
		t.Errorf("expected 384 dimensions, got %d", svc.Dimensions())
	}
}

func TestCreateVectorIndex_NotConfigured(t *testing.T) {
	index, err := CreateVectorIndex(context.Background(), &domain.QdrantSettings{}, 3)
	if err != nil || index != nil {
		t.Errorf("expected nil index and nil error, got %v, %v", index, err)
	}
}

func TestCreateVectorIndex_InvalidDimension(t *testing.T) {
	_, err := CreateVectorIndex(context.Background(), &domain.QdrantSettings{URL: "http://localhost:6333"}, 0)
	if !errors.Is(err, domain.ErrVectorIndexUnavailable) {
		t.Errorf("expected ErrVectorIndexUnavailable, got %v", err)
	}
}

func TestInit_OfflineEmbeddingIsWarning(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: "http://127.0.0.1:1"}

	result, err := Init(context.Background(), settings, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer result.Close()

	if result.EmbeddingService != nil {
		t.Error("expected no embedding service")
	}
	if result.VectorIndex != nil {
		t.Error("expected no vector index without a qdrant url")
	}
	if len(result.Warnings) != 1 {
		t.Errorf("expected one warning, got %v", result.Warnings)
	}

	if _, err := Init(context.Background(), settings, true); !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestEmbeddingDimensions(t *testing.T) {
	got := embeddingDimensions(&domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}, nil)
	if got != 1536 {
		t.Errorf("expected 1536, got %d", got)
	}
	got = embeddingDimensions(&domain.EmbeddingSettings{Model: "mxbai-embed-large"}, nil)
	if got != 1024 {
		t.Errorf("expected 1024, got %d", got)
	}
}
