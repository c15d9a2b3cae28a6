package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
	"github.com/custodia-labs/overlayc/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataDir          = "storage.data_dir"
	keyQdrantURL        = "qdrant.url"
	keyQdrantAPIKey     = "qdrant.api_key"
	keyQdrantCollection = "qdrant.collection"
	keyQdrantVectorDim  = "qdrant.vector_dim"
	keyQdrantRetries    = "qdrant.max_retries"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedRPS         = "embedding.requests_per_second"
	keyChunkStrategy    = "chunker.strategy"
	keyChunkMax         = "chunker.max_chunk_size"
	keyChunkOverlap     = "chunker.overlap_size"
	keyChunkMin         = "chunker.min_chunk_size"
	keyChunkWindow      = "chunker.boundary_window"
	keyBatchSize        = "compile.batch_size"
	keyConcurrency      = "compile.concurrency"
)

// Environment variables that override config values.
//
//nolint:gosec // G101: These are environment variable names.
const (
	EnvQdrantURL    = "QDRANT_URL"
	EnvQdrantAPIKey = "QDRANT_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindProvider
)

var settingKeys = map[string]keyKind{
	keyDataDir:          kindString,
	keyQdrantURL:        kindString,
	keyQdrantAPIKey:     kindString,
	keyQdrantCollection: kindString,
	keyQdrantVectorDim:  kindInt,
	keyQdrantRetries:    kindInt,
	keyEmbedProvider:    kindProvider,
	keyEmbedModel:       kindString,
	keyEmbedAPIKey:      kindString,
	keyEmbedBaseURL:     kindString,
	keyEmbedRPS:         kindFloat,
	keyChunkStrategy:    kindString,
	keyChunkMax:         kindInt,
	keyChunkOverlap:     kindInt,
	keyChunkMin:         kindInt,
	keyChunkWindow:      kindInt,
	keyBatchSize:        kindInt,
	keyConcurrency:      kindInt,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	provider := s.getProvider(defaults.Embedding.Provider)
	model := s.configStore.GetString(keyEmbedModel)
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	settings := &domain.AppSettings{
		Storage: domain.StorageSettings{
			DataDir: s.configStore.GetString(keyDataDir),
		},
		Qdrant: domain.QdrantSettings{
			URL:        s.withEnv(EnvQdrantURL, keyQdrantURL, ""),
			APIKey:     s.withEnv(EnvQdrantAPIKey, keyQdrantAPIKey, ""),
			Collection: s.getString(keyQdrantCollection, defaults.Qdrant.Collection),
			VectorDim:  s.configStore.GetInt(keyQdrantVectorDim),
			MaxRetries: s.getInt(keyQdrantRetries, defaults.Qdrant.MaxRetries),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          provider,
			Model:             model,
			APIKey:            s.getString(keyEmbedAPIKey, s.getenv(EnvOpenAIAPIKey)),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - adapters pick their own
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
		},
		Chunker: domain.ChunkerSettings{
			Strategy:       s.getString(keyChunkStrategy, defaults.Chunker.Strategy),
			MaxChunkSize:   s.getInt(keyChunkMax, defaults.Chunker.MaxChunkSize),
			OverlapSize:    s.getInt(keyChunkOverlap, defaults.Chunker.OverlapSize),
			MinChunkSize:   s.getInt(keyChunkMin, defaults.Chunker.MinChunkSize),
			BoundaryWindow: s.getInt(keyChunkWindow, defaults.Chunker.BoundaryWindow),
		},
		Compile: domain.CompileOptions{
			BatchSize:   s.getInt(keyBatchSize, defaults.Compile.BatchSize),
			Concurrency: s.getInt(keyConcurrency, defaults.Compile.Concurrency),
		},
	}

	if settings.Embedding.RequestsPerSecond < 0 {
		return nil, domain.NewValidationError(keyEmbedRPS, "min")
	}
	return settings, nil
}

// Set validates value for key and persists it with its native type.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}

	var typed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return domain.NewValidationError(key, "number")
		}
		typed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return domain.NewValidationError(key, "number")
		}
		typed = f
	case kindProvider:
		if !domain.AIProvider(value).IsValid() {
			return domain.NewValidationError(key, "oneof")
		}
		typed = value
	default:
		typed = value
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Unset drops a stored key. Only settable keys can be removed.
func (s *SettingsService) Unset(key string) error {
	if _, ok := settingKeys[key]; !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}
	if err := s.configStore.Unset(key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Keys returns every settable key in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// withEnv prefers the environment variable over the config key.
func (s *SettingsService) withEnv(env, key, defaultVal string) string {
	if v := s.getenv(env); v != "" {
		return v
	}
	return s.getString(key, defaultVal)
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(keyEmbedProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
