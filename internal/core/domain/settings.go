package domain

// AIProvider identifies an embedding provider.
type AIProvider string

// Available embedding providers.
const (
	// AIProviderOpenAI is the OpenAI API or any OpenAI-compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the provider is recognised.
func (p AIProvider) IsValid() bool {
	return p == AIProviderOpenAI || p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// DefaultEmbeddingModels returns the default model per provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		"nomic-embed-text":       768,
		"all-minilm":             384,
		"mxbai-embed-large":      1024,
	}
}

// StorageSettings locates the entry database.
type StorageSettings struct {
	DataDir string
}

// QdrantSettings configures the vector index.
type QdrantSettings struct {
	URL        string
	APIKey     string
	Collection string

	// VectorDim is the expected vector size. Zero means "use the embedding
	// model's dimensions".
	VectorDim  int
	MaxRetries int
}

// IsConfigured reports whether a Qdrant URL is set.
func (q QdrantSettings) IsConfigured() bool {
	return q.URL != ""
}

// EmbeddingSettings configures the embedding provider.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string
	APIKey   string
	BaseURL  string

	// RequestsPerSecond limits embedding calls. Zero is unlimited.
	RequestsPerSecond float64
}

// IsConfigured reports whether the provider has what it needs to run.
func (e EmbeddingSettings) IsConfigured() bool {
	switch e.Provider {
	case AIProviderOpenAI:
		return e.APIKey != "" || e.BaseURL != ""
	case AIProviderOllama:
		return true
	default:
		return false
	}
}

// ChunkerSettings configures chunking.
type ChunkerSettings struct {
	Strategy       string
	MaxChunkSize   int
	OverlapSize    int
	MinChunkSize   int
	BoundaryWindow int
}

// Config returns the settings as a chunker builder config map.
func (c ChunkerSettings) Config() map[string]any {
	return map[string]any{
		"max_chunk_size":  c.MaxChunkSize,
		"overlap_size":    c.OverlapSize,
		"min_chunk_size":  c.MinChunkSize,
		"boundary_window": c.BoundaryWindow,
	}
}

// AppSettings is the resolved application configuration.
type AppSettings struct {
	Storage   StorageSettings
	Qdrant    QdrantSettings
	Embedding EmbeddingSettings
	Chunker   ChunkerSettings
	Compile   CompileOptions
}

// DefaultAppSettings returns settings with defaults applied. Storage.DataDir
// is left empty and resolved by the storage adapter.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Qdrant: QdrantSettings{
			Collection: "overlays",
			MaxRetries: 4,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultEmbeddingModels()[AIProviderOpenAI],
		},
		Chunker: ChunkerSettings{
			Strategy:       "boundary",
			MaxChunkSize:   1000,
			OverlapSize:    100,
			MinChunkSize:   200,
			BoundaryWindow: 100,
		},
		Compile: CompileOptions{
			BatchSize:   DefaultBatchSize,
			Concurrency: 1,
		},
	}
}
