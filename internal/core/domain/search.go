package domain

// SearchOptions configures a read-path query.
type SearchOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// Domain restricts results to one domain.
	Domain Domain

	// DomainKey restricts results to one domain key.
	DomainKey string

	// SubKeys restricts results to the listed sub keys (e.g. an individual
	// plus "_shared").
	SubKeys []string

	// Guardrails restricts results to the listed guardrail levels.
	Guardrails []GuardrailLevel
}

// SearchResult represents a single search hit.
type SearchResult struct {
	OverlayID  string  `json:"overlay_id"`
	Title      string  `json:"title"`
	FullPath   string  `json:"full_path"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}
