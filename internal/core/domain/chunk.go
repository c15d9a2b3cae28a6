package domain

// Chunk is an embeddable segment of a ContentEntry.
// Chunks are derived on every compile and never persisted on their own.
// Offsets count characters (runes), not bytes.
type Chunk struct {
	// OverlayID links to the parent entry.
	OverlayID string

	// ChunkIndex is the zero-based position within the entry.
	ChunkIndex int

	// TotalChunks is the number of chunks the entry was split into.
	TotalChunks int

	// Content is the text of this chunk.
	Content string

	// StartOffset is the first character covered, inclusive.
	StartOffset int

	// EndOffset is the last character covered, exclusive.
	EndOffset int
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return c.EndOffset - c.StartOffset
}
