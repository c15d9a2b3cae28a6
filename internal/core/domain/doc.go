// Package domain defines the core business entities for overlayc.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ContentEntry: A versioned, human-authored overlay entry
//   - Chunk: An embeddable segment of an entry, derived at compile time
//   - ChangeResult: The classification of one entry against the index baseline
//   - ChunkPayload: The fixed payload schema written to the vector index
//   - BuildVersion: The MAJOR.MINOR.PATCH counter bumped by each compile
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
