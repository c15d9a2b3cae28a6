// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - EntryStore: Overlay entry and audit log persistence (SQLite)
//   - ConfigStore: Application configuration
//   - BuildVersionStore: The compile build version
//   - Chunker: Splits entry content into embeddable chunks
//
// # Compile Interfaces
//
// The read-only repository, search and status commands work without these.
// Compile returns ErrEmbeddingUnavailable or ErrVectorIndexUnavailable when
// they are nil:
//
//   - VectorIndex: Point storage and similarity search (Qdrant)
//   - EmbeddingService: Generates vector embeddings
//   - CompileObserver: Receives compile metrics. Defaults to a no-op.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
