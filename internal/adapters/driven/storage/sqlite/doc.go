// Package sqlite provides the SQLite-based EntryStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Entries and their audit log live in one
// database, and every mutation writes both in a single transaction.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// The audit_log table has no foreign key to overlay_entries so audit rows survive
// a hard delete.
//
// # Data Location
//
// By default, the database is stored at ~/.overlayc/data/overlays.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
