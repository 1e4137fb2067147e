// Package sqlite provides the default VectorStore, backed by a single
// SQLite database file.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database holds both halves of
// the store:
//
//   - documents: the exact-match registry, one row per ingested document
//   - chunks: chunk text, page provenance, denormalised document metadata
//     and the embedding as a little-endian float32 BLOB
//
// Similarity queries filter in SQL and rank the surviving chunks in process
// by cosine distance.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.docket/docket.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode, and each upsert or delete runs in one transaction.
package sqlite
