// Package driving defines the operations the CLI and the MCP server call:
// ingest, search, document views and settings.
//
// Implementations live in internal/core/services.
package driving
