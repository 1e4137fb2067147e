// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// IngestService runs the extract, chunk, embed, classify and store
// pipeline. SearchService and DocumentService read what it stored.
package services
