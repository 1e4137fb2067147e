package driving

import "github.com/custodia-labs/docket/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get returns the effective settings with defaults applied.
	Get() (*domain.Settings, error)

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings

	// Keys returns every settable dotted key.
	Keys() []string

	// Value returns the effective value of a dotted key as text.
	Value(key string) (string, error)

	// Set validates and persists a dotted key.
	Set(key, raw string) error

	// Path returns the configuration file path.
	Path() string
}
