package driving

import "github.com/custodia-labs/ragpipe/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with environment overrides applied.
	Get() (*domain.AppSettings, error)

	// Set validates and persists a single setting by its dotted key.
	Set(key, value string) error

	// Keys returns every settable key in sorted order.
	Keys() []string

	// Values returns the effective value of every key, secrets masked.
	Values() (map[string]string, error)

	// Path returns the configuration file path.
	Path() string
}
