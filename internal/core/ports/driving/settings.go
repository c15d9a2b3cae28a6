package driving

import "github.com/custodia-labs/overlayc/internal/core/domain"

// SettingsService resolves application settings from configuration and the
// environment.
type SettingsService interface {
	// Get returns the current settings with defaults and environment
	// overrides applied.
	Get() (*domain.AppSettings, error)

	// Set validates and stores one configuration key.
	Set(key, value string) error

	// Unset removes a stored key so its default applies again.
	Unset(key string) error

	// Keys returns every settable key in sorted order.
	Keys() []string
}
