package driven

// ConfigStore persists flat dot-path settings such as "qdrant.url".
// Typed getters return the zero value for missing or mistyped keys.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64

	// Set and Unset persist immediately.
	Set(key string, value any) error
	Unset(key string) error

	Save() error
	Load() error
	Path() string
}
