package driven

// ConfigStore holds raw configuration values under dot-separated keys,
// such as "retrieval.top_k". Typing and validation belong to the settings
// service; the store only keeps what it was given.
type ConfigStore interface {
	// Get returns the stored value for key and whether it exists.
	Get(key string) (any, bool)

	// Keys returns every stored key in sorted order.
	Keys() []string

	// Set stores a value in memory. Call Save to persist it.
	Set(key string, value any) error

	// Save persists every stored value.
	Save() error

	// Load replaces the stored values with the persisted ones.
	Load() error

	// Path returns where the values are persisted.
	Path() string
}
