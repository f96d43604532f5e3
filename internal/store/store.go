package store

// Aggregate keys. Each aggregate is one JSON blob written after every
// mutation and loaded once at startup.
const (
	KeyAuth  = "state:auth"
	KeyChat  = "state:chat"
	KeyPrefs = "state:prefs"
)

// Store persists the state aggregates. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save marshals v and durably writes it under key.
	Save(key string, v any) error
	// Load unmarshals the blob under key into v. The boolean reports
	// whether the key existed.
	Load(key string, v any) (bool, error)
	Close() error
}
