package sessions

// Keys under which the session pair is persisted.
const (
	KeyToken = "vetflow_token"
	KeyUser  = "vetflow_user"
)

// Repo is a small persistent key-value store holding the session pair.
// Entries survive process restarts until explicitly deleted.
type Repo interface {
	// Get returns the value stored under key and whether it exists
	Get(key string) (string, bool, error)

	// Upsert writes all values in one step; either every entry is stored or none is
	Upsert(values map[string]string) error

	// Delete removes the given keys; missing keys are not an error
	Delete(keys ...string) error
}
