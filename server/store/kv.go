package store

// KV is the client-local key -> JSON string persistence every component
// reads and writes through. Readers must tolerate absent keys.
type KV interface {
	// Get returns the value stored for key, ok is false when the key is absent
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}
