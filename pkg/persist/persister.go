package persist

// Persister handles I/O for a specific state type using a Codec.
type Persister[T any] struct {
	dir   string
	codec Codec
}

// NewPersister creates a persister that stores files in dir.
func NewPersister[T any](dir string, codec Codec) *Persister[T] {
	return &Persister[T]{
		dir:   dir,
		codec: codec,
	}
}

// Save writes state under the given key.
func (p *Persister[T]) Save(key string, state *T) error {
	return SaveState(p.dir, key, p.codec, state)
}

// Load reads the state stored under key.
func (p *Persister[T]) Load(key string) (*T, error) {
	var state T

	err := LoadState(p.dir, key, p.codec, &state)
	if err != nil {
		return nil, err
	}

	return &state, nil
}
