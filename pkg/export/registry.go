package export

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores encoders by format name. The caller creates and owns it.
type Registry struct {
	mu       sync.RWMutex
	encoders map[Format]Encoder
}

func NewRegistry() *Registry {
	return &Registry{
		encoders: make(map[Format]Encoder),
	}
}

// Register adds an encoder by its Name(). Duplicate names return an error.
func (r *Registry) Register(enc Encoder) error {
	if enc == nil {
		return fmt.Errorf("export: encoder is required")
	}
	name := enc.Name()
	if name == "" {
		return fmt.Errorf("export: encoder name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.encoders[name]; exists {
		return fmt.Errorf("export: encoder %q already registered", name)
	}
	r.encoders[name] = enc
	return nil
}

// MustRegister panics on registration failure
func (r *Registry) MustRegister(enc Encoder) {
	if err := r.Register(enc); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(name Format) (Encoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enc, ok := r.encoders[name]
	if !ok {
		return nil, fmt.Errorf("export: unknown format %q", name)
	}
	return enc, nil
}

// List returns the sorted format names
func (r *Registry) List() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]Format, 0, len(r.encoders))
	for name := range r.encoders {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return names[i] < names[j]
	})
	return names
}

func (r *Registry) Has(name Format) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.encoders[name]
	return ok
}
