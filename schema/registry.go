package schema

import (
	"sync"
	"sync/atomic"
)

// Registry builds a Schema once and hands the same instance to every
// caller. Builds are serialized; a failed build is not memoized, so a later
// call tries again.
type Registry struct {
	build  func() (*Schema, error)
	mu     sync.Mutex
	schema atomic.Pointer[Schema]
}

// NewRegistry returns a registry that calls build on first use.
func NewRegistry(build func() (*Schema, error)) *Registry {
	return &Registry{build: build}
}

// StaticRegistry returns a registry that is already built.
func StaticRegistry(s *Schema) *Registry {
	r := &Registry{}
	r.schema.Store(s)
	return r
}

// Schema returns the memoized schema, building it if needed.
func (r *Registry) Schema() (*Schema, error) {
	if s := r.schema.Load(); s != nil {
		return s, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.schema.Load(); s != nil {
		return s, nil
	}
	s, err := r.build()
	if err != nil {
		return nil, err
	}
	r.schema.Store(s)
	return s, nil
}

// MustSchema is like Schema but panics if the build fails. It is meant for
// process start-up.
func (r *Registry) MustSchema() *Schema {
	s, err := r.Schema()
	if err != nil {
		panic(err)
	}
	return s
}
