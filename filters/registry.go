package filters

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrUnknownFilter is returned by Registry.Lookup when a name is not registered.
var ErrUnknownFilter = errors.New("unknown filter")

// Registry maps filter names to implementations.
type Registry struct {
	mu      sync.RWMutex
	filters map[string]Benchmarkable
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{filters: make(map[string]Benchmarkable)}
}

// Register adds b under name. Names are unique.
func (r *Registry) Register(name string, b Benchmarkable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" || b == nil {
		return errors.New("register: empty name or nil filter")
	}
	if _, dup := r.filters[name]; dup {
		return errors.Errorf("register: filter %q already registered", name)
	}
	r.filters[name] = b
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(name string, b Benchmarkable) {
	if err := r.Register(name, b); err != nil {
		panic(err)
	}
}

// Lookup returns the filter registered under name.
func (r *Registry) Lookup(name string) (Benchmarkable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.filters[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFilter, "%q", name)
	}
	return b, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a registry holding every pure Go filter of this package.
func Builtin() *Registry {
	r := NewRegistry()
	r.MustRegister("boxblur", BoxBlur())
	r.MustRegister("boxblur.rows", BoxBlurRows())
	r.MustRegister("boxblur.sliding", BoxBlurSliding())
	r.MustRegister("boxblur.packed", BoxBlurPacked())
	r.MustRegister("gaussian", Gaussian())
	r.MustRegister("gaussian.f32", Gaussian32())
	r.MustRegister("grayscale", Grayscale())
	r.MustRegister("grayscale.tensor", GrayscaleTensor())
	r.MustRegister("resize", Resize())
	r.MustRegister("resize.nfnt", ResizeNfnt())
	return r
}
