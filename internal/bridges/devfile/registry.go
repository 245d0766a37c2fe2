package devfile

import (
	"fmt"
	"sort"
	"sync"
)

// Binding tag names.
const (
	TagInput       = "devfile-input"
	TagOutputColor = "devfile-output-color"
	TagLock        = "devfile-lock"
	TagMessage     = "devfile-message"
	TagText        = "devfile-text"
)

// Constructor creates a binding from its declaration.
type Constructor func(decl Declaration, opts Options) Binding

// Registry maps binding tag names to constructors.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// DefaultRegistry returns a registry with every built-in variant registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TagInput, func(d Declaration, o Options) Binding { return NewInputBitsBinding(d, o) })
	r.Register(TagOutputColor, func(d Declaration, o Options) Binding { return NewOutputColorBinding(d, o) })
	r.Register(TagLock, func(d Declaration, o Options) Binding { return NewIOBitBinding(d, o) })
	r.Register(TagMessage, func(d Declaration, o Options) Binding { return NewOutputMessageBinding(d, o) })
	r.Register(TagText, func(d Declaration, o Options) Binding { return NewOutputTextBinding(d, o) })
	return r
}

// Register adds or replaces the constructor for a tag.
func (r *Registry) Register(tag string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[tag] = ctor
}

// Create builds a binding for tag.
func (r *Registry) Create(tag string, decl Declaration, opts Options) (Binding, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	return ctor(decl, opts), nil
}

// Tags returns the registered tag names in sorted order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.ctors))
	for tag := range r.ctors {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
