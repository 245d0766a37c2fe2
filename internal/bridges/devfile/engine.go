package devfile

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// AssociationSource supplies the channel associations of a binding.
type AssociationSource interface {
	Associations(bindingID string) Associations
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	// Registry maps tags to constructors. Default: DefaultRegistry().
	Registry *Registry

	// Opener opens device channels. Required.
	Opener ChannelOpener

	// Logger is optional.
	Logger Logger

	// Recorder is optional. It receives every device exchange.
	Recorder Recorder
}

// EngineStats aggregates binding counters.
type EngineStats struct {
	Bindings int    `json:"bindings"`
	Ready    int    `json:"ready"`
	Inert    int    `json:"inert"`
	Failed   int    `json:"failed"`
	RxLines  uint64 `json:"rx_lines"`
	TxLines  uint64 `json:"tx_lines"`
	Errors   uint64 `json:"errors"`
}

// Engine owns the bindings declared by a layout.
//
// Errors are contained per binding: an inert or failed binding never stops
// the others.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Engine struct {
	opts EngineOptions

	mu       sync.RWMutex
	bindings []Binding
	byID     map[string]Binding
	closed   bool
}

// NewEngine creates an engine with no bindings.
func NewEngine(opts EngineOptions) *Engine {
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}
	return &Engine{
		opts: opts,
		byID: make(map[string]Binding),
	}
}

// Add creates a binding for a tag. Declarations with a missing id are still
// added so that Ready can report them; they stay inert.
func (e *Engine) Add(tag string, decl Declaration) (Binding, error) {
	b, err := e.opts.Registry.Create(tag, decl, Options{
		Opener:   e.opts.Opener,
		Logger:   e.opts.Logger,
		Recorder: e.opts.Recorder,
	})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if id := b.ID(); id != "" {
		if _, exists := e.byID[id]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateBinding, id)
		}
		e.byID[id] = b
	}
	e.bindings = append(e.bindings, b)
	return b, nil
}

// Start calls Ready on every binding in declaration order. It returns the
// errors of the bindings that did not become ready; the others are running.
func (e *Engine) Start(ctx context.Context, src AssociationSource) []error {
	var errs []error
	for _, b := range e.Bindings() {
		if err := b.Ready(ctx, src.Associations(b.ID())); err != nil {
			errs = append(errs, fmt.Errorf("binding %q (%s): %w", b.ID(), b.Kind(), err))
			continue
		}
		e.logInfo("binding started", "binding_id", b.ID(), "kind", string(b.Kind()), "location", b.Location())
	}
	return errs
}

// Bindings returns every binding in declaration order.
func (e *Engine) Bindings() []Binding {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Binding, len(e.bindings))
	copy(out, e.bindings)
	return out
}

// Binding returns the binding with the given id.
func (e *Engine) Binding(id string) (Binding, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.byID[id]
	return b, ok
}

// Stats aggregates the status of every binding.
func (e *Engine) Stats() EngineStats {
	var s EngineStats
	for _, b := range e.Bindings() {
		st := b.Status()
		s.Bindings++
		switch st.State {
		case StateReady:
			s.Ready++
		case StateInert:
			s.Inert++
		case StateFailed:
			s.Failed++
		}
		s.RxLines += st.RxLines
		s.TxLines += st.TxLines
		s.Errors += st.Errors
	}
	return s
}

// Wait blocks until every binding's queued writes have completed.
func (e *Engine) Wait() {
	for _, b := range e.Bindings() {
		b.Wait()
	}
}

// Close closes every device channel. It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	var errs []error
	for _, b := range e.Bindings() {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing binding %q: %w", b.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// MultiRecorder fans an event out to several recorders.
type MultiRecorder []Recorder

// RecordIO forwards ev to every recorder.
func (m MultiRecorder) RecordIO(ev IOEvent) {
	for _, r := range m {
		if r != nil {
			r.RecordIO(ev)
		}
	}
}

// logInfo logs an info message if logger is set.
func (e *Engine) logInfo(msg string, keysAndValues ...any) {
	if e.opts.Logger != nil {
		e.opts.Logger.Info(msg, keysAndValues...)
	}
}
