package devfile

import (
	"context"
	"time"
)

// Kind identifies a binding variant.
type Kind string

// Binding kinds.
const (
	KindInputBits     Kind = "input-bits"
	KindOutputColor   Kind = "output-color"
	KindIOBit         Kind = "io-bit"
	KindOutputMessage Kind = "output-message"
	KindOutputText    Kind = "output-text"
)

// Event names dispatched on elements by input bindings.
const (
	EventPressed  = "pressed"
	EventReleased = "released"
)

// Element is the document-side view of one element.
type Element interface {
	ID() string
	Attribute(name string) (string, bool)
	SetAttribute(name, value string)
	RemoveAttribute(name string)
	DispatchEvent(name string)
}

// Associations is the read-only channel index to element lookup supplied by
// the document model. A binding never mutates it.
type Associations interface {
	// Element returns the element associated with a channel index.
	Element(index int) (Element, bool)

	// Indices returns every associated channel index in ascending order.
	Indices() []int
}

// Change is one notification from the document model.
type Change struct {
	Index     int
	Element   Element
	Namespace string
	Name      string
	Value     string

	// Removed is true when the attribute or property was removed.
	Removed bool
}

// Binding is implemented by every binding variant.
//
// The three notification methods may be called from any goroutine. A variant
// that has no use for a notification accepts it silently.
type Binding interface {
	ID() string
	Kind() Kind
	Location() string

	// Ready initialises the binding exactly once: it validates the
	// configuration, opens the device channel and performs any initial
	// exchange. A second call returns ErrAlreadyReady.
	Ready(ctx context.Context, assoc Associations) error

	AttributeChanged(c Change)
	NamespacedAttributeChanged(c Change)
	StylePropertyChanged(c Change)

	// Status returns a snapshot of the binding's state.
	Status() Status

	// Wait blocks until every queued write has completed.
	Wait()

	// Close releases the device channel.
	Close() error
}

// NopNotifications provides silent no-op notification handlers.
// Variants embed it and override only what they consume.
type NopNotifications struct{}

// AttributeChanged ignores the change.
func (NopNotifications) AttributeChanged(Change) {}

// NamespacedAttributeChanged ignores the change.
func (NopNotifications) NamespacedAttributeChanged(Change) {}

// StylePropertyChanged ignores the change.
func (NopNotifications) StylePropertyChanged(Change) {}

// State is the lifecycle state of a binding.
type State string

// Binding states.
const (
	StateCreated State = "created"
	StateReady   State = "ready"
	StateInert   State = "inert"
	StateFailed  State = "failed"
	StateClosed  State = "closed"
)

// Status is a point-in-time snapshot of a binding.
type Status struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	Location string    `json:"location"`
	State    State     `json:"state"`
	Elements int       `json:"elements"`
	Vector   string    `json:"vector,omitempty"`
	RxLines  uint64    `json:"rx_lines"`
	TxLines  uint64    `json:"tx_lines"`
	Errors   uint64    `json:"errors"`
	LastErr  string    `json:"last_error,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
	Updated  time.Time `json:"updated_at"`
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Direction of a device exchange.
type Direction string

// Exchange directions.
const (
	DirectionRx Direction = "rx"
	DirectionTx Direction = "tx"
)

// IOEvent describes one line received from or written to a device.
type IOEvent struct {
	BindingID string
	Kind      Kind
	Location  string
	Direction Direction
	Payload   string
	Err       error
	Time      time.Time
}

// Recorder receives every device exchange. Implementations must not block.
type Recorder interface {
	RecordIO(ev IOEvent)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(IOEvent)

// RecordIO calls f(ev).
func (f RecorderFunc) RecordIO(ev IOEvent) { f(ev) }

// Options holds the collaborators shared by all bindings.
type Options struct {
	// Opener opens device channels. Required for Ready.
	Opener ChannelOpener

	// Logger is optional.
	Logger Logger

	// Recorder is optional.
	Recorder Recorder
}
