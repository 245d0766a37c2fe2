package document

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-devbind/internal/bridges/devfile"
)

// Observer receives change notifications for bound elements.
// Every devfile.Binding is an Observer.
type Observer interface {
	AttributeChanged(c devfile.Change)
	NamespacedAttributeChanged(c devfile.Change)
	StylePropertyChanged(c devfile.Change)
}

// MutationKind distinguishes the three kinds of element mutation.
type MutationKind string

// Mutation kinds.
const (
	MutationAttribute  MutationKind = "attribute"
	MutationNamespaced MutationKind = "namespaced_attribute"
	MutationStyle      MutationKind = "style"
)

// AttributeEvent describes one attribute or style change.
type AttributeEvent struct {
	ElementID string       `json:"element_id"`
	Kind      MutationKind `json:"kind"`
	Namespace string       `json:"namespace,omitempty"`
	Name      string       `json:"name"`
	Value     string       `json:"value"`
	Removed   bool         `json:"removed"`
	Time      time.Time    `json:"time"`
}

// Event is a named event dispatched on an element.
type Event struct {
	ElementID string    `json:"element_id"`
	Name      string    `json:"name"`
	Time      time.Time `json:"time"`
}

// BindingRef associates an element with a binding channel.
type BindingRef struct {
	BindingID string `json:"binding_id"`
	Channel   int    `json:"channel"`
}

type nsKey struct {
	namespace string
	name      string
}

type node struct {
	handle   *Element
	tag      string
	parent   string
	children []string
	attrs    map[string]string
	nsAttrs  map[nsKey]string
	style    map[string]string
	refs     []BindingRef
}

type bindingEntry struct {
	observer Observer
	channels map[int]string
}

// Document is an element tree with change notification.
type Document struct {
	mu         sync.RWMutex
	nodes      map[string]*node
	order      []string
	bindings   map[string]*bindingEntry
	onEvent    []func(Event)
	onAttr     []func(AttributeEvent)
	pending    []func()
	delivering bool

	logger Logger
}

// Logger interface for optional logging.
type Logger interface {
	Error(msg string, keysAndValues ...any)
}

// New creates an empty document.
func New() *Document {
	return &Document{
		nodes:    make(map[string]*node),
		bindings: make(map[string]*bindingEntry),
	}
}

// AddElement creates an element. parent may be empty for a root element;
// otherwise it must already exist.
func (d *Document) AddElement(id, tag, parent string) (*Element, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: element id", ErrEmptyName)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.nodes[id]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateElement, id)
	}
	if parent != "" {
		p, ok := d.nodes[parent]
		if !ok {
			return nil, fmt.Errorf("%w: %q (parent of %q)", ErrUnknownParent, parent, id)
		}
		p.children = append(p.children, id)
	}

	n := &node{
		handle:  &Element{doc: d, id: id},
		tag:     tag,
		parent:  parent,
		attrs:   make(map[string]string),
		nsAttrs: make(map[nsKey]string),
		style:   make(map[string]string),
	}
	d.nodes[id] = n
	d.order = append(d.order, id)
	return n.handle, nil
}

// Element returns the handle of an element.
func (d *Document) Element(id string) (*Element, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.nodes[id]
	if !ok {
		return nil, false
	}
	return n.handle, true
}

// ElementIDs returns every element id in creation order.
func (d *Document) ElementIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.order...)
}

// Children returns the ids of an element's children in creation order.
func (d *Document) Children(id string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.nodes[id]
	if !ok {
		return nil
	}
	return append([]string(nil), n.children...)
}

// Attribute returns an attribute value.
func (d *Document) Attribute(id, name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.nodes[id]
	if !ok {
		return "", false
	}
	v, ok := n.attrs[name]
	return v, ok
}

// AttributeNS returns a namespaced attribute value.
func (d *Document) AttributeNS(id, namespace, name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.nodes[id]
	if !ok {
		return "", false
	}
	v, ok := n.nsAttrs[nsKey{namespace, name}]
	return v, ok
}

// Style returns a style property value.
func (d *Document) Style(id, property string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.nodes[id]
	if !ok {
		return "", false
	}
	v, ok := n.style[property]
	return v, ok
}

// SetAttribute sets an attribute, notifying when the value changes.
func (d *Document) SetAttribute(id, name, value string) error {
	return d.mutate(id, MutationAttribute, "", name, value, false)
}

// RemoveAttribute removes an attribute, notifying when it was present.
func (d *Document) RemoveAttribute(id, name string) error {
	return d.mutate(id, MutationAttribute, "", name, "", true)
}

// SetAttributeNS sets a namespaced attribute.
func (d *Document) SetAttributeNS(id, namespace, name, value string) error {
	return d.mutate(id, MutationNamespaced, namespace, name, value, false)
}

// RemoveAttributeNS removes a namespaced attribute.
func (d *Document) RemoveAttributeNS(id, namespace, name string) error {
	return d.mutate(id, MutationNamespaced, namespace, name, "", true)
}

// SetStyle sets a style property.
func (d *Document) SetStyle(id, property, value string) error {
	return d.mutate(id, MutationStyle, "", property, value, false)
}

// RemoveStyle removes a style property.
func (d *Document) RemoveStyle(id, property string) error {
	return d.mutate(id, MutationStyle, "", property, "", true)
}

func (d *Document) mutate(id string, kind MutationKind, namespace, name, value string, remove bool) error {
	if name == "" {
		return fmt.Errorf("%w: %s name", ErrEmptyName, kind)
	}

	d.mu.Lock()
	n, ok := d.nodes[id]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownElement, id)
	}

	if !n.apply(kind, namespace, name, value, remove) {
		d.mu.Unlock()
		return nil
	}

	ev := AttributeEvent{
		ElementID: id,
		Kind:      kind,
		Namespace: namespace,
		Name:      name,
		Value:     value,
		Removed:   remove,
		Time:      time.Now(),
	}
	d.queueMutation(n, ev)
	d.mu.Unlock()

	d.flush()
	return nil
}

// apply changes the node and reports whether anything changed.
func (n *node) apply(kind MutationKind, namespace, name, value string, remove bool) bool {
	switch kind {
	case MutationNamespaced:
		return applyMap(n.nsAttrs, nsKey{namespace, name}, value, remove)
	case MutationStyle:
		return applyMap(n.style, name, value, remove)
	default:
		return applyMap(n.attrs, name, value, remove)
	}
}

func applyMap[K comparable](m map[K]string, key K, value string, remove bool) bool {
	old, exists := m[key]
	if remove {
		if !exists {
			return false
		}
		delete(m, key)
		return true
	}
	if exists && old == value {
		return false
	}
	m[key] = value
	return true
}

// queueMutation queues the notifications for one mutation. d.mu must be held.
func (d *Document) queueMutation(n *node, ev AttributeEvent) {
	for _, ref := range n.refs {
		entry, ok := d.bindings[ref.BindingID]
		if !ok || entry.observer == nil {
			continue
		}
		obs := entry.observer
		change := devfile.Change{
			Index:     ref.Channel,
			Element:   n.handle,
			Namespace: ev.Namespace,
			Name:      ev.Name,
			Value:     ev.Value,
			Removed:   ev.Removed,
		}
		switch ev.Kind {
		case MutationNamespaced:
			d.pending = append(d.pending, func() { obs.NamespacedAttributeChanged(change) })
		case MutationStyle:
			d.pending = append(d.pending, func() { obs.StylePropertyChanged(change) })
		default:
			d.pending = append(d.pending, func() { obs.AttributeChanged(change) })
		}
	}
	for _, fn := range d.onAttr {
		fn := fn
		d.pending = append(d.pending, func() { fn(ev) })
	}
}

// flush delivers queued notifications unless another goroutine already is.
func (d *Document) flush() {
	d.mu.Lock()
	if d.delivering {
		d.mu.Unlock()
		return
	}
	d.delivering = true
	for len(d.pending) > 0 {
		fn := d.pending[0]
		d.pending[0] = nil
		d.pending = d.pending[1:]
		d.mu.Unlock()
		d.deliver(fn)
		d.mu.Lock()
	}
	d.delivering = false
	d.mu.Unlock()
}

// deliver runs one notification, containing listener panics.
func (d *Document) deliver(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logError("document listener panicked", fmt.Errorf("panic: %v", r))
		}
	}()
	fn()
}

// logError logs an error if a logger is set. It must not be called with
// d.mu held.
func (d *Document) logError(msg string, err error, keysAndValues ...any) {
	d.mu.RLock()
	logger := d.logger
	d.mu.RUnlock()
	if logger != nil {
		logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
	}
}

// SetLogger sets the logger used to report listener panics and failed
// element mutations.
func (d *Document) SetLogger(logger Logger) {
	d.mu.Lock()
	d.logger = logger
	d.mu.Unlock()
}

// DispatchEvent fires a named event on an element.
func (d *Document) DispatchEvent(id, name string) error {
	if name == "" {
		return fmt.Errorf("%w: event name", ErrEmptyName)
	}

	d.mu.Lock()
	if _, ok := d.nodes[id]; !ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownElement, id)
	}
	ev := Event{ElementID: id, Name: name, Time: time.Now()}
	for _, fn := range d.onEvent {
		fn := fn
		d.pending = append(d.pending, func() { fn(ev) })
	}
	d.mu.Unlock()

	d.flush()
	return nil
}

// OnEvent registers a listener for dispatched events.
func (d *Document) OnEvent(fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onEvent = append(d.onEvent, fn)
}

// OnAttribute registers a listener for every attribute and style change.
func (d *Document) OnAttribute(fn func(AttributeEvent)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onAttr = append(d.onAttr, fn)
}

// Attach registers the observer for a binding id.
func (d *Document) Attach(bindingID string, obs Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entry(bindingID).observer = obs
}

// Bind associates a binding channel with an element.
func (d *Document) Bind(bindingID string, channel int, elementID string) error {
	if bindingID == "" {
		return fmt.Errorf("%w: binding id", ErrEmptyName)
	}
	if channel < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.nodes[elementID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownElement, elementID)
	}
	entry := d.entry(bindingID)
	if existing, taken := entry.channels[channel]; taken {
		return fmt.Errorf("%w: %s channel %d is bound to %q", ErrChannelTaken, bindingID, channel, existing)
	}
	entry.channels[channel] = elementID
	n.refs = append(n.refs, BindingRef{BindingID: bindingID, Channel: channel})
	return nil
}

func (d *Document) entry(bindingID string) *bindingEntry {
	e, ok := d.bindings[bindingID]
	if !ok {
		e = &bindingEntry{channels: make(map[int]string)}
		d.bindings[bindingID] = e
	}
	return e
}

// Associations returns the read-only channel lookup of a binding.
func (d *Document) Associations(bindingID string) devfile.Associations {
	return associations{doc: d, bindingID: bindingID}
}

type associations struct {
	doc       *Document
	bindingID string
}

func (a associations) Element(index int) (devfile.Element, bool) {
	a.doc.mu.RLock()
	defer a.doc.mu.RUnlock()
	entry, ok := a.doc.bindings[a.bindingID]
	if !ok {
		return nil, false
	}
	id, ok := entry.channels[index]
	if !ok {
		return nil, false
	}
	return a.doc.nodes[id].handle, true
}

func (a associations) Indices() []int {
	a.doc.mu.RLock()
	defer a.doc.mu.RUnlock()
	entry, ok := a.doc.bindings[a.bindingID]
	if !ok {
		return nil
	}
	out := make([]int, 0, len(entry.channels))
	for i := range entry.channels {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Snapshot is a copy of an element's state.
type Snapshot struct {
	ID         string                       `json:"id"`
	Tag        string                       `json:"tag"`
	Parent     string                       `json:"parent,omitempty"`
	Children   []string                     `json:"children,omitempty"`
	Attributes map[string]string            `json:"attributes"`
	Namespaced map[string]map[string]string `json:"namespaced_attributes,omitempty"`
	Style      map[string]string            `json:"style"`
	Bindings   []BindingRef                 `json:"bindings,omitempty"`
}

// Snapshot returns a copy of an element's state.
func (d *Document) Snapshot(id string) (Snapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.nodes[id]
	if !ok {
		return Snapshot{}, false
	}

	s := Snapshot{
		ID:         id,
		Tag:        n.tag,
		Parent:     n.parent,
		Children:   append([]string(nil), n.children...),
		Attributes: copyMap(n.attrs),
		Style:      copyMap(n.style),
		Bindings:   append([]BindingRef(nil), n.refs...),
	}
	if len(n.nsAttrs) > 0 {
		s.Namespaced = make(map[string]map[string]string)
		for k, v := range n.nsAttrs {
			if s.Namespaced[k.namespace] == nil {
				s.Namespaced[k.namespace] = make(map[string]string)
			}
			s.Namespaced[k.namespace][k.name] = v
		}
	}
	return s, true
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
