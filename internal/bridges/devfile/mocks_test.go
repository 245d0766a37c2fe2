package devfile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-devbind/internal/devchan"
)

// mockChannel is an in-memory Channel.
type mockChannel struct {
	mu       sync.Mutex
	writes   []string
	writeErr error
	closed   bool
	onChunk  func([]byte)
	onError  func(error)
}

func (c *mockChannel) Stream(onChunk func([]byte), onError func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChunk = onChunk
	c.onError = onError
}

func (c *mockChannel) Write(payload []byte, done func(error)) {
	c.mu.Lock()
	c.writes = append(c.writes, string(payload))
	err := c.writeErr
	c.mu.Unlock()
	done(err)
}

func (c *mockChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// feed delivers a chunk as if read from the device.
func (c *mockChannel) feed(chunk string) {
	c.mu.Lock()
	fn := c.onChunk
	c.mu.Unlock()
	if fn != nil {
		fn([]byte(chunk))
	}
}

func (c *mockChannel) fail(err error) {
	c.mu.Lock()
	fn := c.onError
	c.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (c *mockChannel) Writes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.writes))
	copy(out, c.writes)
	return out
}

func (c *mockChannel) setWriteErr(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

// mockOpener hands out one mockChannel and records how it was opened.
type mockOpener struct {
	mu       sync.Mutex
	channel  *mockChannel
	err      error
	opened   int
	location string
	mode     devchan.Mode
}

func newMockOpener() *mockOpener {
	return &mockOpener{channel: &mockChannel{}}
}

func (o *mockOpener) OpenChannel(_ context.Context, location string, mode devchan.Mode) (Channel, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	o.opened++
	o.location = location
	o.mode = mode
	return o.channel, nil
}

func (o *mockOpener) Opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened
}

// mockElement is an in-memory Element. onChange, when set, is called after
// every attribute mutation, the way a document notifies bound bindings.
type mockElement struct {
	id string

	mu       sync.Mutex
	attrs    map[string]string
	events   []string
	onChange func(name, value string, removed bool)
}

func newMockElement(id string) *mockElement {
	return &mockElement{id: id, attrs: make(map[string]string)}
}

func (e *mockElement) ID() string { return e.id }

func (e *mockElement) Attribute(name string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.attrs[name]
	return v, ok
}

func (e *mockElement) SetAttribute(name, value string) {
	e.mu.Lock()
	old, existed := e.attrs[name]
	e.attrs[name] = value
	fn := e.onChange
	e.mu.Unlock()
	if fn != nil && (!existed || old != value) {
		fn(name, value, false)
	}
}

func (e *mockElement) RemoveAttribute(name string) {
	e.mu.Lock()
	_, existed := e.attrs[name]
	delete(e.attrs, name)
	fn := e.onChange
	e.mu.Unlock()
	if fn != nil && existed {
		fn(name, "", true)
	}
}

func (e *mockElement) DispatchEvent(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, name)
}

func (e *mockElement) Events() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	copy(out, e.events)
	return out
}

// mockAssociations is a fixed channel index to element map.
type mockAssociations map[int]Element

func (m mockAssociations) Element(index int) (Element, bool) {
	el, ok := m[index]
	return el, ok
}

func (m mockAssociations) Indices() []int {
	out := make([]int, 0, len(m))
	for i := range m {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// testLogger records log lines by level.
type testLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *testLogger) log(level, msg string, kv ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s %s %v", level, msg, kv))
}

func (l *testLogger) Debug(msg string, kv ...any) { l.log("DEBUG", msg, kv...) }
func (l *testLogger) Info(msg string, kv ...any)  { l.log("INFO", msg, kv...) }
func (l *testLogger) Warn(msg string, kv ...any)  { l.log("WARN", msg, kv...) }
func (l *testLogger) Error(msg string, kv ...any) { l.log("ERROR", msg, kv...) }

// count returns how many lines start with level.
func (l *testLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if len(line) > len(level) && line[:len(level)] == level {
			n++
		}
	}
	return n
}

// recordingRecorder collects IOEvents.
type recordingRecorder struct {
	mu     sync.Mutex
	events []IOEvent
}

func (r *recordingRecorder) RecordIO(ev IOEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingRecorder) Events() []IOEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]IOEvent, len(r.events))
	copy(out, r.events)
	return out
}

func decl(kv ...string) Declaration {
	d := Declaration{}
	for i := 0; i+1 < len(kv); i += 2 {
		d[kv[i]] = kv[i+1]
	}
	return d
}
