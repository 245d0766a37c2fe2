package devfile

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type staticSource map[string]Associations

func (s staticSource) Associations(id string) Associations {
	if a, ok := s[id]; ok {
		return a
	}
	return mockAssociations{}
}

func TestRegistryCreate(t *testing.T) {
	r := DefaultRegistry()

	want := []string{TagInput, TagLock, TagMessage, TagOutputColor, TagText}
	if got := r.Tags(); !reflect.DeepEqual(got, sortedCopy(want)) {
		t.Errorf("Tags() = %v, want %v", got, sortedCopy(want))
	}

	kinds := map[string]Kind{
		TagInput:       KindInputBits,
		TagOutputColor: KindOutputColor,
		TagLock:        KindIOBit,
		TagMessage:     KindOutputMessage,
		TagText:        KindOutputText,
	}
	for tag, kind := range kinds {
		b, err := r.Create(tag, decl("id", "x", "location", "/dev/x"), Options{})
		if err != nil {
			t.Fatalf("Create(%q) error = %v", tag, err)
		}
		if b.Kind() != kind {
			t.Errorf("Create(%q).Kind() = %v, want %v", tag, b.Kind(), kind)
		}
	}

	if _, err := r.Create("devfile-unknown", decl(), Options{}); !errors.Is(err, ErrUnknownTag) {
		t.Errorf("Create(unknown) error = %v, want ErrUnknownTag", err)
	}
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if out[j] < out[i] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func TestConfigurationErrorLeavesBindingInert(t *testing.T) {
	logger := &testLogger{}
	opener := newMockOpener()
	b := NewOutputColorBinding(decl("location", "/dev/x"), Options{Opener: opener, Logger: logger})

	err := b.Ready(context.Background(), mockAssociations{0: newMockElement("a")})
	if !errors.Is(err, ErrConfiguration) || !errors.Is(err, ErrMissingID) {
		t.Fatalf("Ready() error = %v, want ErrConfiguration/ErrMissingID", err)
	}
	if opener.Opened() != 0 {
		t.Errorf("channel opened %d times for an inert binding", opener.Opened())
	}
	if st := b.Status(); st.State != StateInert {
		t.Errorf("State = %v, want inert", st.State)
	}

	b.StylePropertyChanged(Change{Index: 0, Name: "color", Value: "white"})
	b.Wait()
	if !errors.Is(b.Ready(context.Background(), nil), ErrAlreadyReady) {
		t.Error("second Ready did not return ErrAlreadyReady")
	}
	if logger.count("ERROR") != 1 {
		t.Errorf("configuration error logged %d times, want 1", logger.count("ERROR"))
	}
}

func TestReadyTwice(t *testing.T) {
	opener := newMockOpener()
	b := NewInputBitsBinding(decl("id", "in", "location", "/dev/in"), Options{Opener: opener})
	if err := b.Ready(context.Background(), nil); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
	if err := b.Ready(context.Background(), nil); !errors.Is(err, ErrAlreadyReady) {
		t.Errorf("second Ready() error = %v, want ErrAlreadyReady", err)
	}
	if opener.Opened() != 1 {
		t.Errorf("opened %d times, want 1", opener.Opened())
	}
}

func TestOpenFailureIsContained(t *testing.T) {
	opener := newMockOpener()
	opener.err = errors.New("no such device")
	b := NewOutputTextBinding(decl("id", "t", "location", "/dev/none"), Options{Opener: opener})

	err := b.Ready(context.Background(), nil)
	if !errors.Is(err, ErrChannelIO) {
		t.Fatalf("Ready() error = %v, want ErrChannelIO", err)
	}
	if b.Status().State != StateFailed {
		t.Errorf("State = %v, want failed", b.Status().State)
	}
	// Notifications on a failed binding are accepted silently.
	b.AttributeChanged(Change{Index: 0, Name: "text", Value: "x"})
	b.Wait()
}

func TestEngineLifecycle(t *testing.T) {
	opener := newMockOpener()
	rec := &recordingRecorder{}
	e := NewEngine(EngineOptions{Opener: opener, Recorder: rec})

	if _, err := e.Add(TagOutputColor, decl("id", "leds", "location", "/dev/leds")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := e.Add(TagText, decl("location", "/dev/lcd")); err != nil {
		t.Fatalf("Add(no id) error = %v", err)
	}
	if _, err := e.Add(TagInput, decl("id", "leds", "location", "/dev/other")); !errors.Is(err, ErrDuplicateBinding) {
		t.Errorf("Add(duplicate) error = %v, want ErrDuplicateBinding", err)
	}
	if _, err := e.Add("nope", decl("id", "z", "location", "/dev/z")); !errors.Is(err, ErrUnknownTag) {
		t.Errorf("Add(unknown) error = %v, want ErrUnknownTag", err)
	}

	el := newMockElement("a")
	errs := e.Start(context.Background(), staticSource{"leds": mockAssociations{0: el}})
	if len(errs) != 1 || !errors.Is(errs[0], ErrConfiguration) {
		t.Fatalf("Start() errors = %v, want one configuration error", errs)
	}

	b, ok := e.Binding("leds")
	if !ok {
		t.Fatal("Binding(leds) not found")
	}
	b.StylePropertyChanged(Change{Index: 0, Element: el, Name: "color", Value: "white"})
	e.Wait()

	stats := e.Stats()
	want := EngineStats{Bindings: 2, Ready: 1, Inert: 1, TxLines: 1}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}

	events := rec.Events()
	if len(events) != 1 || events[0].BindingID != "leds" || events[0].Direction != DirectionTx || events[0].Payload != "1" {
		t.Errorf("recorded = %+v", events)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !opener.channel.closed {
		t.Error("device channel not closed")
	}
	if err := e.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if len(e.Bindings()) != 2 {
		t.Errorf("Bindings() = %d, want 2", len(e.Bindings()))
	}
}

func TestMultiRecorder(t *testing.T) {
	a, b := &recordingRecorder{}, &recordingRecorder{}
	var calls int
	m := MultiRecorder{a, nil, b, RecorderFunc(func(IOEvent) { calls++ })}
	m.RecordIO(IOEvent{BindingID: "x"})
	if len(a.Events()) != 1 || len(b.Events()) != 1 || calls != 1 {
		t.Errorf("fan-out incomplete: %d %d %d", len(a.Events()), len(b.Events()), calls)
	}
}
