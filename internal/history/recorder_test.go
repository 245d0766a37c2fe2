package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-devbind/internal/bridges/devfile"
)

// memRepo is an in-memory Repository. block, when set, stalls Record until
// closed.
type memRepo struct {
	mu      sync.Mutex
	entries []Entry
	pruned  []time.Time
	fail    error
	block   chan struct{}
}

func (m *memRepo) Record(_ context.Context, e *Entry) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memRepo) Recent(_ context.Context, bindingID string, _ int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.BindingID == bindingID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memRepo) Prune(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned = append(m.pruned, before)
	return 0, nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func ioEvent(payload string) devfile.IOEvent {
	return devfile.IOEvent{
		BindingID: "leds",
		Kind:      devfile.KindOutputColor,
		Location:  "/dev/ttyUSB1",
		Direction: devfile.DirectionTx,
		Payload:   payload,
		Time:      time.Now(),
	}
}

func TestRecorderWritesOnClose(t *testing.T) {
	repo := &memRepo{}
	rec := NewRecorder(repo, RecorderOptions{})

	for _, p := range []string{"100", "110", "111"} {
		rec.RecordIO(ioEvent(p))
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if repo.count() != 3 {
		t.Fatalf("recorded %d entries, want 3", repo.count())
	}
	if repo.entries[0].Payload != "100" || repo.entries[2].Payload != "111" {
		t.Errorf("entries out of order: %+v", repo.entries)
	}
	if s := rec.Stats(); s.Written != 3 || s.Dropped != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestRecorderDropsWhenFull(t *testing.T) {
	repo := &memRepo{block: make(chan struct{})}
	rec := NewRecorder(repo, RecorderOptions{QueueSize: 1})

	// The writer takes the first event and blocks on it, the second fills
	// the queue and the rest are dropped.
	rec.RecordIO(ioEvent("1"))
	deadline := time.Now().Add(time.Second)
	for rec.Stats().Queued != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	for i := 0; i < 5; i++ {
		rec.RecordIO(ioEvent("x"))
	}

	close(repo.block)
	rec.Close()

	s := rec.Stats()
	if s.Dropped != 4 {
		t.Errorf("Dropped = %d, want 4", s.Dropped)
	}
	if s.Written != 2 {
		t.Errorf("Written = %d, want 2", s.Written)
	}
}

func TestRecorderAfterClose(t *testing.T) {
	repo := &memRepo{}
	rec := NewRecorder(repo, RecorderOptions{})
	rec.Close()
	rec.Close()

	rec.RecordIO(ioEvent("late"))

	if repo.count() != 0 {
		t.Error("event recorded after Close")
	}
	if rec.Stats().Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", rec.Stats().Dropped)
	}
}

func TestRecorderCountsFailures(t *testing.T) {
	repo := &memRepo{fail: errors.New("disk full")}
	rec := NewRecorder(repo, RecorderOptions{})
	rec.RecordIO(ioEvent("1"))
	rec.Close()

	if s := rec.Stats(); s.Failed != 1 || s.Written != 0 {
		t.Errorf("Stats() = %+v, want one failure", s)
	}
}

func TestRecorderPrunesOnStart(t *testing.T) {
	repo := &memRepo{}
	rec := NewRecorder(repo, RecorderOptions{Retention: 24 * time.Hour})
	rec.Close()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.pruned) != 1 {
		t.Fatalf("Prune called %d times, want 1", len(repo.pruned))
	}
	age := time.Since(repo.pruned[0])
	if age < 23*time.Hour || age > 25*time.Hour {
		t.Errorf("prune cutoff age = %v, want about 24h", age)
	}
}

func TestEntryFromEvent(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := EntryFromEvent(devfile.IOEvent{
		BindingID: "lcd",
		Kind:      devfile.KindOutputText,
		Location:  "/dev/ttyS0",
		Direction: devfile.DirectionTx,
		Payload:   "hello",
		Time:      at,
	})

	want := Entry{
		BindingID: "lcd",
		Kind:      "output-text",
		Location:  "/dev/ttyS0",
		Direction: "tx",
		Payload:   "hello",
		CreatedAt: at,
	}
	if e != want {
		t.Errorf("EntryFromEvent() = %+v, want %+v", e, want)
	}
}
