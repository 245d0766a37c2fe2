package history

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-devbind/internal/bridges/devfile"
)

// Recorder defaults.
const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second
	defaultPruneEvery   = time.Hour
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	// QueueSize is the number of events buffered ahead of the writer.
	QueueSize int

	// Retention removes entries older than this. Zero keeps everything.
	Retention time.Duration

	// PruneEvery is how often retention runs. Defaults to an hour.
	PruneEvery time.Duration

	Logger Logger
}

// Recorder journals binding I/O asynchronously. It implements
// devfile.Recorder.
//
// Thread Safety:
//   - RecordIO is safe for concurrent use and never blocks.
//   - A single goroutine performs all database writes.
type Recorder struct {
	repo   Repository
	opts   RecorderOptions
	logger Logger

	// mu guards closed and sending on queue.
	mu     sync.RWMutex
	closed bool
	queue  chan Entry

	done chan struct{}
	wg   sync.WaitGroup

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// RecorderStats holds recorder counters.
type RecorderStats struct {
	Written uint64 `json:"written"`
	Dropped uint64 `json:"dropped"`
	Failed  uint64 `json:"failed"`
	Queued  int    `json:"queued"`
}

// NewRecorder creates a recorder and starts its writer goroutine.
func NewRecorder(repo Repository, opts RecorderOptions) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.PruneEvery <= 0 {
		opts.PruneEvery = defaultPruneEvery
	}

	r := &Recorder{
		repo:   repo,
		opts:   opts,
		logger: opts.Logger,
		queue:  make(chan Entry, opts.QueueSize),
		done:   make(chan struct{}),
	}

	r.wg.Add(1)
	go r.run()
	return r
}

var _ devfile.Recorder = (*Recorder)(nil)

// RecordIO queues an event. When the queue is full or the recorder is
// closed the event is dropped and counted.
func (r *Recorder) RecordIO(ev devfile.IOEvent) {
	entry := EntryFromEvent(ev)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return
	}

	select {
	case r.queue <- entry:
	default:
		if r.dropped.Add(1) == 1 {
			r.logWarn("history queue full, dropping events", "queue_size", r.opts.QueueSize)
		}
	}
}

// Stats returns a snapshot of the recorder counters.
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Written: r.written.Load(),
		Dropped: r.dropped.Load(),
		Failed:  r.failed.Load(),
		Queued:  len(r.queue),
	}
}

// Close stops accepting events, writes everything already queued and waits
// for the writer. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	return nil
}

func (r *Recorder) run() {
	defer r.wg.Done()

	var prune <-chan time.Time
	if r.opts.Retention > 0 {
		ticker := time.NewTicker(r.opts.PruneEvery)
		defer ticker.Stop()
		prune = ticker.C
		r.prune()
	}

	for {
		select {
		case e := <-r.queue:
			r.write(e)
		case <-prune:
			r.prune()
		case <-r.done:
			r.drain()
			return
		}
	}
}

// drain writes whatever is left in the queue. Called after closed is set so
// no new entries arrive.
func (r *Recorder) drain() {
	for {
		select {
		case e := <-r.queue:
			r.write(e)
		default:
			return
		}
	}
}

func (r *Recorder) write(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
	defer cancel()

	if err := r.repo.Record(ctx, &e); err != nil {
		r.failed.Add(1)
		r.logError("recording binding io failed", err, "binding_id", e.BindingID)
		return
	}
	r.written.Add(1)
}

func (r *Recorder) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
	defer cancel()

	n, err := r.repo.Prune(ctx, time.Now().Add(-r.opts.Retention))
	if err != nil {
		r.logError("pruning binding io history failed", err)
		return
	}
	if n > 0 {
		r.logDebug("pruned binding io history", "removed", n)
	}
}

// logWarn logs a warning if logger is set.
func (r *Recorder) logWarn(msg string, keysAndValues ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (r *Recorder) logError(msg string, err error, keysAndValues ...any) {
	if r.logger != nil {
		args := append([]any{"error", err}, keysAndValues...)
		r.logger.Error(msg, args...)
	}
}

// logDebug logs a debug message if logger is set.
func (r *Recorder) logDebug(msg string, keysAndValues ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, keysAndValues...)
	}
}
