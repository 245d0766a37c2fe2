package devfile

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-devbind/internal/devchan"
)

// core holds the lifecycle shared by every variant: configuration, the
// device channel, the write serializer, counters and logging.
type core struct {
	kind     Kind
	cfg      BindingConfig
	cfgErr   error
	warnings []error
	opts     Options

	serializer *WriteSerializer

	mu      sync.Mutex
	readied bool
	state   State
	assoc   Associations
	channel Channel
	lastErr error
	vector  string
	updated time.Time

	rxLines  atomic.Uint64
	txLines  atomic.Uint64
	errCount atomic.Uint64
}

// setup prepares the core in place. Configuration errors are kept and
// reported by Ready.
func (c *core) setup(kind Kind, decl Declaration, opts Options) {
	c.kind = kind
	c.cfg, c.warnings, c.cfgErr = ParseBindingConfig(kind, decl)
	c.opts = opts
	c.serializer = NewWriteSerializer()
	c.serializer.onPanic = func(r any) {
		c.logError("binding task panicked", fmt.Errorf("panic: %v", r))
	}
	c.state = StateCreated
	c.updated = time.Now()
}

// ID returns the declared binding id.
func (c *core) ID() string { return c.cfg.ID }

// Kind returns the binding variant.
func (c *core) Kind() Kind { return c.kind }

// Location returns the declared device location.
func (c *core) Location() string { return c.cfg.Location }

// Config returns the parsed configuration.
func (c *core) Config() BindingConfig { return c.cfg }

// begin performs the shared part of Ready. It returns ErrAlreadyReady on a
// second call and leaves the binding inert on a configuration error.
func (c *core) begin(ctx context.Context, assoc Associations, mode devchan.Mode) error {
	c.mu.Lock()
	if c.readied {
		c.mu.Unlock()
		return ErrAlreadyReady
	}
	c.readied = true
	if c.cfgErr != nil {
		c.state = StateInert
		c.lastErr = c.cfgErr
		c.updated = time.Now()
		c.mu.Unlock()
		c.logError("binding configuration invalid, binding is inert", c.cfgErr)
		return c.cfgErr
	}
	c.mu.Unlock()

	for _, w := range c.warnings {
		c.logWarn("binding configuration warning", "warning", w.Error())
	}

	if c.opts.Opener == nil {
		err := fmt.Errorf("%w: no channel opener for %s", ErrChannelIO, c.cfg.Location)
		c.fail(err)
		return err
	}

	ch, err := c.opts.Opener.OpenChannel(ctx, c.cfg.Location, mode)
	if err != nil {
		wrapped := fmt.Errorf("%w: opening %s: %w", ErrChannelIO, c.cfg.Location, err)
		c.fail(wrapped)
		return wrapped
	}

	if assoc == nil {
		assoc = noAssociations{}
	}

	c.mu.Lock()
	c.channel = ch
	c.assoc = assoc
	c.state = StateReady
	c.updated = time.Now()
	c.mu.Unlock()

	c.logInfo("binding ready",
		"kind", string(c.kind),
		"mode", mode.String(),
		"elements", countIndices(assoc),
	)
	return nil
}

// active returns the channel and associations once the binding is ready.
func (c *core) active() (Channel, Associations, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady || c.channel == nil {
		return nil, nil, false
	}
	return c.channel, c.assoc, true
}

func (c *core) fail(err error) {
	c.errCount.Add(1)
	c.mu.Lock()
	c.state = StateFailed
	c.lastErr = err
	c.updated = time.Now()
	c.mu.Unlock()
	c.logError("binding failed to open device channel", err)
}

// transmit writes line plus a newline and calls done when the write has
// completed or failed. Write failures are logged and recorded, never retried.
func (c *core) transmit(ch Channel, line string, done func()) {
	payload := make([]byte, 0, len(line)+1)
	payload = append(payload, line...)
	payload = append(payload, '\n')

	ch.Write(payload, func(err error) {
		defer done()
		if err != nil {
			wrapped := fmt.Errorf("%w: write %s: %w", ErrChannelIO, c.cfg.Location, err)
			c.ioError(wrapped)
			c.record(DirectionTx, line, wrapped)
			return
		}
		c.txLines.Add(1)
		c.touch()
		c.record(DirectionTx, line, nil)
		c.logDebug("device line written", "payload", line)
	})
}

// stream starts reading from ch and calls onLine for every complete line.
// The assembler is owned by the channel's single read goroutine.
func (c *core) stream(ch Channel, onLine func(string)) {
	var asm LineAssembler
	ch.Stream(func(chunk []byte) {
		for _, line := range asm.Feed(chunk) {
			c.rxLines.Add(1)
			c.touch()
			c.record(DirectionRx, line, nil)
			onLine(line)
		}
	}, func(err error) {
		wrapped := fmt.Errorf("%w: read %s: %w", ErrChannelIO, c.cfg.Location, err)
		c.ioError(wrapped)
		c.record(DirectionRx, "", wrapped)
	})
}

func (c *core) ioError(err error) {
	c.errCount.Add(1)
	c.mu.Lock()
	c.lastErr = err
	c.updated = time.Now()
	c.mu.Unlock()
	c.logError("device channel error", err)
}

func (c *core) touch() {
	c.mu.Lock()
	c.updated = time.Now()
	c.mu.Unlock()
}

func (c *core) setVector(v string) {
	c.mu.Lock()
	c.vector = v
	c.mu.Unlock()
}

func (c *core) record(dir Direction, payload string, err error) {
	if c.opts.Recorder == nil {
		return
	}
	c.opts.Recorder.RecordIO(IOEvent{
		BindingID: c.cfg.ID,
		Kind:      c.kind,
		Location:  c.cfg.Location,
		Direction: dir,
		Payload:   payload,
		Err:       err,
		Time:      time.Now(),
	})
}

// safely runs an element callback, recovering from panics so that one
// misbehaving element cannot take down the read goroutine.
func (c *core) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logError("element callback panicked", fmt.Errorf("%s: panic: %v", what, r))
		}
	}()
	fn()
}

// Status returns a snapshot of the binding.
func (c *core) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		ID:       c.cfg.ID,
		Kind:     c.kind,
		Location: c.cfg.Location,
		State:    c.state,
		Elements: countIndices(c.assoc),
		Vector:   c.vector,
		RxLines:  c.rxLines.Load(),
		TxLines:  c.txLines.Load(),
		Errors:   c.errCount.Load(),
		Updated:  c.updated,
	}
	if c.lastErr != nil {
		s.LastErr = c.lastErr.Error()
	}
	for _, w := range c.warnings {
		s.Warnings = append(s.Warnings, w.Error())
	}
	return s
}

// Wait blocks until every queued task has completed.
func (c *core) Wait() {
	c.serializer.Wait()
}

// Close closes the device channel. It is safe to call more than once.
func (c *core) Close() error {
	c.mu.Lock()
	ch := c.channel
	c.channel = nil
	if c.state == StateReady {
		c.state = StateClosed
		c.updated = time.Now()
	}
	c.mu.Unlock()

	if ch == nil {
		return nil
	}
	return ch.Close()
}

// noAssociations is used when a binding has no associated elements.
type noAssociations struct{}

func (noAssociations) Element(int) (Element, bool) { return nil, false }
func (noAssociations) Indices() []int              { return nil }

func countIndices(assoc Associations) int {
	if assoc == nil {
		return 0
	}
	return len(assoc.Indices())
}

func (c *core) logArgs(keysAndValues []any) []any {
	args := make([]any, 0, len(keysAndValues)+4)
	args = append(args, "binding_id", c.cfg.ID, "location", c.cfg.Location)
	return append(args, keysAndValues...)
}

// logInfo logs an info message if logger is set.
func (c *core) logInfo(msg string, keysAndValues ...any) {
	if c.opts.Logger != nil {
		c.opts.Logger.Info(msg, c.logArgs(keysAndValues)...)
	}
}

// logWarn logs a warning if logger is set.
func (c *core) logWarn(msg string, keysAndValues ...any) {
	if c.opts.Logger != nil {
		c.opts.Logger.Warn(msg, c.logArgs(keysAndValues)...)
	}
}

// logError logs an error message if logger is set.
func (c *core) logError(msg string, err error) {
	if c.opts.Logger != nil {
		c.opts.Logger.Error(msg, c.logArgs([]any{"error", err})...)
	}
}

// logDebug logs a debug message if logger is set.
func (c *core) logDebug(msg string, keysAndValues ...any) {
	if c.opts.Logger != nil {
		c.opts.Logger.Debug(msg, c.logArgs(keysAndValues)...)
	}
}
