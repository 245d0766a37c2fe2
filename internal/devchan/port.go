package devchan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// readBufferSize is the size of each read from the device.
const readBufferSize = 256

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Stats holds port counters.
type Stats struct {
	BytesRx      uint64    `json:"bytes_rx"`
	BytesTx      uint64    `json:"bytes_tx"`
	LinesRx      uint64    `json:"lines_rx"`
	LinesTx      uint64    `json:"lines_tx"`
	Errors       uint64    `json:"errors"`
	LastActivity time.Time `json:"last_activity"`
	Open         bool      `json:"open"`
}

type writeOp struct {
	payload []byte
	done    func(error)
}

// Port is an open device channel.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Read chunks are delivered from a single goroutine.
//   - Write callbacks are invoked from the writer goroutine.
type Port struct {
	location string
	mode     Mode
	h        handle
	logger   Logger

	// mu guards closed and sending on writes.
	mu     sync.RWMutex
	closed bool
	writes chan writeOp

	done       *closeOnce
	wg         sync.WaitGroup
	streamOnce atomic.Bool

	bytesRx      atomic.Uint64
	bytesTx      atomic.Uint64
	linesRx      atomic.Uint64
	linesTx      atomic.Uint64
	errorsTotal  atomic.Uint64
	lastActivity atomic.Int64 // Unix nanoseconds
}

func newPort(location string, mode Mode, h handle, queue int) *Port {
	p := &Port{
		location: location,
		mode:     mode,
		h:        h,
		writes:   make(chan writeOp, queue),
		done:     newCloseOnce(),
	}
	p.lastActivity.Store(time.Now().UnixNano())

	if mode.writable() {
		p.wg.Add(1)
		go p.writeLoop()
	}
	return p
}

// Location returns the location the port was opened with.
func (p *Port) Location() string { return p.location }

// Mode returns the mode the port was opened with.
func (p *Port) Mode() Mode { return p.mode }

// Stream starts the read goroutine. onChunk receives each chunk in arrival
// order. A read error is delivered once to onError and ends the stream; end
// of file and Close end it quietly.
func (p *Port) Stream(onChunk func([]byte), onError func(error)) {
	if !p.mode.readable() {
		onError(ErrNotReadable)
		return
	}
	if !p.streamOnce.CompareAndSwap(false, true) {
		onError(ErrAlreadyStreaming)
		return
	}
	if p.isClosed() {
		onError(ErrClosed)
		return
	}

	p.wg.Add(1)
	go p.readLoop(onChunk, onError)
}

func (p *Port) readLoop(onChunk func([]byte), onError func(error)) {
	defer p.wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		n, err := p.h.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.bytesRx.Add(uint64(n))
			p.linesRx.Add(uint64(bytes.Count(chunk, []byte{'\n'})))
			p.lastActivity.Store(time.Now().UnixNano())
			p.deliver(onChunk, chunk)
		}
		if err != nil {
			if p.isClosed() || errors.Is(err, io.EOF) {
				return
			}
			p.errorsTotal.Add(1)
			onError(fmt.Errorf("read %s: %w", p.location, err))
			return
		}
		if p.isClosed() {
			return
		}
	}
}

// deliver invokes the chunk callback, recovering from panics.
func (p *Port) deliver(onChunk func([]byte), chunk []byte) {
	defer func() {
		if r := recover(); r != nil {
			p.logError("chunk callback panicked", fmt.Errorf("panic: %v", r))
		}
	}()
	onChunk(chunk)
}

// Write queues payload for the writer goroutine. done is called with the
// write's result; writes complete in call order. done may be nil.
func (p *Port) Write(payload []byte, done func(error)) {
	if done == nil {
		done = func(error) {}
	}
	if !p.mode.writable() {
		done(ErrNotWritable)
		return
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		done(ErrClosed)
		return
	}
	p.writes <- writeOp{payload: payload, done: done}
	p.mu.RUnlock()
}

func (p *Port) writeLoop() {
	defer p.wg.Done()
	for {
		// Close takes priority over queued writes.
		select {
		case <-p.done.Done():
			return
		default:
		}

		select {
		case <-p.done.Done():
			return
		case op := <-p.writes:
			n, err := p.h.Write(op.payload)
			if n > 0 {
				p.bytesTx.Add(uint64(n))
				p.lastActivity.Store(time.Now().UnixNano())
			}
			if err == nil && n < len(op.payload) {
				err = io.ErrShortWrite
			}
			if err != nil {
				p.errorsTotal.Add(1)
				err = fmt.Errorf("write %s: %w", p.location, err)
			} else {
				p.linesTx.Add(uint64(bytes.Count(op.payload, []byte{'\n'})))
			}
			op.done(err)
		}
	}
}

// Stats returns a snapshot of the port counters.
func (p *Port) Stats() Stats {
	return Stats{
		BytesRx:      p.bytesRx.Load(),
		BytesTx:      p.bytesTx.Load(),
		LinesRx:      p.linesRx.Load(),
		LinesTx:      p.linesTx.Load(),
		Errors:       p.errorsTotal.Load(),
		LastActivity: time.Unix(0, p.lastActivity.Load()),
		Open:         !p.isClosed(),
	}
}

// Close stops both goroutines and closes the device. Queued writes fail with
// ErrClosed. It is safe to call more than once.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.done.Close()
	err := p.h.Close()
	p.wg.Wait()

	for {
		select {
		case op := <-p.writes:
			op.done(ErrClosed)
		default:
			if err != nil {
				return fmt.Errorf("close %s: %w", p.location, err)
			}
			return nil
		}
	}
}

func (p *Port) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// logError logs an error message if logger is set.
func (p *Port) logError(msg string, err error) {
	if p.logger != nil {
		p.logger.Error(msg, "location", p.location, "error", err)
	}
}
