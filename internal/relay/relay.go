package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-devbind/internal/bridges/devfile"
	"github.com/nerrad567/gray-logic-devbind/internal/document"
	"github.com/nerrad567/gray-logic-devbind/internal/infrastructure/mqtt"
)

const (
	defaultQueueSize = 512

	// qosIO is used for device I/O, which is high volume and best effort.
	qosIO byte = 0
)

// MQTTClient is the subset of *mqtt.Client the relay uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options configures a Relay.
type Options struct {
	MQTT     MQTTClient
	Document *document.Document
	Logger   Logger

	// QoS is used for commands, acks, events and state.
	QoS byte

	// PublishIO enables devbind/io/{binding} messages.
	PublishIO bool

	// QueueSize bounds the outbound queue. Default 512.
	QueueSize int
}

// Stats holds relay counters.
type Stats struct {
	Commands  uint64 `json:"commands"`
	Rejected  uint64 `json:"rejected"`
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

type outbound struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// Relay bridges the document and MQTT.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - RecordIO and the document listeners never block.
type Relay struct {
	mqtt   MQTTClient
	doc    *document.Document
	logger Logger
	opts   Options
	topics mqtt.Topics

	// mu guards started, closed and sending on queue.
	mu      sync.RWMutex
	started bool
	closed  bool
	queue   chan outbound
	done    chan struct{}
	wg      sync.WaitGroup

	commands  atomic.Uint64
	rejected  atomic.Uint64
	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// New creates a relay. Call Start to subscribe and begin publishing.
func New(opts Options) (*Relay, error) {
	if opts.MQTT == nil {
		return nil, ErrNoClient
	}
	if opts.Document == nil {
		return nil, ErrNoDocument
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	return &Relay{
		mqtt:   opts.MQTT,
		doc:    opts.Document,
		logger: opts.Logger,
		opts:   opts,
		queue:  make(chan outbound, opts.QueueSize),
		done:   make(chan struct{}),
	}, nil
}

var _ devfile.Recorder = (*Relay)(nil)

// Start registers the document listeners, subscribes to commands and
// publishes the current state of every element. The relay stops when ctx is
// cancelled or Stop is called.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	r.mu.Unlock()

	r.doc.OnEvent(r.handleEvent)
	r.doc.OnAttribute(r.handleAttribute)

	if err := r.mqtt.Subscribe(r.topics.AllCommands(), r.opts.QoS, r.handleMessage); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}

	r.wg.Add(1)
	go r.publishLoop(ctx)

	for _, id := range r.doc.ElementIDs() {
		r.publishState(id)
	}

	r.logInfo("relay started", "topic", r.topics.AllCommands(), "publish_io", r.opts.PublishIO)
	return nil
}

// Stop unsubscribes from commands, publishes what is already queued and
// stops the publisher. Messages produced afterwards are dropped. It is safe
// to call more than once.
func (r *Relay) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	started := r.started
	close(r.done)
	r.mu.Unlock()

	if started {
		if err := r.mqtt.Unsubscribe(r.topics.AllCommands()); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
			r.logWarn("failed to unsubscribe from commands", "error", err)
		}
	}

	r.wg.Wait()
}

// Stats returns a snapshot of the relay counters.
func (r *Relay) Stats() Stats {
	return Stats{
		Commands:  r.commands.Load(),
		Rejected:  r.rejected.Load(),
		Published: r.published.Load(),
		Dropped:   r.dropped.Load(),
		Failed:    r.failed.Load(),
	}
}

// RecordIO publishes a device exchange when PublishIO is enabled.
func (r *Relay) RecordIO(ev devfile.IOEvent) {
	if !r.opts.PublishIO {
		return
	}
	r.enqueue(r.topics.IO(ev.BindingID), NewIOMessage(ev), qosIO, false)
}

// handleMessage is the MQTT handler for devbind/command/+.
func (r *Relay) handleMessage(topic string, payload []byte) error {
	r.commands.Add(1)

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		cmd.ElementID = mqtt.LastSegment(topic)
		r.reject(cmd, ErrCodeInvalidCommand, "malformed command payload")
		return fmt.Errorf("parsing command on %s: %w", topic, err)
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if cmd.ElementID == "" {
		cmd.ElementID = mqtt.LastSegment(topic)
	}
	if cmd.Source == "" {
		cmd.Source = "mqtt"
	}

	r.logInfo("received command",
		"command_id", cmd.ID,
		"element_id", cmd.ElementID,
		"action", string(cmd.Action),
		"name", cmd.Name)

	if err := Apply(r.doc, cmd); err != nil {
		code := ErrorCode(err)
		r.reject(cmd, code, err.Error())
		return nil
	}

	r.enqueue(r.topics.Ack(cmd.ElementID), NewAckMessage(cmd), r.opts.QoS, false)
	return nil
}

func (r *Relay) reject(cmd CommandMessage, code, message string) {
	r.rejected.Add(1)
	r.logWarn("command rejected",
		"command_id", cmd.ID,
		"element_id", cmd.ElementID,
		"code", code,
		"message", message)
	r.enqueue(r.topics.Ack(cmd.ElementID), NewAckError(cmd, code, message), r.opts.QoS, false)
}

func (r *Relay) handleEvent(ev document.Event) {
	r.enqueue(r.topics.Event(ev.ElementID), EventMessage{
		ElementID: ev.ElementID,
		Event:     ev.Name,
		Timestamp: ev.Time.UTC(),
	}, r.opts.QoS, false)
}

func (r *Relay) handleAttribute(ev document.AttributeEvent) {
	r.publishState(ev.ElementID)
}

func (r *Relay) publishState(elementID string) {
	snap, ok := r.doc.Snapshot(elementID)
	if !ok {
		return
	}
	r.enqueue(r.topics.State(elementID), NewStateMessage(snap), r.opts.QoS, true)
}

// enqueue marshals msg and queues it without blocking.
func (r *Relay) enqueue(topic string, msg any, qos byte, retained bool) {
	payload, err := json.Marshal(msg)
	if err != nil {
		r.failed.Add(1)
		r.logError("failed to marshal message", err, "topic", topic)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return
	}

	select {
	case r.queue <- outbound{topic: topic, payload: payload, qos: qos, retained: retained}:
	default:
		if r.dropped.Add(1) == 1 {
			r.logWarn("relay queue full, dropping messages", "queue_size", r.opts.QueueSize)
		}
	}
}

func (r *Relay) publishLoop(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case msg := <-r.queue:
			r.publish(msg)
		case <-ctx.Done():
			return
		case <-r.done:
			for {
				select {
				case msg := <-r.queue:
					r.publish(msg)
				default:
					return
				}
			}
		}
	}
}

func (r *Relay) publish(msg outbound) {
	if err := r.mqtt.Publish(msg.topic, msg.payload, msg.qos, msg.retained); err != nil {
		r.failed.Add(1)
		if !errors.Is(err, mqtt.ErrNotConnected) {
			r.logError("failed to publish", err, "topic", msg.topic)
		}
		return
	}
	r.published.Add(1)
}

// logInfo logs an info message if logger is set.
func (r *Relay) logInfo(msg string, keysAndValues ...any) {
	if r.logger != nil {
		r.logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (r *Relay) logWarn(msg string, keysAndValues ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (r *Relay) logError(msg string, err error, keysAndValues ...any) {
	if r.logger != nil {
		args := append([]any{"error", err}, keysAndValues...)
		r.logger.Error(msg, args...)
	}
}
