package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-devbind/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devbind/internal/infrastructure/logging"
)

// Topics a watcher can follow. A notification frame carries its topic in Op.
const (
	TopicElementEvent     = "element.event"
	TopicElementAttribute = "element.attribute"
	TopicBindingIO        = "binding.io"
)

// Control ops exchanged on the live feed.
const (
	OpWatch   = "watch"
	OpUnwatch = "unwatch"
	OpPing    = "ping"
	OpPong    = "pong"
	OpAck     = "ack"
	OpError   = "error"
)

// watcherQueueSize bounds the frames buffered for one slow watcher.
const watcherQueueSize = 256

// Frame is one message on the live feed, in either direction.
//
// A watch frame adds Topics and narrows element topics to Elements and
// binding.io to Bindings. Empty id lists follow everything. An unwatch
// frame removes what it names, or everything when it names nothing.
type Frame struct {
	Op       string   `json:"op"`
	ID       string   `json:"id,omitempty"`
	Topics   []string `json:"topics,omitempty"`
	Elements []string `json:"elements,omitempty"`
	Bindings []string `json:"bindings,omitempty"`
	Error    string   `json:"error,omitempty"`
	At       string   `json:"at,omitempty"`
	Data     any      `json:"data,omitempty"`
}

// notice is a document or device change headed for watchers. key is the
// element id for element topics and the binding id for binding.io.
type notice struct {
	topic string
	key   string
	data  any
}

func knownTopic(topic string) bool {
	switch topic {
	case TopicElementEvent, TopicElementAttribute, TopicBindingIO:
		return true
	}
	return false
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by the CORS middleware.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// feed fans document and binding changes out to WebSocket watchers.
type feed struct {
	cfg      config.WebSocketConfig
	logger   *logging.Logger
	mu       sync.RWMutex
	watchers map[*watcher]struct{}
	dropped  atomic.Uint64
}

func newFeed(cfg config.WebSocketConfig, logger *logging.Logger) *feed {
	return &feed{
		cfg:      cfg,
		logger:   logger,
		watchers: make(map[*watcher]struct{}),
	}
}

// run blocks until ctx ends, then disconnects every watcher.
func (f *feed) run(ctx context.Context) {
	<-ctx.Done()

	f.mu.Lock()
	defer f.mu.Unlock()
	for w := range f.watchers {
		w.shut()
		if w.conn != nil {
			w.conn.Close()
		}
		delete(f.watchers, w)
	}
}

func (f *feed) add(w *watcher) {
	f.mu.Lock()
	f.watchers[w] = struct{}{}
	n := len(f.watchers)
	f.mu.Unlock()
	f.logger.Debug("watcher connected", "watchers", n)
}

func (f *feed) remove(w *watcher) {
	f.mu.Lock()
	delete(f.watchers, w)
	n := len(f.watchers)
	f.mu.Unlock()
	w.shut()
	f.logger.Debug("watcher disconnected", "watchers", n)
}

func (f *feed) count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.watchers)
}

// publish encodes n once and queues it on every watcher whose filter
// accepts it. Watchers with a full queue lose the frame and it is counted.
func (f *feed) publish(n notice) {
	data, err := json.Marshal(Frame{
		Op:   n.topic,
		At:   time.Now().UTC().Format(time.RFC3339Nano),
		Data: n.data,
	})
	if err != nil {
		f.logger.Error("encoding feed notification failed", "topic", n.topic, "error", err)
		return
	}

	f.mu.RLock()
	targets := make([]*watcher, 0, len(f.watchers))
	for w := range f.watchers {
		targets = append(targets, w)
	}
	f.mu.RUnlock()

	for _, w := range targets {
		if w.wants(n.topic, n.key) && !w.offer(data) {
			f.dropped.Add(1)
		}
	}
}

// watcher is one WebSocket connection and what it follows.
type watcher struct {
	conn *websocket.Conn
	out  chan []byte

	mu       sync.Mutex
	closed   bool
	topics   map[string]struct{}
	elements map[string]struct{}
	bindings map[string]struct{}
}

func newWatcher(conn *websocket.Conn) *watcher {
	return &watcher{
		conn:     conn,
		out:      make(chan []byte, watcherQueueSize),
		topics:   make(map[string]struct{}),
		elements: make(map[string]struct{}),
		bindings: make(map[string]struct{}),
	}
}

func (w *watcher) wants(topic, key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.topics[topic]; !ok {
		return false
	}
	ids := w.elements
	if topic == TopicBindingIO {
		ids = w.bindings
	}
	if len(ids) == 0 {
		return true
	}
	_, ok := ids[key]
	return ok
}

// offer queues data without blocking. It reports false only when the
// queue is full; frames for a shut watcher are discarded silently.
func (w *watcher) offer(data []byte) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return true
	}
	select {
	case w.out <- data:
		return true
	default:
		return false
	}
}

// shut closes the outbound queue once so the write loop exits.
func (w *watcher) shut() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.out)
	}
}

// watch widens the filter. Unknown topics reject the whole frame.
func (w *watcher) watch(fr Frame) error {
	for _, t := range fr.Topics {
		if !knownTopic(t) {
			return fmt.Errorf("unknown topic %q", t)
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range fr.Topics {
		w.topics[t] = struct{}{}
	}
	for _, id := range fr.Elements {
		w.elements[id] = struct{}{}
	}
	for _, id := range fr.Bindings {
		w.bindings[id] = struct{}{}
	}
	return nil
}

func (w *watcher) unwatch(fr Frame) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(fr.Topics) == 0 && len(fr.Elements) == 0 && len(fr.Bindings) == 0 {
		clear(w.topics)
		clear(w.elements)
		clear(w.bindings)
		return
	}
	for _, t := range fr.Topics {
		delete(w.topics, t)
	}
	for _, id := range fr.Elements {
		delete(w.elements, id)
	}
	for _, id := range fr.Bindings {
		delete(w.bindings, id)
	}
}

// following returns the current filter as an ack frame.
func (w *watcher) following(id string) Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Frame{
		Op:       OpAck,
		ID:       id,
		Topics:   sortedKeys(w.topics),
		Elements: sortedKeys(w.elements),
		Bindings: sortedKeys(w.bindings),
	}
}

func (w *watcher) reply(fr Frame) {
	fr.At = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(fr)
	if err != nil {
		return
	}
	w.offer(data)
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// handleWebSocket upgrades to the live feed. With auth enabled the
// connection needs a single-use ticket from POST <ws path>/ticket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.authRequired() {
		ticket := r.URL.Query().Get("ticket")
		if ticket == "" {
			writeUnauthorized(w, "ticket query parameter is required")
			return
		}
		if !s.tickets.consume(ticket) {
			writeUnauthorized(w, "invalid or expired ticket")
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	wt := newWatcher(conn)
	s.feed.add(wt)
	go s.feed.writeLoop(wt)
	go s.feed.readLoop(wt)
}

// readLoop applies control frames until the peer goes away or stops
// answering pings.
func (f *feed) readLoop(w *watcher) {
	defer func() {
		f.remove(w)
		w.conn.Close()
	}()

	idle := time.Duration(f.cfg.PingInterval+f.cfg.PongTimeout) * time.Second
	w.conn.SetReadLimit(int64(f.cfg.MaxMessageSize))
	//nolint:errcheck // a failed deadline surfaces on the next read
	w.conn.SetReadDeadline(time.Now().Add(idle))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		_, raw, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.Warn("watcher read failed", "error", err)
			}
			return
		}
		// Browsers may not answer protocol pings; any frame counts as liveness.
		//nolint:errcheck // a failed deadline surfaces on the next read
		w.conn.SetReadDeadline(time.Now().Add(idle))
		f.handleFrame(w, raw)
	}
}

// writeLoop drains the watcher queue and pings on the configured interval.
func (f *feed) writeLoop(w *watcher) {
	ticker := time.NewTicker(time.Duration(f.cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		w.conn.Close()
	}()

	grace := time.Duration(f.cfg.PongTimeout) * time.Second
	for {
		var kind int
		var data []byte
		select {
		case frame, ok := <-w.out:
			if !ok {
				//nolint:errcheck // peer may already be gone
				w.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			kind, data = websocket.TextMessage, frame
		case <-ticker.C:
			kind = websocket.PingMessage
		}
		//nolint:errcheck // a failed deadline surfaces on the write
		w.conn.SetWriteDeadline(time.Now().Add(grace))
		if err := w.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

func (f *feed) handleFrame(w *watcher, raw []byte) {
	var fr Frame
	if err := json.Unmarshal(raw, &fr); err != nil {
		w.reply(Frame{Op: OpError, Error: "frame is not valid JSON"})
		return
	}

	switch fr.Op {
	case OpWatch:
		if err := w.watch(fr); err != nil {
			w.reply(Frame{Op: OpError, ID: fr.ID, Error: err.Error()})
			return
		}
		f.logger.Debug("watcher filter widened", "topics", fr.Topics, "elements", fr.Elements, "bindings", fr.Bindings)
		w.reply(w.following(fr.ID))
	case OpUnwatch:
		w.unwatch(fr)
		w.reply(w.following(fr.ID))
	case OpPing:
		w.reply(Frame{Op: OpPong, ID: fr.ID})
	default:
		w.reply(Frame{Op: OpError, ID: fr.ID, Error: "unknown op " + fr.Op})
	}
}
