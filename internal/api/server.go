package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-devbind/internal/bridges/devfile"
	"github.com/nerrad567/gray-logic-devbind/internal/document"
	"github.com/nerrad567/gray-logic-devbind/internal/history"
	"github.com/nerrad567/gray-logic-devbind/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devbind/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// BindingSource is the read side of the binding engine.
type BindingSource interface {
	Bindings() []devfile.Binding
	Binding(id string) (devfile.Binding, bool)
	Stats() devfile.EngineStats
}

// HistoryReader serves the binding I/O journal.
type HistoryReader interface {
	Recent(ctx context.Context, bindingID string, limit int) ([]history.Entry, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Engine   BindingSource
	Document *document.Document
	History  HistoryReader // optional
	Version  string
}

// Server is the HTTP API server for DevBind.
//
// It manages the HTTP listener, routes, middleware and the live WebSocket feed.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	secCfg  config.SecurityConfig
	logger  *logging.Logger
	engine  BindingSource
	doc     *document.Document
	history HistoryReader
	version string
	started time.Time
	server  *http.Server
	feed    *feed
	tickets *ticketStore
	cancel  context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("binding engine is required")
	}
	if deps.Document == nil {
		return nil, fmt.Errorf("document is required")
	}

	s := &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		secCfg:  deps.Security,
		logger:  deps.Logger,
		engine:  deps.Engine,
		doc:     deps.Document,
		history: deps.History,
		version: deps.Version,
		started: time.Now(),
		tickets: newTicketStore(),
	}
	s.feed = newFeed(s.wsCfg, s.logger)
	s.registerListeners()
	return s, nil
}

var _ devfile.Recorder = (*Server)(nil)

// registerListeners forwards document changes to the live feed.
func (s *Server) registerListeners() {
	s.doc.OnEvent(func(ev document.Event) {
		s.feed.publish(notice{topic: TopicElementEvent, key: ev.ElementID, data: ev})
	})
	s.doc.OnAttribute(func(ev document.AttributeEvent) {
		s.feed.publish(notice{topic: TopicElementAttribute, key: ev.ElementID, data: ev})
	})
}

// RecordIO publishes a device exchange on the binding.io topic.
func (s *Server) RecordIO(ev devfile.IOEvent) {
	s.feed.publish(notice{topic: TopicBindingIO, key: ev.BindingID, data: history.EntryFromEvent(ev)})
}

// Start begins listening for HTTP connections.
//
// It starts the live feed and the ticket cleanup loop, then launches the
// HTTP listener in a background goroutine. The server can be stopped with
// Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.feed.run(srvCtx)
	go s.cleanTicketsLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (feed, ticket cleanup)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
