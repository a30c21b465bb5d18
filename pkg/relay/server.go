package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sketchwire/sketchwire/pkg/canvas"
	"github.com/sketchwire/sketchwire/pkg/persist"
	"github.com/sketchwire/sketchwire/pkg/protocol"
)

// Server is the HTTP front of the relay: WebSocket upgrade, the
// long-poll fallback, the health endpoint, and Prometheus metrics.
type Server struct {
	config   *Config
	store    *canvas.Store
	registry *Registry
	hub      *Hub
	saver    *persist.Saver

	upgrader   websocket.Upgrader
	router     chi.Router
	httpServer *http.Server

	// conns counts open transports, joined or not, so the session cap
	// cannot be bypassed by connections that never finish the join
	// handshake.
	conns atomic.Int64

	polls  map[string]*pollSession
	pollMu sync.Mutex

	done   chan struct{}
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*options)

type options struct {
	snapshotStore persist.SnapshotStore
	palette       []string
	logger        *slog.Logger
}

// WithSnapshotStore enables persistence through the given backend. The
// server takes ownership and closes it on shutdown.
func WithSnapshotStore(s persist.SnapshotStore) Option {
	return func(o *options) {
		o.snapshotStore = s
	}
}

// WithPalette overrides the display color palette.
func WithPalette(p []string) Option {
	return func(o *options) {
		o.palette = p
	}
}

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a relay server. The last durable snapshot, if any, is
// loaded into the canvas store; a missing or corrupt snapshot starts
// an empty canvas.
func New(config *Config, opts ...Option) *Server {
	config = config.withDefaults()

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	logger := o.logger.With("component", "relay")

	store := canvas.NewStore()
	store.Replace(persist.LoadLog(context.Background(), o.snapshotStore, logger))
	if config.MaxLogEntries > 0 {
		store.SetMaxEntries(config.MaxLogEntries)
	}

	registry := NewRegistry(o.palette, o.logger)

	var saver *persist.Saver
	var persister Persister
	if o.snapshotStore != nil {
		saver = persist.NewSaver(o.snapshotStore, store.Snapshot, o.logger,
			persist.WithQuiescence(config.PersistQuiescence))
		persister = saver
	}

	srv := &Server{
		config:   config,
		store:    store,
		registry: registry,
		hub:      NewHub(store, registry, persister, config.MaxEventQueue, o.logger),
		saver:    saver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		polls:  make(map[string]*pollSession),
		done:   make(chan struct{}),
		logger: logger,
	}
	srv.router = srv.routes()
	return srv
}

// routes builds the HTTP router.
func (srv *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/ws", srv.handleWebSocket)
	r.Route("/poll", func(r chi.Router) {
		r.Post("/", srv.handlePollConnect)
		r.Get("/{sid}/events", srv.handlePollEvents)
		r.Post("/{sid}/emit", srv.handlePollEmit)
		r.Delete("/{sid}", srv.handlePollDisconnect)
	})
	r.Get("/api/health", srv.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Handler returns the server's HTTP handler for mounting in an
// external router.
func (srv *Server) Handler() http.Handler {
	return srv.router
}

// Hub returns the broadcast hub.
func (srv *Server) Hub() *Hub {
	return srv.hub
}

// Registry returns the session registry.
func (srv *Server) Registry() *Registry {
	return srv.registry
}

// Store returns the canvas store.
func (srv *Server) Store() *canvas.Store {
	return srv.store
}

// dispatch routes one decoded client frame to the hub. Malformed frames
// are dropped with a log notice; draw/text/cursor frames from sessions
// that have not joined are ignored, not queued.
func (srv *Server) dispatch(sess *Session, msg []byte) {
	env, err := protocol.Decode(msg)
	if err != nil {
		eventsDropped.WithLabelValues("malformed").Inc()
		sess.logger.Warn("malformed event dropped", "error", err)
		return
	}
	if !protocol.ClientOriginated(env.Event) {
		eventsDropped.WithLabelValues("unknown").Inc()
		sess.logger.Warn("unexpected event dropped", "event", string(env.Event))
		return
	}

	switch env.Event {
	case protocol.EventJoin:
		j, err := env.DecodeJoin()
		if err != nil {
			eventsDropped.WithLabelValues("malformed").Inc()
			sess.logger.Warn("malformed join dropped", "error", err)
			return
		}
		srv.hub.Join(sess, j.Name)

	case protocol.EventDraw:
		if !sess.Joined() {
			return
		}
		d, err := env.DecodeDraw()
		if err != nil {
			eventsDropped.WithLabelValues("malformed").Inc()
			sess.logger.Warn("malformed draw dropped", "error", err)
			return
		}
		srv.hub.Draw(sess, d.Path)

	case protocol.EventTextAdd:
		if !sess.Joined() {
			return
		}
		t, err := env.DecodeTextAdd()
		if err != nil {
			eventsDropped.WithLabelValues("malformed").Inc()
			sess.logger.Warn("malformed text-add dropped", "error", err)
			return
		}
		srv.hub.TextAdd(sess, t.Text, t.X, t.Y)

	case protocol.EventCursorMove:
		if !sess.Joined() {
			return
		}
		c, err := env.DecodeCursorMove()
		if err != nil {
			eventsDropped.WithLabelValues("malformed").Inc()
			return
		}
		srv.hub.CursorMove(sess, c.X, c.Y)
	}
}

// handleHealth reports process liveness and the active session count.
func (srv *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"users":  srv.registry.Count(),
	})
}

// Run starts the hub and HTTP server and blocks until a shutdown
// signal arrives.
func (srv *Server) Run() error {
	go srv.hub.Run()
	go srv.pollJanitor()

	srv.httpServer = &http.Server{
		Addr:    srv.config.Address,
		Handler: srv.router,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		srv.logger.Info("server starting", "address", srv.config.Address)
		errCh <- srv.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-shutdown:
		srv.logger.Info("shutting down...")
		return srv.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the server: sessions are closed, the hub
// drained, and a final snapshot flushed before the HTTP listener goes
// away.
func (srv *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, srv.config.ShutdownTimeout)
	defer cancel()

	close(srv.done)

	for _, s := range srv.registry.ListActive() {
		s.Close()
	}
	srv.hub.Stop()

	if srv.saver != nil {
		if err := srv.saver.Close(); err != nil {
			srv.logger.Error("snapshot store close", "error", err)
		}
	}

	if srv.httpServer != nil {
		if err := srv.httpServer.Shutdown(ctx); err != nil {
			srv.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	srv.logger.Info("server shutdown complete")
	return nil
}
