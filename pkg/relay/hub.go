package relay

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sketchwire/sketchwire/pkg/canvas"
	"github.com/sketchwire/sketchwire/pkg/protocol"
)

// tracerName identifies hub spans.
const tracerName = "sketchwire/relay"

// Persister schedules a durable write after a successful append. The
// hub never waits on it.
type Persister interface {
	Schedule()
}

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdLeave
	cmdDraw
	cmdText
	cmdCursor
)

func (k commandKind) String() string {
	switch k {
	case cmdJoin:
		return "join"
	case cmdLeave:
		return "leave"
	case cmdDraw:
		return "draw"
	case cmdText:
		return "text-add"
	case cmdCursor:
		return "cursor-move"
	default:
		return "unknown"
	}
}

// command is one unit of work for the hub goroutine.
type command struct {
	kind commandKind
	sess *Session
	name string
	path []canvas.Point
	text string
	x, y float64
}

// Hub serializes every canvas mutation and presence change through one
// goroutine. Append order therefore equals broadcast order: all
// sessions observe committed strokes and texts in the same relative
// order, and a join's initial snapshot can never observe a partial
// append.
type Hub struct {
	store    *canvas.Store
	registry *Registry
	saver    Persister // may be nil

	commands chan command
	done     chan struct{}
	stopOnce sync.Once
	stopped  sync.WaitGroup

	logger *slog.Logger
	tracer trace.Tracer
}

// NewHub creates a hub. saver may be nil to disable persistence.
func NewHub(store *canvas.Store, registry *Registry, saver Persister, queueSize int, logger *slog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Hub{
		store:    store,
		registry: registry,
		saver:    saver,
		commands: make(chan command, queueSize),
		done:     make(chan struct{}),
		logger:   logger.With("component", "hub"),
		tracer:   otel.Tracer(tracerName),
	}
}

// Run processes commands until Stop. Call in its own goroutine.
func (h *Hub) Run() {
	h.stopped.Add(1)
	defer h.stopped.Done()

	for {
		select {
		case c := <-h.commands:
			h.handle(c)
		case <-h.done:
			return
		}
	}
}

// Stop halts the hub. Queued commands are discarded.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
	h.stopped.Wait()
}

// Join submits a join handshake for processing.
func (h *Hub) Join(s *Session, name string) {
	h.enqueue(command{kind: cmdJoin, sess: s, name: name})
}

// Leave submits a disconnect. Safe to call more than once per session.
func (h *Hub) Leave(s *Session) {
	h.enqueue(command{kind: cmdLeave, sess: s})
}

// Draw submits a completed stroke path in logical coordinates.
func (h *Hub) Draw(s *Session, path []canvas.Point) {
	h.enqueue(command{kind: cmdDraw, sess: s, path: path})
}

// TextAdd submits a text annotation.
func (h *Hub) TextAdd(s *Session, text string, x, y float64) {
	h.enqueue(command{kind: cmdText, sess: s, text: text, x: x, y: y})
}

// CursorMove submits a pointer position. Best-effort.
func (h *Hub) CursorMove(s *Session, x, y float64) {
	h.enqueue(command{kind: cmdCursor, sess: s, x: x, y: y})
}

func (h *Hub) enqueue(c command) {
	select {
	case h.commands <- c:
	case <-h.done:
	}
}

// handle dispatches one command. A panic in a handler is recovered so a
// single bad event can never take down the broadcast loop.
func (h *Hub) handle(c command) {
	_, span := h.tracer.Start(context.Background(), "relay.event",
		trace.WithAttributes(
			attribute.String("event", c.kind.String()),
			attribute.String("session_id", c.sess.ID),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("event handler panic", "event", c.kind.String(), "panic", r)
		}
	}()

	eventsTotal.WithLabelValues(c.kind.String()).Inc()

	switch c.kind {
	case cmdJoin:
		h.handleJoin(c.sess, c.name)
	case cmdLeave:
		h.handleLeave(c.sess)
	case cmdDraw:
		h.handleDraw(c.sess, c.path)
	case cmdText:
		h.handleText(c.sess, c.text, c.x, c.y)
	case cmdCursor:
		h.handleCursor(c.sess, c.x, c.y)
	}
}

func (h *Hub) handleJoin(s *Session, name string) {
	if s.State() != StateConnecting {
		eventsDropped.WithLabelValues("rejoin").Inc()
		return
	}
	if name == "" {
		name = "Anonymous"
	}

	s.Name = name
	s.Color = h.registry.Add(s)

	// The snapshot and roster are taken here, on the hub goroutine, so
	// the joiner sees exactly the entries committed before its join and
	// none after.
	init := protocol.InitState{
		UserID:     s.ID,
		Color:      s.Color,
		CanvasData: h.store.Snapshot(),
		Users:      h.registry.Roster(),
	}
	if err := s.Send(protocol.EventInitState, init); err != nil {
		h.registry.Remove(s.ID)
		h.logger.Warn("init-state delivery failed", "session_id", s.ID, "error", err)
		return
	}
	s.setState(StateJoined)

	joinsTotal.Inc()
	activeSessions.Set(float64(h.registry.Count()))
	h.logger.Info("user joined", "session_id", s.ID, "name", name, "color", s.Color,
		"active", h.registry.Count())

	h.broadcast("", protocol.EventUserJoined, protocol.UserJoined{
		UserID: s.ID, Name: s.Name, Color: s.Color,
	})
	h.broadcast("", protocol.EventUsersList, h.registry.Roster())
}

func (h *Hub) handleLeave(s *Session) {
	s.Close()

	if h.registry.Remove(s.ID) == nil {
		return // already removed; leave is idempotent
	}
	activeSessions.Set(float64(h.registry.Count()))
	h.logger.Info("user left", "session_id", s.ID, "name", s.Name,
		"active", h.registry.Count())

	h.broadcast("", protocol.EventUserLeft, protocol.UserLeft{UserID: s.ID})
	h.broadcast("", protocol.EventUsersList, h.registry.Roster())
}

func (h *Hub) handleDraw(s *Session, path []canvas.Point) {
	if !s.Joined() {
		eventsDropped.WithLabelValues("not_joined").Inc()
		return
	}

	// Attribution is looked up live, not cached on the connection.
	owner := h.registry.Get(s.ID)
	if owner == nil {
		eventsDropped.WithLabelValues("not_joined").Inc()
		return
	}

	stroke, err := h.store.AppendStroke(owner.Identity(), path)
	if err != nil {
		eventsDropped.WithLabelValues("validation").Inc()
		h.logger.Warn("draw rejected", "session_id", s.ID, "error", err)
		return
	}
	logEntries.Set(float64(h.store.Len()))

	// The author already rendered the stroke locally while dragging;
	// echoing it back would be redundant.
	h.broadcast(s.ID, protocol.EventDrawingUpdate, protocol.DrawingUpdate{Drawing: stroke})
	h.schedulePersist()
}

func (h *Hub) handleText(s *Session, text string, x, y float64) {
	if !s.Joined() {
		eventsDropped.WithLabelValues("not_joined").Inc()
		return
	}
	owner := h.registry.Get(s.ID)
	if owner == nil {
		eventsDropped.WithLabelValues("not_joined").Inc()
		return
	}

	committed, err := h.store.AppendText(owner.Identity(), text, x, y)
	if err != nil {
		eventsDropped.WithLabelValues("validation").Inc()
		h.logger.Warn("text rejected", "session_id", s.ID, "error", err)
		return
	}
	logEntries.Set(float64(h.store.Len()))

	// Text has no incremental local preview, so it echoes to everyone
	// including the author: one render path for all clients.
	h.broadcast("", protocol.EventTextUpdate, protocol.TextUpdate{Text: committed})
	h.schedulePersist()
}

func (h *Hub) handleCursor(s *Session, x, y float64) {
	if !s.Joined() {
		return
	}

	// Cursor positions are pure presence: relayed, never stored.
	h.broadcast(s.ID, protocol.EventCursorUpdate, protocol.CursorUpdate{
		UserID:   s.ID,
		UserName: s.Name,
		Color:    s.Color,
		X:        x,
		Y:        y,
	})
}

// broadcast encodes once and fans out to every joined session, skipping
// the id in except (empty means deliver to everyone, originator
// included). Delivery failures close the failing session and are
// otherwise ignored; they never affect the remaining sessions.
func (h *Hub) broadcast(except string, t protocol.EventType, data any) {
	payload, err := protocol.Encode(t, data)
	if err != nil {
		h.logger.Error("broadcast encode failed", "event", string(t), "error", err)
		return
	}

	for _, peer := range h.registry.ListActive() {
		if peer.ID == except || !peer.Joined() {
			continue
		}
		if err := peer.SendRaw(payload); err == nil {
			broadcastsTotal.WithLabelValues(string(t)).Inc()
		}
	}
}

func (h *Hub) schedulePersist() {
	if h.saver != nil {
		h.saver.Schedule()
	}
}
