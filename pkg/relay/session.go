package relay

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sketchwire/sketchwire/pkg/canvas"
	"github.com/sketchwire/sketchwire/pkg/protocol"
)

// State is the per-connection lifecycle state.
type State int32

const (
	// StateConnecting is the initial state: the transport is up but the
	// join handshake has not completed. Draw/text/cursor events in this
	// state are ignored, not queued.
	StateConnecting State = iota

	// StateJoined means the session has an identity and receives
	// broadcasts.
	StateJoined

	// StateDisconnected is terminal.
	StateDisconnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Transport is a one-way channel to a connected client. Send is safe
// for concurrent use.
type Transport interface {
	Send(msg []byte) error
	Close() error
}

// Session is one active participant: a connection plus the identity
// and presence state attached at join time.
type Session struct {
	// Identity. Name and Color are written once by the hub goroutine
	// during the join handshake, before any broadcast can read them.
	ID        string
	Name      string
	Color     string
	CreatedAt time.Time

	transport Transport
	state     atomic.Int32
	closed    atomic.Bool
	done      chan struct{}

	logger *slog.Logger
}

// newSession creates a session in the Connecting state.
func newSession(t Transport, logger *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		transport: t,
		done:      make(chan struct{}),
		logger:    logger.With("session_id", id),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Joined reports whether the session has completed the join handshake.
func (s *Session) Joined() bool {
	return s.State() == StateJoined
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Identity returns the attribution for log entries from this session.
func (s *Session) Identity() canvas.Identity {
	return canvas.Identity{UserID: s.ID, UserName: s.Name, Color: s.Color}
}

// Send encodes and delivers one event to this session. A transport
// failure closes the session.
func (s *Session) Send(t protocol.EventType, data any) error {
	payload, err := protocol.Encode(t, data)
	if err != nil {
		return err
	}
	return s.SendRaw(payload)
}

// SendRaw delivers a pre-encoded frame. Broadcasts encode once and
// fan out through this.
func (s *Session) SendRaw(payload []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if err := s.transport.Send(payload); err != nil {
		s.logger.Debug("send failed, closing session", "error", err)
		s.Close()
		return err
	}
	return nil
}

// Close tears down the transport. Idempotent.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.setState(StateDisconnected)
	close(s.done)
	if err := s.transport.Close(); err != nil {
		s.logger.Debug("transport close", "error", err)
	}
}

// Done is closed when the session is torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
