package relay

import (
	"log/slog"
	"sync"

	"github.com/sketchwire/sketchwire/pkg/protocol"
)

// Registry tracks connected participants and assigns display colors.
//
// Color assignment is by join sequence number: the counter advances on
// every join and is never reset or rewound when sessions leave, so the
// Nth join always receives palette[(N-1) mod len(palette)] regardless
// of how many sessions are still active.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []*Session
	joinSeq  uint64
	palette  []string

	logger *slog.Logger
}

// NewRegistry creates an empty registry. A nil palette falls back to
// DefaultPalette.
func NewRegistry(palette []string, logger *slog.Logger) *Registry {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &Registry{
		sessions: make(map[string]*Session),
		palette:  palette,
		logger:   logger.With("component", "registry"),
	}
}

// Add registers a session and returns its assigned color.
func (r *Registry) Add(s *Session) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	color := r.palette[r.joinSeq%uint64(len(r.palette))]
	r.joinSeq++

	r.sessions[s.ID] = s
	r.order = append(r.order, s)
	return color
}

// Remove unregisters a session. Idempotent: removing an unknown id is
// a no-op and returns nil.
func (r *Registry) Remove(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	delete(r.sessions, id)
	for i, o := range r.order {
		if o.ID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return s
}

// Get returns the session with the given id, or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// ListActive returns the registered sessions in insertion order.
func (r *Registry) ListActive() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Session(nil), r.order...)
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// JoinCount returns the total number of joins over the registry's
// lifetime, including departed sessions.
func (r *Registry) JoinCount() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.joinSeq
}

// Roster returns the current participants as wire users, in insertion
// order.
func (r *Registry) Roster() []protocol.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]protocol.User, 0, len(r.order))
	for _, s := range r.order {
		users = append(users, protocol.User{UserID: s.ID, Name: s.Name, Color: s.Color})
	}
	return users
}
