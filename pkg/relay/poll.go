package relay

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Long-polling fallback for clients that cannot hold a WebSocket open.
// The same named events flow over it: the client POSTs to /poll to get
// a session, POSTs envelopes to /poll/{sid}/emit, and drains queued
// events with GET /poll/{sid}/events, which is held open until an
// event arrives or the wait expires.

// pollTransport buffers outbound frames until the client's next drain.
type pollTransport struct {
	mu     sync.Mutex
	buf    [][]byte
	notify chan struct{}
	closed bool
}

func newPollTransport() *pollTransport {
	return &pollTransport{notify: make(chan struct{}, 1)}
}

func (t *pollTransport) Send(msg []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrSessionClosed
	}
	t.buf = append(t.buf, msg)
	select {
	case t.notify <- struct{}{}:
	default:
	}
	return nil
}

func (t *pollTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	select {
	case t.notify <- struct{}{}:
	default:
	}
	return nil
}

// drain returns buffered frames, waiting up to wait for the first one.
func (t *pollTransport) drain(done <-chan struct{}, wait time.Duration) [][]byte {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	for {
		t.mu.Lock()
		if len(t.buf) > 0 || t.closed {
			buf := t.buf
			t.buf = nil
			t.mu.Unlock()
			return buf
		}
		t.mu.Unlock()

		select {
		case <-t.notify:
		case <-deadline.C:
			return nil
		case <-done:
			return nil
		}
	}
}

type pollSession struct {
	sess      *Session
	transport *pollTransport

	mu       sync.Mutex
	lastSeen time.Time
}

func (p *pollSession) touch() {
	p.mu.Lock()
	p.lastSeen = time.Now()
	p.mu.Unlock()
}

func (p *pollSession) idleSince() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen
}

// handlePollConnect creates a polling session and returns its id.
func (srv *Server) handlePollConnect(w http.ResponseWriter, r *http.Request) {
	if srv.config.MaxSessions > 0 && srv.conns.Load() >= int64(srv.config.MaxSessions) {
		http.Error(w, "too many sessions", http.StatusServiceUnavailable)
		return
	}

	transport := newPollTransport()
	sess := newSession(transport, srv.logger)
	ps := &pollSession{sess: sess, transport: transport, lastSeen: time.Now()}

	srv.conns.Add(1)
	srv.pollMu.Lock()
	srv.polls[sess.ID] = ps
	srv.pollMu.Unlock()

	srv.logger.Info("poll connection opened", "session_id", sess.ID, "remote", r.RemoteAddr)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"sid": sess.ID})
}

// handlePollEvents drains queued events for a polling session, holding
// the request open until something arrives or the wait expires.
func (srv *Server) handlePollEvents(w http.ResponseWriter, r *http.Request) {
	ps := srv.pollSession(chi.URLParam(r, "sid"))
	if ps == nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	ps.touch()

	frames := ps.transport.drain(r.Context().Done(), srv.config.PollWait)
	ps.touch()

	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, "[")
	for i, f := range frames {
		if i > 0 {
			io.WriteString(w, ",")
		}
		w.Write(f)
	}
	io.WriteString(w, "]")
}

// handlePollEmit accepts one envelope from a polling session.
func (srv *Server) handlePollEmit(w http.ResponseWriter, r *http.Request) {
	ps := srv.pollSession(chi.URLParam(r, "sid"))
	if ps == nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	ps.touch()

	body, err := io.ReadAll(io.LimitReader(r.Body, srv.config.MaxMessageSize))
	if err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}
	srv.dispatch(ps.sess, body)
	w.WriteHeader(http.StatusNoContent)
}

// handlePollDisconnect tears a polling session down explicitly.
func (srv *Server) handlePollDisconnect(w http.ResponseWriter, r *http.Request) {
	ps := srv.pollSession(chi.URLParam(r, "sid"))
	if ps == nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	srv.closePollSession(ps)
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) pollSession(sid string) *pollSession {
	if sid == "" {
		return nil
	}
	srv.pollMu.Lock()
	defer srv.pollMu.Unlock()
	return srv.polls[sid]
}

func (srv *Server) closePollSession(ps *pollSession) {
	srv.pollMu.Lock()
	_, present := srv.polls[ps.sess.ID]
	delete(srv.polls, ps.sess.ID)
	srv.pollMu.Unlock()

	// The slot is released once, even if the janitor and an explicit
	// disconnect race.
	if present {
		srv.conns.Add(-1)
	}
	srv.hub.Leave(ps.sess)
}

// pollJanitor reaps polling sessions whose clients stopped polling.
// Their disconnect event is the only cancellation signal the relay
// gets, so idleness stands in for a dropped connection.
func (srv *Server) pollJanitor() {
	ticker := time.NewTicker(srv.config.PollIdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-srv.config.PollIdleTimeout)

			srv.pollMu.Lock()
			var idle []*pollSession
			for _, ps := range srv.polls {
				if ps.idleSince().Before(cutoff) {
					idle = append(idle, ps)
				}
			}
			srv.pollMu.Unlock()

			for _, ps := range idle {
				srv.logger.Info("poll session idle, disconnecting", "session_id", ps.sess.ID)
				srv.closePollSession(ps)
			}

		case <-srv.done:
			return
		}
	}
}
