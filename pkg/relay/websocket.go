package relay

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsTransport sends frames over a WebSocket connection. Writes are
// serialized by a mutex and bounded by the write timeout.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

func (t *wsTransport) Send(msg []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, msg)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// handleWebSocket upgrades the connection and runs the read loop until
// the client disconnects.
func (srv *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// The cap counts open transports, not joined sessions, so idle
	// connections that never send a join still occupy a slot.
	if srv.config.MaxSessions > 0 && srv.conns.Load() >= int64(srv.config.MaxSessions) {
		srv.logger.Warn("connection rejected", "error", ErrMaxSessionsReached, "remote", r.RemoteAddr)
		http.Error(w, "too many sessions", http.StatusServiceUnavailable)
		return
	}

	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	srv.conns.Add(1)
	defer srv.conns.Add(-1)

	conn.SetReadLimit(srv.config.MaxMessageSize)

	sess := newSession(&wsTransport{conn: conn, writeTimeout: srv.config.WriteTimeout}, srv.logger)
	srv.logger.Info("connection opened", "session_id", sess.ID, "remote", r.RemoteAddr)

	go srv.pingLoop(sess, conn)
	srv.readLoop(sess, conn)
}

// readLoop reads frames and feeds them to the hub. It blocks until the
// connection drops; the deferred leave tears the session down. A
// disconnect mid-stroke leaves no trace: strokes only reach the log on
// completion.
func (srv *Server) readLoop(sess *Session, conn *websocket.Conn) {
	defer srv.hub.Leave(sess)

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(srv.config.ReadTimeout))
		return nil
	})

	for {
		conn.SetReadDeadline(time.Now().Add(srv.config.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				sess.logger.Warn("read error", "error", err)
			}
			return
		}
		srv.dispatch(sess, msg)
	}
}

// pingLoop sends heartbeat pings until the session is torn down.
func (srv *Server) pingLoop(sess *Session, conn *websocket.Conn) {
	ticker := time.NewTicker(srv.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(srv.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-sess.Done():
			return
		}
	}
}
