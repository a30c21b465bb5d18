package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/sketchwire/sketchwire/pkg/canvas"
	"github.com/sketchwire/sketchwire/pkg/protocol"
)

// Handler receives server events as they arrive. Methods are called
// from the Listen goroutine, one at a time, in arrival order.
type Handler interface {
	OnInitState(st *protocol.InitState)
	OnUserJoined(u protocol.UserJoined)
	OnUsersList(users []protocol.User)
	OnDrawingUpdate(s canvas.Stroke)
	OnTextUpdate(t canvas.Text)
	OnCursorUpdate(cu protocol.CursorUpdate)
	OnUserLeft(userID string)
}

// Config holds client connection settings.
type Config struct {
	// URL is the server base, e.g. "ws://localhost:3000".
	URL string

	// Name is the display name sent in the join handshake. Names
	// shorter than two characters are rejected locally; empty means
	// the server assigns "Anonymous".
	Name string

	// ViewportWidth and ViewportHeight describe the local canvas in
	// pixels. Outgoing coordinates are normalized from this frame.
	ViewportWidth  float64
	ViewportHeight float64

	// HandshakeTimeout bounds the dial and join exchange.
	HandshakeTimeout time.Duration

	Logger *slog.Logger
}

// Client is a connected drawing participant.
type Client struct {
	conn   *websocket.Conn
	config Config
	sync   *RenderSync
	logger *slog.Logger

	userID string
	color  string

	writeMu sync.Mutex
	closed  sync.Once
	done    chan struct{}
}

// Dial connects, sends the join handshake, and waits for the initial
// snapshot. On return the client's RenderSync holds the full canvas
// state and the assigned identity is available.
func Dial(ctx context.Context, config Config) (*Client, error) {
	name := strings.TrimSpace(config.Name)
	nameRunes := utf8.RuneCountInString(name)
	if name != "" && nameRunes < protocol.MinNameLen {
		return nil, fmt.Errorf("client: name must be at least %d characters", protocol.MinNameLen)
	}
	if nameRunes > protocol.MaxNameLen {
		return nil, fmt.Errorf("client: name too long")
	}
	if config.ViewportWidth <= 0 {
		config.ViewportWidth = canvas.RefWidth
	}
	if config.ViewportHeight <= 0 {
		config.ViewportHeight = canvas.RefHeight
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	u, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("client: invalid url: %w", err)
	}
	u.Path = "/ws"

	dialer := websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", u.String(), err)
	}

	c := &Client{
		conn:   conn,
		config: config,
		sync:   NewRenderSync(),
		logger: config.Logger.With("component", "client"),
		done:   make(chan struct{}),
	}

	if err := c.send(protocol.EventJoin, protocol.Join{Name: name}); err != nil {
		conn.Close()
		return nil, err
	}

	// The snapshot arrives before any other event for this session.
	conn.SetReadDeadline(time.Now().Add(config.HandshakeTimeout))
	env, err := c.read()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: waiting for initial state: %w", err)
	}
	if env.Event != protocol.EventInitState {
		conn.Close()
		return nil, fmt.Errorf("client: expected %s, got %s", protocol.EventInitState, env.Event)
	}
	var st protocol.InitState
	if err := env.DecodeInto(&st); err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetReadDeadline(time.Time{})

	c.userID = st.UserID
	c.color = st.Color
	c.sync.ApplyInit(&st)

	c.logger.Info("joined", "user_id", c.userID, "color", c.color,
		"drawings", len(st.CanvasData.Drawings), "texts", len(st.CanvasData.Texts))
	return c, nil
}

// UserID returns the server-assigned session id.
func (c *Client) UserID() string { return c.userID }

// Color returns the server-assigned display color.
func (c *Client) Color() string { return c.color }

// Sync returns the client's canvas projection.
func (c *Client) Sync() *RenderSync { return c.sync }

// Listen reads server events until the connection drops or ctx is
// canceled, applying each to the RenderSync and then to handler, if
// any. It returns nil on a clean close.
func (c *Client) Listen(ctx context.Context, handler Handler) error {
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	for {
		env, err := c.read()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("client: read: %w", err)
		}
		if err := c.apply(env, handler); err != nil {
			c.logger.Warn("event dropped", "event", string(env.Event), "error", err)
		}
	}
}

func (c *Client) apply(env *protocol.Envelope, handler Handler) error {
	switch env.Event {
	case protocol.EventInitState:
		var st protocol.InitState
		if err := env.DecodeInto(&st); err != nil {
			return err
		}
		c.sync.ApplyInit(&st)
		if handler != nil {
			handler.OnInitState(&st)
		}

	case protocol.EventUserJoined:
		var u protocol.UserJoined
		if err := env.DecodeInto(&u); err != nil {
			return err
		}
		if handler != nil {
			handler.OnUserJoined(u)
		}

	case protocol.EventUsersList:
		var users []protocol.User
		if err := env.DecodeInto(&users); err != nil {
			return err
		}
		c.sync.ApplyUsersList(users)
		if handler != nil {
			handler.OnUsersList(users)
		}

	case protocol.EventDrawingUpdate:
		var du protocol.DrawingUpdate
		if err := env.DecodeInto(&du); err != nil {
			return err
		}
		c.sync.ApplyDrawing(du.Drawing)
		if handler != nil {
			handler.OnDrawingUpdate(du.Drawing)
		}

	case protocol.EventTextUpdate:
		var tu protocol.TextUpdate
		if err := env.DecodeInto(&tu); err != nil {
			return err
		}
		c.sync.ApplyText(tu.Text)
		if handler != nil {
			handler.OnTextUpdate(tu.Text)
		}

	case protocol.EventCursorUpdate:
		var cu protocol.CursorUpdate
		if err := env.DecodeInto(&cu); err != nil {
			return err
		}
		c.sync.ApplyCursor(cu)
		if handler != nil {
			handler.OnCursorUpdate(cu)
		}

	case protocol.EventUserLeft:
		var ul protocol.UserLeft
		if err := env.DecodeInto(&ul); err != nil {
			return err
		}
		c.sync.ApplyUserLeft(ul.UserID)
		if handler != nil {
			handler.OnUserLeft(ul.UserID)
		}

	default:
		c.logger.Warn("unexpected event", "event", string(env.Event))
	}
	return nil
}

// Draw submits a completed stroke. Points are in viewport pixels and
// are normalized before sending. Empty paths are rejected locally.
func (c *Client) Draw(path []canvas.Point) error {
	if len(path) == 0 {
		return fmt.Errorf("client: draw path is empty")
	}
	norm := canvas.NormalizePath(path, c.config.ViewportWidth, c.config.ViewportHeight)
	return c.send(protocol.EventDraw, protocol.Draw{Path: norm})
}

// AddText submits a text annotation at a viewport position. Empty and
// over-length text is rejected locally.
func (c *Client) AddText(text string, x, y float64) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("client: text is empty")
	}
	if utf8.RuneCountInString(text) > canvas.MaxTextLen {
		return fmt.Errorf("client: text exceeds %d characters", canvas.MaxTextLen)
	}
	p := canvas.Normalize(canvas.Point{X: x, Y: y}, c.config.ViewportWidth, c.config.ViewportHeight)
	return c.send(protocol.EventTextAdd, protocol.TextAdd{Text: text, X: p.X, Y: p.Y})
}

// MoveCursor reports the local pointer position. Best-effort; errors
// only surface when the connection itself is broken.
func (c *Client) MoveCursor(x, y float64) error {
	p := canvas.Normalize(canvas.Point{X: x, Y: y}, c.config.ViewportWidth, c.config.ViewportHeight)
	return c.send(protocol.EventCursorMove, protocol.CursorMove{X: p.X, Y: p.Y})
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closed.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) send(t protocol.EventType, data any) error {
	msg, err := protocol.Encode(t, data)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("client: send %s: %w", t, err)
	}
	return nil
}

func (c *Client) read() (*protocol.Envelope, error) {
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.Decode(msg)
}
