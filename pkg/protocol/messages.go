package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sketchwire/sketchwire/pkg/canvas"
)

// Display name bounds in characters, enforced on both ends of the
// connection. The server cannot trust the sender, so names are
// re-validated here even though clients reject short names before
// transmitting.
const (
	MinNameLen = 2
	MaxNameLen = 20
)

// MaxPathPoints bounds a single stroke. A pointer drag sampled at
// display rate stays far below this; anything larger is malformed.
const MaxPathPoints = 4096

// User describes one participant as carried in presence events.
type User struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

// Join is the client's join handshake payload.
// An empty name is allowed and defaults to "Anonymous" server-side.
type Join struct {
	Name string `json:"name"`
}

// Draw carries one completed stroke path in logical coordinates.
type Draw struct {
	Path []canvas.Point `json:"path"`
}

// TextAdd places a text annotation at a logical position.
type TextAdd struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// CursorMove reports the sender's pointer position. Best-effort;
// stale positions are superseded, never queued for ordering.
type CursorMove struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// InitState is delivered exactly once to a joining session, before any
// other event for that session.
type InitState struct {
	UserID     string     `json:"userId"`
	Color      string     `json:"color"`
	CanvasData canvas.Log `json:"canvasData"`
	Users      []User     `json:"users"`
}

// UserJoined announces a new participant to every session.
type UserJoined struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

// DrawingUpdate relays a committed stroke to every session except the
// originator, which already rendered it locally.
type DrawingUpdate struct {
	Drawing canvas.Stroke `json:"drawing"`
}

// TextUpdate relays a committed text annotation to every session
// including the originator, so all clients render text through one
// code path.
type TextUpdate struct {
	Text canvas.Text `json:"text"`
}

// CursorUpdate relays a peer's pointer position.
type CursorUpdate struct {
	UserID   string  `json:"userId"`
	UserName string  `json:"userName"`
	Color    string  `json:"color"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// UserLeft announces a departed participant.
type UserLeft struct {
	UserID string `json:"userId"`
}

// DecodeJoin parses and validates a join payload.
func (e *Envelope) DecodeJoin() (*Join, error) {
	var j Join
	if err := e.decodeData(&j); err != nil {
		return nil, err
	}
	j.Name = strings.TrimSpace(j.Name)
	runes := utf8.RuneCountInString(j.Name)
	if j.Name != "" && runes < MinNameLen {
		return nil, fmt.Errorf("protocol: join name too short")
	}
	if runes > MaxNameLen {
		return nil, fmt.Errorf("protocol: join name too long")
	}
	return &j, nil
}

// DecodeDraw parses and validates a draw payload.
func (e *Envelope) DecodeDraw() (*Draw, error) {
	var d Draw
	if err := e.decodeData(&d); err != nil {
		return nil, err
	}
	if len(d.Path) == 0 {
		return nil, fmt.Errorf("protocol: draw path is empty")
	}
	if len(d.Path) > MaxPathPoints {
		return nil, fmt.Errorf("protocol: draw path too long")
	}
	return &d, nil
}

// DecodeTextAdd parses and validates a text-add payload.
func (e *Envelope) DecodeTextAdd() (*TextAdd, error) {
	var t TextAdd
	if err := e.decodeData(&t); err != nil {
		return nil, err
	}
	if strings.TrimSpace(t.Text) == "" {
		return nil, fmt.Errorf("protocol: text is empty")
	}
	return &t, nil
}

// DecodeCursorMove parses a cursor-move payload.
func (e *Envelope) DecodeCursorMove() (*CursorMove, error) {
	var c CursorMove
	if err := e.decodeData(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// DecodeInto unmarshals the raw payload into v without validation.
// Clients use it for server-originated events, which are trusted.
func (e *Envelope) DecodeInto(v any) error {
	return e.decodeData(v)
}

func (e *Envelope) decodeData(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("protocol: %s missing data", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("protocol: malformed %s data: %w", e.Event, err)
	}
	return nil
}
