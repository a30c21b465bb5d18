package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType names one application-level event multiplexed over the
// connection.
type EventType string

// Client → server events.
const (
	EventJoin       EventType = "join"
	EventDraw       EventType = "draw"
	EventTextAdd    EventType = "text-add"
	EventCursorMove EventType = "cursor-move"
)

// Server → client events.
const (
	EventInitState     EventType = "init-state"
	EventUserJoined    EventType = "user-joined"
	EventUsersList     EventType = "users-list"
	EventDrawingUpdate EventType = "drawing-update"
	EventTextUpdate    EventType = "text-update"
	EventCursorUpdate  EventType = "cursor-update"
	EventUserLeft      EventType = "user-left"
)

// Envelope is the outer JSON frame: {"event": "...", "data": {...}}.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Decode errors.
var (
	ErrUnknownEvent = errors.New("protocol: unknown event")
	ErrEmptyEvent   = errors.New("protocol: missing event name")
)

var clientEvents = map[EventType]bool{
	EventJoin:       true,
	EventDraw:       true,
	EventTextAdd:    true,
	EventCursorMove: true,
}

// ClientOriginated reports whether t is an event a client may send.
func ClientOriginated(t EventType) bool {
	return clientEvents[t]
}

// Encode marshals an event and payload into an envelope frame.
func Encode(t EventType, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", t, err)
	}
	return json.Marshal(Envelope{Event: t, Data: raw})
}

// Decode parses an envelope frame. The payload is left raw; use the
// typed Decode* helpers to parse and validate it.
func Decode(msg []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, fmt.Errorf("protocol: malformed envelope: %w", err)
	}
	if env.Event == "" {
		return nil, ErrEmptyEvent
	}
	return &env, nil
}
