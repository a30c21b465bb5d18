// Package relay is the server side of the collaborative canvas: the
// session registry, the broadcast hub that fans mutations out to every
// other participant, and the WebSocket/long-poll transports.
//
// All mutations flow through a single hub goroutine, so every session
// observes committed strokes and texts in the canvas log's append
// order, and a joining session's initial snapshot is always a
// consistent point-in-time view.
package relay
