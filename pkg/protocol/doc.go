// Package protocol defines the wire format shared by the relay server
// and clients: a JSON envelope carrying one named event per message.
//
// Client → server events: join, draw, text-add, cursor-move.
// Server → client events: init-state, user-joined, users-list,
// drawing-update, text-update, cursor-update, user-left.
//
// All coordinates on the wire are in the 1400×600 logical reference
// frame (see package canvas). Decoding validates payloads at the
// boundary; a malformed message yields an error and is dropped by the
// relay without affecting other sessions.
package protocol
