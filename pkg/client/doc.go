// Package client connects to a relay server and keeps a local
// projection of the shared canvas in sync: it replays the initial
// snapshot, applies relayed updates in log order, and converts between
// the logical reference frame and the caller's viewport.
package client
