// Package canvas holds the shared drawing state: the data model for
// strokes and text annotations, the append-only authoritative log, and
// the logical coordinate frame all clients draw in.
//
// Every position stored here is expressed in the fixed 1400×600 logical
// reference frame. Clients convert between their own pixel space and
// the logical frame with Normalize and Denormalize, so participants
// with different screen sizes share one consistent drawing surface.
package canvas
