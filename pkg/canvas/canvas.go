package canvas

// Point is a single position in the logical reference frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Identity is the attribution attached to a log entry at append time.
// It is looked up live from the session registry when the entry is
// committed, never cached on the connection.
type Identity struct {
	UserID   string
	UserName string
	Color    string
}

// Stroke is an immutable record of one continuous pointer drag.
// The sequence number is assigned by the store and defines z-order
// across strokes and texts: later entries draw on top.
type Stroke struct {
	Seq       uint64  `json:"seq"`
	UserID    string  `json:"userId"`
	UserName  string  `json:"userName"`
	Color     string  `json:"color"`
	Path      []Point `json:"path"`
	CreatedAt int64   `json:"timestamp"`
}

// Text is an immutable record of one placed text label.
// X/Y anchor the top-left corner in the logical frame.
type Text struct {
	Seq       uint64  `json:"seq"`
	UserID    string  `json:"userId"`
	UserName  string  `json:"userName"`
	Color     string  `json:"color"`
	Content   string  `json:"content"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	CreatedAt int64   `json:"timestamp"`
}

// Log is the full canvas content as sent to joining clients and as
// persisted to durable storage. Drawings and texts are kept in separate
// slices for wire compatibility; the per-entry Seq recovers the global
// append order.
type Log struct {
	Drawings []Stroke `json:"drawings"`
	Texts    []Text   `json:"texts"`
}

// Len returns the total number of entries in the log.
func (l Log) Len() int {
	return len(l.Drawings) + len(l.Texts)
}

// MaxSeq returns the highest sequence number present in the log, or 0
// if the log is empty.
func (l Log) MaxSeq() uint64 {
	var max uint64
	for _, d := range l.Drawings {
		if d.Seq > max {
			max = d.Seq
		}
	}
	for _, t := range l.Texts {
		if t.Seq > max {
			max = t.Seq
		}
	}
	return max
}
