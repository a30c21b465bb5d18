package canvas

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// MaxTextLen is the maximum length of a text annotation after trimming,
// in characters, not bytes. Longer content is rejected rather than
// silently truncated.
const MaxTextLen = 100

// Store is the authoritative append-only log of canvas content.
// Appends are serialized and Snapshot returns a consistent
// point-in-time view: it never observes a partial append.
//
// The store never removes or edits entries; the log grows for the
// lifetime of the process. An optional entry cap (SetMaxEntries) drops
// the oldest entries once exceeded, preserving relative order of the
// rest.
type Store struct {
	mu       sync.Mutex
	drawings []Stroke
	texts    []Text
	seq      uint64

	maxEntries int

	// now is swappable for tests.
	now func() time.Time
}

// NewStore creates an empty canvas store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// SetMaxEntries caps the total number of log entries. When a new append
// would exceed the cap, the oldest entries (lowest sequence numbers)
// are evicted. Zero means unbounded.
func (s *Store) SetMaxEntries(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxEntries = n
}

// AppendStroke appends a completed stroke to the log, tagged with the
// given attribution. The path must contain at least one point.
func (s *Store) AppendStroke(owner Identity, path []Point) (Stroke, error) {
	if len(path) == 0 {
		return Stroke{}, &ValidationError{Field: "path", Reason: "must contain at least one point"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	stroke := Stroke{
		Seq:       s.seq,
		UserID:    owner.UserID,
		UserName:  owner.UserName,
		Color:     owner.Color,
		Path:      append([]Point(nil), path...),
		CreatedAt: s.now().UnixMilli(),
	}
	s.drawings = append(s.drawings, stroke)
	s.evictLocked()
	return stroke, nil
}

// AppendText appends a text annotation to the log. Content is trimmed;
// content that trims to empty or exceeds MaxTextLen is rejected.
func (s *Store) AppendText(owner Identity, content string, x, y float64) (Text, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Text{}, &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(content) > MaxTextLen {
		return Text{}, &ValidationError{Field: "content", Reason: "exceeds maximum length"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	text := Text{
		Seq:       s.seq,
		UserID:    owner.UserID,
		UserName:  owner.UserName,
		Color:     owner.Color,
		Content:   content,
		X:         x,
		Y:         y,
		CreatedAt: s.now().UnixMilli(),
	}
	s.texts = append(s.texts, text)
	s.evictLocked()
	return text, nil
}

// Snapshot returns a consistent copy of the full log. Strokes and their
// paths are copied, so the caller can hold the result across later
// appends.
func (s *Store) Snapshot() Log {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := Log{
		Drawings: make([]Stroke, len(s.drawings)),
		Texts:    make([]Text, len(s.texts)),
	}
	for i, d := range s.drawings {
		d.Path = append([]Point(nil), d.Path...)
		log.Drawings[i] = d
	}
	copy(log.Texts, s.texts)
	return log
}

// Replace installs a previously persisted log, typically at startup.
// The sequence counter resumes past the highest loaded entry.
func (s *Store) Replace(log Log) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drawings = append([]Stroke(nil), log.Drawings...)
	s.texts = append([]Text(nil), log.Texts...)
	s.seq = log.MaxSeq()
}

// Len returns the total number of entries in the log.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drawings) + len(s.texts)
}

// evictLocked enforces the entry cap by dropping the entries with the
// lowest sequence numbers. Caller must hold s.mu.
func (s *Store) evictLocked() {
	if s.maxEntries <= 0 {
		return
	}
	for len(s.drawings)+len(s.texts) > s.maxEntries {
		switch {
		case len(s.drawings) == 0:
			s.texts = s.texts[1:]
		case len(s.texts) == 0:
			s.drawings = s.drawings[1:]
		case s.drawings[0].Seq < s.texts[0].Seq:
			s.drawings = s.drawings[1:]
		default:
			s.texts = s.texts[1:]
		}
	}
}
