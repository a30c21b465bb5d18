package client

import (
	"sort"
	"sync"

	"github.com/sketchwire/sketchwire/pkg/canvas"
	"github.com/sketchwire/sketchwire/pkg/protocol"
)

// EntryKind discriminates the two canvas entry types.
type EntryKind int

const (
	KindStroke EntryKind = iota
	KindText
)

// Entry is one renderable canvas item. Exactly one of Stroke or Text
// is meaningful, per Kind.
type Entry struct {
	Kind   EntryKind
	Stroke canvas.Stroke
	Text   canvas.Text
}

// Seq returns the entry's position in the canvas log.
func (e Entry) Seq() uint64 {
	if e.Kind == KindStroke {
		return e.Stroke.Seq
	}
	return e.Text.Seq
}

// Cursor is a peer's live pointer position, most-recent-wins.
type Cursor struct {
	UserID   string
	UserName string
	Color    string
	At       canvas.Point
}

// RenderSync is the client-side projection of the server's canvas log.
// Entries are kept in log order, so painting them front to back
// reproduces the authoritative z-order on every client.
type RenderSync struct {
	mu      sync.RWMutex
	entries []Entry
	users   []protocol.User
	cursors map[string]Cursor
}

// NewRenderSync creates an empty projection.
func NewRenderSync() *RenderSync {
	return &RenderSync{cursors: make(map[string]Cursor)}
}

// ApplyInit replays the initial snapshot, replacing any local state.
func (rs *RenderSync) ApplyInit(st *protocol.InitState) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.entries = rs.entries[:0]
	for _, d := range st.CanvasData.Drawings {
		rs.entries = append(rs.entries, Entry{Kind: KindStroke, Stroke: d})
	}
	for _, t := range st.CanvasData.Texts {
		rs.entries = append(rs.entries, Entry{Kind: KindText, Text: t})
	}
	sort.Slice(rs.entries, func(i, j int) bool {
		return rs.entries[i].Seq() < rs.entries[j].Seq()
	})
	rs.users = append(rs.users[:0], st.Users...)
}

// ApplyDrawing appends a relayed stroke.
func (rs *RenderSync) ApplyDrawing(s canvas.Stroke) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.insert(Entry{Kind: KindStroke, Stroke: s})
}

// ApplyText appends a relayed text annotation.
func (rs *RenderSync) ApplyText(t canvas.Text) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.insert(Entry{Kind: KindText, Text: t})
}

// insert keeps entries sorted by sequence. Updates normally arrive in
// order, so this is an append in the common case.
func (rs *RenderSync) insert(e Entry) {
	if n := len(rs.entries); n == 0 || rs.entries[n-1].Seq() < e.Seq() {
		rs.entries = append(rs.entries, e)
		return
	}
	i := sort.Search(len(rs.entries), func(i int) bool {
		return rs.entries[i].Seq() >= e.Seq()
	})
	rs.entries = append(rs.entries, Entry{})
	copy(rs.entries[i+1:], rs.entries[i:])
	rs.entries[i] = e
}

// ApplyCursor records a peer's pointer position. Stale positions are
// silently superseded.
func (rs *RenderSync) ApplyCursor(cu protocol.CursorUpdate) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.cursors[cu.UserID] = Cursor{
		UserID:   cu.UserID,
		UserName: cu.UserName,
		Color:    cu.Color,
		At:       canvas.Point{X: cu.X, Y: cu.Y},
	}
}

// ApplyUsersList replaces the known roster.
func (rs *RenderSync) ApplyUsersList(users []protocol.User) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.users = append(rs.users[:0], users...)
}

// ApplyUserLeft drops a departed peer and its cursor.
func (rs *RenderSync) ApplyUserLeft(userID string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.cursors, userID)
	for i, u := range rs.users {
		if u.UserID == userID {
			rs.users = append(rs.users[:i], rs.users[i+1:]...)
			break
		}
	}
}

// Entries returns the projection in log order.
func (rs *RenderSync) Entries() []Entry {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return append([]Entry(nil), rs.entries...)
}

// Users returns the known roster.
func (rs *RenderSync) Users() []protocol.User {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return append([]protocol.User(nil), rs.users...)
}

// Cursors returns the live peer cursors.
func (rs *RenderSync) Cursors() []Cursor {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	out := make([]Cursor, 0, len(rs.cursors))
	for _, c := range rs.cursors {
		out = append(out, c)
	}
	return out
}

// Project returns the entries with all coordinates denormalized into
// the given viewport's pixel space, in paint order.
func (rs *RenderSync) Project(viewportW, viewportH float64) []Entry {
	entries := rs.Entries()
	for i := range entries {
		switch entries[i].Kind {
		case KindStroke:
			entries[i].Stroke.Path = canvas.DenormalizePath(entries[i].Stroke.Path, viewportW, viewportH)
		case KindText:
			p := canvas.Denormalize(canvas.Point{X: entries[i].Text.X, Y: entries[i].Text.Y}, viewportW, viewportH)
			entries[i].Text.X, entries[i].Text.Y = p.X, p.Y
		}
	}
	return entries
}
