package client

import (
	"testing"

	"github.com/sketchwire/sketchwire/pkg/canvas"
	"github.com/sketchwire/sketchwire/pkg/protocol"
)

func TestApplyInitOrdersBySeq(t *testing.T) {
	rs := NewRenderSync()
	rs.ApplyInit(&protocol.InitState{
		CanvasData: canvas.Log{
			Drawings: []canvas.Stroke{{Seq: 1}, {Seq: 4}},
			Texts:    []canvas.Text{{Seq: 2}, {Seq: 3}},
		},
		Users: []protocol.User{{UserID: "u1", Name: "Ada"}},
	})

	entries := rs.Entries()
	if len(entries) != 4 {
		t.Fatalf("len = %d, want 4", len(entries))
	}
	wantKinds := []EntryKind{KindStroke, KindText, KindText, KindStroke}
	for i, e := range entries {
		if e.Seq() != uint64(i+1) {
			t.Errorf("entries[%d].Seq() = %d, want %d", i, e.Seq(), i+1)
		}
		if e.Kind != wantKinds[i] {
			t.Errorf("entries[%d].Kind = %v, want %v", i, e.Kind, wantKinds[i])
		}
	}
	if len(rs.Users()) != 1 {
		t.Errorf("users = %d, want 1", len(rs.Users()))
	}
}

func TestApplyInitReplacesState(t *testing.T) {
	rs := NewRenderSync()
	rs.ApplyDrawing(canvas.Stroke{Seq: 99})
	rs.ApplyInit(&protocol.InitState{
		CanvasData: canvas.Log{Drawings: []canvas.Stroke{{Seq: 1}}},
	})

	entries := rs.Entries()
	if len(entries) != 1 || entries[0].Seq() != 1 {
		t.Errorf("entries = %+v, want only the snapshot", entries)
	}
}

func TestUpdatesInterleaveInSeqOrder(t *testing.T) {
	rs := NewRenderSync()
	rs.ApplyDrawing(canvas.Stroke{Seq: 1})
	rs.ApplyText(canvas.Text{Seq: 3})
	// A stroke that was committed between them arrives late.
	rs.ApplyDrawing(canvas.Stroke{Seq: 2})

	entries := rs.Entries()
	for i, e := range entries {
		if e.Seq() != uint64(i+1) {
			t.Errorf("entries[%d].Seq() = %d, want %d", i, e.Seq(), i+1)
		}
	}
}

func TestCursorMostRecentWins(t *testing.T) {
	rs := NewRenderSync()
	rs.ApplyCursor(protocol.CursorUpdate{UserID: "u1", X: 1, Y: 1})
	rs.ApplyCursor(protocol.CursorUpdate{UserID: "u1", X: 9, Y: 9})
	rs.ApplyCursor(protocol.CursorUpdate{UserID: "u2", X: 5, Y: 5})

	cursors := rs.Cursors()
	if len(cursors) != 2 {
		t.Fatalf("cursors = %d, want 2", len(cursors))
	}
	for _, c := range cursors {
		if c.UserID == "u1" && (c.At.X != 9 || c.At.Y != 9) {
			t.Errorf("u1 cursor = %v, want latest position", c.At)
		}
	}
}

func TestUserLeftClearsPresence(t *testing.T) {
	rs := NewRenderSync()
	rs.ApplyUsersList([]protocol.User{{UserID: "u1"}, {UserID: "u2"}})
	rs.ApplyCursor(protocol.CursorUpdate{UserID: "u1", X: 1, Y: 1})

	rs.ApplyUserLeft("u1")

	if len(rs.Cursors()) != 0 {
		t.Error("departed user's cursor not cleared")
	}
	users := rs.Users()
	if len(users) != 1 || users[0].UserID != "u2" {
		t.Errorf("users = %+v", users)
	}
}

func TestProjectDenormalizes(t *testing.T) {
	rs := NewRenderSync()
	rs.ApplyDrawing(canvas.Stroke{Seq: 1, Path: []canvas.Point{{X: canvas.RefWidth, Y: canvas.RefHeight}}})
	rs.ApplyText(canvas.Text{Seq: 2, X: canvas.RefWidth / 2, Y: canvas.RefHeight / 2})

	entries := rs.Project(700, 300)
	if got := entries[0].Stroke.Path[0]; got.X != 700 || got.Y != 300 {
		t.Errorf("projected stroke point = %v, want (700, 300)", got)
	}
	if entries[1].Text.X != 350 || entries[1].Text.Y != 150 {
		t.Errorf("projected text = (%v, %v), want (350, 150)", entries[1].Text.X, entries[1].Text.Y)
	}

	// Projection must not mutate the stored logical coordinates.
	stored := rs.Entries()
	if stored[0].Stroke.Path[0].X != canvas.RefWidth {
		t.Error("Project mutated stored entries")
	}
}
