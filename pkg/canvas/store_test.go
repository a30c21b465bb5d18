package canvas

import (
	"strings"
	"testing"
	"time"
)

var testOwner = Identity{UserID: "u1", UserName: "Ada", Color: "#FF6B6B"}

func TestAppendStroke(t *testing.T) {
	s := NewStore()
	path := []Point{{X: 10, Y: 20}, {X: 30, Y: 40}}

	stroke, err := s.AppendStroke(testOwner, path)
	if err != nil {
		t.Fatalf("AppendStroke: %v", err)
	}
	if stroke.Seq != 1 {
		t.Errorf("Seq = %d, want 1", stroke.Seq)
	}
	if stroke.UserID != "u1" || stroke.UserName != "Ada" || stroke.Color != "#FF6B6B" {
		t.Errorf("attribution not applied: %+v", stroke)
	}
	if stroke.CreatedAt == 0 {
		t.Error("CreatedAt not set")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestAppendStrokeEmptyPath(t *testing.T) {
	s := NewStore()
	_, err := s.AppendStroke(testOwner, nil)
	if err == nil {
		t.Fatal("expected error for empty path")
	}
	if !IsValidation(err) {
		t.Errorf("expected ValidationError, got %T", err)
	}
	if s.Len() != 0 {
		t.Errorf("rejected append changed the log, Len() = %d", s.Len())
	}
}

func TestAppendStrokeCopiesPath(t *testing.T) {
	s := NewStore()
	path := []Point{{X: 1, Y: 1}}
	stroke, err := s.AppendStroke(testOwner, path)
	if err != nil {
		t.Fatal(err)
	}

	path[0].X = 999
	if stroke.Path[0].X != 1 {
		t.Error("stored path aliases caller's slice")
	}
}

func TestAppendText(t *testing.T) {
	s := NewStore()
	text, err := s.AppendText(testOwner, "  hello  ", 100, 200)
	if err != nil {
		t.Fatalf("AppendText: %v", err)
	}
	if text.Content != "hello" {
		t.Errorf("Content = %q, want trimmed %q", text.Content, "hello")
	}
	if text.X != 100 || text.Y != 200 {
		t.Errorf("position = (%v, %v), want (100, 200)", text.X, text.Y)
	}
}

func TestAppendTextValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace only", "   \t  "},
		{"over max length", strings.Repeat("x", MaxTextLen+1)},
	}

	s := NewStore()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AppendText(testOwner, tt.content, 0, 0)
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsValidation(err) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
	if s.Len() != 0 {
		t.Errorf("rejected appends changed the log, Len() = %d", s.Len())
	}
}

func TestAppendTextAtMaxLength(t *testing.T) {
	s := NewStore()
	if _, err := s.AppendText(testOwner, strings.Repeat("x", MaxTextLen), 0, 0); err != nil {
		t.Errorf("content of exactly MaxTextLen should be accepted: %v", err)
	}
}

func TestAppendTextCountsCharactersNotBytes(t *testing.T) {
	s := NewStore()

	// 60 characters, 120 bytes: well under the character limit.
	if _, err := s.AppendText(testOwner, strings.Repeat("é", 60), 0, 0); err != nil {
		t.Errorf("60 multi-byte characters should be accepted: %v", err)
	}
	// Exactly at the limit in characters, over it in bytes.
	if _, err := s.AppendText(testOwner, strings.Repeat("画", MaxTextLen), 0, 0); err != nil {
		t.Errorf("MaxTextLen multi-byte characters should be accepted: %v", err)
	}
	// One character over.
	if _, err := s.AppendText(testOwner, strings.Repeat("画", MaxTextLen+1), 0, 0); !IsValidation(err) {
		t.Errorf("MaxTextLen+1 characters should be rejected, got %v", err)
	}
}

func TestSequenceSpansKinds(t *testing.T) {
	s := NewStore()
	s1, _ := s.AppendStroke(testOwner, []Point{{X: 1, Y: 1}})
	t1, _ := s.AppendText(testOwner, "note", 0, 0)
	s2, _ := s.AppendStroke(testOwner, []Point{{X: 2, Y: 2}})

	if s1.Seq != 1 || t1.Seq != 2 || s2.Seq != 3 {
		t.Errorf("seqs = %d, %d, %d, want 1, 2, 3", s1.Seq, t1.Seq, s2.Seq)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore()
	s.AppendStroke(testOwner, []Point{{X: 1, Y: 1}})

	snap := s.Snapshot()
	s.AppendStroke(testOwner, []Point{{X: 2, Y: 2}})
	s.AppendText(testOwner, "later", 0, 0)

	if len(snap.Drawings) != 1 || len(snap.Texts) != 0 {
		t.Errorf("snapshot grew after later appends: %d drawings, %d texts",
			len(snap.Drawings), len(snap.Texts))
	}

	// Mutating the snapshot's path must not reach the store.
	snap.Drawings[0].Path[0].X = 999
	snap2 := s.Snapshot()
	if snap2.Drawings[0].Path[0].X != 1 {
		t.Error("snapshot path aliases store memory")
	}
}

func TestReplaceResumesSequence(t *testing.T) {
	s := NewStore()
	s.Replace(Log{
		Drawings: []Stroke{{Seq: 3, UserID: "u1", Path: []Point{{X: 1, Y: 1}}}},
		Texts:    []Text{{Seq: 7, UserID: "u2", Content: "old"}},
	})

	stroke, err := s.AppendStroke(testOwner, []Point{{X: 5, Y: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if stroke.Seq != 8 {
		t.Errorf("Seq = %d, want 8 (resume past highest loaded entry)", stroke.Seq)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}

func TestReplaceEmpty(t *testing.T) {
	s := NewStore()
	s.AppendStroke(testOwner, []Point{{X: 1, Y: 1}})
	s.Replace(Log{})

	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	stroke, _ := s.AppendStroke(testOwner, []Point{{X: 1, Y: 1}})
	if stroke.Seq != 1 {
		t.Errorf("Seq = %d, want 1 after replacing with empty log", stroke.Seq)
	}
}

func TestMaxEntriesEviction(t *testing.T) {
	s := NewStore()
	s.SetMaxEntries(3)

	s.AppendStroke(testOwner, []Point{{X: 1, Y: 1}}) // seq 1
	s.AppendText(testOwner, "a", 0, 0)               // seq 2
	s.AppendStroke(testOwner, []Point{{X: 2, Y: 2}}) // seq 3
	s.AppendText(testOwner, "b", 0, 0)               // seq 4, evicts seq 1

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	snap := s.Snapshot()
	if len(snap.Drawings) != 1 || snap.Drawings[0].Seq != 3 {
		t.Errorf("expected only stroke seq 3 to survive, got %+v", snap.Drawings)
	}
	if len(snap.Texts) != 2 {
		t.Errorf("texts = %d, want 2", len(snap.Texts))
	}
}

func TestStoreTimestamps(t *testing.T) {
	s := NewStore()
	fixed := time.UnixMilli(1700000000000)
	s.now = func() time.Time { return fixed }

	stroke, _ := s.AppendStroke(testOwner, []Point{{X: 1, Y: 1}})
	if stroke.CreatedAt != 1700000000000 {
		t.Errorf("CreatedAt = %d, want %d", stroke.CreatedAt, fixed.UnixMilli())
	}
}

func TestLogMaxSeq(t *testing.T) {
	log := Log{
		Drawings: []Stroke{{Seq: 2}, {Seq: 9}},
		Texts:    []Text{{Seq: 5}},
	}
	if got := log.MaxSeq(); got != 9 {
		t.Errorf("MaxSeq() = %d, want 9", got)
	}
	var empty Log
	if got := empty.MaxSeq(); got != 0 {
		t.Errorf("empty MaxSeq() = %d, want 0", got)
	}
}
