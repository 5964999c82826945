package draft

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/airadev/newsroom/internal/newsletter"
)

func testDraft(topic string, createdAt time.Time) *newsletter.Draft {
	return &newsletter.Draft{
		Metadata: newsletter.Metadata{
			Topic:     topic,
			Tone:      "direct",
			Subject:   "Subject for " + topic,
			CreatedAt: createdAt,
			Status:    newsletter.StatusPending,
		},
		Content: "Some **markdown** content here.",
	}
}

func TestSlug(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"AI Agents in Production", "ai-agents-in-production"},
		{"  Weird!! Chars?? ", "weird-chars"},
		{"MixedCASE123", "mixedcase123"},
		{strings.Repeat("a", 60), strings.Repeat("a", 50)},
	}
	for _, c := range cases {
		if got := Slug(c.in); got != c.want {
			t.Fatalf("Slug(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, time.January, 5, 14, 30, 9, 0, time.UTC)
	got := Filename("AI Agents", at)
	want := "newsletter-ai-agents-2026-01-05T14-30-09.json"
	if got != want {
		t.Fatalf("Filename = %q, want %q", got, want)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	d := testDraft("Round Trip", time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))

	path, err := s.Save(d)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Metadata.Topic != "Round Trip" || loaded.Metadata.Status != newsletter.StatusPending {
		t.Fatalf("loaded draft differs: %+v", loaded.Metadata)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if !strings.Contains(string(raw), "\n  \"metadata\"") {
		t.Fatalf("draft file should be pretty-printed")
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("draft file not valid JSON: %v", err)
	}
}

func TestLatestPicksNewest(t *testing.T) {
	s := NewStore(t.TempDir())
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := s.Save(testDraft("topic", base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	latest, err := s.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !strings.Contains(latest, "2026-01-01T02-00-00") {
		t.Fatalf("latest = %q, want the 02:00 draft", latest)
	}
}

func TestLatestEmptyDir(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing"))
	latest, err := s.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest != "" {
		t.Fatalf("latest in empty store = %q, want empty", latest)
	}
}

func TestListByStatus(t *testing.T) {
	s := NewStore(t.TempDir())
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	pending := testDraft("pending one", base)
	if _, err := s.Save(pending); err != nil {
		t.Fatalf("Save: %v", err)
	}
	approved := testDraft("approved one", base.Add(time.Hour))
	approved.Metadata.Status = newsletter.StatusApproved
	if _, err := s.Save(approved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A non-draft file in the directory must not break listing.
	if err := os.WriteFile(filepath.Join(s.Dir, "junk.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing junk: %v", err)
	}

	got, err := s.ListByStatus(newsletter.StatusApproved)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("approved drafts = %d, want 1", len(got))
	}
	for _, d := range got {
		if d.Metadata.Topic != "approved one" {
			t.Fatalf("wrong draft matched: %+v", d.Metadata)
		}
	}
}

func TestMarkSent(t *testing.T) {
	s := NewStore(t.TempDir())
	d := testDraft("to send", time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	path, err := s.Save(d)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	at := time.Date(2026, time.January, 2, 8, 0, 0, 0, time.UTC)
	results := []newsletter.DeliveryResult{
		{Recipient: "a@example.com", Success: true, MessageID: "m1"},
		{Recipient: "b@example.com", Error: "rejected"},
	}
	if err := s.MarkSent(path, d, results, at); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}

	loaded, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Metadata.Status != newsletter.StatusSent {
		t.Fatalf("status = %q, want sent", loaded.Metadata.Status)
	}
	if loaded.Metadata.SentAt == nil || !loaded.Metadata.SentAt.Equal(at) {
		t.Fatalf("sentAt not recorded: %+v", loaded.Metadata.SentAt)
	}
	if len(loaded.Metadata.SentResults) != 2 {
		t.Fatalf("sentResults = %d, want 2", len(loaded.Metadata.SentResults))
	}
	if !loaded.Metadata.SentResults[0].Success || loaded.Metadata.SentResults[1].Error == "" {
		t.Fatalf("per-recipient outcomes lost: %+v", loaded.Metadata.SentResults)
	}
}
