package newsletter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/airadev/newsroom/internal/llm"
)

// pipelineProvider routes prompts to canned responses by stage markers.
func pipelineProvider(body string) *fakeProvider {
	return &fakeProvider{
		generate: func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
			switch {
			case opts.JSONMode:
				return validPlanJSON, nil
			case strings.Contains(prompt, "preview text"):
				return "A tiny teaser", nil
			case strings.Contains(prompt, "subject line"):
				return "The Subject", nil
			case strings.Contains(prompt, "newsletter section"):
				return "section body [1]", nil
			default:
				return body, nil
			}
		},
	}
}

func TestGenerateProducesPendingDraft(t *testing.T) {
	cfg := testConfig()
	g := NewGenerator(cfg, pipelineProvider("consolidated body"), nil)
	g.now = func() time.Time { return time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC) }

	d, validation, err := g.Generate(context.Background(), "AI agents", "thoughtful", "engineers")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if d.Metadata.Status != StatusPending {
		t.Fatalf("status = %q, want pending", d.Metadata.Status)
	}
	if d.Metadata.Subject != "The Subject" {
		t.Fatalf("subject = %q", d.Metadata.Subject)
	}
	if d.Metadata.PreviewText != "A tiny teaser" {
		t.Fatalf("preview = %q", d.Metadata.PreviewText)
	}
	if d.Metadata.Topic != "AI agents" || d.Metadata.Tone != "thoughtful" || d.Metadata.Audience != "engineers" {
		t.Fatalf("metadata not carried: %+v", d.Metadata)
	}
	if d.Plan == nil || len(d.Plan.Sections) != 2 {
		t.Fatalf("plan should be embedded in draft")
	}
	if d.Metadata.SentAt != nil || d.Metadata.SentResults != nil {
		t.Fatalf("fresh draft must not carry send markers")
	}
	if validation.WordCount == 0 {
		t.Fatalf("validation should report the word count")
	}
}

func TestGenerateEnforcesWordLimit(t *testing.T) {
	cfg := testConfig()
	over := strings.Repeat("word ", cfg.Newsletter.MaxWordCount+100)
	g := NewGenerator(cfg, pipelineProvider(over), nil)

	d, validation, err := g.Generate(context.Background(), "topic", "thoughtful", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !validation.OverLimit {
		t.Fatalf("expected over-limit validation, got %+v", validation)
	}
	if got := CountWords(d.Content); got != cfg.Newsletter.MaxWordCount {
		t.Fatalf("draft words = %d, want %d", got, cfg.Newsletter.MaxWordCount)
	}
}

func TestGenerateFailsFastOnPlannerFailure(t *testing.T) {
	g := NewGenerator(testConfig(), &fakeProvider{
		generate: func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
			return "", errors.New("down")
		},
	}, nil)
	if _, _, err := g.Generate(context.Background(), "topic", "custom", ""); err == nil {
		t.Fatalf("expected error when planning fails")
	}
}

func TestMapResearchToSections(t *testing.T) {
	plan := &Plan{Sections: []PlanSection{
		{Title: "a", ResearchQueries: []string{"q1", "q2"}},
		{Title: "b", ResearchQueries: []string{"q3"}},
	}}
	results := []ResearchResult{
		{Query: "q3", Sources: []Source{{Citation: 1, Title: "t3"}}},
		{Query: "q1", Sources: []Source{{Citation: 1, Title: "t1"}}},
	}
	grouped := mapResearchToSections(plan, results)
	if len(grouped) != 2 {
		t.Fatalf("groups = %d, want 2", len(grouped))
	}
	if grouped[0][0].Query != "q1" || grouped[0][1].Query != "q2" {
		t.Fatalf("section 0 queries wrong: %+v", grouped[0])
	}
	if len(grouped[0][1].Sources) != 0 {
		t.Fatalf("missing query should map to empty sources")
	}
	if grouped[1][0].Sources[0].Title != "t3" {
		t.Fatalf("section 1 should get q3's sources")
	}
}
