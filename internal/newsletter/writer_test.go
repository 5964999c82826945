package newsletter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/airadev/newsroom/internal/llm"
)

func testPlan() *Plan {
	return &Plan{
		Hook: "hook",
		CTA:  "cta",
		Sections: []PlanSection{
			{Title: "First", KeyPoints: []string{"a"}, ResearchQueries: []string{"q1"}, TargetWords: 150},
			{Title: "Second", KeyPoints: []string{"b"}, ResearchQueries: []string{"q2"}, TargetWords: 150},
			{Title: "Third", KeyPoints: []string{"c"}, ResearchQueries: []string{"q3"}, TargetWords: 150},
		},
	}
}

func TestGenerateAllSectionsPreservesPlanOrder(t *testing.T) {
	w := NewWriter(testConfig(), &fakeProvider{
		generate: func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
			switch {
			case strings.Contains(prompt, "Title: First"):
				return "first section body", nil
			case strings.Contains(prompt, "Title: Second"):
				return "second section body", nil
			default:
				return "third section body", nil
			}
		},
	})
	sections, err := w.GenerateAllSections(context.Background(), testPlan(), nil, "custom")
	if err != nil {
		t.Fatalf("GenerateAllSections: %v", err)
	}
	if len(sections) != 3 {
		t.Fatalf("sections = %d, want 3", len(sections))
	}
	if sections[0].Content != "first section body" || sections[2].Content != "third section body" {
		t.Fatalf("section order not preserved: %+v", sections)
	}
	if sections[0].Title != "First" {
		t.Fatalf("section title = %q, want First", sections[0].Title)
	}
}

func TestGenerateAllSectionsFailsWhole(t *testing.T) {
	w := NewWriter(testConfig(), &fakeProvider{
		generate: func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
			if strings.Contains(prompt, "Title: Second") {
				return "", errors.New("model overloaded")
			}
			return "body", nil
		},
	})
	_, err := w.GenerateAllSections(context.Background(), testPlan(), nil, "custom")
	var serr *SectionWriteError
	if !errors.As(err, &serr) {
		t.Fatalf("want SectionWriteError, got %v", err)
	}
	if serr.Title != "Second" {
		t.Fatalf("failing section = %q, want Second", serr.Title)
	}
}

func TestWriteSectionFallbackWithoutResearch(t *testing.T) {
	var captured string
	w := NewWriter(testConfig(), &fakeProvider{
		generate: func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
			captured = prompt
			return "body", nil
		},
	})
	research := []ResearchResult{{Query: "q1", Sources: []Source{}, Skipped: true}}
	_, err := w.WriteSection(context.Background(), testPlan().Sections[0], research, "custom")
	if err != nil {
		t.Fatalf("WriteSection: %v", err)
	}
	if !strings.Contains(captured, "No web search results available") {
		t.Fatalf("prompt should instruct model-knowledge fallback")
	}
}

func TestWriteSectionIncludesNumberedSources(t *testing.T) {
	var captured string
	w := NewWriter(testConfig(), &fakeProvider{
		generate: func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
			captured = prompt
			return "body", nil
		},
	})
	research := []ResearchResult{{
		Query: "q1",
		Sources: []Source{
			{Citation: 1, Title: "Report", URL: "https://a", Snippet: "snippet one"},
			{Citation: 2, Title: "Study", URL: "https://b", Snippet: "snippet two"},
		},
	}}
	_, err := w.WriteSection(context.Background(), testPlan().Sections[0], research, "custom")
	if err != nil {
		t.Fatalf("WriteSection: %v", err)
	}
	if !strings.Contains(captured, "[1] Report") || !strings.Contains(captured, "[2] Study") {
		t.Fatalf("prompt should list numbered sources:\n%s", captured)
	}
	if !strings.Contains(captured, "Query: q1") {
		t.Fatalf("prompt should group sources by query")
	}
}

func TestExtractCitations(t *testing.T) {
	research := []ResearchResult{{
		Query: "q",
		Sources: []Source{
			{Citation: 1, Title: "One", URL: "https://one"},
			{Citation: 2, Title: "Two", URL: "https://two"},
		},
	}}
	content := "Claim [2] and another claim [1], repeated [2]. Unresolved [9]."
	citations := ExtractCitations(content, research)
	if len(citations) != 2 {
		t.Fatalf("citations = %d, want 2 (deduped, unresolved dropped)", len(citations))
	}
	if citations[0].Number != 1 || citations[1].Number != 2 {
		t.Fatalf("citations should be sorted ascending: %+v", citations)
	}
	if citations[0].URL != "https://one" {
		t.Fatalf("citation not resolved against research: %+v", citations[0])
	}
}

func TestExtractCitationsNoMarkers(t *testing.T) {
	if got := ExtractCitations("plain text without markers", nil); len(got) != 0 {
		t.Fatalf("expected no citations, got %+v", got)
	}
}
