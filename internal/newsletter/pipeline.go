package newsletter

import (
	"context"
	"log"
	"time"

	"github.com/airadev/newsroom/config"
	"github.com/airadev/newsroom/internal/llm"
	"github.com/airadev/newsroom/internal/search"
)

// Generator runs the full production pipeline: plan, research, write,
// consolidate, govern length. It returns a complete pending Draft; persisting
// it is the caller's job, so a late failure leaves nothing partial behind.
type Generator struct {
	cfg        *config.Config
	planner    *Planner
	researcher *Researcher
	writer     *Writer
	editor     *Editor
	governor   *LengthGovernor
	logger     *log.Logger
	now        func() time.Time
}

func NewGenerator(cfg *config.Config, provider llm.Provider, searcher search.Searcher) *Generator {
	return &Generator{
		cfg:        cfg,
		planner:    NewPlanner(cfg, provider),
		researcher: NewResearcher(cfg, searcher),
		writer:     NewWriter(cfg, provider),
		editor:     NewEditor(cfg, provider),
		governor:   NewLengthGovernor(cfg.Newsletter.MinWordCount, cfg.Newsletter.MaxWordCount),
		logger:     log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags),
		now:        time.Now,
	}
}

// Generate produces one pending draft for the given topic/tone/audience.
func (g *Generator) Generate(ctx context.Context, topic, tone, audience string) (*Draft, WordCountValidation, error) {
	plan, err := g.planner.Plan(ctx, topic, tone, audience)
	if err != nil {
		return nil, WordCountValidation{}, err
	}
	g.logger.Printf("planned %d sections", len(plan.Sections))

	var allQueries []string
	for _, s := range plan.Sections {
		allQueries = append(allQueries, s.ResearchQueries...)
	}
	results := g.researcher.Research(ctx, allQueries)
	researchBySection := mapResearchToSections(plan, results)
	g.logger.Printf("research completed: %d queries", len(results))

	sections, err := g.writer.GenerateAllSections(ctx, plan, researchBySection, tone)
	if err != nil {
		return nil, WordCountValidation{}, err
	}

	content, err := g.editor.Consolidate(ctx, plan, sections, tone, topic)
	if err != nil {
		return nil, WordCountValidation{}, err
	}

	subject := g.editor.GenerateTitle(ctx, content, topic)
	previewText := g.editor.GeneratePreviewText(ctx, content)
	citations := CompileCitations(sections)

	validation := g.governor.Validate(content)
	content = g.governor.Enforce(content)

	draft := &Draft{
		Metadata: Metadata{
			Topic:       topic,
			Tone:        tone,
			Audience:    audience,
			Subject:     subject,
			PreviewText: previewText,
			CreatedAt:   g.now().UTC(),
			Status:      StatusPending,
		},
		Content:   content,
		Citations: citations,
		Plan:      plan,
	}
	return draft, validation, nil
}

// mapResearchToSections regroups the flat research output by the plan section
// whose queries produced it, preserving query order within each section.
func mapResearchToSections(plan *Plan, results []ResearchResult) [][]ResearchResult {
	byQuery := make(map[string]ResearchResult, len(results))
	for _, r := range results {
		if _, ok := byQuery[r.Query]; !ok {
			byQuery[r.Query] = r
		}
	}
	out := make([][]ResearchResult, len(plan.Sections))
	for i, s := range plan.Sections {
		group := make([]ResearchResult, 0, len(s.ResearchQueries))
		for _, q := range s.ResearchQueries {
			if r, ok := byQuery[q]; ok {
				group = append(group, r)
			} else {
				group = append(group, ResearchResult{Query: q, Sources: []Source{}})
			}
		}
		out[i] = group
	}
	return out
}
