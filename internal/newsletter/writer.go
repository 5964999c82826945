package newsletter

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/airadev/newsroom/config"
	"github.com/airadev/newsroom/internal/llm"
	"golang.org/x/sync/errgroup"
)

// Writer turns planned sections plus research into markdown prose with inline
// numeric citations.
type Writer struct {
	cfg    *config.Config
	llm    llm.Provider
	logger *log.Logger
}

func NewWriter(cfg *config.Config, provider llm.Provider) *Writer {
	return &Writer{
		cfg:    cfg,
		llm:    provider,
		logger: log.New(log.Writer(), "[WRITER] ", log.LstdFlags),
	}
}

// GenerateAllSections writes every planned section concurrently. The first
// failure cancels the remaining generation calls and fails the whole batch;
// there is no partial-results path at this layer. The returned slice preserves
// plan order.
func (w *Writer) GenerateAllSections(ctx context.Context, plan *Plan, researchBySection [][]ResearchResult, tone string) ([]Section, error) {
	w.logger.Printf("generating %d sections concurrently", len(plan.Sections))

	sections := make([]Section, len(plan.Sections))
	g, gctx := errgroup.WithContext(ctx)
	for i := range plan.Sections {
		i := i
		g.Go(func() error {
			var research []ResearchResult
			if i < len(researchBySection) {
				research = researchBySection[i]
			}
			sec, err := w.WriteSection(gctx, plan.Sections[i], research, tone)
			if err != nil {
				return err
			}
			sections[i] = sec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	w.logger.Printf("all sections generated")
	return sections, nil
}

// WriteSection produces one section's markdown content and resolves its
// citations against the section's research sources.
func (w *Writer) WriteSection(ctx context.Context, section PlanSection, research []ResearchResult, tone string) (Section, error) {
	prompt := w.buildPrompt(section, research, tone)
	content, err := w.llm.Generate(ctx, prompt, llm.Options{
		MaxTokens:   w.cfg.LLM.MaxTokens,
		Temperature: w.cfg.LLM.Temperature,
	})
	if err != nil {
		return Section{}, &SectionWriteError{Title: section.Title, Err: err}
	}

	w.logger.Printf("section written: %q (%d words)", section.Title, CountWords(content))
	return Section{
		Title:     section.Title,
		Content:   content,
		Citations: ExtractCitations(content, research),
	}, nil
}

func (w *Writer) buildPrompt(section PlanSection, research []ResearchResult, tone string) string {
	toneProfile := w.cfg.ToneOrDefault(tone)

	researchBlock := formatResearchBlock(research)
	if researchBlock == "" {
		researchBlock = "No web search results available. Use your comprehensive knowledge base to provide accurate, up-to-date information on this topic. Include specific examples, statistics, and actionable insights based on widely known best practices and research."
	}

	var planBlock strings.Builder
	fmt.Fprintf(&planBlock, "Title: %s\n", section.Title)
	for _, p := range section.KeyPoints {
		fmt.Fprintf(&planBlock, "- %s\n", p)
	}

	return fmt.Sprintf(`Write a SHORT newsletter section with these specifications:

Section Plan:
%s
Research Data:
%s

Tone Guidelines:
%s

CRITICAL Requirements:
- MAXIMUM %d words for this section
- Be EXTREMELY concise and direct
- Use specific examples and data from research when available
- Cite sources inline with bracketed numbers like [1]
- Match the tone precisely
- NO fluff, get straight to the point
- Short, punchy sentences
- One key takeaway

Output in markdown format. Keep it BRIEF and impactful.`,
		planBlock.String(), researchBlock, toneProfile.Guidelines, section.TargetWords)
}

// formatResearchBlock renders numbered sources grouped by query. Returns ""
// when no query produced any sources.
func formatResearchBlock(research []ResearchResult) string {
	var blocks []string
	for _, rr := range research {
		if len(rr.Sources) == 0 {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Query: %s\n", rr.Query)
		for _, src := range rr.Sources {
			fmt.Fprintf(&b, "[%d] %s\n   %s\n   Source: %s\n\n", src.Citation, src.Title, src.Snippet, src.URL)
		}
		blocks = append(blocks, strings.TrimRight(b.String(), "\n"))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

var citationMarkerRe = regexp.MustCompile(`\[(\d+)\]`)

// ExtractCitations scans content for bracketed integer markers, de-duplicates
// them, and resolves each against the research sources by citation index.
// Unresolvable markers are dropped without error.
func ExtractCitations(content string, research []ResearchResult) []Citation {
	seen := map[int]bool{}
	var numbers []int
	for _, m := range citationMarkerRe.FindAllStringSubmatch(content, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	citations := make([]Citation, 0, len(numbers))
	for _, n := range numbers {
		for _, rr := range research {
			found := false
			for _, src := range rr.Sources {
				if src.Citation == n {
					citations = append(citations, Citation{Number: n, Title: src.Title, URL: src.URL})
					found = true
					break
				}
			}
			if found {
				break
			}
		}
	}
	return citations
}
