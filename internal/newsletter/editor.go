package newsletter

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/airadev/newsroom/config"
	"github.com/airadev/newsroom/internal/llm"
)

const aiDisclosure = "*This newsletter was generated with AI*"

// Editor consolidates section drafts into one coherent document and produces
// subject line, preview text and the merged citation list.
type Editor struct {
	cfg    *config.Config
	llm    llm.Provider
	logger *log.Logger
	now    func() time.Time // overridable in tests
}

func NewEditor(cfg *config.Config, provider llm.Provider) *Editor {
	return &Editor{
		cfg:    cfg,
		llm:    provider,
		logger: log.New(log.Writer(), "[EDITOR] ", log.LstdFlags),
		now:    time.Now,
	}
}

// Consolidate merges the section drafts into the final document via one model
// call, using the compressed template for tones that declare one and the
// generic editorial template otherwise. For compressed tones the current date
// and an AI-disclosure line are prepended unconditionally.
func (e *Editor) Consolidate(ctx context.Context, plan *Plan, sections []Section, tone, topic string) (string, error) {
	e.logger.Printf("consolidating %d sections", len(sections))

	toneProfile := e.cfg.ToneOrDefault(tone)
	contents := make([]string, len(sections))
	for i, s := range sections {
		contents[i] = s.Content
	}
	sectionsContent := strings.Join(contents, "\n\n")

	var prompt string
	compressed := toneProfile.Structure == "compressed"
	if compressed {
		prompt = e.compressedPrompt(topic, sectionsContent, toneProfile)
	} else {
		prompt = e.editorialPrompt(plan, topic, sectionsContent, toneProfile)
	}

	consolidated, err := e.llm.Generate(ctx, prompt, llm.Options{
		MaxTokens:   e.cfg.LLM.MaxTokens,
		Temperature: e.cfg.LLM.Temperature * 0.8,
	})
	if err != nil {
		return "", &ConsolidationError{Err: err}
	}

	if compressed {
		date := e.now().Format("Monday, January 2, 2006")
		consolidated = fmt.Sprintf("%s\n%s\n\n%s", date, aiDisclosure, consolidated)
	}
	e.logger.Printf("newsletter consolidated")
	return consolidated, nil
}

func (e *Editor) compressedPrompt(topic, sectionsContent string, tone config.Tone) string {
	minWords := e.cfg.Newsletter.MinWordCount
	maxWords := e.cfg.Newsletter.MaxWordCount
	signoff := tone.Signoff
	if signoff == "" {
		signoff = e.cfg.Email.FromName
	}
	return fmt.Sprintf(`You are writing a SHORT, direct email. Format EXACTLY like this:

**Words I like:** [punchy quote about %s]

**[Create a compelling title about %s - be specific with numbers or results]**

[Brief personal story or context in 1-2 sentences with specific numbers]

%s

[Brief conclusion with action step - 1 sentence]

%s

PS - [teaser or additional actionable tip]

CRITICAL Requirements:
- Between %d and %d WORDS TOTAL for the entire email: expand or trim to hit that band
- Use numbered lists (1. 2. 3. etc.)
- Include specific numbers and percentages
- Keep sentences short and punchy
- Absolutely NO fluff - cut everything unnecessary
- Direct and actionable
- Plain text format (no markdown headers, just bold for titles)
- Make the title specific to the topic with numbers/results
- Be EXTREMELY concise - every word must earn its place
- DO NOT include a date at the top - the system will add that automatically`,
		topic, topic, sectionsContent, signoff, minWords, maxWords)
}

func (e *Editor) editorialPrompt(plan *Plan, topic, sectionsContent string, tone config.Tone) string {
	return fmt.Sprintf(`You are an expert newsletter editor. Consolidate and polish this newsletter.

Topic: %s
Tone: %s
Hook: %s
CTA: %s

Current Sections:
%s

Tasks:
1. Add a compelling introduction using the hook
2. Ensure consistent voice across all sections
3. Remove any redundancy between sections
4. Smooth transitions between sections
5. Add a strong conclusion with the CTA
6. Keep the total under %d words - this is a hard requirement

Output the complete newsletter in markdown format.`,
		topic, tone.Guidelines, plan.Hook, plan.CTA, sectionsContent, e.cfg.Newsletter.MaxWordCount)
}

// GenerateTitle produces the subject line. It fails soft: any generation error
// falls back to the raw topic string.
func (e *Editor) GenerateTitle(ctx context.Context, content, topic string) string {
	prompt := fmt.Sprintf(`Create a compelling newsletter subject line for this content.

Topic: %s

Content preview:
%s...

Requirements:
- Under 60 characters (ideal for email preview)
- Intriguing and click-worthy
- Specific and clear
- No clickbait
- Numbers or specific claims work well

Output ONLY the subject line, nothing else.`, topic, head(content, 500))

	title, err := e.llm.Generate(ctx, prompt, llm.Options{MaxTokens: 100, Temperature: 0.9})
	if err != nil {
		e.logger.Printf("title generation failed, falling back to topic: %v", err)
		return topic
	}
	return strings.Trim(strings.TrimSpace(title), `"'`)
}

// GeneratePreviewText produces the email preview snippet. It fails soft: any
// generation error falls back to a truncated content excerpt.
func (e *Editor) GeneratePreviewText(ctx context.Context, content string) string {
	prompt := fmt.Sprintf(`Create preview text for this newsletter (the text that shows in email previews).

Content:
%s...

Requirements:
- 40-100 characters
- Complements the subject line
- Teases the value inside
- Conversational tone

Output ONLY the preview text, nothing else.`, head(content, 300))

	preview, err := e.llm.Generate(ctx, prompt, llm.Options{MaxTokens: 100, Temperature: 0.8})
	if err != nil {
		e.logger.Printf("preview generation failed, falling back to excerpt: %v", err)
		return strings.TrimSpace(head(content, 100)) + "..."
	}
	return strings.Trim(strings.TrimSpace(preview), `"'`)
}

// CompileCitations merges every section's citations, keeping the first-seen
// entry per number, sorted ascending.
func CompileCitations(sections []Section) []Citation {
	seen := map[int]bool{}
	var all []Citation
	for _, s := range sections {
		for _, c := range s.Citations {
			if seen[c.Number] {
				continue
			}
			seen[c.Number] = true
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Number < all[j].Number })
	return all
}

func head(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
