package newsletter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/airadev/newsroom/config"
	"github.com/airadev/newsroom/internal/jsonx"
	"github.com/airadev/newsroom/internal/llm"
)

// Planner turns a topic/tone/audience triple into a structured outline.
type Planner struct {
	cfg    *config.Config
	llm    llm.Provider
	logger *log.Logger
}

func NewPlanner(cfg *config.Config, provider llm.Provider) *Planner {
	return &Planner{
		cfg:    cfg,
		llm:    provider,
		logger: log.New(log.Writer(), "[PLANNER] ", log.LstdFlags),
	}
}

// Plan asks the model for an outline and reduces its output to a Plan.
// Output cleanup, in order: strip code fences, balanced-brace extraction that
// respects string and escape boundaries, trailing-comma and single-quote
// repair. Anything still unparseable is a PlanningError; the planner never
// silently guesses a plan.
func (p *Planner) Plan(ctx context.Context, topic, tone, audience string) (*Plan, error) {
	p.logger.Printf("planning newsletter: topic=%q tone=%s", topic, tone)

	prompt := p.buildPrompt(topic, tone, audience)
	response, err := p.llm.Generate(ctx, prompt, llm.Options{
		MaxTokens:   p.cfg.LLM.MaxTokens,
		Temperature: p.cfg.LLM.Temperature,
		JSONMode:    true,
	})
	if err != nil {
		return nil, &PlanningError{Reason: "generation call failed", Err: err}
	}

	plan, err := p.parsePlan(response)
	if err != nil {
		return nil, err
	}

	p.logger.Printf("plan created: %d sections", len(plan.Sections))
	return plan, nil
}

func (p *Planner) parsePlan(response string) (*Plan, error) {
	jsonStr, err := jsonx.ExtractObject(response)
	if err != nil {
		return nil, &PlanningError{Reason: "no JSON object in model output", Excerpt: excerpt(response), Err: err}
	}
	jsonStr = jsonx.Repair(jsonStr)

	var plan Plan
	if err := json.Unmarshal([]byte(jsonStr), &plan); err != nil {
		return nil, &PlanningError{Reason: "invalid JSON from model", Excerpt: excerpt(jsonStr), Err: err}
	}
	if plan.Hook == "" || len(plan.Sections) == 0 {
		return nil, &PlanningError{Reason: "plan missing hook or sections", Excerpt: excerpt(jsonStr)}
	}

	// Missing optional per-section fields get positional defaults; their
	// absence is never a failure.
	perSection := p.cfg.Newsletter.TargetWordCount / max(1, p.cfg.Newsletter.SectionsCount)
	for i := range plan.Sections {
		s := &plan.Sections[i]
		if s.Title == "" {
			s.Title = fmt.Sprintf("Section %d", i+1)
		}
		if s.KeyPoints == nil {
			s.KeyPoints = []string{}
		}
		if s.ResearchQueries == nil {
			s.ResearchQueries = []string{}
		}
		if s.TargetWords <= 0 {
			s.TargetWords = perSection
		}
	}
	return &plan, nil
}

func (p *Planner) buildPrompt(topic, tone, audience string) string {
	toneProfile := p.cfg.ToneOrDefault(tone)
	target := p.cfg.Newsletter.TargetWordCount
	sections := p.cfg.Newsletter.SectionsCount

	return fmt.Sprintf(`You are a newsletter content strategist. Plan a SHORT, CONCISE newsletter.

Topic: %s
Tone: %s (%s)
Audience: %s

CRITICAL: Total newsletter must be MAXIMUM %d words including all sections.

Create an outline with %d BRIEF sections. Each section needs:
1. Section title (compelling and specific)
2. 2-3 key points ONLY (be concise!)
3. Specific research queries needed
4. Target word count (TOTAL across ALL sections must not exceed %d words)

RESPOND WITH ONLY VALID JSON - NO MARKDOWN, NO CODE BLOCKS, NO EXPLANATIONS.

Required JSON structure:
{
  "hook": "Opening line - punchy and specific",
  "sections": [
    {
      "title": "Section title",
      "keyPoints": ["point1", "point2"],
      "researchQueries": ["query1", "query2"],
      "targetWords": %d
    }
  ],
  "cta": "Call to action - specific and brief"
}

RULES:
- Output ONLY the JSON object
- Use double quotes for all strings
- No trailing commas
- No comments
- Keep sections SHORT - Maximum %d words total`,
		topic, tone, toneProfile.Guidelines, audience,
		target, sections, target, target/max(1, sections), target)
}

func excerpt(s string) string {
	if len(s) > 500 {
		return s[:500]
	}
	return s
}
