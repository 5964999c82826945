// Package newsletter implements the production pipeline: plan, research,
// write, consolidate, enforce length, persist.
package newsletter

import (
	"time"

	"github.com/airadev/newsroom/internal/search"
)

// Draft lifecycle states. "notification" is a parallel record type for system
// alerts and never transitions further.
const (
	StatusPending      = "pending"
	StatusApproved     = "approved"
	StatusSent         = "sent"
	StatusNotification = "notification"
)

// Plan is the structured outline produced by the planner. It is immutable once
// produced and embedded verbatim into the final draft for auditability.
type Plan struct {
	Hook     string        `json:"hook"`
	Sections []PlanSection `json:"sections"`
	CTA      string        `json:"cta"`
}

// PlanSection is one planned section of the newsletter.
type PlanSection struct {
	Title           string   `json:"title"`
	KeyPoints       []string `json:"keyPoints"`
	ResearchQueries []string `json:"researchQueries"`
	TargetWords     int      `json:"targetWords"`
}

// Source is one citable search hit, numbered 1-based per query.
type Source struct {
	Citation int    `json:"citation"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
}

// ResearchResult holds the sources found for one query. Empty Sources is a
// normal outcome (search disabled, provider error, or no hits), never an error
// state; Skipped and Err annotate why when known.
type ResearchResult struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results,omitempty"`
	Sources []Source        `json:"sources"`
	Skipped bool            `json:"skipped,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Err     string          `json:"error,omitempty"`
}

// Section is one written newsletter section with its resolved citations.
type Section struct {
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations"`
}

// Citation ties an inline [n] marker in generated text to a research source.
type Citation struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// DeliveryResult records the outcome of one recipient's send.
type DeliveryResult struct {
	Recipient string `json:"recipient"`
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Metadata is the header block of a persisted draft. SentAt and SentResults
// are present iff Status is "sent".
type Metadata struct {
	Topic       string           `json:"topic"`
	Tone        string           `json:"tone"`
	Audience    string           `json:"audience"`
	Subject     string           `json:"subject"`
	PreviewText string           `json:"previewText"`
	CreatedAt   time.Time        `json:"createdAt"`
	Status      string           `json:"status"`
	SentAt      *time.Time       `json:"sentAt,omitempty"`
	SentResults []DeliveryResult `json:"sentResults,omitempty"`
}

// Draft is the persisted unit: one newsletter attempt with metadata, body and
// lineage. Citations hold each number at most once, ascending.
type Draft struct {
	Metadata  Metadata   `json:"metadata"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations"`
	Plan      *Plan      `json:"plan,omitempty"`
}
