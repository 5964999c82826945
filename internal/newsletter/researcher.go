package newsletter

import (
	"context"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/airadev/newsroom/config"
	"github.com/airadev/newsroom/internal/search"
)

const sourcesPerQuery = 3

// Researcher fans a flat query list out to the search gateway, strictly
// sequentially with a fixed delay between requests (rate-limit courtesy to the
// external API). Individual query failures degrade to annotated empty results
// and never abort the remaining queries.
type Researcher struct {
	cfg      *config.Config
	searcher search.Searcher // nil means search disabled
	logger   *log.Logger
	sleep    func(time.Duration) // overridable in tests
}

func NewResearcher(cfg *config.Config, searcher search.Searcher) *Researcher {
	return &Researcher{
		cfg:      cfg,
		searcher: searcher,
		logger:   log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags),
		sleep:    time.Sleep,
	}
}

// Research returns one result per input query, in input order.
func (r *Researcher) Research(ctx context.Context, queries []string) []ResearchResult {
	r.logger.Printf("starting research: %d queries", len(queries))

	if r.searcher == nil {
		// Skipped and zero-result are treated identically downstream: the
		// writer falls back to the model's own knowledge.
		out := make([]ResearchResult, len(queries))
		for i, q := range queries {
			out[i] = ResearchResult{
				Query:   q,
				Sources: []Source{},
				Skipped: true,
				Reason:  "web search disabled - using model knowledge",
			}
		}
		r.logger.Printf("web search disabled, skipping %d queries", len(queries))
		return out
	}

	out := make([]ResearchResult, 0, len(queries))
	for i, q := range queries {
		results, err := r.searcher.Search(ctx, q, r.cfg.Search.MaxResults)
		if err != nil {
			r.logger.Printf("search failed for query %q: %v", q, err)
			out = append(out, ResearchResult{Query: q, Sources: []Source{}, Err: err.Error()})
		} else {
			rescore(q, results)
			out = append(out, ResearchResult{Query: q, Results: results, Sources: toSources(results)})
		}
		if i < len(queries)-1 {
			r.sleep(r.cfg.Search.QueryDelay)
		}
	}

	r.logger.Printf("research completed: %d queries processed", len(out))
	return out
}

// rescore sorts results descending by term-frequency overlap between the query
// and each result's title+snippet. This is a local relevance heuristic, not
// authoritative ranking from the provider.
func rescore(query string, results []search.Result) {
	type scored struct {
		res   search.Result
		score int
	}
	ranked := make([]scored, len(results))
	for i, res := range results {
		ranked[i] = scored{res: res, score: relevanceScore(query, res.Title+" "+res.Snippet)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	for i := range ranked {
		results[i] = ranked[i].res
	}
}

var wordSplitRe = regexp.MustCompile(`\s+`)

func relevanceScore(query, text string) int {
	textLower := strings.ToLower(text)
	score := 0
	for _, word := range wordSplitRe.Split(strings.ToLower(query), -1) {
		if len(word) < 3 {
			continue
		}
		score += strings.Count(textLower, word)
	}
	return score
}

// toSources converts the top results into citable sources with 1-based,
// per-query citation numbers.
func toSources(results []search.Result) []Source {
	n := len(results)
	if n > sourcesPerQuery {
		n = sourcesPerQuery
	}
	sources := make([]Source, 0, n)
	for i := 0; i < n; i++ {
		sources = append(sources, Source{
			Citation: i + 1,
			Title:    results[i].Title,
			URL:      results[i].URL,
			Snippet:  results[i].Snippet,
		})
	}
	return sources
}
