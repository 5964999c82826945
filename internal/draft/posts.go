package draft

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/airadev/newsroom/internal/newsletter"
)

// Post is the public projection of a sent newsletter served by the read API.
type Post struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	PreviewText string    `json:"previewText"`
	Content     string    `json:"content"`
	ReadTime    int       `json:"readTime"`
	DaysAgo     int       `json:"daysAgo"`
	DaysAgoText string    `json:"daysAgoText"`
	SentAt      time.Time `json:"sentAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Published returns every sent newsletter projected to a Post, newest first.
func (s *Store) Published(readingSpeed int, now time.Time) ([]Post, error) {
	drafts, err := s.ListByStatus(newsletter.StatusSent)
	if err != nil {
		return nil, err
	}
	posts := make([]Post, 0, len(drafts))
	for path, d := range drafts {
		posts = append(posts, toPost(path, d, readingSpeed, now))
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].SentAt.After(posts[j].SentAt) })
	return posts, nil
}

// PublishedByID returns one sent newsletter by its post ID.
func (s *Store) PublishedByID(id string, readingSpeed int, now time.Time) (*Post, error) {
	posts, err := s.Published(readingSpeed, now)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if posts[i].ID == id {
			return &posts[i], nil
		}
	}
	return nil, nil
}

func toPost(path string, d *newsletter.Draft, readingSpeed int, now time.Time) Post {
	filename := filepath.Base(path)
	sentAt := d.Metadata.CreatedAt
	if d.Metadata.SentAt != nil {
		sentAt = *d.Metadata.SentAt
	}
	days := int(now.Sub(sentAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return Post{
		ID:          postID(filename),
		Filename:    filename,
		Title:       postTitle(d),
		PreviewText: previewText(d, 200),
		Content:     d.Content,
		ReadTime:    readTime(d.Content, readingSpeed),
		DaysAgo:     days,
		DaysAgoText: daysAgoText(days),
		SentAt:      sentAt,
		CreatedAt:   d.Metadata.CreatedAt,
	}
}

var nonIDRe = regexp.MustCompile(`[^a-zA-Z0-9-]`)

func postID(filename string) string {
	return nonIDRe.ReplaceAllString(strings.TrimSuffix(filename, ".json"), "-")
}

func postTitle(d *newsletter.Draft) string {
	if d.Metadata.Subject != "" {
		return d.Metadata.Subject
	}
	if d.Metadata.Topic != "" {
		return d.Metadata.Topic
	}
	return "Untitled Newsletter"
}

func previewText(d *newsletter.Draft, maxLen int) string {
	src := d.Metadata.PreviewText
	if src == "" {
		src = d.Content
	}
	text := StripMarkdown(src)
	if len(text) <= maxLen {
		return text
	}
	return strings.TrimSpace(text[:maxLen]) + "..."
}

func readTime(content string, readingSpeed int) int {
	if readingSpeed <= 0 {
		readingSpeed = 200
	}
	minutes := (newsletter.CountWords(content) + readingSpeed - 1) / readingSpeed
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

func daysAgoText(days int) string {
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "1 day ago"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		weeks := days / 7
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("about %d weeks ago", weeks)
	case days < 365:
		months := days / 30
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("about %d months ago", months)
	default:
		years := days / 365
		if years == 1 {
			return "1 year ago"
		}
		return fmt.Sprintf("%d years ago", years)
	}
}

var (
	headerRe = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	boldRe   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe = regexp.MustCompile(`\*(.*?)\*`)
	linkRe   = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	nlRe     = regexp.MustCompile(`\n+`)
)

// StripMarkdown reduces markdown to plain text for previews.
func StripMarkdown(text string) string {
	text = headerRe.ReplaceAllString(text, "")
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = linkRe.ReplaceAllString(text, "$1")
	text = nlRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
