// Package draft persists newsletters as one pretty-printed JSON file per
// draft under a configurable directory.
package draft

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/airadev/newsroom/internal/newsletter"
)

// Store reads and writes draft files. The draft file is the only shared
// mutable resource in the system; it is read-modify-written by one process
// path at a time under normal single-operator usage.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Filename derives the draft's file name from its topic and creation time:
// newsletter-<slug(topic)>-<timestamp>.json.
func Filename(topic string, createdAt time.Time) string {
	return fmt.Sprintf("newsletter-%s-%s.json", Slug(topic), timestamp(createdAt))
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lower-cases, replaces runs of non-alphanumerics with '-', trims edge
// dashes and truncates to 50 characters.
func Slug(s string) string {
	s = nonAlnumRe.ReplaceAllString(strings.ToLower(s), "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}

func timestamp(t time.Time) string {
	return strings.ReplaceAll(t.UTC().Format("2006-01-02T15-04-05"), ":", "-")
}

// Save writes the draft to a new file derived from its metadata and returns
// the path.
func (s *Store) Save(d *newsletter.Draft) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating drafts dir: %w", err)
	}
	path := filepath.Join(s.Dir, Filename(d.Metadata.Topic, d.Metadata.CreatedAt))
	if err := s.Write(path, d); err != nil {
		return "", err
	}
	return path, nil
}

// Write overwrites the draft file at path with pretty-printed UTF-8 JSON.
func (s *Store) Write(path string, d *newsletter.Draft) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}
	return nil
}

// Load reads one draft file.
func (s *Store) Load(path string) (*newsletter.Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading draft %s: %w", path, err)
	}
	var d newsletter.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing draft %s: %w", path, err)
	}
	return &d, nil
}

// List returns the paths of every draft file, sorted by name ascending
// (the timestamped names make this chronological).
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(s.Dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Latest returns the most recently created draft path, or "" when none exist.
func (s *Store) Latest() (string, error) {
	paths, err := s.List()
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", nil
	}
	return paths[len(paths)-1], nil
}

// ListByStatus loads every draft whose status matches. Unreadable files are
// skipped rather than failing the whole listing.
func (s *Store) ListByStatus(status string) (map[string]*newsletter.Draft, error) {
	paths, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]*newsletter.Draft)
	for _, p := range paths {
		d, err := s.Load(p)
		if err != nil {
			continue
		}
		if d.Metadata.Status == status {
			out[p] = d
		}
	}
	return out, nil
}

// MarkSent records a successful delivery: status, send time and per-recipient
// results, written back in place.
func (s *Store) MarkSent(path string, d *newsletter.Draft, results []newsletter.DeliveryResult, at time.Time) error {
	d.Metadata.Status = newsletter.StatusSent
	d.Metadata.SentAt = &at
	d.Metadata.SentResults = results
	return s.Write(path, d)
}
