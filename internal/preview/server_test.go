package preview

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/airadev/newsroom/config"
	"github.com/airadev/newsroom/internal/draft"
	"github.com/airadev/newsroom/internal/mail"
	"github.com/airadev/newsroom/internal/newsletter"
)

type stubMailer struct {
	err  error
	sent int
}

func (s *stubMailer) Send(ctx context.Context, msg mail.Message) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent++
	return "id", nil
}

func newTestPreview(t *testing.T, m mail.Mailer) (*Server, *draft.Store, string) {
	t.Helper()
	cfg := &config.Config{
		Newsletter: config.NewsletterConfig{ReadingSpeed: 200},
		Email: config.EmailConfig{
			From:       "news@example.com",
			Recipients: []string{"reader@example.com"},
		},
		Preview: config.PreviewConfig{Port: 0, Timeout: time.Minute},
	}
	store := draft.NewStore(t.TempDir())
	d := &newsletter.Draft{
		Metadata: newsletter.Metadata{
			Topic:     "preview topic",
			Subject:   "Preview Subject",
			CreatedAt: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			Status:    newsletter.StatusPending,
		},
		Content: "Draft body with enough words to count.",
	}
	path, err := store.Save(d)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	sender := mail.NewSender(cfg.Email, m, nil)
	return NewServer(cfg, store, sender, path, d), store, path
}

func testContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandleDraft(t *testing.T) {
	srv, _, path := newTestPreview(t, &stubMailer{})
	c, rec := testContext(http.MethodGet, "/api/draft", "")
	if err := srv.handleDraft(c); err != nil {
		t.Fatalf("handleDraft: %v", err)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp["path"] != path {
		t.Fatalf("path = %v, want %v", resp["path"], path)
	}
	if resp["wordCount"].(float64) == 0 {
		t.Fatalf("word count should be reported")
	}
	if !strings.Contains(resp["html"].(string), "Draft body") {
		t.Fatalf("html rendering missing draft content")
	}
}

func TestHandleApproveSendsAndMarksSent(t *testing.T) {
	m := &stubMailer{}
	srv, store, path := newTestPreview(t, m)
	c, rec := testContext(http.MethodPost, "/api/approve", "{}")
	if err := srv.handleApprove(c); err != nil {
		t.Fatalf("handleApprove: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if m.sent != 1 {
		t.Fatalf("sent = %d, want 1", m.sent)
	}
	d, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Metadata.Status != newsletter.StatusSent {
		t.Fatalf("status = %q, want sent", d.Metadata.Status)
	}
	select {
	case got := <-srv.decision:
		if got != DecisionSent {
			t.Fatalf("decision = %q, want sent", got)
		}
	default:
		t.Fatalf("approve should record a decision")
	}
}

func TestHandleApproveScheduleMarksApproved(t *testing.T) {
	m := &stubMailer{}
	srv, store, path := newTestPreview(t, m)
	c, _ := testContext(http.MethodPost, "/api/approve", `{"schedule": true}`)
	if err := srv.handleApprove(c); err != nil {
		t.Fatalf("handleApprove: %v", err)
	}
	if m.sent != 0 {
		t.Fatalf("schedule mode should not send")
	}
	d, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Metadata.Status != newsletter.StatusApproved {
		t.Fatalf("status = %q, want approved", d.Metadata.Status)
	}
}

func TestHandleApproveAllFailLeavesPending(t *testing.T) {
	srv, store, path := newTestPreview(t, &stubMailer{err: errors.New("gateway down")})
	c, _ := testContext(http.MethodPost, "/api/approve", "{}")
	err := srv.handleApprove(c)
	if err == nil {
		t.Fatalf("expected error when every recipient fails")
	}
	d, loadErr := store.Load(path)
	if loadErr != nil {
		t.Fatalf("Load: %v", loadErr)
	}
	if d.Metadata.Status != newsletter.StatusPending {
		t.Fatalf("failed send should leave draft pending, got %q", d.Metadata.Status)
	}
}

func TestHandleCancel(t *testing.T) {
	srv, _, _ := newTestPreview(t, &stubMailer{})
	c, _ := testContext(http.MethodPost, "/api/cancel", "")
	if err := srv.handleCancel(c); err != nil {
		t.Fatalf("handleCancel: %v", err)
	}
	select {
	case got := <-srv.decision:
		if got != DecisionCancelled {
			t.Fatalf("decision = %q, want cancelled", got)
		}
	default:
		t.Fatalf("cancel should record a decision")
	}
}
