// Package preview serves a localhost approval UI for a single pending draft:
// inspect the rendered email, then send now, queue for the scheduler, or
// discard. The process exits once a decision is made or the timeout passes.
package preview

import (
	"context"
	"fmt"
	"html"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/airadev/newsroom/config"
	"github.com/airadev/newsroom/internal/draft"
	"github.com/airadev/newsroom/internal/mail"
	"github.com/airadev/newsroom/internal/newsletter"
)

// Decision is the operator's verdict on the previewed draft.
type Decision string

const (
	DecisionSent      Decision = "sent"
	DecisionScheduled Decision = "scheduled"
	DecisionCancelled Decision = "cancelled"
	DecisionTimeout   Decision = "timeout"
)

// Server previews one draft and blocks until a decision or timeout.
type Server struct {
	cfg    *config.Config
	store  *draft.Store
	sender *mail.Sender
	logger *log.Logger

	path     string
	draft    *newsletter.Draft
	decision chan Decision
}

func NewServer(cfg *config.Config, store *draft.Store, sender *mail.Sender, path string, d *newsletter.Draft) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		sender:   sender,
		logger:   log.New(log.Writer(), "[PREVIEW] ", log.LstdFlags),
		path:     path,
		draft:    d,
		decision: make(chan Decision, 1),
	}
}

// Run serves the preview UI and returns the operator's decision. The server
// shuts itself down after the first decision or when the timeout elapses.
func (s *Server) Run(ctx context.Context) (Decision, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		s.logger.Printf("%d %s %s: %v", code, c.Request().Method, c.Request().URL.Path, err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.GET("/", s.handleIndex)
	e.GET("/api/draft", s.handleDraft)
	e.POST("/api/approve", s.handleApprove)
	e.POST("/api/cancel", s.handleCancel)

	addr := fmt.Sprintf("127.0.0.1:%d", s.cfg.Preview.Port)
	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(addr) }()
	s.logger.Printf("preview at http://%s (auto-close in %s)", addr, s.cfg.Preview.Timeout)

	var decision Decision
	select {
	case decision = <-s.decision:
	case <-time.After(s.cfg.Preview.Timeout):
		decision = DecisionTimeout
		s.logger.Printf("no decision within %s, closing", s.cfg.Preview.Timeout)
	case <-ctx.Done():
		decision = DecisionTimeout
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return "", err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = e.Shutdown(shutdownCtx)
	return decision, nil
}

func (s *Server) handleIndex(c echo.Context) error {
	rendered, err := mail.RenderHTML(s.draft, s.cfg.Email.CompanyName, s.cfg.Email.CompanyAddress, "#")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	page := fmt.Sprintf(previewPage,
		html.EscapeString(s.draft.Metadata.Subject),
		html.EscapeString(s.draft.Metadata.Topic),
		newsletter.CountWords(s.draft.Content),
		html.EscapeString(s.draft.Metadata.PreviewText),
		html.EscapeString(rendered))
	return c.HTML(http.StatusOK, page)
}

func (s *Server) handleDraft(c echo.Context) error {
	htmlBody, err := mail.RenderHTML(s.draft, s.cfg.Email.CompanyName, s.cfg.Email.CompanyAddress, "#")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	words := newsletter.CountWords(s.draft.Content)
	readTime := (words + s.cfg.Newsletter.ReadingSpeed - 1) / s.cfg.Newsletter.ReadingSpeed
	if readTime < 1 {
		readTime = 1
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"path":          s.path,
		"draft":         s.draft,
		"html":          htmlBody,
		"text":          mail.RenderText(s.draft, ""),
		"wordCount":     words,
		"readTime":      readTime,
		"subjectLength": len(s.draft.Metadata.Subject),
	})
}

// handleApprove sends the draft now, or with {"schedule": true} marks it
// approved for the next scheduler sweep. A send that reaches at least one
// recipient marks the draft sent; a total failure leaves it pending.
func (s *Server) handleApprove(c echo.Context) error {
	var req struct {
		Schedule bool `json:"schedule"`
	}
	_ = c.Bind(&req)

	if req.Schedule {
		s.draft.Metadata.Status = newsletter.StatusApproved
		if err := s.store.Write(s.path, s.draft); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		s.decide(DecisionScheduled)
		return c.JSON(http.StatusOK, map[string]interface{}{"status": newsletter.StatusApproved})
	}

	results, err := s.sender.SendNewsletter(c.Request().Context(), s.draft)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !mail.AnySucceeded(results) {
		return echo.NewHTTPError(http.StatusBadGateway, "all recipients failed")
	}
	if err := s.store.MarkSent(s.path, s.draft, results, time.Now().UTC()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	s.decide(DecisionSent)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  newsletter.StatusSent,
		"results": results,
	})
}

func (s *Server) handleCancel(c echo.Context) error {
	s.decide(DecisionCancelled)
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "cancelled"})
}

func (s *Server) decide(d Decision) {
	select {
	case s.decision <- d:
	default:
	}
}

const previewPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Draft Preview</title>
<style>
body { font-family: -apple-system, sans-serif; margin: 0; background: #f4f4f4; }
.bar { position: sticky; top: 0; background: #1a1a1a; color: #fff; padding: 12px 24px; display: flex; gap: 16px; align-items: center; }
.bar .meta { flex: 1; font-size: 13px; color: #bbb; }
.bar button { padding: 8px 16px; border: none; border-radius: 4px; cursor: pointer; font-size: 14px; }
.send { background: #2da44e; color: #fff; }
.queue { background: #bf8700; color: #fff; }
.cancel { background: #444; color: #ccc; }
iframe { display: block; width: 100%%; height: calc(100vh - 56px); border: none; background: #fff; }
</style>
</head>
<body>
<div class="bar">
<div class="meta"><strong style="color:#fff">%s</strong> &middot; %s &middot; %d words &middot; preview: %s</div>
<button class="send" onclick="act(false)">Send Now</button>
<button class="queue" onclick="act(true)">Queue for Schedule</button>
<button class="cancel" onclick="cancel()">Cancel</button>
</div>
<iframe srcdoc="%s"></iframe>
<script>
async function act(schedule) {
  const r = await fetch('/api/approve', {method:'POST', headers:{'Content-Type':'application/json'}, body: JSON.stringify({schedule})});
  const j = await r.json();
  alert(r.ok ? 'Status: ' + j.status : 'Error: ' + j.error);
  if (r.ok) window.close();
}
async function cancel() {
  await fetch('/api/cancel', {method:'POST'});
  window.close();
}
</script>
</body>
</html>`
