// Package server exposes the public read API: published issues, site config,
// subscribe and unsubscribe. It is the only surface reachable from the
// internet; generation and approval stay on the operator's machine.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/airadev/newsroom/config"
	"github.com/airadev/newsroom/internal/draft"
	"github.com/airadev/newsroom/internal/mail"
	"github.com/airadev/newsroom/internal/subscriber"
)

// Server serves published drafts and manages the public mailing-list surface.
// Subscribers may be nil when no store is configured; list endpoints then
// return 503.
type Server struct {
	cfg         *config.Config
	drafts      *draft.Store
	subscribers *subscriber.Store
	notifier    *mail.Notifier
	logger      *log.Logger
	now         func() time.Time
}

func New(cfg *config.Config, drafts *draft.Store, subscribers *subscriber.Store, notifier *mail.Notifier) *Server {
	return &Server{
		cfg:         cfg,
		drafts:      drafts,
		subscribers: subscribers,
		notifier:    notifier,
		logger:      log.New(log.Writer(), "[SERVER] ", log.LstdFlags),
		now:         time.Now,
	}
}

// Routes builds the echo instance with all public routes registered.
func (s *Server) Routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
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
		req := c.Request()
		s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.GET("/posts", s.handlePosts)
	api.GET("/posts/:id", s.handlePost)
	api.GET("/config", s.handleConfig)
	api.POST("/subscribe", s.handleSubscribe)

	e.GET("/unsubscribe", s.handleUnsubscribe)
	return e
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	e := s.Routes()
	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(s.cfg.Server.Address) }()
	s.logger.Printf("listening on %s", s.cfg.Server.Address)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}

// handlePosts lists sent issues newest-first as lightweight summaries.
func (s *Server) handlePosts(c echo.Context) error {
	posts, err := s.drafts.Published(s.cfg.Newsletter.ReadingSpeed, s.now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading posts")
	}
	summaries := make([]map[string]interface{}, 0, len(posts))
	for _, p := range posts {
		summaries = append(summaries, map[string]interface{}{
			"id":          p.ID,
			"title":       p.Title,
			"previewText": p.PreviewText,
			"readTime":    p.ReadTime,
			"daysAgo":     p.DaysAgo,
			"daysAgoText": p.DaysAgoText,
			"sentAt":      p.SentAt,
		})
	}
	postsServed.Add(float64(len(summaries)))
	return c.JSON(http.StatusOK, map[string]interface{}{"posts": summaries})
}

func (s *Server) handlePost(c echo.Context) error {
	post, err := s.drafts.PublishedByID(c.Param("id"), s.cfg.Newsletter.ReadingSpeed, s.now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading post")
	}
	if post == nil {
		return echo.NewHTTPError(http.StatusNotFound, "post not found")
	}
	postsServed.Inc()
	return c.JSON(http.StatusOK, post)
}

// handleConfig exposes the public site settings the frontend needs.
func (s *Server) handleConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"siteUrl":      s.cfg.Server.SiteURL,
		"companyName":  s.cfg.Email.CompanyName,
		"readingSpeed": s.cfg.Newsletter.ReadingSpeed,
	})
}

func (s *Server) handleSubscribe(c echo.Context) error {
	if s.subscribers == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "subscriptions not enabled")
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		subscribeRequests.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		subscribeRequests.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "valid email is required")
	}

	sub, err := s.subscribers.Add(c.Request().Context(), email)
	if err != nil {
		subscribeRequests.WithLabelValues("error").Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, "subscribe failed")
	}
	subscribeRequests.WithLabelValues("ok").Inc()
	s.logger.Printf("subscribed %s", sub.Email)
	return c.JSON(http.StatusOK, map[string]interface{}{"subscribed": true})
}

// handleUnsubscribe processes token links from newsletter footers. The
// response is a small HTML page since it opens in a browser. Repeated clicks
// on the same link stay successful.
func (s *Server) handleUnsubscribe(c echo.Context) error {
	if s.subscribers == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "subscriptions not enabled")
	}
	token := c.QueryParam("token")
	if token == "" {
		unsubscribeRequests.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "missing token")
	}

	ctx := c.Request().Context()
	sub, err := s.subscribers.Unsubscribe(ctx, token)
	if errors.Is(err, subscriber.ErrNotFound) {
		unsubscribeRequests.WithLabelValues("unknown").Inc()
		return c.HTML(http.StatusNotFound, unsubscribePage("Invalid link", "This unsubscribe link is not recognised."))
	}
	if err != nil {
		unsubscribeRequests.WithLabelValues("error").Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, "unsubscribe failed")
	}
	unsubscribeRequests.WithLabelValues("ok").Inc()
	s.logger.Printf("unsubscribed %s", sub.Email)

	if s.notifier != nil {
		stats, statsErr := s.subscribers.Stats(ctx)
		if statsErr == nil {
			s.notifier.Unsubscribed(ctx, sub.Email, stats)
		}
	}
	return c.HTML(http.StatusOK, unsubscribePage("Unsubscribed", "You will no longer receive this newsletter."))
}

func unsubscribePage(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>%s</title></head>
<body style="font-family:sans-serif;max-width:480px;margin:80px auto;text-align:center;">
<h1>%s</h1><p>%s</p></body></html>`, title, title, body)
}
