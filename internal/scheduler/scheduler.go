// Package scheduler sweeps the draft store for approved issues and sends them
// on the configured cron cadence.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/airadev/newsroom/config"
	"github.com/airadev/newsroom/internal/draft"
	"github.com/airadev/newsroom/internal/mail"
	"github.com/airadev/newsroom/internal/newsletter"
)

// Scheduler periodically checks whether the send window is due and, when it
// is, delivers every approved draft. An optional Redis lock keeps concurrent
// deployments from double-sending.
type Scheduler struct {
	cfg      *config.Config
	store    *draft.Store
	sender   *mail.Sender
	notifier *mail.Notifier
	rdb      *redis.Client
	logger   *log.Logger
	now      func() time.Time

	lastSweep *time.Time
	stop      chan struct{}
}

func New(cfg *config.Config, store *draft.Store, sender *mail.Sender, notifier *mail.Notifier, rdb *redis.Client) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		sender:   sender,
		notifier: notifier,
		rdb:      rdb,
		logger:   log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Start ticks every minute and sweeps when the cron pattern is due. It blocks
// until the context is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Printf("scheduler running, pattern %q", s.cfg.Scheduler.CronPattern)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			if s.due() {
				s.Sweep(ctx)
			}
		}
	}
}

func (s *Scheduler) Stop() { close(s.stop) }

// due reports whether the cron window has opened since the last sweep.
// Supports "@daily", "@hourly" and standard 5-field cron expressions; an
// unparseable pattern degrades to daily.
func (s *Scheduler) due() bool {
	now := s.now()
	last := s.lastSweep
	switch s.cfg.Scheduler.CronPattern {
	case "@daily":
		return last == nil || now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		return last == nil || now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(s.cfg.Scheduler.CronPattern)
		if err != nil {
			return last == nil || now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			// Never swept: wait for the first scheduled slot instead of
			// firing immediately on process start.
			t := now
			s.lastSweep = &t
			return false
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}

// Sweep sends every approved draft once. One draft's failure never stops the
// rest; failures raise an operator notification and leave the draft approved
// for the next window.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.now()
	s.lastSweep = &now

	if s.rdb != nil {
		ok, err := s.rdb.SetNX(ctx, "newsroom:sched:lock", "1", 10*time.Minute).Result()
		if err != nil {
			s.logger.Printf("lock error, proceeding without lock: %v", err)
		} else if !ok {
			s.logger.Printf("another instance holds the send lock, skipping")
			return
		} else {
			defer s.rdb.Del(ctx, "newsroom:sched:lock")
		}
	}

	approved, err := s.store.ListByStatus(newsletter.StatusApproved)
	if err != nil {
		s.logger.Printf("listing approved drafts: %v", err)
		return
	}
	if len(approved) == 0 {
		s.logger.Printf("no approved drafts")
		return
	}
	s.logger.Printf("sweeping %d approved draft(s)", len(approved))

	for path, d := range approved {
		results, err := s.sender.SendNewsletter(ctx, d)
		if err != nil {
			s.logger.Printf("send failed for %s: %v", path, err)
			if s.notifier != nil {
				s.notifier.Failure(ctx, path, err)
			}
			continue
		}
		if !mail.AnySucceeded(results) {
			s.logger.Printf("all recipients failed for %s", path)
			if s.notifier != nil {
				s.notifier.Failure(ctx, path, &allFailedError{})
			}
			continue
		}
		if err := s.store.MarkSent(path, d, results, s.now().UTC()); err != nil {
			s.logger.Printf("marking %s sent: %v", path, err)
		}
	}
}

// RunNow forces an immediate sweep regardless of the cron window.
func (s *Scheduler) RunNow(ctx context.Context) { s.Sweep(ctx) }

type allFailedError struct{}

func (*allFailedError) Error() string { return "every recipient rejected the message" }
