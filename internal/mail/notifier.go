package mail

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/airadev/newsroom/config"
	"github.com/airadev/newsroom/internal/draft"
	"github.com/airadev/newsroom/internal/newsletter"
	"github.com/airadev/newsroom/internal/subscriber"
)

// Notifier emails the operator about list events and records them in the draft
// store as "notification" entries so they show up next to real issues.
type Notifier struct {
	cfg    config.EmailConfig
	mailer Mailer
	store  *draft.Store
	logger *log.Logger
	now    func() time.Time
}

func NewNotifier(cfg config.EmailConfig, mailer Mailer, store *draft.Store) *Notifier {
	return &Notifier{
		cfg:    cfg,
		mailer: mailer,
		store:  store,
		logger: log.New(log.Writer(), "[NOTIFY] ", log.LstdFlags),
		now:    time.Now,
	}
}

// Unsubscribed alerts the operator that an address left the list, including
// current list counts. Failures are logged, never fatal: a broken alert must
// not break the unsubscribe itself.
func (n *Notifier) Unsubscribed(ctx context.Context, email string, stats subscriber.Stats) {
	subject := fmt.Sprintf("Unsubscribe: %s", email)
	body := fmt.Sprintf("%s unsubscribed.\n\nList status: %d active, %d unsubscribed, %d total.\n",
		email, stats.Active, stats.Unsubscribed, stats.Total)

	if n.mailer != nil && n.cfg.From != "" {
		_, err := n.mailer.Send(ctx, Message{
			To:       n.cfg.From,
			Subject:  subject,
			HTMLBody: "<pre>" + body + "</pre>",
			TextBody: body,
		})
		if err != nil {
			n.logger.Printf("alert email failed: %v", err)
		}
	}

	if n.store != nil {
		rec := &newsletter.Draft{
			Metadata: newsletter.Metadata{
				Topic:     "unsubscribe notification",
				Subject:   subject,
				CreatedAt: n.now().UTC(),
				Status:    newsletter.StatusNotification,
			},
			Content: body,
		}
		if _, err := n.store.Save(rec); err != nil {
			n.logger.Printf("notification record failed: %v", err)
		}
	}
}

// Failure alerts the operator that a scheduled send failed.
func (n *Notifier) Failure(ctx context.Context, draftPath string, sendErr error) {
	if n.mailer == nil || n.cfg.From == "" {
		n.logger.Printf("scheduled send failed for %s: %v", draftPath, sendErr)
		return
	}
	body := fmt.Sprintf("Scheduled send failed for %s:\n\n%v\n", draftPath, sendErr)
	_, err := n.mailer.Send(ctx, Message{
		To:       n.cfg.From,
		Subject:  "Newsletter send failure",
		HTMLBody: "<pre>" + body + "</pre>",
		TextBody: body,
	})
	if err != nil {
		n.logger.Printf("alert email failed: %v", err)
	}
}
