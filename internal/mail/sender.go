package mail

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/airadev/newsroom/config"
	"github.com/airadev/newsroom/internal/newsletter"
	"github.com/airadev/newsroom/internal/subscriber"
)

var deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "newsroom_deliveries_total",
	Help: "Per-recipient delivery attempts by outcome.",
}, []string{"outcome"})

// NoRecipientsError means delivery was requested but no recipient could be
// resolved from any configured source.
type NoRecipientsError struct{}

func (*NoRecipientsError) Error() string {
	return "no recipients: set email.test_mode, email.recipients, or configure the subscriber store"
}

// Mailer is the transport used to deliver one message.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// SubscriberSource resolves the live mailing list. Nil means no store is
// configured and the static recipient list is used instead.
type SubscriberSource interface {
	Active(ctx context.Context) ([]subscriber.Subscriber, error)
}

// Recipient is one resolved delivery target with its personal unsubscribe URL.
type Recipient struct {
	Email          string
	UnsubscribeURL string
}

// Sender fans a rendered draft out to its recipients one at a time.
type Sender struct {
	cfg         config.EmailConfig
	mailer      Mailer
	subscribers SubscriberSource
	logger      *log.Logger
	sleep       func(time.Duration)
}

func NewSender(cfg config.EmailConfig, mailer Mailer, subscribers SubscriberSource) *Sender {
	return &Sender{
		cfg:         cfg,
		mailer:      mailer,
		subscribers: subscribers,
		logger:      log.New(log.Writer(), "[SENDER] ", log.LstdFlags),
		sleep:       time.Sleep,
	}
}

// Recipients resolves the delivery list. Test mode always wins and returns the
// single test recipient; otherwise the subscriber store is preferred and the
// static list is the fallback. Static recipients get a mailto unsubscribe link
// since no token exists for them.
func (s *Sender) Recipients(ctx context.Context) ([]Recipient, error) {
	if s.cfg.TestMode {
		return []Recipient{{Email: s.cfg.TestRecipient, UnsubscribeURL: s.mailtoUnsubscribe()}}, nil
	}
	if s.subscribers != nil {
		subs, err := s.subscribers.Active(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving subscribers: %w", err)
		}
		out := make([]Recipient, 0, len(subs))
		for _, sub := range subs {
			out = append(out, Recipient{Email: sub.Email, UnsubscribeURL: s.tokenUnsubscribe(sub.UnsubscribeToken)})
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	out := make([]Recipient, 0, len(s.cfg.Recipients))
	for _, email := range s.cfg.Recipients {
		out = append(out, Recipient{Email: email, UnsubscribeURL: s.mailtoUnsubscribe()})
	}
	return out, nil
}

func (s *Sender) tokenUnsubscribe(token string) string {
	if s.cfg.UnsubscribeBase == "" {
		return s.mailtoUnsubscribe()
	}
	return fmt.Sprintf("%s/unsubscribe?token=%s", s.cfg.UnsubscribeBase, url.QueryEscape(token))
}

func (s *Sender) mailtoUnsubscribe() string {
	return fmt.Sprintf("mailto:%s?subject=Unsubscribe", s.cfg.From)
}

// SendNewsletter delivers the draft to every resolved recipient sequentially,
// pausing between sends. One recipient's failure never aborts the rest; the
// per-recipient outcomes are all returned. An empty recipient list is a
// NoRecipientsError.
func (s *Sender) SendNewsletter(ctx context.Context, d *newsletter.Draft) ([]newsletter.DeliveryResult, error) {
	recipients, err := s.Recipients(ctx)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, &NoRecipientsError{}
	}

	s.logger.Printf("sending %q to %d recipient(s)", d.Metadata.Subject, len(recipients))
	results := make([]newsletter.DeliveryResult, 0, len(recipients))
	for i, r := range recipients {
		if i > 0 && s.cfg.SendDelay > 0 {
			s.sleep(s.cfg.SendDelay)
		}
		htmlBody, err := RenderHTML(d, s.cfg.CompanyName, s.cfg.CompanyAddress, r.UnsubscribeURL)
		if err != nil {
			results = append(results, newsletter.DeliveryResult{Recipient: r.Email, Error: err.Error()})
			continue
		}
		id, err := s.mailer.Send(ctx, Message{
			To:       r.Email,
			Subject:  d.Metadata.Subject,
			HTMLBody: htmlBody,
			TextBody: RenderText(d, r.UnsubscribeURL),
		})
		if err != nil {
			s.logger.Printf("send to %s failed: %v", r.Email, err)
			deliveries.WithLabelValues("error").Inc()
			results = append(results, newsletter.DeliveryResult{Recipient: r.Email, Error: err.Error()})
			continue
		}
		deliveries.WithLabelValues("ok").Inc()
		results = append(results, newsletter.DeliveryResult{Recipient: r.Email, Success: true, MessageID: id})
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	s.logger.Printf("delivery complete: %d/%d succeeded", succeeded, len(results))
	return results, nil
}

// AnySucceeded reports whether at least one recipient accepted the message.
// Partial delivery still counts as sent; the per-recipient record keeps the
// failures visible.
func AnySucceeded(results []newsletter.DeliveryResult) bool {
	for _, r := range results {
		if r.Success {
			return true
		}
	}
	return false
}
