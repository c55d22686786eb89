package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fieldvine/billing/pkg/payment"
	"github.com/fieldvine/billing/pkg/queue"
	"github.com/fieldvine/billing/pkg/subscription"
)

// EmailQueueName is the queue email jobs go to. The email worker pulls
// from it with its own concurrency bound and provider rate ceiling.
const EmailQueueName = "emails"

// Enqueuer is the slice of the queue enqueuer this package needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) error
}

// Service creates notification records and enqueues their delivery.
// It implements payment.Notifier.
type Service struct {
	store    Store
	enqueuer Enqueuer
	logger   *slog.Logger
	nowFn    func() time.Time
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServiceClock overrides the clock, for tests.
func WithServiceClock(nowFn func() time.Time) ServiceOption {
	return func(s *Service) {
		if nowFn != nil {
			s.nowFn = nowFn
		}
	}
}

// NewService creates a notification service.
func NewService(store Store, enqueuer Enqueuer, opts ...ServiceOption) (*Service, error) {
	if store == nil || enqueuer == nil {
		return nil, ErrMissingDependencies
	}

	s := &Service{
		store:    store,
		enqueuer: enqueuer,
		logger:   slog.Default(),
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PaymentSucceeded implements payment.Notifier. The record dedupes on
// the payment id, so a re-run of a crashed webhook handler cannot
// produce a second email.
func (s *Service) PaymentSucceeded(ctx context.Context, t *subscription.Tenant, p *payment.Payment) error {
	subject, body := paymentSucceededEmail(t.Name, p.Amount, p.Currency, t.ExpiresAt)
	return s.notify(ctx, t, KindPaymentSucceeded,
		fmt.Sprintf("%s:%s", KindPaymentSucceeded, p.ID), subject, body)
}

// PaymentFailed implements payment.Notifier.
func (s *Service) PaymentFailed(ctx context.Context, t *subscription.Tenant, p *payment.Payment) error {
	subject, body := paymentFailedEmail(t.Name)
	return s.notify(ctx, t, KindPaymentFailed,
		fmt.Sprintf("%s:%s", KindPaymentFailed, p.ID), subject, body)
}

// notify creates the record (or finds the existing one) and enqueues
// delivery keyed by the record id.
func (s *Service) notify(ctx context.Context, t *subscription.Tenant, kind Kind, dedupeKey, subject, body string) error {
	if t.BillingEmail == "" {
		return ErrNoRecipient
	}

	now := s.nowFn()
	record, created, err := s.store.CreateIfAbsent(ctx, &EmailNotification{
		ID:        uuid.New(),
		TenantID:  t.ID,
		Kind:      kind,
		Recipient: t.BillingEmail,
		Subject:   subject,
		BodyHTML:  body,
		DedupeKey: dedupeKey,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("failed to create notification record: %w", err)
	}

	if !created {
		s.logger.Debug("notification already recorded",
			slog.String("tenant_id", t.ID.String()),
			slog.String("kind", string(kind)),
			slog.String("dedupe_key", dedupeKey))
	}

	// Enqueue even for a pre-existing record: the queue's idempotency
	// key (the record id) collapses duplicates, and a record whose
	// first job was lost gets a second chance.
	return s.enqueuer.Enqueue(ctx, SendEmailPayload{NotificationID: record.ID},
		queue.WithQueue(EmailQueueName),
		queue.WithIdempotencyKey(record.ID.String()))
}
