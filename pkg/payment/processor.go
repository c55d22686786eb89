package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fieldvine/billing/pkg/ledger"
	"github.com/fieldvine/billing/pkg/subscription"
)

// Notifier enqueues customer-facing notifications for payment outcomes.
// Implementations must be idempotent per (tenant, payment) pair; the
// processor may be re-run for an event whose first run crashed
// mid-handler.
type Notifier interface {
	PaymentSucceeded(ctx context.Context, t *subscription.Tenant, p *Payment) error
	PaymentFailed(ctx context.Context, t *subscription.Tenant, p *Payment) error
}

// claimStaleAfter bounds how long an unprocessed ledger claim shields
// an event from redelivery. A run that crashed mid-handler leaves its
// claim behind; once the window lapses the next delivery reclaims the
// event and completes it.
const claimStaleAfter = 5 * time.Minute

// Processor consumes gateway webhooks: verify, dedup, dispatch, ack.
type Processor struct {
	gateway  Gateway
	ledger   ledger.Store
	payments Store
	tenants  subscription.TenantStore
	changes  subscription.PlanChangeStore
	sync     *subscription.Synchronizer
	notifier Notifier
	logger   *slog.Logger
	nowFn    func() time.Time
}

// ProcessorOption configures the Processor.
type ProcessorOption func(*Processor)

// WithProcessorLogger sets the logger.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithProcessorClock overrides the clock, for tests.
func WithProcessorClock(nowFn func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if nowFn != nil {
			p.nowFn = nowFn
		}
	}
}

// NewProcessor wires the processor. All dependencies are required.
func NewProcessor(
	gateway Gateway,
	ledgerStore ledger.Store,
	payments Store,
	tenants subscription.TenantStore,
	changes subscription.PlanChangeStore,
	sync *subscription.Synchronizer,
	notifier Notifier,
	opts ...ProcessorOption,
) (*Processor, error) {
	if gateway == nil || ledgerStore == nil || payments == nil || tenants == nil ||
		changes == nil || sync == nil || notifier == nil {
		return nil, ErrMissingDependencies
	}

	p := &Processor{
		gateway:  gateway,
		ledger:   ledgerStore,
		payments: payments,
		tenants:  tenants,
		changes:  changes,
		sync:     sync,
		notifier: notifier,
		logger:   slog.Default(),
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process handles one webhook delivery end to end.
//
// Error contract for the HTTP layer: an error wrapping
// ErrSignatureInvalid means nothing was recorded and the gateway gets a
// 4xx. Any other error means the event could not be durably ledgered
// and the gateway should redeliver (5xx). A nil return means the event
// is ledgered and acknowledged, even when its handler failed; the
// failure lives on the ledger entry for operator follow-up.
func (p *Processor) Process(ctx context.Context, rawBody []byte, signature string) error {
	event, err := p.gateway.ParseWebhook(ctx, rawBody, signature)
	if err != nil {
		return err
	}

	entry, created, err := p.ledger.InsertOrGet(ctx, event.ID, string(event.Type), p.nowFn())
	if err != nil {
		return fmt.Errorf("failed to ledger event %s: %w", event.ID, err)
	}

	if !created {
		if entry.Processed {
			p.logger.Debug("duplicate delivery ignored",
				slog.String("event_id", event.ID),
				slog.String("event_type", string(event.Type)))
			return nil
		}

		// A pre-existing unprocessed entry is either a concurrent
		// delivery mid-handler or the residue of a crashed run. The
		// claim decides: a fresh claim means another delivery owns the
		// event and this one acks without dispatching, a stale claim
		// means the previous run died and this delivery completes it.
		claimed, err := p.ledger.Claim(ctx, event.ID, p.nowFn(), claimStaleAfter)
		if err != nil {
			return fmt.Errorf("failed to claim event %s: %w", event.ID, err)
		}
		if !claimed {
			p.logger.Debug("concurrent delivery acknowledged without dispatch",
				slog.String("event_id", event.ID),
				slog.String("event_type", string(event.Type)))
			return nil
		}
	}

	handlerErr := p.dispatch(ctx, event)

	if err := p.ledger.MarkProcessed(ctx, event.ID, p.nowFn(), handlerErr); err != nil {
		return fmt.Errorf("failed to mark event %s processed: %w", event.ID, err)
	}

	if handlerErr != nil {
		p.logger.Error("webhook handler failed, event acknowledged",
			slog.String("event_id", event.ID),
			slog.String("event_type", string(event.Type)),
			slog.String("error", handlerErr.Error()))
	}

	return nil
}

func (p *Processor) dispatch(ctx context.Context, event *Event) error {
	switch event.Type {
	case EventPaymentSucceeded, EventInvoiceSucceeded:
		return p.handleSucceeded(ctx, event)
	case EventPaymentFailed, EventInvoiceFailed:
		return p.handleFailed(ctx, event)
	case EventChargeRefunded:
		return p.handleRefunded(ctx, event)
	default:
		// Acknowledged, never retried: the gateway must not be told to
		// resend events this system does not understand.
		p.logger.Warn("unknown event type acknowledged",
			slog.String("event_id", event.ID),
			slog.String("event_type", string(event.Type)))
		return nil
	}
}

func (p *Processor) handleSucceeded(ctx context.Context, event *Event) error {
	if event.TenantID == uuid.Nil {
		return ErrMissingTenantID
	}

	pay, err := p.upsertPayment(ctx, event, StatusCompleted)
	if err != nil {
		return err
	}

	t, err := p.tenants.Get(ctx, event.TenantID)
	if err != nil {
		return fmt.Errorf("failed to load tenant %s: %w", event.TenantID, err)
	}

	now := p.nowFn()
	patch := subscription.TenantPatch{Active: subscription.Some(true)}

	planID := t.Plan
	if event.Plan.Valid() && event.Plan != t.Plan {
		planID = event.Plan
		patch.Plan = subscription.Some(event.Plan)

		if err := p.changes.Append(ctx, &subscription.PlanChange{
			ID:        uuid.New(),
			TenantID:  t.ID,
			FromPlan:  t.Plan,
			ToPlan:    event.Plan,
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to record plan change for tenant %s: %w", t.ID, err)
		}
	}

	plan, err := subscription.LookupPlan(planID)
	if err != nil {
		return err
	}

	// One billing period from the later of now and the current expiry:
	// paying early extends, paying late restarts from today.
	anchor := now
	if t.ExpiresAt != nil && t.ExpiresAt.After(now) {
		anchor = *t.ExpiresAt
	}
	next := plan.Interval.Period(anchor)
	patch.ExpiresAt = subscription.Some(&next)

	updated, err := p.tenants.Update(ctx, t.ID, patch)
	if err != nil {
		return fmt.Errorf("failed to update tenant %s: %w", t.ID, err)
	}

	if _, err := p.sync.SyncTenant(ctx, updated); err != nil {
		return err
	}

	return p.notifier.PaymentSucceeded(ctx, updated, pay)
}

func (p *Processor) handleFailed(ctx context.Context, event *Event) error {
	if event.TenantID == uuid.Nil {
		return ErrMissingTenantID
	}

	pay, err := p.upsertPayment(ctx, event, StatusFailed)
	if err != nil {
		return err
	}

	// Tenant status is not touched here: the synchronizer derives the
	// eventual PAST_DUE/SUSPENDED transition from the unchanged expiry.
	t, err := p.tenants.Get(ctx, event.TenantID)
	if err != nil {
		return fmt.Errorf("failed to load tenant %s: %w", event.TenantID, err)
	}

	return p.notifier.PaymentFailed(ctx, t, pay)
}

func (p *Processor) handleRefunded(ctx context.Context, event *Event) error {
	if event.TenantID == uuid.Nil {
		return ErrMissingTenantID
	}

	if _, err := p.upsertPayment(ctx, event, StatusRefunded); err != nil {
		return err
	}

	updated, err := p.tenants.Update(ctx, event.TenantID, subscription.TenantPatch{
		Active: subscription.Some(false),
	})
	if err != nil {
		return fmt.Errorf("failed to deactivate tenant %s: %w", event.TenantID, err)
	}

	_, err = p.sync.SyncTenant(ctx, updated)
	return err
}

// upsertPayment finds the payment by gateway id, creating the record on
// first sight, and moves it to the given status.
func (p *Processor) upsertPayment(ctx context.Context, event *Event, status Status) (*Payment, error) {
	gatewayID := event.GatewayPaymentID
	if gatewayID == "" {
		gatewayID = event.ID
	}

	now := p.nowFn()

	pay, err := p.payments.GetByGatewayID(ctx, gatewayID)
	switch {
	case errors.Is(err, ErrPaymentNotFound):
		pay = &Payment{
			ID:               uuid.New(),
			TenantID:         event.TenantID,
			GatewayPaymentID: gatewayID,
			Amount:           event.Amount,
			Currency:         event.Currency,
			CreatedAt:        now,
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load payment %s: %w", gatewayID, err)
	}

	pay.EventID = event.ID
	pay.Status = status
	pay.UpdatedAt = now
	if event.Reason != "" {
		reason := event.Reason
		pay.Reason = &reason
	}

	if err := p.payments.Save(ctx, pay); err != nil {
		return nil, fmt.Errorf("failed to save payment %s: %w", pay.ID, err)
	}
	return pay, nil
}
