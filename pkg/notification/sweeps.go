package notification

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/fieldvine/billing/pkg/subscription"
)

// TrialPeriod is how long the entry-level plan's trial window runs
// from tenant creation before the trial-expiring sweep starts nagging.
const TrialPeriod = 14 * 24 * time.Hour

// reminderDays is the renewal reminder cadence before expiry.
var reminderDays = []int{7, 3, 1}

// SweepResult reports one sweep pass.
type SweepResult struct {
	Scanned  int `json:"scanned"`
	Enqueued int `json:"enqueued"`
}

// Sweeper generates reminder notifications across all live tenants.
// Each pass is idempotent: records dedupe on (kind, tenant, day), so
// an external scheduler may fire sweeps as often as it likes.
type Sweeper struct {
	tenants subscription.TenantStore
	svc     *Service
	logger  *slog.Logger
	nowFn   func() time.Time
}

// SweeperOption configures the Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperLogger sets the logger.
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSweeperClock overrides the clock, for tests.
func WithSweeperClock(nowFn func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		if nowFn != nil {
			s.nowFn = nowFn
		}
	}
}

// NewSweeper creates a Sweeper over the given tenant store and
// notification service.
func NewSweeper(tenants subscription.TenantStore, svc *Service, opts ...SweeperOption) (*Sweeper, error) {
	if tenants == nil || svc == nil {
		return nil, ErrMissingDependencies
	}

	s := &Sweeper{
		tenants: tenants,
		svc:     svc,
		logger:  slog.Default(),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RenewalReminders notifies tenants whose subscription expires in 7, 3,
// or 1 days.
func (s *Sweeper) RenewalReminders(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx, func(t *subscription.Tenant, now time.Time) (Kind, string, string, bool) {
		if t.ExpiresAt == nil || !t.Status.Eligible() {
			return "", "", "", false
		}

		daysLeft := daysUntil(*t.ExpiresAt, now)
		for _, d := range reminderDays {
			if daysLeft == d {
				subject, body := renewalReminderEmail(t.Name, daysLeft)
				return KindRenewalReminder, subject, body, true
			}
		}
		return "", "", "", false
	})
}

// TrialExpiring notifies TRIAL tenants whose trial window ends within
// withinDays.
func (s *Sweeper) TrialExpiring(ctx context.Context, withinDays int) (SweepResult, error) {
	return s.sweep(ctx, func(t *subscription.Tenant, now time.Time) (Kind, string, string, bool) {
		if t.Status != subscription.StatusTrial {
			return "", "", "", false
		}

		trialEnds := t.CreatedAt.Add(TrialPeriod)
		daysLeft := daysUntil(trialEnds, now)
		if daysLeft < 0 || daysLeft > withinDays {
			return "", "", "", false
		}

		subject, body := trialExpiringEmail(t.Name, daysLeft)
		return KindTrialExpiring, subject, body, true
	})
}

// SubscriptionExpired notifies tenants whose subscription has lapsed
// into SUSPENDED.
func (s *Sweeper) SubscriptionExpired(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx, func(t *subscription.Tenant, now time.Time) (Kind, string, string, bool) {
		if t.Status != subscription.StatusSuspended {
			return "", "", "", false
		}

		subject, body := subscriptionExpiredEmail(t.Name)
		return KindSubscriptionExpired, subject, body, true
	})
}

type sweepSelector func(t *subscription.Tenant, now time.Time) (kind Kind, subject, body string, match bool)

func (s *Sweeper) sweep(ctx context.Context, pick sweepSelector) (SweepResult, error) {
	tenants, err := s.tenants.ListLive(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list tenants: %w", err)
	}

	now := s.nowFn()
	res := SweepResult{Scanned: len(tenants)}

	for _, t := range tenants {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		kind, subject, body, match := pick(t, now)
		if !match {
			continue
		}

		key := SweepDedupeKey(t.ID, kind, now)
		if err := s.svc.notify(ctx, t, kind, key, subject, body); err != nil {
			// One broken tenant must not abort the whole sweep.
			s.logger.Error("failed to enqueue sweep notification",
				slog.String("tenant_id", t.ID.String()),
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()))
			continue
		}
		res.Enqueued++
	}

	return res, nil
}

// daysUntil counts whole days from now to deadline, rounding up so a
// deadline 6.5 days out still matches the 7-day reminder.
func daysUntil(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}
