package export

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fieldvine/billing/pkg/file"
	"github.com/fieldvine/billing/pkg/queue"
)

// RetentionJobName names the periodic retention job.
const RetentionJobName = "billing.export_retention"

// Retention deletes artifacts past their ExpiresAt and flips their
// records to expired. The record itself is kept for audit.
type Retention struct {
	store   Store
	storage file.Storage
	logger  *slog.Logger
	nowFn   func() time.Time
}

// RetentionOption configures Retention.
type RetentionOption func(*Retention)

// WithRetentionLogger sets the logger.
func WithRetentionLogger(logger *slog.Logger) RetentionOption {
	return func(r *Retention) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRetentionClock overrides the clock, for tests.
func WithRetentionClock(nowFn func() time.Time) RetentionOption {
	return func(r *Retention) {
		if nowFn != nil {
			r.nowFn = nowFn
		}
	}
}

// NewRetention creates the retention job.
func NewRetention(store Store, storage file.Storage, opts ...RetentionOption) (*Retention, error) {
	if store == nil || storage == nil {
		return nil, ErrMissingDependencies
	}

	r := &Retention{
		store:   store,
		storage: storage,
		logger:  slog.Default(),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run performs one retention pass and returns how many exports were
// expired. A failed deletion leaves that record completed for the next
// pass; a pass is safe to run at any frequency.
func (r *Retention) Run(ctx context.Context) (int, error) {
	expiring, err := r.store.ListExpiring(ctx, r.nowFn())
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, e := range expiring {
		if err := ctx.Err(); err != nil {
			return expired, err
		}

		if err := r.storage.Delete(ctx, e.Key); err != nil && !errors.Is(err, file.ErrObjectNotFound) {
			r.logger.Error("failed to delete expired export artifact",
				slog.String("export_id", e.ID.String()),
				slog.String("key", e.Key),
				slog.String("error", err.Error()))
			continue
		}

		if err := r.store.MarkExpired(ctx, e.ID, r.nowFn()); err != nil {
			r.logger.Error("failed to mark export expired",
				slog.String("export_id", e.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		expired++
	}

	if expired > 0 {
		r.logger.Info("export retention pass", slog.Int("expired", expired))
	}
	return expired, nil
}

// Handler returns the periodic queue handler wrapping Run.
func (r *Retention) Handler() queue.Handler {
	return queue.NewPeriodicJobHandler(RetentionJobName, func(ctx context.Context) error {
		_, err := r.Run(ctx)
		return err
	})
}
