package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SyncResult reports one synchronizer pass.
type SyncResult struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
}

// Synchronizer re-evaluates the status of every live tenant and persists
// only the transitions. It is safe to run concurrently with per-tenant
// updates from the payment event processor: writes go through
// CompareAndSetStatus, and a lost race means the other writer already
// recomputed from fresher inputs.
type Synchronizer struct {
	store  TenantStore
	logger *slog.Logger
	nowFn  func() time.Time
}

// SynchronizerOption configures a Synchronizer.
type SynchronizerOption func(*Synchronizer)

// WithSyncLogger sets the logger for the synchronizer.
func WithSyncLogger(logger *slog.Logger) SynchronizerOption {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSyncClock overrides the clock, for tests.
func WithSyncClock(nowFn func() time.Time) SynchronizerOption {
	return func(s *Synchronizer) {
		if nowFn != nil {
			s.nowFn = nowFn
		}
	}
}

// NewSynchronizer creates a Synchronizer backed by the given store.
func NewSynchronizer(store TenantStore, opts ...SynchronizerOption) (*Synchronizer, error) {
	if store == nil {
		return nil, ErrStoreNil
	}

	s := &Synchronizer{
		store:  store,
		logger: slog.Default(),
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run recomputes the status of every live tenant and persists the ones
// that changed. Intended to be invoked by a scheduler or an admin
// trigger.
func (s *Synchronizer) Run(ctx context.Context) (SyncResult, error) {
	tenants, err := s.store.ListLive(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to list tenants: %w", err)
	}

	now := s.nowFn()
	res := SyncResult{Total: len(tenants)}

	for _, t := range tenants {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		computed := t.Recalculate(now)
		if computed == t.Status {
			continue
		}

		swapped, err := s.store.CompareAndSetStatus(ctx, t.ID, t.Status, computed)
		if err != nil {
			s.logger.Error("failed to persist status transition",
				slog.String("tenant_id", t.ID.String()),
				slog.String("from", string(t.Status)),
				slog.String("to", string(computed)),
				slog.String("error", err.Error()))
			continue
		}
		if !swapped {
			// Another writer got there first with fresher inputs.
			s.logger.Debug("status transition lost race, skipping",
				slog.String("tenant_id", t.ID.String()))
			continue
		}

		res.Updated++
		s.logger.Info("tenant status updated",
			slog.String("tenant_id", t.ID.String()),
			slog.String("from", string(t.Status)),
			slog.String("to", string(computed)))
	}

	return res, nil
}

// SyncTenant recomputes and persists the status of a single tenant.
// Used by the payment event processor after mutating billing fields.
func (s *Synchronizer) SyncTenant(ctx context.Context, t *Tenant) (Status, error) {
	computed := t.Recalculate(s.nowFn())
	if computed == t.Status {
		return computed, nil
	}

	if _, err := s.store.CompareAndSetStatus(ctx, t.ID, t.Status, computed); err != nil {
		return t.Status, fmt.Errorf("failed to persist status for tenant %s: %w", t.ID, err)
	}
	return computed, nil
}
