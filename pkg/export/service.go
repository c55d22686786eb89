package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fieldvine/billing/pkg/queue"
)

// QueueName is the queue export generation jobs go to. Export jobs are
// heavier than emails, so they get their own queue and worker pool.
const QueueName = "exports"

// Enqueuer is the slice of the queue enqueuer this package needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) error
}

// Service accepts export requests and hands generation to the queue.
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

// NewService creates an export service.
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

// Request creates a pending export record and enqueues its generation.
// The job is keyed by the record id, so a duplicated request call path
// cannot schedule the same export twice.
func (s *Service) Request(ctx context.Context, tenantID, requestedBy uuid.UUID) (*DataExport, error) {
	now := s.nowFn()
	e := &DataExport{
		ID:          uuid.New(),
		TenantID:    tenantID,
		RequestedBy: requestedBy,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create export record: %w", err)
	}

	if err := s.enqueuer.Enqueue(ctx, GenerateExportPayload{ExportID: e.ID},
		queue.WithQueue(QueueName),
		queue.WithIdempotencyKey(e.ID.String()),
	); err != nil {
		return nil, fmt.Errorf("failed to enqueue export generation: %w", err)
	}

	s.logger.Info("export requested",
		slog.String("export_id", e.ID.String()),
		slog.String("tenant_id", tenantID.String()))
	return e, nil
}
