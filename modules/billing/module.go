package billing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fieldvine/billing/pkg/export"
	"github.com/fieldvine/billing/pkg/limits"
	"github.com/fieldvine/billing/pkg/notification"
	"github.com/fieldvine/billing/pkg/payment"
	"github.com/fieldvine/billing/pkg/queue"
	"github.com/fieldvine/billing/pkg/subscription"
)

// CheckoutCreator creates hosted checkout sessions. *payment.PaddleGateway
// implements it.
type CheckoutCreator interface {
	CreateCheckoutLink(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutLink, error)
}

// Enqueuer schedules background jobs. *queue.Enqueuer implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) error
}

// Deps carries the module's collaborators. Processor and Tenants are
// required; everything else degrades gracefully when absent, so a
// deployment can mount only the surface it runs.
type Deps struct {
	Processor *payment.Processor
	Tenants   subscription.TenantStore

	Checkout    CheckoutCreator
	Payments    payment.Store
	PlanChanges subscription.PlanChangeStore
	Limits      limits.Enforcer

	Synchronizer *subscription.Synchronizer
	Sweeper      *notification.Sweeper
	Enqueuer     Enqueuer

	Exports     *export.Service
	ExportStore export.Store
	Retention   *export.Retention

	Logger *slog.Logger
}

// Module is the billing HTTP surface: the payment webhook, the
// tenant-facing subscription API and the admin batch triggers.
type Module struct {
	deps   Deps
	logger *slog.Logger
}

// ErrMissingDependencies is returned when required collaborators are absent.
var ErrMissingDependencies = errors.New("billing.errors.missing_dependencies")

// NewModule validates dependencies and creates the module.
func NewModule(deps Deps) (*Module, error) {
	if deps.Processor == nil || deps.Tenants == nil {
		return nil, ErrMissingDependencies
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Module{deps: deps, logger: logger}, nil
}
