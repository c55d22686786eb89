package export

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fieldvine/billing/pkg/payment"
	"github.com/fieldvine/billing/pkg/subscription"
)

// CollectorFunc produces one CSV dataset for a tenant: a header row and
// the data rows beneath it.
type CollectorFunc func(ctx context.Context, tenantID uuid.UUID) (header []string, rows [][]string, err error)

// CollectorRegistry maps dataset names to their collectors. Each
// dataset becomes one <name>.csv entry in the export archive.
type CollectorRegistry map[string]CollectorFunc

// Register adds a collector for a dataset. It panics on a nil collector
// to surface wiring mistakes at startup rather than inside a worker.
func (r CollectorRegistry) Register(dataset string, fn CollectorFunc) {
	if fn == nil {
		panic(fmt.Sprintf("export: nil collector for dataset %q", dataset))
	}
	r[dataset] = fn
}

// datasets returns registered dataset names in stable order so repeated
// exports produce archives with identical entry layout.
func (r CollectorRegistry) datasets() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PaymentsCollector exports the tenant's payment history.
func PaymentsCollector(payments payment.Store) CollectorFunc {
	return func(ctx context.Context, tenantID uuid.UUID) ([]string, [][]string, error) {
		list, err := payments.ListByTenant(ctx, tenantID)
		if err != nil {
			return nil, nil, err
		}

		sort.Slice(list, func(i, j int) bool {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		})

		header := []string{"id", "gateway_payment_id", "amount", "currency", "status", "reason", "created_at"}
		rows := make([][]string, 0, len(list))
		for _, p := range list {
			reason := ""
			if p.Reason != nil {
				reason = *p.Reason
			}
			rows = append(rows, []string{
				p.ID.String(),
				p.GatewayPaymentID,
				strconv.FormatInt(p.Amount, 10),
				p.Currency,
				string(p.Status),
				reason,
				p.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		return header, rows, nil
	}
}

// PlanChangesCollector exports the tenant's plan change history.
func PlanChangesCollector(changes subscription.PlanChangeStore) CollectorFunc {
	return func(ctx context.Context, tenantID uuid.UUID) ([]string, [][]string, error) {
		list, err := changes.ListByTenant(ctx, tenantID)
		if err != nil {
			return nil, nil, err
		}

		sort.Slice(list, func(i, j int) bool {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		})

		header := []string{"id", "from_plan", "to_plan", "changed_at"}
		rows := make([][]string, 0, len(list))
		for _, c := range list {
			rows = append(rows, []string{
				c.ID.String(),
				string(c.FromPlan),
				string(c.ToPlan),
				c.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		return header, rows, nil
	}
}
