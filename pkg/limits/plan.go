package limits

import (
	"context"
	"maps"
	"sync"

	"github.com/fieldvine/billing/pkg/subscription"
)

// Plan is one row of the static limit table. Limits values use
// Unlimited (-1) for uncapped resources.
type Plan struct {
	ID     subscription.PlanID
	Name   string
	Limits map[Resource]int64
}

// Source loads the plan limit table. Implementations are read once at
// enforcer construction; the table is immutable afterwards.
type Source interface {
	Load(ctx context.Context) (map[subscription.PlanID]Plan, error)
}

type inMemSource struct {
	mu    sync.RWMutex
	plans map[subscription.PlanID]Plan
}

// NewInMemSource returns a Source over a deep copy of the given plans.
func NewInMemSource(plans map[subscription.PlanID]Plan) Source {
	return &inMemSource{plans: clonePlans(plans)}
}

func (s *inMemSource) Load(ctx context.Context) (map[subscription.PlanID]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return clonePlans(s.plans), nil
}

func clonePlans(plans map[subscription.PlanID]Plan) map[subscription.PlanID]Plan {
	out := make(map[subscription.PlanID]Plan, len(plans))
	for id, plan := range plans {
		out[id] = Plan{
			ID:     plan.ID,
			Name:   plan.Name,
			Limits: maps.Clone(plan.Limits),
		}
	}
	return out
}
