package limits

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CounterFunc returns current usage for a tenant resource. since is the
// window lower bound (zero for total resources). Should be fast: count
// at the repository level, never load rows.
type CounterFunc func(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error)

// CounterRegistry maps a Resource to its CounterFunc.
// Not thread-safe: register all counters at startup only.
type CounterRegistry map[Resource]CounterFunc

// NewRegistry returns a new, empty CounterRegistry.
func NewRegistry() CounterRegistry {
	return make(CounterRegistry)
}

// Register sets or replaces the CounterFunc for the given resource.
// Panics if fn is nil.
func (r CounterRegistry) Register(res Resource, fn CounterFunc) {
	if fn == nil {
		panic(fmt.Sprintf("limits: CounterFunc for resource %q cannot be nil", res))
	}
	r[res] = fn
}
