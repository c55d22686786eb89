package billing

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fieldvine/billing/pkg/queue"
)

// defaultTrialExpiringWindow is how many days ahead the trial-expiring
// sweep looks when the trigger does not say.
const defaultTrialExpiringWindow = 3

// purgeRetention is how long a soft-deleted tenant's data is kept
// before the purge job becomes runnable.
const purgeRetention = 30 * 24 * time.Hour

// PurgeTenantPayload is the queue payload for hard-deleting a
// soft-deleted tenant's data once the retention window passes.
type PurgeTenantPayload struct {
	TenantID uuid.UUID `json:"tenant_id"`
}

func (m *Module) handleSyncRun(w http.ResponseWriter, r *http.Request) {
	if m.deps.Synchronizer == nil {
		respondError(w, fmt.Errorf("%w: synchronizer is not enabled", errNotImplemented))
		return
	}

	res, err := m.deps.Synchronizer.Run(r.Context())
	if err != nil {
		m.logger.Error("synchronizer run failed", "error", err)
		respondError(w, err)
		return
	}

	m.logger.Info("synchronizer run complete", "total", res.Total, "updated", res.Updated)
	respondData(w, "sync_complete", res)
}

func (m *Module) handleSweepRenewalReminders(w http.ResponseWriter, r *http.Request) {
	if m.deps.Sweeper == nil {
		respondError(w, fmt.Errorf("%w: sweeps are not enabled", errNotImplemented))
		return
	}

	res, err := m.deps.Sweeper.RenewalReminders(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, "sweep_complete", res)
}

func (m *Module) handleSweepTrialExpiring(w http.ResponseWriter, r *http.Request) {
	if m.deps.Sweeper == nil {
		respondError(w, fmt.Errorf("%w: sweeps are not enabled", errNotImplemented))
		return
	}

	withinDays := defaultTrialExpiringWindow
	if raw := r.URL.Query().Get("within_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, fmt.Errorf("%w: within_days must be a non-negative integer", errBadRequest))
			return
		}
		withinDays = n
	}

	res, err := m.deps.Sweeper.TrialExpiring(r.Context(), withinDays)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, "sweep_complete", res)
}

func (m *Module) handleSweepSubscriptionExpired(w http.ResponseWriter, r *http.Request) {
	if m.deps.Sweeper == nil {
		respondError(w, fmt.Errorf("%w: sweeps are not enabled", errNotImplemented))
		return
	}

	res, err := m.deps.Sweeper.SubscriptionExpired(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, "sweep_complete", res)
}

func (m *Module) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, err := tenantIDParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	now := time.Now().UTC()
	if err := m.deps.Tenants.SoftDelete(r.Context(), id, now); err != nil {
		respondError(w, err)
		return
	}

	// The purge job only becomes runnable after the retention window.
	// Its execution is owned by the data-removal pipeline; here we only
	// guarantee it is scheduled exactly once per tenant.
	if m.deps.Enqueuer != nil {
		if err := m.deps.Enqueuer.Enqueue(r.Context(), PurgeTenantPayload{TenantID: id},
			queue.WithDelay(purgeRetention),
			queue.WithIdempotencyKey("purge:"+id.String()),
		); err != nil {
			m.logger.Error("failed to schedule tenant purge", "error", err, "tenant_id", id.String())
			respondError(w, err)
			return
		}
	}

	m.logger.Info("tenant soft deleted", "tenant_id", id.String())
	respondData(w, "tenant_deleted", map[string]string{"tenant_id": id.String()})
}

func (m *Module) handleExportRetention(w http.ResponseWriter, r *http.Request) {
	if m.deps.Retention == nil {
		respondError(w, fmt.Errorf("%w: export retention is not enabled", errNotImplemented))
		return
	}

	expired, err := m.deps.Retention.Run(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, "retention_complete", map[string]int{"expired": expired})
}
