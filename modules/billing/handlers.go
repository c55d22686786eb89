package billing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fieldvine/billing/pkg/export"
	"github.com/fieldvine/billing/pkg/limits"
	"github.com/fieldvine/billing/pkg/payment"
	"github.com/fieldvine/billing/pkg/subscription"
	"github.com/fieldvine/billing/pkg/tenant"
)

func tenantIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "tenant_id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid tenant id", errBadRequest)
	}
	return id, nil
}

// subscriptionView is the tenant-facing slice of the tenant record.
type subscriptionView struct {
	TenantID  uuid.UUID           `json:"tenant_id"`
	Plan      subscription.PlanID `json:"plan"`
	Status    subscription.Status `json:"status"`
	Active    bool                `json:"active"`
	ExpiresAt *string             `json:"expires_at,omitempty"`
}

func (m *Module) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := tenantIDParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	t, err := m.deps.Tenants.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	view := subscriptionView{
		TenantID: t.ID,
		Plan:     t.Plan,
		Status:   t.Status,
		Active:   t.Active,
	}
	if t.ExpiresAt != nil {
		s := t.ExpiresAt.UTC().Format(time.RFC3339)
		view.ExpiresAt = &s
	}
	respondData(w, "subscription", view)
}

func (m *Module) handleListPayments(w http.ResponseWriter, r *http.Request) {
	if m.deps.Payments == nil {
		respondError(w, fmt.Errorf("%w: payment history is not enabled", errNotImplemented))
		return
	}

	id, err := tenantIDParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	payments, err := m.deps.Payments.ListByTenant(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
	respondData(w, "payments", payments)
}

func (m *Module) handleListPlanChanges(w http.ResponseWriter, r *http.Request) {
	if m.deps.PlanChanges == nil {
		respondError(w, fmt.Errorf("%w: plan history is not enabled", errNotImplemented))
		return
	}

	id, err := tenantIDParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	changes, err := m.deps.PlanChanges.ListByTenant(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].CreatedAt.Before(changes[j].CreatedAt)
	})
	respondData(w, "plan_changes", changes)
}

func (m *Module) handleGetLimits(w http.ResponseWriter, r *http.Request) {
	if m.deps.Limits == nil {
		respondError(w, fmt.Errorf("%w: plan limits are not enabled", errNotImplemented))
		return
	}

	id, err := tenantIDParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	usage, err := m.deps.Limits.GetAllUsage(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, "limits", usage)
}

type checkoutRequest struct {
	PriceID    string              `json:"price_id"`
	Plan       subscription.PlanID `json:"plan"`
	SuccessURL string              `json:"success_url"`
}

func (m *Module) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	if m.deps.Checkout == nil {
		respondError(w, fmt.Errorf("%w: checkout is not enabled", errNotImplemented))
		return
	}

	id, err := tenantIDParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: invalid request body", errBadRequest))
		return
	}
	if req.PriceID == "" || !req.Plan.Valid() {
		respondError(w, fmt.Errorf("%w: price_id and a valid plan are required", errBadRequest))
		return
	}

	t, err := m.deps.Tenants.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	link, err := m.deps.Checkout.CreateCheckoutLink(r.Context(), payment.CheckoutRequest{
		PriceID:    req.PriceID,
		TenantID:   t.ID,
		Plan:       req.Plan,
		Email:      t.BillingEmail,
		SuccessURL: req.SuccessURL,
	})
	if err != nil {
		m.logger.Error("failed to create checkout link", "error", err, "tenant_id", t.ID.String())
		respondError(w, err)
		return
	}

	respondData(w, "checkout", link)
}

func (m *Module) handleRequestExport(w http.ResponseWriter, r *http.Request) {
	if m.deps.Exports == nil {
		respondError(w, fmt.Errorf("%w: exports are not enabled", errNotImplemented))
		return
	}

	id, err := tenantIDParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	p, _ := tenant.PrincipalFromContext(r.Context())

	if m.deps.Limits != nil {
		if err := m.deps.Limits.CanCreate(r.Context(), p, limits.ResourceExports); err != nil {
			respondError(w, err)
			return
		}
	}

	e, err := m.deps.Exports.Request(r.Context(), id, p.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	respond(w, http.StatusAccepted, jsonResponse{Code: "export_requested", Data: e})
}

func (m *Module) handleGetExport(w http.ResponseWriter, r *http.Request) {
	if m.deps.ExportStore == nil {
		respondError(w, fmt.Errorf("%w: exports are not enabled", errNotImplemented))
		return
	}

	tenantID, err := tenantIDParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	exportID, err := uuid.Parse(chi.URLParam(r, "export_id"))
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid export id", errBadRequest))
		return
	}

	e, err := m.deps.ExportStore.Get(r.Context(), exportID)
	if err != nil {
		respondError(w, err)
		return
	}

	// An export belonging to another tenant does not exist as far as
	// this tenant is concerned.
	if e.TenantID != tenantID {
		respondError(w, export.ErrExportNotFound)
		return
	}

	respondData(w, "export", e)
}
