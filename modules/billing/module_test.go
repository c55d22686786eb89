package billing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	moduleBilling "github.com/fieldvine/billing/modules/billing"
	"github.com/fieldvine/billing/pkg/export"
	"github.com/fieldvine/billing/pkg/ledger"
	"github.com/fieldvine/billing/pkg/limits"
	"github.com/fieldvine/billing/pkg/payment"
	"github.com/fieldvine/billing/pkg/queue"
	"github.com/fieldvine/billing/pkg/subscription"
	"github.com/fieldvine/billing/pkg/tenant"
)

// stubGateway maps signatures to canned events so webhook behavior can
// be tested without real envelopes.
type stubGateway struct {
	events map[string]*payment.Event
}

func (g *stubGateway) ParseWebhook(ctx context.Context, payload []byte, signature string) (*payment.Event, error) {
	event, ok := g.events[signature]
	if !ok {
		return nil, payment.ErrSignatureInvalid
	}
	return event, nil
}

type noopNotifier struct{}

func (noopNotifier) PaymentSucceeded(ctx context.Context, t *subscription.Tenant, p *payment.Payment) error {
	return nil
}

func (noopNotifier) PaymentFailed(ctx context.Context, t *subscription.Tenant, p *payment.Payment) error {
	return nil
}

type dropEnqueuer struct{}

func (dropEnqueuer) Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) error {
	return nil
}

type recordingEnqueuer struct {
	payloads []any
}

func (e *recordingEnqueuer) Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) error {
	e.payloads = append(e.payloads, payload)
	return nil
}

type fixture struct {
	module   *moduleBilling.Module
	router   http.Handler
	tenants  *subscription.MemoryStore
	exports  *export.MemoryStore
	gateway  *stubGateway
	enqueued *recordingEnqueuer
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	tenants := subscription.NewMemoryStore()

	sync, err := subscription.NewSynchronizer(tenants,
		subscription.WithSyncClock(func() time.Time { return now }))
	require.NoError(t, err)

	gateway := &stubGateway{events: make(map[string]*payment.Event)}
	processor, err := payment.NewProcessor(gateway, ledger.NewMemoryStore(),
		payment.NewMemoryStore(), tenants, tenants, sync, noopNotifier{},
		payment.WithProcessorClock(func() time.Time { return now }))
	require.NoError(t, err)

	exportStore := export.NewMemoryStore()
	exportSvc, err := export.NewService(exportStore, dropEnqueuer{},
		export.WithServiceClock(func() time.Time { return now }))
	require.NoError(t, err)

	counters := limits.NewRegistry()
	counters.Register(limits.ResourceUsers, func(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
		return 4, nil
	})
	counters.Register(limits.ResourceExports, exportStore.CountSince)
	enforcer, err := limits.NewEnforcer(context.Background(),
		limits.NewInMemSource(map[subscription.PlanID]limits.Plan{
			subscription.PlanPro: {
				ID:   subscription.PlanPro,
				Name: "Pro",
				Limits: map[limits.Resource]int64{
					limits.ResourceUsers:   10,
					limits.ResourceExports: 2,
				},
			},
		}),
		counters,
		func(ctx context.Context, tenantID uuid.UUID) (subscription.PlanID, subscription.Status, error) {
			t, err := tenants.Get(ctx, tenantID)
			if err != nil {
				return "", "", err
			}
			return t.Plan, t.Status, nil
		},
		limits.WithEnforcerClock(func() time.Time { return now }))
	require.NoError(t, err)

	enqueued := &recordingEnqueuer{}
	mod, err := moduleBilling.NewModule(moduleBilling.Deps{
		Processor:    processor,
		Tenants:      tenants,
		Limits:       enforcer,
		Synchronizer: sync,
		Enqueuer:     enqueued,
		Exports:      exportSvc,
		ExportStore:  exportStore,
	})
	require.NoError(t, err)

	return &fixture{
		module:   mod,
		router:   mod.Router(),
		tenants:  tenants,
		exports:  exportStore,
		gateway:  gateway,
		enqueued: enqueued,
		now:      now,
	}
}

func (f *fixture) seedTenant(plan subscription.PlanID, status subscription.Status) *subscription.Tenant {
	expires := f.now.Add(20 * 24 * time.Hour)
	t := &subscription.Tenant{
		ID:           uuid.New(),
		Name:         "Acme Plumbing",
		BillingEmail: "billing@acme.test",
		Plan:         plan,
		Active:       true,
		ExpiresAt:    &expires,
		Status:       status,
		CreatedAt:    f.now.Add(-90 * 24 * time.Hour),
		UpdatedAt:    f.now,
	}
	f.tenants.Put(t)
	return t
}

// do performs a request, optionally authenticated as the principal.
func (f *fixture) do(method, target string, body string, p *tenant.Principal) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if p != nil {
		req = req.WithContext(tenant.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_AcknowledgesValidEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tn := f.seedTenant(subscription.PlanPro, subscription.StatusActive)

	f.gateway.events["sig-ok"] = &payment.Event{
		ID:               "evt_1",
		Type:             payment.EventPaymentSucceeded,
		TenantID:         tn.ID,
		GatewayPaymentID: "txn_1",
		Plan:             subscription.PlanPro,
		Amount:           4900,
		Currency:         "USD",
		OccurredAt:       f.now,
	}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/paddle", strings.NewReader(`{"event_id":"evt_1"}`))
	req.Header.Set("Paddle-Signature", "sig-ok")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	got, err := f.tenants.Get(context.Background(), tn.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.After(*tn.ExpiresAt))
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/paddle", strings.NewReader(`{}`))
	req.Header.Set("Paddle-Signature", "sig-forged")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_signature")
}

func TestGetSubscription_RequiresPrincipal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tn := f.seedTenant(subscription.PlanPro, subscription.StatusActive)

	rec := f.do(http.MethodGet, "/tenants/"+tn.ID.String()+"/subscription", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetSubscription_RejectsCrossTenant(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tn := f.seedTenant(subscription.PlanPro, subscription.StatusActive)

	other := tenant.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: tenant.RoleOwner}
	rec := f.do(http.MethodGet, "/tenants/"+tn.ID.String()+"/subscription", "", &other)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetSubscription_ReturnsView(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tn := f.seedTenant(subscription.PlanPro, subscription.StatusActive)

	p := tenant.Principal{UserID: uuid.New(), TenantID: tn.ID, Role: tenant.RoleOwner}
	rec := f.do(http.MethodGet, "/tenants/"+tn.ID.String()+"/subscription", "", &p)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Plan   string `json:"plan"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "pro", body.Data.Plan)
	assert.Equal(t, "active", body.Data.Status)
}

func TestRequestExport_CreatesRecord(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tn := f.seedTenant(subscription.PlanPro, subscription.StatusActive)

	p := tenant.Principal{UserID: uuid.New(), TenantID: tn.ID, Role: tenant.RoleOwner}
	rec := f.do(http.MethodPost, "/tenants/"+tn.ID.String()+"/exports", "", &p)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body struct {
		Data export.DataExport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, tn.ID, body.Data.TenantID)
	assert.Equal(t, p.UserID, body.Data.RequestedBy)
	assert.Equal(t, export.StatusPending, body.Data.Status)
}

func TestRequestExport_EnforcesMonthlyQuota(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tn := f.seedTenant(subscription.PlanPro, subscription.StatusActive)

	p := tenant.Principal{UserID: uuid.New(), TenantID: tn.ID, Role: tenant.RoleOwner}
	for range 2 {
		rec := f.do(http.MethodPost, "/tenants/"+tn.ID.String()+"/exports", "", &p)
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	// Third request in the same month hits the plan cap.
	rec := f.do(http.MethodPost, "/tenants/"+tn.ID.String()+"/exports", "", &p)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "quota_exceeded")
}

func TestGetExport_HidesOtherTenants(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tn := f.seedTenant(subscription.PlanPro, subscription.StatusActive)

	otherExport := &export.DataExport{ID: uuid.New(), TenantID: uuid.New(), Status: export.StatusCompleted}
	require.NoError(t, f.exports.Create(context.Background(), otherExport))

	// Super admin passes the guard for any tenant path, but the export
	// still belongs to someone else.
	admin := tenant.Principal{UserID: uuid.New(), SuperAdmin: true}
	rec := f.do(http.MethodGet, "/tenants/"+tn.ID.String()+"/exports/"+otherExport.ID.String(), "", &admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetLimits_ReportsUsage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tn := f.seedTenant(subscription.PlanPro, subscription.StatusActive)

	p := tenant.Principal{UserID: uuid.New(), TenantID: tn.ID, Role: tenant.RoleOwner}
	rec := f.do(http.MethodGet, "/tenants/"+tn.ID.String()+"/limits", "", &p)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[limits.Resource]limits.UsageInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, limits.UsageInfo{Current: 4, Limit: 10}, body.Data[limits.ResourceUsers])
}

func TestAdminSync_RequiresSuperAdmin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTenant(subscription.PlanPro, subscription.StatusActive)

	rec := f.do(http.MethodPost, "/admin/sync", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	p := tenant.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: tenant.RoleOwner}
	rec = f.do(http.MethodPost, "/admin/sync", "", &p)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminSync_RunsSynchronizer(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	// Seeded as ACTIVE but expired 10 days ago, so the sweep must
	// correct it to SUSPENDED.
	tn := f.seedTenant(subscription.PlanPro, subscription.StatusActive)
	lapsed := f.now.Add(-10 * 24 * time.Hour)
	_, err := f.tenants.Update(context.Background(), tn.ID, subscription.TenantPatch{
		ExpiresAt: subscription.Some(&lapsed),
	})
	require.NoError(t, err)

	admin := tenant.Principal{UserID: uuid.New(), SuperAdmin: true}
	rec := f.do(http.MethodPost, "/admin/sync", "", &admin)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data subscription.SyncResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Total)
	assert.Equal(t, 1, body.Data.Updated)

	got, err := f.tenants.Get(context.Background(), tn.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusSuspended, got.Status)
}

func TestAdminDeleteTenant_SoftDeletesAndSchedulesPurge(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tn := f.seedTenant(subscription.PlanPro, subscription.StatusActive)

	admin := tenant.Principal{UserID: uuid.New(), SuperAdmin: true}
	rec := f.do(http.MethodDelete, "/admin/tenants/"+tn.ID.String(), "", &admin)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := f.tenants.Get(context.Background(), tn.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DeletedAt)
	assert.Equal(t, subscription.StatusDeleted, got.Recalculate(f.now))

	require.Len(t, f.enqueued.payloads, 1)
	purge, ok := f.enqueued.payloads[0].(moduleBilling.PurgeTenantPayload)
	require.True(t, ok)
	assert.Equal(t, tn.ID, purge.TenantID)
}

func TestAdmin_DisabledFeature(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	admin := tenant.Principal{UserID: uuid.New(), SuperAdmin: true}

	// No sweeper wired in this fixture.
	rec := f.do(http.MethodPost, "/admin/sweeps/renewal-reminders", "", &admin)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
