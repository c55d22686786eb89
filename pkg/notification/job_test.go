package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldvine/billing/pkg/email"
	"github.com/fieldvine/billing/pkg/notification"
	"github.com/fieldvine/billing/pkg/queue"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []email.SendEmailParams
	fail error
}

func (f *fakeSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, params)
	return nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func seedRecord(t *testing.T, store notification.Store, status notification.Status) *notification.EmailNotification {
	t.Helper()

	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	rec, created, err := store.CreateIfAbsent(context.Background(), &notification.EmailNotification{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		Kind:      notification.KindPaymentFailed,
		Recipient: "billing@acme.test",
		Subject:   "Payment failed",
		BodyHTML:  "<p>body</p>",
		DedupeKey: uuid.NewString(),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	require.True(t, created)
	return rec
}

func handlePayload(t *testing.T, h queue.Handler, id uuid.UUID) error {
	t.Helper()

	raw, err := json.Marshal(notification.SendEmailPayload{NotificationID: id})
	require.NoError(t, err)
	return h.Handle(context.Background(), raw)
}

func TestSendEmailHandler_Delivers(t *testing.T) {
	t.Parallel()

	store := notification.NewMemoryStore()
	sender := &fakeSender{}
	rec := seedRecord(t, store, notification.StatusPending)

	h := notification.NewSendEmailHandler(store, sender, nil)
	require.NoError(t, handlePayload(t, h, rec.ID))

	require.Equal(t, 1, sender.sentCount())
	assert.Equal(t, "billing@acme.test", sender.sent[0].SendTo)
	assert.Equal(t, string(notification.KindPaymentFailed), sender.sent[0].Tag)

	got, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, got.Status)
	require.NotNil(t, got.SentAt)
}

func TestSendEmailHandler_SkipsTerminalRecord(t *testing.T) {
	t.Parallel()

	store := notification.NewMemoryStore()
	sender := &fakeSender{}
	rec := seedRecord(t, store, notification.StatusPending)
	require.NoError(t, store.MarkSent(context.Background(), rec.ID, time.Now().UTC()))

	h := notification.NewSendEmailHandler(store, sender, nil)
	require.NoError(t, handlePayload(t, h, rec.ID))

	assert.Zero(t, sender.sentCount())
}

func TestSendEmailHandler_ProviderFailureIsRetryable(t *testing.T) {
	t.Parallel()

	store := notification.NewMemoryStore()
	sendErr := errors.New("postmark: 406 inactive recipient")
	sender := &fakeSender{fail: sendErr}
	rec := seedRecord(t, store, notification.StatusPending)

	h := notification.NewSendEmailHandler(store, sender, nil)
	err := handlePayload(t, h, rec.ID)
	require.ErrorIs(t, err, sendErr)

	// Failed is not terminal: the queue retry can still deliver.
	got, getErr := store.Get(context.Background(), rec.ID)
	require.NoError(t, getErr)
	assert.Equal(t, notification.StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "inactive recipient")

	sender.fail = nil
	require.NoError(t, handlePayload(t, h, rec.ID))
	assert.Equal(t, 1, sender.sentCount())
}

func TestSendEmailHandler_UnknownRecord(t *testing.T) {
	t.Parallel()

	h := notification.NewSendEmailHandler(notification.NewMemoryStore(), &fakeSender{}, nil)
	err := handlePayload(t, h, uuid.New())
	require.ErrorIs(t, err, notification.ErrNotificationNotFound)
}
