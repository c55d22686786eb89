package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/google/uuid"

	"github.com/fieldvine/billing/pkg/subscription"
)

// PaddleConfig holds configuration for the Paddle gateway.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleGateway implements Gateway for Paddle Billing.
type PaddleGateway struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

// NewPaddleGateway creates a Paddle gateway from config.
func NewPaddleGateway(config PaddleConfig) (*PaddleGateway, error) {
	if config.APIKey == "" {
		return nil, errors.New("paddle API key is required")
	}
	if config.WebhookSecret == "" {
		return nil, errors.New("paddle webhook secret is required")
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", config.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleGateway{
		client:   client,
		verifier: paddle.NewWebhookVerifier(config.WebhookSecret),
	}, nil
}

// ParseWebhook implements Gateway.
func (g *PaddleGateway) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	// The SDK verifier consumes an http.Request, so wrap the raw body
	// back into one.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := g.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrSignatureInvalid, err)
	}
	if !valid {
		return nil, ErrSignatureInvalid
	}

	var envelope struct {
		EventID    string          `json:"event_id"`
		EventType  string          `json:"event_type"`
		OccurredAt string          `json:"occurred_at"`
		Data       paddleEventData `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}
	if envelope.EventID == "" {
		return nil, errors.New("webhook payload has no event_id")
	}

	event := &Event{
		ID:               envelope.EventID,
		Type:             mapPaddleEventType(envelope.EventType),
		GatewayPaymentID: envelope.Data.ID,
		Currency:         envelope.Data.Details.Totals.CurrencyCode,
	}

	if t, err := time.Parse(time.RFC3339, envelope.OccurredAt); err == nil {
		event.OccurredAt = t
	}

	if total := envelope.Data.Details.Totals.Total; total != "" {
		if amount, err := strconv.ParseInt(total, 10, 64); err == nil {
			event.Amount = amount
		}
	}

	// Tenant and plan ride in custom data set at checkout creation.
	if raw := envelope.Data.CustomData["tenant_id"]; raw != nil {
		if s, ok := raw.(string); ok {
			if id, err := uuid.Parse(s); err == nil {
				event.TenantID = id
			}
		}
	}
	if raw := envelope.Data.CustomData["plan"]; raw != nil {
		if s, ok := raw.(string); ok {
			event.Plan = subscription.PlanID(s)
		}
	}

	return event, nil
}

type paddleEventData struct {
	ID         string         `json:"id"`
	CustomData map[string]any `json:"custom_data"`
	Details    struct {
		Totals struct {
			Total        string `json:"total"`
			CurrencyCode string `json:"currency_code"`
		} `json:"totals"`
	} `json:"details"`
}

func mapPaddleEventType(s string) EventType {
	switch s {
	case "transaction.completed", "transaction.payment_succeeded":
		return EventPaymentSucceeded
	case "transaction.payment_failed":
		return EventPaymentFailed
	case "adjustment.created":
		return EventChargeRefunded
	case "invoice.paid":
		return EventInvoiceSucceeded
	case "invoice.payment_failed":
		return EventInvoiceFailed
	default:
		// Preserved verbatim so the ledger records exactly what the
		// gateway sent.
		return EventType(s)
	}
}

// CheckoutRequest describes a hosted checkout session to create.
type CheckoutRequest struct {
	PriceID    string
	TenantID   uuid.UUID
	Plan       subscription.PlanID
	Email      string
	SuccessURL string
}

// CheckoutLink is a hosted checkout session returned by the gateway.
type CheckoutLink struct {
	URL           string    `json:"url"`
	TransactionID string    `json:"transaction_id"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// CreateCheckoutLink creates a hosted checkout session. The tenant id
// and plan are attached as custom data so the resulting webhook events
// can be routed back to the tenant.
func (g *PaddleGateway) CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	if req.PriceID == "" {
		return nil, errors.New("price ID is required")
	}
	if req.TenantID == uuid.Nil {
		return nil, errors.New("tenant ID is required")
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	txReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"tenant_id": req.TenantID.String(),
			"plan":      string(req.Plan),
		},
	}
	if req.Email != "" {
		txReq.CustomData["email"] = req.Email
	}
	if req.SuccessURL != "" {
		txReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	tx, err := g.client.TransactionsClient.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle transaction: %w", err)
	}
	if tx.Checkout == nil || tx.Checkout.URL == nil {
		return nil, errors.New("no checkout URL returned from paddle")
	}

	return &CheckoutLink{
		URL:           *tx.Checkout.URL,
		TransactionID: tx.ID,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
	}, nil
}
