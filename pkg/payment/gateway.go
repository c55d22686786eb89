package payment

import "context"

// Gateway abstracts the external payment provider's webhook surface.
type Gateway interface {
	// ParseWebhook verifies the raw envelope against the signature and
	// returns the normalized event. Verification fails closed: on any
	// signature problem the error wraps ErrSignatureInvalid and no
	// event is returned.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}
