package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fieldvine/billing/pkg/email"
	"github.com/fieldvine/billing/pkg/queue"
)

// SendEmailPayload is the queue payload for one email delivery. It
// carries only the record id; everything else lives on the record.
type SendEmailPayload struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

// NewSendEmailHandler returns the queue handler delivering email
// notifications. A record already in a terminal state is skipped, so
// re-enqueued or duplicated jobs never send twice. Provider errors are
// returned to the queue for backoff retry.
func NewSendEmailHandler(store Store, sender email.EmailSender, logger *slog.Logger) queue.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return queue.NewJobHandler(func(ctx context.Context, p SendEmailPayload) error {
		n, err := store.Get(ctx, p.NotificationID)
		if err != nil {
			return err
		}

		if n.Status.Terminal() {
			logger.Info("notification already delivered, skipping",
				slog.String("notification_id", n.ID.String()),
				slog.String("kind", string(n.Kind)))
			return nil
		}

		if err := sender.SendEmail(ctx, email.SendEmailParams{
			SendTo:   n.Recipient,
			Subject:  n.Subject,
			BodyHTML: n.BodyHTML,
			Tag:      string(n.Kind),
		}); err != nil {
			if markErr := store.MarkFailed(ctx, n.ID, err.Error(), nowUTC()); markErr != nil {
				logger.Error("failed to record delivery failure",
					slog.String("notification_id", n.ID.String()),
					slog.String("error", markErr.Error()))
			}
			return err
		}

		return store.MarkSent(ctx, n.ID, nowUTC())
	})
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
