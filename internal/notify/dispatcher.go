package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
)

// Dispatcher enqueues notification jobs after the originating transaction has
// committed. Enqueue failures are logged and swallowed: a lost notification
// must never fail or roll back a state transition.
type Dispatcher struct {
	client *river.Client[pgx.Tx]
	logger *slog.Logger
}

func NewDispatcher(client *river.Client[pgx.Tx], logger *slog.Logger) *Dispatcher {
	return &Dispatcher{client: client, logger: logger}
}

func (d *Dispatcher) Notify(ctx context.Context, userID uuid.UUID, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("marshal notification payload", "event", event, "error", err)
		return
	}
	_, err = d.client.Insert(ctx, NotificationJobArgs{
		UserID:  userID,
		Event:   event,
		Payload: raw,
	}, nil)
	if err != nil {
		d.logger.Error("enqueue notification", "event", event, "user_id", userID, "error", err)
	}
}
