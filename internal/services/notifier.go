package services

import (
	"context"

	"github.com/google/uuid"
)

// Notifier queues a "notify user of event" call for the external dispatcher.
// Implementations are fire-and-forget: enqueue failures are logged by the
// implementation and must never fail the state transition that raised them.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, payload any)
}
