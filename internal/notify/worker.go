package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

type NotificationJobArgs struct {
	UserID  uuid.UUID       `json:"user_id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func (NotificationJobArgs) Kind() string { return "notification" }

// NotificationWorker delivers queued notifications to the messaging gateway.
// A non-2xx response or network error returns an error so river retries the
// delivery with its default backoff.
type NotificationWorker struct {
	river.WorkerDefaults[NotificationJobArgs]
	gatewayURL string
	httpClient *http.Client
}

func NewNotificationWorker(gatewayURL string) *NotificationWorker {
	return &NotificationWorker{
		gatewayURL: gatewayURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *NotificationWorker) Work(ctx context.Context, job *river.Job[NotificationJobArgs]) error {
	args := job.Args

	body, err := json.Marshal(map[string]any{
		"user_id": args.UserID,
		"event":   args.Event,
		"payload": args.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error calling messaging gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("messaging gateway returned status %d", resp.StatusCode)
	}
	return nil
}
