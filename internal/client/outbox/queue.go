package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Sender delivers a batch of actions to the server. A nil error means the
// server acknowledged the whole batch.
type Sender interface {
	Send(ctx context.Context, actions []Action) error
}

// FlushOutcome reports what a single flush attempt did.
type FlushOutcome struct {
	// Cleared is the number of actions acknowledged and removed.
	Cleared int
	// Deferred is true when delivery failed and the queue was left intact.
	Deferred bool
}

// Queue couples the durable store with a sender. Flushes are
// all-or-nothing: either the whole batch is acknowledged and cleared, or
// nothing is removed and the batch is retried later.
type Queue struct {
	store  *Store
	sender Sender
	log    zerolog.Logger

	inFlight atomic.Bool
	notify   chan struct{}
}

func NewQueue(store *Store, sender Sender, log zerolog.Logger) *Queue {
	return &Queue{
		store:  store,
		sender: sender,
		log:    log.With().Str("component", "outbox").Logger(),
		notify: make(chan struct{}, 1),
	}
}

// Enqueue records an action locally. It always succeeds while the local
// disk does, regardless of connectivity.
func (q *Queue) Enqueue(ctx context.Context, payload []byte) (int64, error) {
	return q.store.Enqueue(ctx, payload)
}

// Pending returns the queued actions in order.
func (q *Queue) Pending(ctx context.Context) ([]Action, error) {
	return q.store.All(ctx)
}

// Notify signals connectivity regained. It never blocks; overlapping
// signals collapse into one pending flush.
func (q *Queue) Notify() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Flush attempts one delivery of everything currently queued. If a flush
// is already in flight it returns immediately with a deferred outcome.
func (q *Queue) Flush(ctx context.Context) (FlushOutcome, error) {
	if !q.inFlight.CompareAndSwap(false, true) {
		return FlushOutcome{Deferred: true}, nil
	}
	defer q.inFlight.Store(false)

	actions, err := q.store.All(ctx)
	if err != nil {
		return FlushOutcome{Deferred: true}, err
	}
	if len(actions) == 0 {
		return FlushOutcome{}, nil
	}

	if err := q.sender.Send(ctx, actions); err != nil {
		q.log.Warn().Err(err).Int("queued", len(actions)).Msg("flush deferred")
		return FlushOutcome{Deferred: true}, nil
	}

	lastID := actions[len(actions)-1].ID
	if err := q.store.Clear(ctx, lastID); err != nil {
		// Delivered but not cleared: the next flush resends the batch and
		// relies on server-side idempotency.
		return FlushOutcome{Cleared: len(actions)}, err
	}

	q.log.Info().Int("cleared", len(actions)).Msg("outbox flushed")
	return FlushOutcome{Cleared: len(actions)}, nil
}

// Run flushes whenever Notify fires, until the context is cancelled.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.notify:
			if _, err := q.Flush(ctx); err != nil {
				q.log.Error().Err(err).Msg("outbox flush failed")
			}
		}
	}
}

// HTTPSender posts the batch to the server's sync endpoint.
type HTTPSender struct {
	BaseURL  string
	UserID   string
	CoupleID string
	Client   *http.Client
}

type syncRequest struct {
	Actions []syncAction `json:"actions"`
}

type syncAction struct {
	ID      int64           `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

func (h *HTTPSender) Send(ctx context.Context, actions []Action) error {
	body := syncRequest{Actions: make([]syncAction, 0, len(actions))}
	for _, a := range actions {
		body.Actions = append(body.Actions, syncAction{ID: a.ID, Payload: a.Payload})
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal sync batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/v1/sync", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", h.UserID)
	req.Header.Set("X-Couple-ID", h.CoupleID)

	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post sync batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sync batch rejected: status %d", resp.StatusCode)
	}
	return nil
}
