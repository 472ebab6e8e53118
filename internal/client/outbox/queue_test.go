package outbox

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type mockSender struct {
	sendFunc func(ctx context.Context, actions []Action) error

	mu    sync.Mutex
	calls [][]Action
}

func (m *mockSender) Send(ctx context.Context, actions []Action) error {
	m.mu.Lock()
	m.calls = append(m.calls, actions)
	m.mu.Unlock()
	if m.sendFunc != nil {
		return m.sendFunc(ctx, actions)
	}
	return nil
}

func newTestQueue(t *testing.T, sender Sender) (*Queue, *Store) {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "outbox.db"))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewQueue(store, sender, zerolog.Nop()), store
}

func TestEnqueueSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "outbox.db")
	ctx := context.Background()

	store, err := OpenStore(dbPath)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	if _, err := store.Enqueue(ctx, []byte(`{"type":"favorite"}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if _, err := store.Enqueue(ctx, []byte(`{"type":"delete"}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	store.Close()

	reopened, err := OpenStore(dbPath)
	if err != nil {
		t.Fatalf("OpenStore() reopen error = %v", err)
	}
	defer reopened.Close()

	actions, err := reopened.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions after reopen, got %d", len(actions))
	}
	if actions[0].ID >= actions[1].ID {
		t.Errorf("expected enqueue order, got ids %d, %d", actions[0].ID, actions[1].ID)
	}
}

func TestFlushClearsOnAck(t *testing.T) {
	sender := &mockSender{}
	q, _ := newTestQueue(t, sender)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := q.Enqueue(ctx, []byte(`{"type":"favorite"}`)); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	outcome, err := q.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if outcome.Deferred {
		t.Error("expected flush not deferred")
	}
	if outcome.Cleared != 3 {
		t.Errorf("expected 3 cleared, got %d", outcome.Cleared)
	}

	pending, err := q.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected empty queue after ack, got %d", len(pending))
	}
}

func TestFlushKeepsQueueOnFailure(t *testing.T) {
	sender := &mockSender{
		sendFunc: func(ctx context.Context, actions []Action) error {
			return errors.New("connection refused")
		},
	}
	q, _ := newTestQueue(t, sender)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, []byte(`{"type":"delete"}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	outcome, err := q.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if !outcome.Deferred {
		t.Error("expected deferred outcome on send failure")
	}

	pending, err := q.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected queue intact after failed flush, got %d actions", len(pending))
	}
}

func TestFlushRetryAfterReconnect(t *testing.T) {
	fail := true
	sender := &mockSender{
		sendFunc: func(ctx context.Context, actions []Action) error {
			if fail {
				return errors.New("offline")
			}
			return nil
		},
	}
	q, _ := newTestQueue(t, sender)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, []byte(`{"type":"favorite"}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if outcome, _ := q.Flush(ctx); !outcome.Deferred {
		t.Fatal("expected first flush to defer")
	}

	fail = false
	outcome, err := q.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if outcome.Cleared != 1 {
		t.Errorf("expected 1 cleared on retry, got %d", outcome.Cleared)
	}
	if len(sender.calls) != 2 {
		t.Errorf("expected 2 delivery attempts, got %d", len(sender.calls))
	}
}

func TestFlushSnapshotLeavesLaterActions(t *testing.T) {
	q, store := newTestQueue(t, nil)
	ctx := context.Background()

	var lateID int64
	sender := &mockSender{
		sendFunc: func(ctx context.Context, actions []Action) error {
			// An action enqueued mid-flight must survive the clear.
			id, err := store.Enqueue(ctx, []byte(`{"type":"late"}`))
			if err != nil {
				return err
			}
			lateID = id
			return nil
		},
	}
	q.sender = sender

	if _, err := q.Enqueue(ctx, []byte(`{"type":"early"}`)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	outcome, err := q.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if outcome.Cleared != 1 {
		t.Errorf("expected 1 cleared, got %d", outcome.Cleared)
	}

	pending, err := q.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != lateID {
		t.Fatalf("expected the late action to survive, got %+v", pending)
	}
}

func TestFlushEmptyQueueIsNoop(t *testing.T) {
	sender := &mockSender{}
	q, _ := newTestQueue(t, sender)

	outcome, err := q.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if outcome.Cleared != 0 || outcome.Deferred {
		t.Errorf("expected empty noop outcome, got %+v", outcome)
	}
	if len(sender.calls) != 0 {
		t.Errorf("expected no delivery for empty queue, got %d", len(sender.calls))
	}
}
