package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"challengehub/pkg/domain"
	"challengehub/pkg/store"
)

type captureSink struct {
	events []domain.OutboxEvent
	err    error
}

func (s *captureSink) Publish(_ context.Context, event domain.OutboxEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func seedEvent(t *testing.T, mem *store.MemoryStore, id string, recipients []uint) domain.OutboxEvent {
	t.Helper()
	event := domain.OutboxEvent{
		ID:           id,
		RecipientIDs: recipients,
		ActorID:      1,
		EntityType:   domain.EntityChallenge,
		EntityTitle:  "weekly reading",
		Action:       domain.ActionUpdated,
		CreatedAt:    time.Now().UTC(),
	}
	if err := mem.SaveOutboxEvent(&event); err != nil {
		t.Fatalf("seed outbox event: %v", err)
	}
	return event
}

func TestDrainOnceMaterializesPerRecipient(t *testing.T) {
	mem := store.NewMemoryStore()
	sink := &captureSink{}
	d := NewDispatcher(mem, sink, nil)
	seedEvent(t, mem, "evt-1", []uint{2, 3})

	dispatched, err := d.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if dispatched != 1 {
		t.Fatalf("dispatched = %d, want 1", dispatched)
	}
	if len(sink.events) != 1 || sink.events[0].ID != "evt-1" {
		t.Fatalf("sink saw %v", sink.events)
	}

	for _, recipientID := range []uint{2, 3} {
		list, err := mem.ListNotificationsByRecipient(recipientID)
		if err != nil {
			t.Fatalf("list notifications: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("recipient %d has %d notifications, want 1", recipientID, len(list))
		}
		if list[0].EntityTitle != "weekly reading" || list[0].ActorID != 1 {
			t.Fatalf("unexpected notification: %+v", list[0])
		}
	}

	pending, err := mem.ListPendingOutbox(10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("event still pending after drain")
	}
}

func TestDrainOnceRetriesAfterSinkFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	sink := &captureSink{err: errors.New("broker down")}
	d := NewDispatcher(mem, sink, nil)
	seedEvent(t, mem, "evt-1", []uint{7})

	dispatched, err := d.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if dispatched != 0 {
		t.Fatalf("dispatched = %d with failing sink", dispatched)
	}
	pending, err := mem.ListPendingOutbox(10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("event dropped despite sink failure")
	}
	list, err := mem.ListNotificationsByRecipient(7)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("notifications written before publish succeeded")
	}

	// Broker recovers; the same event is delivered on the next pass.
	sink.err = nil
	dispatched, err = d.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if dispatched != 1 {
		t.Fatalf("dispatched = %d after recovery, want 1", dispatched)
	}
	list, err = mem.ListNotificationsByRecipient(7)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("notification missing after recovery")
	}
}

func TestDrainOncePreservesInsertionOrder(t *testing.T) {
	mem := store.NewMemoryStore()
	sink := &captureSink{}
	d := NewDispatcher(mem, sink, nil)
	seedEvent(t, mem, "evt-a", []uint{2})
	seedEvent(t, mem, "evt-b", []uint{2})
	seedEvent(t, mem, "evt-c", []uint{2})

	dispatched, err := d.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if dispatched != 3 {
		t.Fatalf("dispatched = %d, want 3", dispatched)
	}
	want := []string{"evt-a", "evt-b", "evt-c"}
	for i, event := range sink.events {
		if event.ID != want[i] {
			t.Fatalf("publish order %v, want %v", sink.events, want)
		}
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	mem := store.NewMemoryStore()
	d := NewDispatcher(mem, &captureSink{}, nil)
	d.SetInterval(time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("dispatcher did not stop")
	}
}
