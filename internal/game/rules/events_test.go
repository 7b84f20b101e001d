package rules

import (
	"testing"
	"time"
)

func TestEventBusSubscribeTyped(t *testing.T) {
	bus := NewEventBus()

	placedCount := 0
	fouledCount := 0

	handle1 := bus.SubscribeTyped(EventCardPlaced, func(e Event) {
		placedCount++
	})

	handle2 := bus.SubscribeTyped(EventPlayerFouled, func(e Event) {
		fouledCount++
	})

	bus.Publish(NewCardEvent(EventCardPlaced, "game1", "player1", "As", "TOP"))
	if placedCount != 1 {
		t.Fatalf("expected placed count 1, got %d", placedCount)
	}
	if fouledCount != 0 {
		t.Fatalf("expected fouled count 0, got %d", fouledCount)
	}

	bus.Publish(NewEvent(EventPlayerFouled, "game1", "player1"))
	if placedCount != 1 {
		t.Fatalf("expected placed count still 1, got %d", placedCount)
	}
	if fouledCount != 1 {
		t.Fatalf("expected fouled count 1, got %d", fouledCount)
	}

	// Unsubscribe the placement listener
	bus.Unsubscribe(handle1)

	bus.Publish(NewCardEvent(EventCardPlaced, "game1", "player2", "Kd", "BOTTOM"))
	if placedCount != 1 {
		t.Fatalf("expected placed count still 1 after unsubscribe, got %d", placedCount)
	}

	// The foul listener should still fire
	bus.Publish(NewEvent(EventPlayerFouled, "game1", "player2"))
	if fouledCount != 2 {
		t.Fatalf("expected fouled count 2, got %d", fouledCount)
	}

	bus.Unsubscribe(handle2)

	bus.Publish(NewEvent(EventPlayerFouled, "game1", "player1"))
	if fouledCount != 2 {
		t.Fatalf("expected fouled count still 2 after unsubscribe, got %d", fouledCount)
	}
}

func TestEventBusSubscribeAll(t *testing.T) {
	bus := NewEventBus()

	allEventCount := 0
	handle := bus.Subscribe(func(e Event) {
		allEventCount++
	})

	bus.Publish(NewEvent(EventGameStarted, "game1", ""))
	bus.Publish(NewCardEvent(EventCardPlaced, "game1", "player1", "As", "TOP"))
	bus.Publish(NewEvent(EventRoundCompleted, "game1", ""))

	if allEventCount != 3 {
		t.Fatalf("expected all event count 3, got %d", allEventCount)
	}

	bus.Unsubscribe(handle)

	bus.Publish(NewEvent(EventGameCompleted, "game1", ""))
	if allEventCount != 3 {
		t.Fatalf("expected all event count still 3 after unsubscribe, got %d", allEventCount)
	}
}

func TestEventFields(t *testing.T) {
	evt := NewEventWithAmount(EventScoresSettled, "game1", "player1", 12)
	evt.Round = 9
	evt.Data = "scoop"
	evt.Metadata["opponent"] = "player2"
	evt.Description = "Player scoops for 12 points"

	if evt.Type != EventScoresSettled {
		t.Fatalf("expected type EventScoresSettled, got %s", evt.Type)
	}
	if evt.Amount != 12 {
		t.Fatalf("expected amount 12, got %d", evt.Amount)
	}
	if evt.Round != 9 {
		t.Fatalf("expected round 9, got %d", evt.Round)
	}
	if evt.Metadata["opponent"] != "player2" {
		t.Fatalf("expected opponent metadata, got %s", evt.Metadata["opponent"])
	}

	placed := NewCardEvent(EventCardPlaced, "game1", "player1", "As", "TOP")
	if placed.Card != "As" || placed.Row != "TOP" {
		t.Fatalf("expected card As in TOP, got %s in %s", placed.Card, placed.Row)
	}
}

func TestEventBusPublishBatch(t *testing.T) {
	bus := NewEventBus()

	count := 0
	bus.Subscribe(func(e Event) {
		count++
	})

	events := []Event{
		NewEvent(EventRoundStarted, "game1", ""),
		NewCardEvent(EventCardPlaced, "game1", "player1", "As", "TOP"),
		NewCardEvent(EventCardDiscarded, "game1", "player1", "2c", ""),
	}

	bus.PublishBatch(events)

	if count != 3 {
		t.Fatalf("expected count 3 after batch publish, got %d", count)
	}
}

func TestEventBusNilListener(t *testing.T) {
	bus := NewEventBus()

	if handle := bus.Subscribe(nil); handle != -1 {
		t.Fatalf("expected handle -1 for nil listener, got %d", handle)
	}
	if handle := bus.SubscribeTyped(EventCardPlaced, nil); handle != -1 {
		t.Fatalf("expected handle -1 for nil typed listener, got %d", handle)
	}
}

func TestEventTimestamp(t *testing.T) {
	before := time.Now()
	evt := NewEvent(EventGameStarted, "game1", "")
	after := time.Now()

	if evt.Timestamp.Before(before) || evt.Timestamp.After(after) {
		t.Fatal("event timestamp should be between before and after")
	}
}
