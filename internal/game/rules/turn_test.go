package rules

import "testing"

func TestTurnManagerRoundRobin(t *testing.T) {
	tm, err := NewTurnManager([]string{"alice", "bob", "carol"})
	if err != nil {
		t.Fatalf("NewTurnManager: %v", err)
	}

	if tm.ActivePlayer() != "alice" {
		t.Fatalf("expected alice to act first, got %s", tm.ActivePlayer())
	}
	if tm.Round() != 1 {
		t.Fatalf("expected round 1, got %d", tm.Round())
	}

	// After every player acts once, the turn returns to the first seat.
	for _, want := range []string{"bob", "carol", "alice"} {
		tm.MarkPlaced(tm.ActivePlayer())
		if got := tm.Advance(); got != want {
			t.Fatalf("expected %s after advance, got %s", want, got)
		}
	}
}

func TestTurnManagerRoundCompletion(t *testing.T) {
	tm, err := NewTurnManager([]string{"alice", "bob"})
	if err != nil {
		t.Fatalf("NewTurnManager: %v", err)
	}

	if tm.RoundComplete() {
		t.Fatal("round must not be complete before anyone acts")
	}

	tm.MarkPlaced("alice")
	if tm.RoundComplete() {
		t.Fatal("round must not be complete while bob has not acted")
	}

	tm.MarkPlaced("bob")
	if !tm.RoundComplete() {
		t.Fatal("round must be complete once both players acted")
	}

	if got := tm.BeginRound(); got != 2 {
		t.Fatalf("expected round 2, got %d", got)
	}
	if tm.RoundComplete() {
		t.Fatal("new round must start with no one having acted")
	}
	if tm.HasPlaced("alice") {
		t.Fatal("acted flags must reset at round start")
	}
}

func TestTurnManagerSkipsCompletePlayers(t *testing.T) {
	tm, err := NewTurnManager([]string{"alice", "bob", "carol"})
	if err != nil {
		t.Fatalf("NewTurnManager: %v", err)
	}

	tm.MarkComplete("bob")

	tm.MarkPlaced("alice")
	if got := tm.Advance(); got != "carol" {
		t.Fatalf("expected carol after alice, got %s", got)
	}

	tm.MarkPlaced("carol")
	if !tm.RoundComplete() {
		t.Fatal("round must complete without bob once his layout is full")
	}

	tm.MarkComplete("alice")
	tm.MarkComplete("carol")
	if !tm.AllComplete() {
		t.Fatal("expected all players complete")
	}
	if tm.ActivePlayer() != "" {
		t.Fatalf("expected no active player, got %s", tm.ActivePlayer())
	}
	if tm.Advance() != "" {
		t.Fatal("advance must return no player once everyone is complete")
	}
}

func TestTurnManagerLastPlayerKeepsActing(t *testing.T) {
	tm, err := NewTurnManager([]string{"alice", "bob"})
	if err != nil {
		t.Fatalf("NewTurnManager: %v", err)
	}

	tm.MarkComplete("alice")
	if tm.ActivePlayer() != "bob" {
		t.Fatalf("expected bob active, got %s", tm.ActivePlayer())
	}
	if got := tm.Advance(); got != "bob" {
		t.Fatalf("expected advance to stay on bob, got %s", got)
	}
}

func TestNewTurnManagerValidation(t *testing.T) {
	if _, err := NewTurnManager([]string{"alice"}); err == nil {
		t.Error("expected error for a single player")
	}
	if _, err := NewTurnManager([]string{"alice", "alice"}); err == nil {
		t.Error("expected error for duplicate ids")
	}
	if _, err := NewTurnManager([]string{"alice", ""}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestTurnManagerOrderIsCopied(t *testing.T) {
	seats := []string{"alice", "bob"}
	tm, err := NewTurnManager(seats)
	if err != nil {
		t.Fatalf("NewTurnManager: %v", err)
	}

	seats[0] = "mallory"
	if tm.ActivePlayer() != "alice" {
		t.Fatal("turn order must not alias the caller's slice")
	}

	order := tm.Order()
	order[0] = "mallory"
	if tm.ActivePlayer() != "alice" {
		t.Fatal("Order must return a copy")
	}
}
