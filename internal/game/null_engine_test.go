package game_test

import (
	"fmt"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/openfacepoker/ofc-server-go/internal/game"
)

func TestNullEngineRecordsActions(t *testing.T) {
	engine := game.NewNullEngine(zaptest.NewLogger(t))

	if err := engine.StartGame("null-1", []game.Seat{{ID: "alice"}, {ID: "bob"}}, game.StandardRules()); err != nil {
		t.Fatalf("failed to start game: %v", err)
	}

	for i := 0; i < 3; i++ {
		err := engine.ProcessAction("null-1", game.PlayerAction{
			PlayerID:   "alice",
			ActionType: game.ActionPlaceCard,
			Data:       fmt.Sprintf("move-%d", i),
		})
		if err != nil {
			t.Fatalf("action %d failed: %v", i, err)
		}
	}

	actions := engine.Actions("null-1")
	if len(actions) != 3 {
		t.Fatalf("expected 3 recorded actions, got %d", len(actions))
	}
	if actions[0].Data != "move-0" || actions[2].Data != "move-2" {
		t.Fatalf("actions recorded out of order: %v", actions)
	}

	if err := engine.ProcessAction("missing", game.PlayerAction{PlayerID: "alice"}); err == nil {
		t.Fatalf("expected unknown game to fail")
	}
}

func TestNullEngineCapsRecordedActions(t *testing.T) {
	engine := game.NewNullEngine(nil)

	if err := engine.StartGame("null-cap", []game.Seat{{ID: "alice"}}, game.StandardRules()); err != nil {
		t.Fatalf("failed to start game: %v", err)
	}
	for i := 0; i < 205; i++ {
		if err := engine.ProcessAction("null-cap", game.PlayerAction{
			PlayerID: fmt.Sprintf("p%d", i),
		}); err != nil {
			t.Fatalf("action %d failed: %v", i, err)
		}
	}

	actions := engine.Actions("null-cap")
	if len(actions) != 200 {
		t.Fatalf("expected the action log to cap at 200, got %d", len(actions))
	}
	if actions[0].PlayerID != "p5" {
		t.Fatalf("expected oldest actions trimmed, first is %s", actions[0].PlayerID)
	}
}

func TestNullEngineSynthesizesView(t *testing.T) {
	engine := game.NewNullEngine(zaptest.NewLogger(t))

	if err := engine.StartGame("null-view", []game.Seat{{ID: "alice", Name: "Alice"}, {ID: "bob"}}, game.PineappleRules()); err != nil {
		t.Fatalf("failed to start game: %v", err)
	}

	view, err := engine.GameView("null-view", "alice")
	if err != nil {
		t.Fatalf("failed to get view: %v", err)
	}
	if view.Status != game.StatusInProgress {
		t.Fatalf("expected in-progress status, got %s", view.Status)
	}
	if len(view.Players) != 2 || view.Players[0].Name != "Alice" {
		t.Fatalf("roster not synthesized: %+v", view.Players)
	}

	if err := engine.CancelGame("null-view", "done"); err != nil {
		t.Fatalf("failed to cancel: %v", err)
	}
	view, err = engine.GameView("null-view", "")
	if err != nil {
		t.Fatalf("failed to get view after cancel: %v", err)
	}
	if view.Status != game.StatusCancelled {
		t.Fatalf("expected cancelled status, got %s", view.Status)
	}

	if _, err := engine.GameView("missing", ""); err == nil {
		t.Fatalf("expected unknown game view to fail")
	}
}
