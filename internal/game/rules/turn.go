package rules

import "fmt"

// TurnManager tracks round-robin turn order over the seated players.
// A player whose layout is full drops out of the rotation while the
// rest keep acting, and a round ends once every player still in the
// rotation has acted in it.
type TurnManager struct {
	order    []string
	index    int
	round    int
	placed   map[string]bool
	complete map[string]bool
}

// NewTurnManager seats the players in the given order, starting at
// round 1 with the first seat active.
func NewTurnManager(order []string) (*TurnManager, error) {
	if len(order) < 2 {
		return nil, fmt.Errorf("turn order needs at least 2 players, got %d", len(order))
	}
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if id == "" {
			return nil, fmt.Errorf("empty player id in turn order")
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate player id %q in turn order", id)
		}
		seen[id] = true
	}

	seats := make([]string, len(order))
	copy(seats, order)
	return &TurnManager{
		order:    seats,
		round:    1,
		placed:   make(map[string]bool, len(order)),
		complete: make(map[string]bool, len(order)),
	}, nil
}

// ActivePlayer returns the player whose turn it is, or "" once every
// layout is complete.
func (tm *TurnManager) ActivePlayer() string {
	idx := tm.index
	for range tm.order {
		if id := tm.order[idx]; !tm.complete[id] {
			return id
		}
		idx = (idx + 1) % len(tm.order)
	}
	return ""
}

// Advance moves the turn to the next player still building a layout
// and returns that player's id, or "" when no such player remains.
func (tm *TurnManager) Advance() string {
	for range tm.order {
		tm.index = (tm.index + 1) % len(tm.order)
		if id := tm.order[tm.index]; !tm.complete[id] {
			return id
		}
	}
	return ""
}

// MarkPlaced records that the player has acted this round.
func (tm *TurnManager) MarkPlaced(playerID string) {
	tm.placed[playerID] = true
}

// HasPlaced reports whether the player has acted this round.
func (tm *TurnManager) HasPlaced(playerID string) bool {
	return tm.placed[playerID]
}

// MarkComplete removes the player from the rotation.
func (tm *TurnManager) MarkComplete(playerID string) {
	tm.complete[playerID] = true
}

// IsComplete reports whether the player has left the rotation.
func (tm *TurnManager) IsComplete(playerID string) bool {
	return tm.complete[playerID]
}

// RoundComplete reports whether every player still in the rotation has
// acted this round.
func (tm *TurnManager) RoundComplete() bool {
	for _, id := range tm.order {
		if tm.complete[id] {
			continue
		}
		if !tm.placed[id] {
			return false
		}
	}
	return true
}

// AllComplete reports whether every seated player has a full layout.
func (tm *TurnManager) AllComplete() bool {
	for _, id := range tm.order {
		if !tm.complete[id] {
			return false
		}
	}
	return true
}

// BeginRound clears the acted flags and returns the new round number.
func (tm *TurnManager) BeginRound() int {
	tm.round++
	tm.placed = make(map[string]bool, len(tm.order))
	return tm.round
}

// Round returns the current round number (1-based).
func (tm *TurnManager) Round() int {
	return tm.round
}

// Order returns a copy of the seating order.
func (tm *TurnManager) Order() []string {
	out := make([]string, len(tm.order))
	copy(out, tm.order)
	return out
}
