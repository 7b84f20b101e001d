package deck

import (
	"math/rand"
	"testing"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	d := NewDeckWithRNG(rand.New(rand.NewSource(1)))

	if d.CardsRemaining() != 52 {
		t.Fatalf("new deck has %d cards, want 52", d.CardsRemaining())
	}

	seen := make(map[Card]bool)
	for {
		card, ok := d.Deal()
		if !ok {
			break
		}
		if seen[card] {
			t.Fatalf("duplicate card dealt: %v", card)
		}
		seen[card] = true
	}

	if len(seen) != 52 {
		t.Fatalf("dealt %d unique cards, want 52", len(seen))
	}
}

func TestDealSequence(t *testing.T) {
	d := NewDeckWithRNG(rand.New(rand.NewSource(7)))

	top, ok := d.Peek()
	if !ok {
		t.Fatal("peek failed on full deck")
	}

	dealt, ok := d.Deal()
	if !ok {
		t.Fatal("deal failed on full deck")
	}
	if dealt != top {
		t.Errorf("dealt %v, peeked %v", dealt, top)
	}
	if d.CardsRemaining() != 51 {
		t.Errorf("remaining = %d, want 51", d.CardsRemaining())
	}
}

func TestDealNExact(t *testing.T) {
	d := NewDeckWithRNG(rand.New(rand.NewSource(3)))

	cards, err := d.DealN(5)
	if err != nil {
		t.Fatalf("DealN(5): %v", err)
	}
	if len(cards) != 5 {
		t.Fatalf("got %d cards, want 5", len(cards))
	}
	if d.CardsRemaining() != 47 {
		t.Errorf("remaining = %d, want 47", d.CardsRemaining())
	}

	if _, err := d.DealN(48); err == nil {
		t.Error("expected error dealing more cards than remain")
	}
	if d.CardsRemaining() != 47 {
		t.Errorf("failed deal mutated deck: remaining = %d", d.CardsRemaining())
	}

	if _, err := d.DealN(-1); err == nil {
		t.Error("expected error for negative count")
	}
}

func TestRemoveAndContains(t *testing.T) {
	d := NewDeckWithRNG(rand.New(rand.NewSource(11)))
	target := Card{Rank: Ace, Suit: Spades}

	if !d.Contains(target) {
		t.Fatal("full deck should contain As")
	}
	if !d.Remove(target) {
		t.Fatal("remove failed for As")
	}
	if d.Contains(target) {
		t.Error("deck still contains removed card")
	}
	if d.Remove(target) {
		t.Error("second remove should fail")
	}
	if d.CardsRemaining() != 51 {
		t.Errorf("remaining = %d, want 51", d.CardsRemaining())
	}
}

func TestShuffleIsSeedDeterministic(t *testing.T) {
	d1 := NewDeckWithRNG(rand.New(rand.NewSource(42)))
	d2 := NewDeckWithRNG(rand.New(rand.NewSource(42)))

	for i := 0; i < 52; i++ {
		c1, _ := d1.Deal()
		c2, _ := d2.Deal()
		if c1 != c2 {
			t.Fatalf("card %d differs between identically seeded decks: %v vs %v", i, c1, c2)
		}
	}
}

func TestReset(t *testing.T) {
	d := NewDeckWithRNG(rand.New(rand.NewSource(5)))
	if _, err := d.DealN(20); err != nil {
		t.Fatalf("DealN: %v", err)
	}

	d.Reset()
	if d.CardsRemaining() != 52 {
		t.Errorf("after reset remaining = %d, want 52", d.CardsRemaining())
	}
	if d.IsEmpty() {
		t.Error("reset deck should not be empty")
	}
}

func TestRemainingReturnsCopy(t *testing.T) {
	d := NewDeckWithRNG(rand.New(rand.NewSource(9)))

	snapshot := d.Remaining()
	snapshot[0] = Card{Rank: Two, Suit: Clubs}
	snapshot[1] = Card{Rank: Two, Suit: Clubs}

	seen := make(map[Card]bool)
	for _, c := range d.Remaining() {
		if seen[c] {
			t.Fatal("mutating the snapshot corrupted the deck")
		}
		seen[c] = true
	}
}
