package deck

import "testing"

func TestParseCard(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Card
		wantErr  bool
	}{
		{
			name:     "ace of spades",
			input:    "As",
			expected: Card{Rank: Ace, Suit: Spades},
		},
		{
			name:     "ten shorthand",
			input:    "Td",
			expected: Card{Rank: Ten, Suit: Diamonds},
		},
		{
			name:     "ten long form",
			input:    "10d",
			expected: Card{Rank: Ten, Suit: Diamonds},
		},
		{
			name:     "lowercase rank",
			input:    "qh",
			expected: Card{Rank: Queen, Suit: Hearts},
		},
		{
			name:     "deuce of clubs",
			input:    "2c",
			expected: Card{Rank: Two, Suit: Clubs},
		},
		{
			name:    "invalid rank",
			input:   "Xs",
			wantErr: true,
		},
		{
			name:    "invalid suit",
			input:   "Ax",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "too long",
			input:   "10ds",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card, err := ParseCard(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCard(%q) expected error, got %v", tt.input, card)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCard(%q) unexpected error: %v", tt.input, err)
			}
			if card != tt.expected {
				t.Errorf("ParseCard(%q) = %v, want %v", tt.input, card, tt.expected)
			}
		})
	}
}

func TestParseCards(t *testing.T) {
	cards, err := ParseCards("As Kd, Qc\tJh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []Card{
		{Rank: Ace, Suit: Spades},
		{Rank: King, Suit: Diamonds},
		{Rank: Queen, Suit: Clubs},
		{Rank: Jack, Suit: Hearts},
	}
	if len(cards) != len(expected) {
		t.Fatalf("got %d cards, want %d", len(cards), len(expected))
	}
	for i, c := range cards {
		if c != expected[i] {
			t.Errorf("card %d = %v, want %v", i, c, expected[i])
		}
	}

	if _, err := ParseCards("As Zz"); err == nil {
		t.Error("expected error for malformed list")
	}
}

func TestCardStringForms(t *testing.T) {
	tests := []struct {
		card    Card
		display string
		code    string
	}{
		{Card{Rank: Ace, Suit: Spades}, "A♠", "As"},
		{Card{Rank: Ten, Suit: Hearts}, "T♥", "Th"},
		{Card{Rank: Two, Suit: Clubs}, "2♣", "2c"},
		{Card{Rank: Queen, Suit: Diamonds}, "Q♦", "Qd"},
	}

	for _, tt := range tests {
		if got := tt.card.String(); got != tt.display {
			t.Errorf("String() = %q, want %q", got, tt.display)
		}
		if got := tt.card.Code(); got != tt.code {
			t.Errorf("Code() = %q, want %q", got, tt.code)
		}
	}
}

func TestCardJSONRoundtrip(t *testing.T) {
	orig := Card{Rank: King, Suit: Hearts}

	data, err := orig.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"Kh"` {
		t.Errorf("marshal = %s, want \"Kh\"", data)
	}

	var back Card
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != orig {
		t.Errorf("roundtrip = %v, want %v", back, orig)
	}

	if _, err := (Card{}).MarshalJSON(); err == nil {
		t.Error("expected error marshaling zero card")
	}
}

func TestCardIsRed(t *testing.T) {
	if !(Card{Rank: Ace, Suit: Hearts}).IsRed() {
		t.Error("hearts should be red")
	}
	if !(Card{Rank: Ace, Suit: Diamonds}).IsRed() {
		t.Error("diamonds should be red")
	}
	if (Card{Rank: Ace, Suit: Spades}).IsRed() {
		t.Error("spades should be black")
	}
	if (Card{Rank: Ace, Suit: Clubs}).IsRed() {
		t.Error("clubs should be black")
	}
}

func TestSortByRank(t *testing.T) {
	cards := MustParseCards("2c As Kd Ah 2s")
	SortByRank(cards)

	want := "As Ah Kd 2s 2c"
	if got := CodeString(cards); got != want {
		t.Errorf("sorted = %q, want %q", got, want)
	}
}
