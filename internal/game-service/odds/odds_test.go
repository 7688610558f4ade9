package odds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqSource devolve os valores na ordem (módulo n); sem valores, devolve n-1,
// o que deixa o Fisher–Yates sem trocas e o baralho na ordem de NewDeck.
type seqSource struct {
	vals []int
	i    int
}

func (s *seqSource) IntN(n int) int {
	if len(s.vals) == 0 {
		return n - 1
	}
	v := s.vals[s.i%len(s.vals)] % n
	s.i++
	return v
}

func (s *seqSource) Uint64() uint64 { return uint64(s.IntN(1 << 30)) }

func card(rank, suit int) Card { return Card{Rank: rank, Suit: suit} }

func TestResolveIsDeterministicForSeed(t *testing.T) {
	cases := []struct {
		game GameType
		act  Action
	}{
		{Slots, Action{}},
		{Roulette, Action{Selection: "odd"}},
		{Blackjack, Action{Moves: []string{MoveHit, MoveStand}}},
		{Poker, Action{Hands: 3}},
	}
	for _, tc := range cases {
		t.Run(string(tc.game), func(t *testing.T) {
			for seed := uint64(1); seed <= 20; seed++ {
				a, errA := Resolve(tc.game, 100, tc.act, NewSeededSource(seed))
				b, errB := Resolve(tc.game, 100, tc.act, NewSeededSource(seed))
				require.NoError(t, errA)
				require.NoError(t, errB)
				assert.Equal(t, a, b)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	_, err := Resolve("craps", 100, Action{}, NewSeededSource(1))
	assert.ErrorIs(t, err, ErrUnknownGame)
	_, err = Resolve(Roulette, 100, Action{Selection: "17"}, NewSeededSource(1))
	assert.ErrorIs(t, err, ErrInvalidAction)
	_, err = Resolve(Poker, 100, Action{Hands: 1}, NewSeededSource(1))
	assert.ErrorIs(t, err, ErrInvalidAction)
	_, err = Resolve(Poker, 100, Action{Hands: MaxPokerHands + 1}, NewSeededSource(1))
	assert.ErrorIs(t, err, ErrInvalidAction)
	_, err = Resolve(Blackjack, 100, Action{Moves: []string{"double"}}, NewSeededSource(1))
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestSlotsMultiplier(t *testing.T) {
	cases := []struct {
		reels [3]string
		want  int64
	}{
		{[3]string{"seven", "seven", "seven"}, 100},
		{[3]string{"diamond", "diamond", "diamond"}, 50},
		{[3]string{"star", "star", "star"}, 30},
		{[3]string{"cherry", "cherry", "cherry"}, 20},
		{[3]string{"lemon", "grape", "lemon"}, 5},
		{[3]string{"seven", "seven", "cherry"}, 5},
		{[3]string{"cherry", "lemon", "orange"}, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, slotsMultiplier(tc.reels), "%v", tc.reels)
	}

	r := SpinSlots(&seqSource{vals: []int{7, 7, 7}})
	assert.Equal(t, [3]string{"seven", "seven", "seven"}, r.Reels)
	assert.Equal(t, int64(100), r.Multiplier)
}

func TestRoulette(t *testing.T) {
	t.Run("red 32 pays double", func(t *testing.T) {
		out, err := Resolve(Roulette, 100, Action{Selection: "red"}, &seqSource{vals: []int{32}})
		require.NoError(t, err)
		assert.Equal(t, 32, out.Roulette.Pocket)
		assert.Equal(t, "red", out.Roulette.Color)
		assert.Equal(t, int64(2), out.Multiplier)
		assert.Equal(t, int64(200), out.Payout)
	})

	t.Run("zero loses every even-money bet", func(t *testing.T) {
		for _, sel := range RouletteSelections {
			r, err := SpinRoulette(sel, &seqSource{vals: []int{0}})
			require.NoError(t, err)
			assert.False(t, r.Won, sel)
			assert.Equal(t, int64(0), r.Multiplier)
			assert.Equal(t, "green", r.Color)
		}
	})

	t.Run("selections", func(t *testing.T) {
		cases := []struct {
			sel    string
			pocket int
			won    bool
		}{
			{"black", 2, true}, {"black", 1, false},
			{"odd", 35, true}, {"even", 35, false},
			{"1-18", 18, true}, {"19-36", 18, false}, {"19-36", 36, true},
		}
		for _, tc := range cases {
			r, err := SpinRoulette(tc.sel, &seqSource{vals: []int{tc.pocket}})
			require.NoError(t, err)
			assert.Equal(t, tc.won, r.Won, "%s on %d", tc.sel, tc.pocket)
		}
	})

	t.Run("pockets are roughly uniform", func(t *testing.T) {
		src := NewSeededSource(42)
		counts := make([]int, Pockets)
		for i := 0; i < Pockets*1000; i++ {
			r, _ := SpinRoulette("red", src)
			counts[r.Pocket]++
		}
		for p, n := range counts {
			assert.InDelta(t, 1000, n, 200, "pocket %d", p)
		}
	})
}

func TestHandValue(t *testing.T) {
	assert.Equal(t, 21, HandValue([]Card{card(1, 0), card(13, 1)}))
	assert.Equal(t, 12, HandValue([]Card{card(1, 0), card(1, 1)}))
	assert.Equal(t, 21, HandValue([]Card{card(1, 0), card(1, 1), card(9, 2)}))
	assert.Equal(t, 22, HandValue([]Card{card(10, 0), card(12, 1), card(2, 2)}))
	assert.Equal(t, 13, HandValue([]Card{card(1, 0), card(5, 1), card(7, 2)}))
}

func TestBlackjack(t *testing.T) {
	// baralho em ordem: P=A♣,3♣ D=2♣,4♣; próximas 5♣,6♣,7♣...
	t.Run("hit then stand pushes at 19", func(t *testing.T) {
		r, err := PlayBlackjack([]string{MoveHit, MoveStand}, &seqSource{})
		require.NoError(t, err)
		assert.Equal(t, 19, r.PlayerTotal)
		assert.Equal(t, 19, r.DealerTotal)
		assert.Equal(t, "push", r.Result)
		assert.Equal(t, int64(1), r.Multiplier)
	})

	t.Run("standing on 14 loses to 17", func(t *testing.T) {
		r, err := PlayBlackjack(nil, &seqSource{})
		require.NoError(t, err)
		assert.Equal(t, 14, r.PlayerTotal)
		assert.Equal(t, 17, r.DealerTotal)
		assert.Equal(t, int64(0), r.Multiplier)
	})

	t.Run("bust loses without dealer drawing", func(t *testing.T) {
		// A,3,5,6,7: o ás já caiu para 1 e a mão chega a 22
		r, err := PlayBlackjack([]string{MoveHit, MoveHit, MoveHit}, &seqSource{})
		require.NoError(t, err)
		assert.Equal(t, 22, r.PlayerTotal)
		assert.Len(t, r.Dealer, 2)
		assert.Equal(t, "loss", r.Result)
	})

	t.Run("no moves after the hand ends", func(t *testing.T) {
		_, err := PlayBlackjack([]string{MoveStand, MoveHit}, &seqSource{})
		assert.ErrorIs(t, err, ErrInvalidAction)
	})

	t.Run("peek hides the hole card", func(t *testing.T) {
		v, err := PeekBlackjack([]string{MoveHit}, &seqSource{})
		require.NoError(t, err)
		assert.Equal(t, card(2, 0), v.DealerUp)
		assert.Equal(t, 19, v.Total)
		assert.False(t, v.Done)

		v, err = PeekBlackjack([]string{MoveHit, MoveHit}, &seqSource{})
		require.NoError(t, err)
		assert.Equal(t, 15, v.Total)
		assert.False(t, v.Bust)

		v, err = PeekBlackjack([]string{MoveHit, MoveHit, MoveHit}, &seqSource{})
		require.NoError(t, err)
		assert.True(t, v.Bust)
		assert.True(t, v.Done)
	})

	t.Run("win pays two", func(t *testing.T) {
		wins := 0
		for seed := uint64(0); seed < 200; seed++ {
			r, err := PlayBlackjack([]string{MoveStand}, NewSeededSource(seed))
			require.NoError(t, err)
			switch r.Result {
			case "win":
				wins++
				assert.Equal(t, int64(2), r.Multiplier)
				assert.True(t, r.DealerTotal > 21 || r.PlayerTotal > r.DealerTotal)
			case "loss":
				assert.Equal(t, int64(0), r.Multiplier)
			}
		}
		assert.Positive(t, wins)
	})
}

func TestCategoryRank(t *testing.T) {
	cases := []struct {
		name  string
		cards []Card
		want  int
	}{
		{"quads", []Card{card(9, 0), card(9, 1), card(9, 2), card(9, 3), card(2, 0), card(3, 0), card(5, 1)}, FourOfAKind},
		{"full house", []Card{card(9, 0), card(9, 1), card(9, 2), card(4, 3), card(4, 0), card(3, 0), card(5, 1)}, FullHouse},
		{"two trips is a full house", []Card{card(9, 0), card(9, 1), card(9, 2), card(4, 3), card(4, 0), card(4, 1), card(5, 1)}, FullHouse},
		{"trips", []Card{card(9, 0), card(9, 1), card(9, 2), card(4, 3), card(6, 0), card(3, 0), card(5, 1)}, Trips},
		{"two pair", []Card{card(9, 0), card(9, 1), card(4, 2), card(4, 3), card(6, 0), card(3, 0), card(5, 1)}, TwoPair},
		{"pair", []Card{card(9, 0), card(9, 1), card(4, 2), card(11, 3), card(6, 0), card(3, 0), card(5, 1)}, OnePair},
		{"flush is not modeled", []Card{card(1, 0), card(3, 0), card(5, 0), card(7, 0), card(9, 0), card(11, 1), card(13, 2)}, HighCard},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CategoryRank(tc.cards), tc.name)
	}
}

func TestShowdown(t *testing.T) {
	t.Run("equal categories split", func(t *testing.T) {
		// baralho em ordem: nenhuma repetição de valor entre as 7 cartas
		r := Showdown(2, EvaluatorCategory, &seqSource{})
		assert.Equal(t, []int{0, 1}, r.Winners)
		assert.Equal(t, card(1, 0), r.Hands[0].Hole[0])
		assert.Equal(t, card(2, 0), r.Hands[1].Hole[0])
		assert.Equal(t, card(5, 0), r.Board[0])
	})

	t.Run("winners hold the best score", func(t *testing.T) {
		for _, ev := range []Evaluator{EvaluatorCategory, EvaluatorHoldem} {
			for seed := uint64(0); seed < 50; seed++ {
				r := Showdown(4, ev, NewSeededSource(seed))
				require.NotEmpty(t, r.Winners)
				best := r.Hands[r.Winners[0]].Score
				for i, h := range r.Hands {
					assert.LessOrEqual(t, h.Score, best)
					if h.Score == best {
						assert.Contains(t, r.Winners, i)
					}
				}
			}
		}
	})
}

func TestShowdownFullTable(t *testing.T) {
	out, err := Resolve(Poker, 100, Action{Hands: MaxPokerHands}, NewSeededSource(9))
	require.NoError(t, err)
	require.Len(t, out.Poker.Hands, MaxPokerHands)

	seen := make(map[Card]bool)
	for _, c := range out.Poker.Board {
		seen[c] = true
	}
	for _, h := range out.Poker.Hands {
		seen[h.Hole[0]], seen[h.Hole[1]] = true, true
	}
	assert.Len(t, seen, 5+2*MaxPokerHands)
}

func TestShuffleIsPermutation(t *testing.T) {
	deck := ShuffledDeck(NewSeededSource(99))
	require.Len(t, deck, 52)
	seen := map[Card]bool{}
	for _, c := range deck {
		seen[c] = true
	}
	assert.Len(t, seen, 52)
	assert.NotEqual(t, NewDeck(), deck)
}

func TestSplitPot(t *testing.T) {
	share, rem := SplitPot(101, 2)
	assert.Equal(t, int64(50), share)
	assert.Equal(t, int64(1), rem)

	share, rem = SplitPot(90, 0)
	assert.Equal(t, int64(0), share)
	assert.Equal(t, int64(90), rem)
}
