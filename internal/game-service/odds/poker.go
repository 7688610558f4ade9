package odds

import (
	"github.com/paulhankin/poker"
)

// Evaluator escolhe como as mãos são comparadas no showdown
type Evaluator string

const (
	// EvaluatorCategory compara só a categoria (sem sequência, cor ou kicker)
	EvaluatorCategory Evaluator = "category"
	// EvaluatorHoldem usa o avaliador completo de 7 cartas
	EvaluatorHoldem Evaluator = "holdem"
)

// MaxPokerHands é o máximo de mãos que um baralho comporta com as 5 comunitárias
const MaxPokerHands = (52 - 5) / 2

// Ranks por categoria
const (
	HighCard    = 0
	OnePair     = 1
	TwoPair     = 2
	Trips       = 3
	FullHouse   = 6
	FourOfAKind = 7
)

var categoryNames = map[int]string{
	HighCard:    "high card",
	OnePair:     "pair",
	TwoPair:     "two pair",
	Trips:       "three of a kind",
	FullHouse:   "full house",
	FourOfAKind: "four of a kind",
}

type PokerHand struct {
	Hole  [2]Card `json:"hole"`
	Score int     `json:"score"`
	Name  string  `json:"name"`
}

type PokerResult struct {
	Evaluator Evaluator   `json:"evaluator"`
	Board     [5]Card     `json:"board"`
	Hands     []PokerHand `json:"hands"`
	Winners   []int       `json:"winners"`
}

// Showdown distribui 2 cartas por mão e 5 comunitárias; maior pontuação vence
// e pontuações iguais dividem o pote.
func Showdown(hands int, ev Evaluator, src Source) PokerResult {
	if ev == "" {
		ev = EvaluatorCategory
	}
	deck := ShuffledDeck(src)
	r := PokerResult{Evaluator: ev, Hands: make([]PokerHand, hands)}

	next := 0
	for round := 0; round < 2; round++ {
		for h := 0; h < hands; h++ {
			r.Hands[h].Hole[round] = deck[next]
			next++
		}
	}
	for i := range r.Board {
		r.Board[i] = deck[next]
		next++
	}

	best := -1
	for i := range r.Hands {
		seven := sevenCards(r.Hands[i].Hole, r.Board)
		if ev == EvaluatorHoldem {
			r.Hands[i].Score, r.Hands[i].Name = holdemScore(seven)
		} else {
			r.Hands[i].Score = CategoryRank(seven[:])
			r.Hands[i].Name = categoryNames[r.Hands[i].Score]
		}
		if r.Hands[i].Score > best {
			best = r.Hands[i].Score
		}
	}
	for i, h := range r.Hands {
		if h.Score == best {
			r.Winners = append(r.Winners, i)
		}
	}
	return r
}

func sevenCards(hole [2]Card, board [5]Card) [7]Card {
	var out [7]Card
	copy(out[:5], board[:])
	out[5], out[6] = hole[0], hole[1]
	return out
}

// CategoryRank classifica a mão só pelas repetições de valor
func CategoryRank(cards []Card) int {
	counts := make(map[int]int, len(cards))
	for _, c := range cards {
		counts[c.Rank]++
	}
	var quads, trips, pairs int
	for _, n := range counts {
		switch {
		case n >= 4:
			quads++
		case n == 3:
			trips++
		case n == 2:
			pairs++
		}
	}
	switch {
	case quads > 0:
		return FourOfAKind
	case trips >= 2 || (trips == 1 && pairs >= 1):
		return FullHouse
	case trips == 1:
		return Trips
	case pairs >= 2:
		return TwoPair
	case pairs == 1:
		return OnePair
	}
	return HighCard
}

// holdemScore usa paulhankin/poker; maior é melhor
func holdemScore(cards [7]Card) (int, string) {
	var hand [7]poker.Card
	for i, c := range cards {
		pc, err := poker.MakeCard(poker.Suit(c.Suit), poker.Rank(c.Rank))
		if err != nil {
			// cartas vêm sempre de NewDeck
			panic(err)
		}
		hand[i] = pc
	}
	score := poker.Eval7(&hand)
	name, err := poker.Describe(hand[:])
	if err != nil {
		name = ""
	}
	return int(score), name
}

// WinnersAmong recalcula os vencedores só entre as mãos elegíveis
// (quem desistiu continua com cartas, mas fora da disputa)
func (r PokerResult) WinnersAmong(eligible []int) []int {
	best := -1
	for _, i := range eligible {
		if i >= 0 && i < len(r.Hands) && r.Hands[i].Score > best {
			best = r.Hands[i].Score
		}
	}
	var out []int
	for _, i := range eligible {
		if i >= 0 && i < len(r.Hands) && r.Hands[i].Score == best {
			out = append(out, i)
		}
	}
	return out
}
