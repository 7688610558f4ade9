package odds

import "fmt"

// Card usa ás = 1 e naipes 0..3 (paus, ouros, copas, espadas)
type Card struct {
	Rank int `json:"rank"`
	Suit int `json:"suit"`
}

const (
	rankChars = "A23456789TJQK"
	suitChars = "CDHS"
)

func (c Card) String() string {
	if c.Rank < 1 || c.Rank > 13 || c.Suit < 0 || c.Suit > 3 {
		return "??"
	}
	return fmt.Sprintf("%c%c", rankChars[c.Rank-1], suitChars[c.Suit])
}

// NewDeck devolve o baralho de 52 cartas em ordem
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for s := 0; s < 4; s++ {
		for r := 1; r <= 13; r++ {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}

// Shuffle embaralha no lugar com Fisher–Yates sobre a fonte injetada
func Shuffle(deck []Card, src Source) {
	for i := len(deck) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// ShuffledDeck é NewDeck + Shuffle
func ShuffledDeck(src Source) []Card {
	d := NewDeck()
	Shuffle(d, src)
	return d
}
