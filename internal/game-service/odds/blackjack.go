package odds

import "fmt"

const (
	MoveHit   = "hit"
	MoveStand = "stand"

	dealerStandsOn = 17
)

type BlackjackResult struct {
	Player      []Card `json:"player"`
	Dealer      []Card `json:"dealer"`
	PlayerTotal int    `json:"playerTotal"`
	DealerTotal int    `json:"dealerTotal"`
	Natural     bool   `json:"natural"`
	Result      string `json:"result"` // win | push | loss
	Multiplier  int64  `json:"multiplier"`
}

// BlackjackView é o que o jogador enxerga durante a mão: só a carta aberta do dealer
type BlackjackView struct {
	Player   []Card `json:"player"`
	DealerUp Card   `json:"dealerUp"`
	Total    int    `json:"total"`
	Bust     bool   `json:"bust"`
	Done     bool   `json:"done"` // parou ou estourou
}

type blackjackTable struct {
	deck   []Card
	next   int
	player []Card
	dealer []Card
	done   bool
}

func (t *blackjackTable) draw() Card {
	c := t.deck[t.next]
	t.next++
	return c
}

// dealBlackjack embaralha, distribui P,D,P,D e reaplica as jogadas do jogador
func dealBlackjack(moves []string, src Source) (*blackjackTable, error) {
	t := &blackjackTable{deck: ShuffledDeck(src)}
	t.player = append(t.player, t.draw())
	t.dealer = append(t.dealer, t.draw())
	t.player = append(t.player, t.draw())
	t.dealer = append(t.dealer, t.draw())

	for i, m := range moves {
		if t.done {
			return nil, fmt.Errorf("%w: move %d after the hand ended", ErrInvalidAction, i)
		}
		switch m {
		case MoveHit:
			t.player = append(t.player, t.draw())
			if HandValue(t.player) > 21 {
				t.done = true
			}
		case MoveStand:
			t.done = true
		default:
			return nil, fmt.Errorf("%w: blackjack move %q", ErrInvalidAction, m)
		}
	}
	return t, nil
}

// PeekBlackjack devolve o estado visível após as jogadas informadas
func PeekBlackjack(moves []string, src Source) (BlackjackView, error) {
	t, err := dealBlackjack(moves, src)
	if err != nil {
		return BlackjackView{}, err
	}
	total := HandValue(t.player)
	return BlackjackView{
		Player:   t.player,
		DealerUp: t.dealer[0],
		Total:    total,
		Bust:     total > 21,
		Done:     t.done,
	}, nil
}

// PlayBlackjack resolve a mão: jogadas pendentes contam como stand.
// Dealer compra enquanto < 17. Vitória paga 2, empate 1, derrota 0.
func PlayBlackjack(moves []string, src Source) (BlackjackResult, error) {
	t, err := dealBlackjack(moves, src)
	if err != nil {
		return BlackjackResult{}, err
	}
	r := BlackjackResult{PlayerTotal: HandValue(t.player)}
	r.Natural = len(t.player) == 2 && r.PlayerTotal == 21

	if r.PlayerTotal <= 21 {
		for HandValue(t.dealer) < dealerStandsOn {
			t.dealer = append(t.dealer, t.draw())
		}
	}
	r.Player, r.Dealer = t.player, t.dealer
	r.DealerTotal = HandValue(t.dealer)

	switch {
	case r.PlayerTotal > 21:
		r.Result = "loss"
	case r.DealerTotal > 21 || r.PlayerTotal > r.DealerTotal:
		r.Result, r.Multiplier = "win", 2
	case r.PlayerTotal == r.DealerTotal:
		r.Result, r.Multiplier = "push", 1
	default:
		r.Result = "loss"
	}
	return r, nil
}

// HandValue soma a mão com figuras = 10 e ases valendo 11 até estourar
func HandValue(cards []Card) int {
	total, aces := 0, 0
	for _, c := range cards {
		switch {
		case c.Rank == 1:
			total += 11
			aces++
		case c.Rank >= 10:
			total += 10
		default:
			total += c.Rank
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}
