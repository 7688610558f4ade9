package odds

import (
	"errors"
	"fmt"
)

type GameType string

const (
	Slots     GameType = "slots"
	Roulette  GameType = "roulette"
	Blackjack GameType = "blackjack"
	Poker     GameType = "poker"
)

func (g GameType) Valid() bool {
	switch g {
	case Slots, Roulette, Blackjack, Poker:
		return true
	}
	return false
}

// HouseBanked indica jogos contra a banca (um único assento)
func (g GameType) HouseBanked() bool { return g == Slots || g == Roulette || g == Blackjack }

var (
	ErrUnknownGame   = errors.New("unknown game type")
	ErrInvalidAction = errors.New("invalid action")
)

// Action é a jogada que encerra a rodada.
// Moves é a sequência hit/stand do blackjack; Selection a aposta da roleta;
// Hands o número de mãos do poker.
type Action struct {
	Moves     []string `json:"moves,omitempty"`
	Selection string   `json:"selection,omitempty"`
	Hands     int      `json:"hands,omitempty"`
}

// Outcome é o resultado resolvido. Multiplier vale para jogos contra a banca;
// no poker o pote é dividido entre Winners (índices dos assentos).
type Outcome struct {
	Game       GameType         `json:"game"`
	Multiplier int64            `json:"multiplier"`
	Payout     int64            `json:"payout"`
	Winners    []int            `json:"winners,omitempty"`
	Slots      *SlotsResult     `json:"slots,omitempty"`
	Roulette   *RouletteResult  `json:"roulette,omitempty"`
	Blackjack  *BlackjackResult `json:"blackjack,omitempty"`
	Poker      *PokerResult     `json:"poker,omitempty"`
}

// Options ajusta o motor; o zero value usa o avaliador por categoria no poker
type Options struct {
	PokerEvaluator Evaluator
}

// Resolve é função pura de (jogo, aposta, ação, fonte) para o resultado.
func Resolve(game GameType, bet int64, a Action, src Source) (Outcome, error) {
	return ResolveWith(Options{}, game, bet, a, src)
}

func ResolveWith(opts Options, game GameType, bet int64, a Action, src Source) (Outcome, error) {
	out := Outcome{Game: game}
	switch game {
	case Slots:
		r := SpinSlots(src)
		out.Slots, out.Multiplier = &r, r.Multiplier
	case Roulette:
		r, err := SpinRoulette(a.Selection, src)
		if err != nil {
			return Outcome{}, err
		}
		out.Roulette, out.Multiplier = &r, r.Multiplier
	case Blackjack:
		r, err := PlayBlackjack(a.Moves, src)
		if err != nil {
			return Outcome{}, err
		}
		out.Blackjack, out.Multiplier = &r, r.Multiplier
	case Poker:
		if a.Hands < 2 || a.Hands > MaxPokerHands {
			return Outcome{}, fmt.Errorf("%w: poker takes 2 to %d hands", ErrInvalidAction, MaxPokerHands)
		}
		r := Showdown(a.Hands, opts.PokerEvaluator, src)
		out.Poker, out.Winners = &r, r.Winners
		return out, nil
	default:
		return Outcome{}, ErrUnknownGame
	}
	out.Payout = Payout(bet, out.Multiplier)
	return out, nil
}

// Payout é aposta × multiplicador, em centavos
func Payout(bet, multiplier int64) int64 { return bet * multiplier }

// SplitPot divide o pote em partes iguais; o resto fica com a casa (rake)
func SplitPot(pot int64, n int) (share, remainder int64) {
	if n <= 0 {
		return 0, pot
	}
	share = pot / int64(n)
	return share, pot - share*int64(n)
}
