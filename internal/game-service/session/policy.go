package session

import (
	"time"

	"github.com/radieske/casino-platform/internal/game-service/odds"
)

// Policy concentra os parâmetros de mesa
type Policy struct {
	RakeBps           int64 // rake dos jogos multijogador
	ForfeitPenaltyBps int64 // desconto sobre o pote quando o vencedor ganha por abandono
	MoveTimeout       time.Duration
	MaxMoves          int // teto de jogadas; atingido, a sessão é resolvida
	MultiplayerMin    int
	MaxPokerSeats     int
	PokerEvaluator    odds.Evaluator

	// DebitAttempts é quantas vezes o débito da aposta é enviado quando o
	// ledger não responde; RetryBackoff é a espera entre as tentativas.
	DebitAttempts int
	RetryBackoff  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		RakeBps:           500,
		ForfeitPenaltyBps: 1000,
		MoveTimeout:       5 * time.Minute,
		MaxMoves:          20,
		MultiplayerMin:    2,
		MaxPokerSeats:     2,
		PokerEvaluator:    odds.EvaluatorCategory,
		DebitAttempts:     3,
		RetryBackoff:      200 * time.Millisecond,
	}
}

// DefaultActionPolicy decide a jogada automática de quem estourou o tempo.
// ok == false faz o jogador abandonar a sessão.
type DefaultActionPolicy interface {
	DefaultAction(s *Session, accountID string) (MoveInput, bool)
}

// DefaultActions: blackjack para (stand), slots e roleta giram, poker desiste (fold)
type DefaultActions struct{}

func (DefaultActions) DefaultAction(s *Session, _ string) (MoveInput, bool) {
	switch s.Game {
	case odds.Blackjack:
		return MoveInput{Action: ActionStand}, true
	case odds.Slots:
		return MoveInput{Action: ActionSpin}, true
	case odds.Roulette:
		if s.Selection == "" {
			return MoveInput{}, false
		}
		return MoveInput{Action: ActionSpin, Selection: s.Selection}, true
	case odds.Poker:
		return MoveInput{Action: ActionFold}, true
	}
	return MoveInput{}, false
}
