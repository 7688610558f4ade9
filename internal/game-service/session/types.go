package session

import (
	"time"

	"github.com/radieske/casino-platform/internal/game-service/odds"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusResolving Status = "resolving"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

// Ações aceitas por jogo
const (
	ActionSpin     = "spin"
	ActionHit      = odds.MoveHit
	ActionStand    = odds.MoveStand
	ActionCheck    = "check"
	ActionFold     = "fold"
	ActionShowdown = "showdown"
)

// Motivos de encerramento
const (
	ReasonPlayed   = "played"
	ReasonCeiling  = "move_ceiling"
	ReasonFold     = "fold"
	ReasonForfeit  = "forfeit"
	ReasonTimeout  = "timeout"
	ReasonLeft     = "left"
	ReasonRejected = "bet_rejected"
)

// Seat é um jogador sentado; a ordem dos assentos é a ordem de turno
type Seat struct {
	AccountID  string    `json:"accountId"`
	LastSeq    int64     `json:"lastSeq"`
	Forfeited  bool      `json:"forfeited"`
	Folded     bool      `json:"folded"`
	BetEntryID string    `json:"betEntryId"`
	JoinedAt   time.Time `json:"joinedAt"`
}

func (s Seat) Contending() bool { return !s.Forfeited && !s.Folded }

type Move struct {
	AccountID string    `json:"accountId"`
	Seq       int64     `json:"seq"`
	Action    string    `json:"action"`
	Selection string    `json:"selection,omitempty"`
	Auto      bool      `json:"auto,omitempty"` // aplicada pela política de timeout
	At        time.Time `json:"at"`
}

// Payout é um crédito devido; Paid só vira true depois do lançamento no ledger
type Payout struct {
	AccountID string `json:"accountId"`
	Kind      string `json:"kind"` // win | refund
	Amount    int64  `json:"amount"`
	Key       string `json:"key"`
	EntryID   string `json:"entryId,omitempty"`
	Paid      bool   `json:"paid"`
}

// VoidBet é uma aposta cujo débito ficou sem resposta do ledger. O jogador
// não foi sentado; a varredura garante o débito pela mesma chave e o estorna.
type VoidBet struct {
	AccountID string    `json:"accountId"`
	Key       string    `json:"key"`
	At        time.Time `json:"at"`
}

// Session é uma partida. Pot, Rake e NetPot são derivados na leitura.
type Session struct {
	ID          string        `json:"id"`
	Game        odds.GameType `json:"game"`
	Status      Status        `json:"status"`
	Players     []Seat        `json:"players"`
	MinPlayers  int           `json:"minPlayers"`
	MaxPlayers  int           `json:"maxPlayers"`
	BetAmount   int64         `json:"betAmount"`
	RakeBps     int64         `json:"rakeBps"`
	Selection   string        `json:"selection,omitempty"`
	Seed        uint64        `json:"seed"`
	Turn        int           `json:"turn"`
	Moves       []Move        `json:"moves"`
	Outcome     *odds.Outcome `json:"outcome,omitempty"`
	Payouts     []Payout      `json:"payouts,omitempty"`
	VoidBets    []VoidBet     `json:"voidBets,omitempty"`
	WinnerID    string        `json:"winnerId,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	StartedAt   *time.Time    `json:"startedAt,omitempty"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
	LastMoveAt  time.Time     `json:"lastMoveAt"`
	Version     int64         `json:"version"`
}

// Pot = aposta × jogadores sentados
func (s *Session) Pot() int64 { return s.BetAmount * int64(len(s.Players)) }

// Rake é a parte da casa sobre o pote (zero nos jogos contra a banca)
func (s *Session) Rake() int64 { return s.Pot() * s.RakeBps / 10_000 }

func (s *Session) NetPot() int64 { return s.Pot() - s.Rake() }

// Seat devolve o assento da conta (ou -1)
func (s *Session) Seat(accountID string) int {
	for i := range s.Players {
		if s.Players[i].AccountID == accountID {
			return i
		}
	}
	return -1
}

// Contenders lista os índices de quem ainda disputa o pote
func (s *Session) Contenders() []int {
	var out []int
	for i, p := range s.Players {
		if p.Contending() {
			out = append(out, i)
		}
	}
	return out
}

// ToAct é a conta que deve jogar agora
func (s *Session) ToAct() string {
	if s.Status != StatusActive || len(s.Players) == 0 {
		return ""
	}
	return s.Players[s.Turn%len(s.Players)].AccountID
}

// advanceTurn passa a vez para o próximo assento ainda na disputa
func (s *Session) advanceTurn() {
	n := len(s.Players)
	for i := 1; i <= n; i++ {
		next := (s.Turn + i) % n
		if s.Players[next].Contending() {
			s.Turn = next
			return
		}
	}
}

// Clone copia a sessão (o Outcome é imutável depois de gravado e é compartilhado)
func (s *Session) Clone() *Session {
	c := *s
	c.Players = append([]Seat(nil), s.Players...)
	c.Moves = append([]Move(nil), s.Moves...)
	c.Payouts = append([]Payout(nil), s.Payouts...)
	c.VoidBets = append([]VoidBet(nil), s.VoidBets...)
	return &c
}

// Event é publicado após cada transição
type Event struct {
	SessionID string    `json:"sessionId"`
	Type      string    `json:"type"`
	Status    Status    `json:"status"`
	AccountID string    `json:"accountId,omitempty"`
	Session   *Session  `json:"session,omitempty"`
	At        time.Time `json:"at"`
}

type MoveStatus string

const (
	MoveAccepted MoveStatus = "accepted"
	MoveIgnored  MoveStatus = "ignored"
	MoveResolved MoveStatus = "resolved"
)

type MoveResult struct {
	Status  MoveStatus `json:"status"`
	Session *Session   `json:"session"`
	// View traz o estado visível do blackjack durante a mão
	View *odds.BlackjackView `json:"view,omitempty"`
}

// BetOptions ajusta o PlaceBet: seleção da roleta e número de assentos no poker
type BetOptions struct {
	Selection string
	Seats     int
}

// MoveInput é a jogada enviada pelo cliente
type MoveInput struct {
	Action    string
	Selection string
}

// Public é a visão enviada aos clientes: a semente só aparece depois do fim,
// senão o baralho do blackjack seria previsível.
func (s *Session) Public() *Session {
	c := s.Clone()
	if !s.Status.Terminal() {
		c.Seed = 0
	}
	return c
}
