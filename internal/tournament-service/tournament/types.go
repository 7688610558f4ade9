package tournament

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/casino-platform/internal/game-service/odds"
)

type Status string

const (
	StatusRegistration Status = "registration"
	StatusRunning      Status = "running"
	StatusCompleted    Status = "completed"
	StatusCancelled    Status = "cancelled"
)

func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

type ParticipantStatus string

const (
	ParticipantActive     ParticipantStatus = "active"
	ParticipantEliminated ParticipantStatus = "eliminated"
)

type Participant struct {
	AccountID    string            `json:"accountId"`
	Chips        int64             `json:"chips"`
	Status       ParticipantStatus `json:"status"`
	FinalRank    int               `json:"finalRank,omitempty"`
	Rebuys       int               `json:"rebuys"`
	AddOn        bool              `json:"addOn"`
	Order        int               `json:"order"` // ordem de inscrição, desempata rankings
	RegisteredAt time.Time         `json:"registeredAt"`
	EliminatedAt *time.Time        `json:"eliminatedAt,omitempty"`
	EliminatedBy string            `json:"eliminatedBy,omitempty"`
}

func (p Participant) Active() bool { return p.Status == ParticipantActive }

// PrizeTier: Fraction é decimal para que a soma das faixas seja exatamente 1
type PrizeTier struct {
	Rank     int             `json:"rank"`
	Fraction decimal.Decimal `json:"fraction"`
}

type Settings struct {
	StartingChips int64 `json:"startingChips"`
	AllowRebuys   bool  `json:"allowRebuys"`
	MaxRebuys     int   `json:"maxRebuys"`
	RebuyCost     int64 `json:"rebuyCost"`
	RebuyChips    int64 `json:"rebuyChips"`
	AllowAddOn    bool  `json:"allowAddOn"`
	AddOnCost     int64 `json:"addOnCost"`
	AddOnChips    int64 `json:"addOnChips"`
}

// Debit registra cada cobrança (inscrição, rebuy, add-on) para estorno no cancelamento
type Debit struct {
	AccountID string `json:"accountId"`
	Key       string `json:"key"`
	Amount    int64  `json:"amount"`
	EntryID   string `json:"entryId,omitempty"`
	Refunded  bool   `json:"refunded"`

	base string // chave antes da reemissão; só vive durante a mutação
}

type Elimination struct {
	AccountID string    `json:"accountId"`
	By        string    `json:"by,omitempty"`
	Rank      int       `json:"rank"`
	Chips     int64     `json:"chips"` // fichas no momento da eliminação
	At        time.Time `json:"at"`
}

type Standing struct {
	Rank      int    `json:"rank"`
	AccountID string `json:"accountId"`
	Chips     int64  `json:"chips"`
	Prize     int64  `json:"prize"`
	EntryID   string `json:"entryId,omitempty"`
	Paid      bool   `json:"paid"`
}

type Tournament struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Game            odds.GameType  `json:"game"`
	EntryFee        int64          `json:"entryFee"`
	GuaranteedPool  int64          `json:"guaranteedPool"`
	Collected       int64          `json:"collected"` // inscrições + rebuys + add-ons não estornados
	MinParticipants int            `json:"minParticipants"`
	MaxParticipants int            `json:"maxParticipants"`
	Status          Status         `json:"status"`
	StartTime       time.Time      `json:"startTime"`
	RegistrationEnd *time.Time     `json:"registrationEnd,omitempty"`
	Participants    []Participant  `json:"participants"`
	PrizeStructure  []PrizeTier    `json:"prizeStructure"`
	Settings        Settings       `json:"settings"`
	Debits          []Debit        `json:"debits"`
	Attempts        map[string]int `json:"attempts,omitempty"` // inscrições por conta (reinscrição após desistência)
	Reissued        map[string]int `json:"reissued,omitempty"` // chaves de cobrança estornadas sem gravação
	Eliminations    []Elimination  `json:"eliminations"`
	Standings       []Standing     `json:"standings,omitempty"`
	PayoutsDone     bool           `json:"payoutsDone"`
	NextOrder       int            `json:"nextOrder"`
	CreatedAt       time.Time      `json:"createdAt"`
	StartedAt       *time.Time     `json:"startedAt,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
	Version         int64          `json:"version"`
}

// PrizePool = arrecadado, com piso na garantia
func (t *Tournament) PrizePool() int64 {
	if t.Collected < t.GuaranteedPool {
		return t.GuaranteedPool
	}
	return t.Collected
}

func (t *Tournament) Participant(accountID string) int {
	for i := range t.Participants {
		if t.Participants[i].AccountID == accountID {
			return i
		}
	}
	return -1
}

func (t *Tournament) ActiveCount() int {
	n := 0
	for _, p := range t.Participants {
		if p.Active() {
			n++
		}
	}
	return n
}

// TotalChips soma as fichas em jogo; só muda com rebuys e add-ons
func (t *Tournament) TotalChips() int64 {
	var sum int64
	for _, p := range t.Participants {
		sum += p.Chips
	}
	return sum
}

func (t *Tournament) Clone() *Tournament {
	c := *t
	c.Participants = append([]Participant(nil), t.Participants...)
	c.PrizeStructure = append([]PrizeTier(nil), t.PrizeStructure...)
	c.Debits = append([]Debit(nil), t.Debits...)
	c.Eliminations = append([]Elimination(nil), t.Eliminations...)
	c.Standings = append([]Standing(nil), t.Standings...)
	if t.Reissued != nil {
		c.Reissued = make(map[string]int, len(t.Reissued))
		for k, v := range t.Reissued {
			c.Reissued[k] = v
		}
	}
	if t.Attempts != nil {
		c.Attempts = make(map[string]int, len(t.Attempts))
		for k, v := range t.Attempts {
			c.Attempts[k] = v
		}
	}
	return &c
}

// Spec descreve um torneio a ser criado
type Spec struct {
	Name            string
	Game            odds.GameType
	EntryFee        int64
	GuaranteedPool  int64
	MinParticipants int
	MaxParticipants int
	StartTime       time.Time
	RegistrationEnd *time.Time
	PrizeStructure  []PrizeTier
	Settings        Settings
}
