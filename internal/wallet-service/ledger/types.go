package ledger

import (
	"time"
)

// Kind define o tipo do lançamento; a direção (crédito/débito) é implícita no tipo
type Kind string

const (
	KindDeposit         Kind = "deposit"
	KindWithdrawal      Kind = "withdrawal"
	KindBet             Kind = "bet"
	KindWin             Kind = "win"
	KindRefund          Kind = "refund"
	KindBonus           Kind = "bonus"
	KindTournamentEntry Kind = "tournament_entry"
	KindTournamentPrize Kind = "tournament_prize"
	KindFee             Kind = "fee"
)

// CreditKinds lista os tipos que aumentam o saldo
var CreditKinds = []Kind{KindDeposit, KindWin, KindRefund, KindBonus, KindTournamentPrize}

func (k Kind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindBet, KindWin, KindRefund,
		KindBonus, KindTournamentEntry, KindTournamentPrize, KindFee:
		return true
	}
	return false
}

func (k Kind) IsCredit() bool {
	for _, c := range CreditKinds {
		if c == k {
			return true
		}
	}
	return false
}

func (k Kind) IsDebit() bool { return k.Valid() && !k.IsCredit() }

// External indica lançamentos liquidados pelo processador de pagamentos
func (k Kind) External() bool { return k == KindDeposit || k == KindWithdrawal }

// Wager indica lançamentos sujeitos ao limite diário de apostas e à autoexclusão
func (k Kind) Wager() bool { return k == KindBet || k == KindTournamentEntry }

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool { return s != StatusPending }

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountBanned    AccountStatus = "banned"
)

func (s AccountStatus) Valid() bool {
	return s == AccountActive || s == AccountSuspended || s == AccountBanned
}

// Account é o estado da carteira; só muda via operações do Ledger
type Account struct {
	ID                 string        `json:"id"`
	Balance            int64         `json:"balance"`
	Status             AccountStatus `json:"status"`
	DailyDepositLimit  int64         `json:"dailyDepositLimit"` // 0 = sem limite
	DailyWagerLimit    int64         `json:"dailyWagerLimit"`
	SelfExclusionUntil *time.Time    `json:"selfExclusionUntil,omitempty"`
	Frozen             bool          `json:"frozen"` // divergência na reconciliação
	LastSeq            int64         `json:"lastSeq"`
	Version            int64         `json:"version"`
	CreatedAt          time.Time     `json:"createdAt"`
}

// Entry é um lançamento do ledger. Amount é sempre positivo.
//
// Posted indica que o valor já está refletido no saldo: lançamentos internos
// são lançados ao completar, depósitos na liquidação e saques na solicitação.
type Entry struct {
	ID             string     `json:"id"`
	AccountID      string     `json:"accountId"`
	Kind           Kind       `json:"kind"`
	Amount         int64      `json:"amount"`
	Status         Status     `json:"status"`
	Seq            int64      `json:"seq"`
	Reference      string     `json:"reference"`
	SessionID      string     `json:"sessionId,omitempty"`
	TournamentID   string     `json:"tournamentId,omitempty"`
	RelatedEntryID string     `json:"relatedEntryId,omitempty"`
	Method         string     `json:"method,omitempty"`
	Description    string     `json:"description,omitempty"`
	ProviderRef    string     `json:"providerRef,omitempty"`
	FailureReason  string     `json:"failureReason,omitempty"`
	RequiresReview bool       `json:"requiresReview"`
	Posted         bool       `json:"posted"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// Signed devolve o valor com o sinal da direção do tipo
func (e Entry) Signed() int64 {
	if e.Kind.IsCredit() {
		return e.Amount
	}
	return -e.Amount
}

// Request descreve um lançamento a ser registrado
type Request struct {
	AccountID      string
	Kind           Kind
	Amount         int64
	IdempotencyKey string // vira o id do lançamento; vazio gera um uuid
	SessionID      string
	TournamentID   string
	RelatedEntryID string
	Method         string
	Description    string
}

// Outcome é a resposta do processador de pagamentos
type Outcome struct {
	Success     bool
	ProviderRef string
	Reason      string
}

// Limits configura limites de jogo responsável
type Limits struct {
	DailyDepositLimit  int64
	DailyWagerLimit    int64
	SelfExclusionUntil *time.Time
}

// Query é o filtro usado pelos stores na leitura paginada
type Query struct {
	Kinds    []Kind
	Statuses []Status
	From     time.Time
	To       time.Time
	AfterSeq int64
	Limit    int
}
