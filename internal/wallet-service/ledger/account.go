package ledger

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// OpenAccount cria a conta (ou devolve a existente) e credita o bônus de boas-vindas.
// O saldo inicial entra como lançamento para manter saldo == soma do ledger.
func (l *Ledger) OpenAccount(ctx context.Context, accountID string) (Account, error) {
	err := l.store.CreateAccount(ctx, Account{
		ID:                accountID,
		Status:            AccountActive,
		DailyDepositLimit: l.policy.DailyDepositLimit,
		DailyWagerLimit:   l.policy.DailyWagerLimit,
		CreatedAt:         l.clock.Now(),
	})
	switch {
	case errors.Is(err, ErrAccountExists):
		return l.store.GetAccount(ctx, accountID)
	case err != nil:
		return Account{}, err
	}

	if l.policy.WelcomeBonus > 0 {
		if _, err := l.Record(ctx, Request{
			AccountID:      accountID,
			Kind:           KindBonus,
			Amount:         l.policy.WelcomeBonus,
			IdempotencyKey: "welcome:" + accountID,
			Description:    "welcome bonus",
		}); err != nil {
			return Account{}, err
		}
	}
	l.log.Info("account opened", zap.String("accountId", accountID))
	return l.store.GetAccount(ctx, accountID)
}

// Account devolve o estado da carteira
func (l *Ledger) Account(ctx context.Context, accountID string) (Account, error) {
	return l.store.GetAccount(ctx, accountID)
}

// Debit registra um lançamento de débito; a suficiência de saldo é revalidada
// sob o lock da conta, independentemente de checagens anteriores.
func (l *Ledger) Debit(ctx context.Context, req Request) (Entry, error) {
	if !req.Kind.IsDebit() {
		return Entry{}, ErrWrongDirection
	}
	return l.Record(ctx, req)
}

// Credit registra um lançamento de crédito
func (l *Ledger) Credit(ctx context.Context, req Request) (Entry, error) {
	if !req.Kind.IsCredit() {
		return Entry{}, ErrWrongDirection
	}
	return l.Record(ctx, req)
}

// CanAfford é apenas indicativo (UI); nunca substitui a checagem do Debit
func (l *Ledger) CanAfford(ctx context.Context, accountID string, amount int64) (bool, error) {
	a, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return false, err
	}
	return a.Status == AccountActive && !a.Frozen && a.Balance >= amount, nil
}

// ClaimDailyBonus credita o bônus diário uma vez por dia (UTC)
func (l *Ledger) ClaimDailyBonus(ctx context.Context, accountID string) (Entry, error) {
	if l.policy.DailyBonus <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	key := "daily-bonus:" + accountID + ":" + l.clock.Now().Format("2006-01-02")
	if _, err := l.store.FindEntry(ctx, key); err == nil {
		return Entry{}, ErrBonusAlreadyClaimed
	} else if !errors.Is(err, ErrNotFound) {
		return Entry{}, err
	}
	return l.Record(ctx, Request{
		AccountID:      accountID,
		Kind:           KindBonus,
		Amount:         l.policy.DailyBonus,
		IdempotencyKey: key,
		Description:    "daily bonus",
	})
}

// UpdateStatus altera o status da conta (diretório de contas)
func (l *Ledger) UpdateStatus(ctx context.Context, accountID string, status AccountStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	err := l.store.WithAccount(ctx, accountID, func(tx Tx) error {
		acct := tx.Account()
		acct.Status = status
		return tx.SaveAccount(ctx, acct)
	})
	if err != nil {
		return err
	}
	l.log.Info("account status changed", zap.String("accountId", accountID), zap.String("status", string(status)))
	return nil
}

// SetLimits atualiza os limites de jogo responsável
func (l *Ledger) SetLimits(ctx context.Context, accountID string, lim Limits) error {
	if lim.DailyDepositLimit < 0 || lim.DailyWagerLimit < 0 {
		return ErrInvalidAmount
	}
	return l.store.WithAccount(ctx, accountID, func(tx Tx) error {
		acct := tx.Account()
		acct.DailyDepositLimit = lim.DailyDepositLimit
		acct.DailyWagerLimit = lim.DailyWagerLimit
		acct.SelfExclusionUntil = lim.SelfExclusionUntil
		return tx.SaveAccount(ctx, acct)
	})
}
