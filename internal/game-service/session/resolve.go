package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/game-service/odds"
	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

// play calcula o resultado a partir da semente e das jogadas gravadas.
// Repetir com o mesmo snapshot produz sempre o mesmo resultado.
func (m *Manager) play(s *Session) ([]Payout, error) {
	action := odds.Action{Hands: len(s.Players)}
	switch s.Game {
	case odds.Blackjack:
		action.Moves = blackjackMoves(s)
	case odds.Roulette:
		action.Selection = s.Selection
		if n := len(s.Moves); n > 0 && s.Moves[n-1].Selection != "" {
			action.Selection = s.Moves[n-1].Selection
		}
	}
	out, err := odds.ResolveWith(odds.Options{PokerEvaluator: m.policy.PokerEvaluator}, s.Game, s.BetAmount, action, odds.NewSeededSource(s.Seed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}

	if s.Game.HouseBanked() {
		s.Outcome = &out
		acct := s.Players[0].AccountID
		switch {
		case out.Multiplier == 1:
			return []Payout{{AccountID: acct, Kind: string(ledger.KindRefund), Amount: out.Payout, Key: refundKey(s.ID, acct)}}, nil
		case out.Multiplier > 1:
			s.WinnerID = acct
			return []Payout{{AccountID: acct, Kind: string(ledger.KindWin), Amount: out.Payout, Key: winKey(s.ID, acct)}}, nil
		}
		return nil, nil
	}

	// poker: quem desistiu ou abandonou não disputa o pote
	out.Winners = out.Poker.WinnersAmong(s.Contenders())
	out.Poker.Winners = out.Winners
	s.Outcome = &out
	share, _ := odds.SplitPot(s.NetPot(), len(out.Winners))
	var payouts []Payout
	for _, w := range out.Winners {
		acct := s.Players[w].AccountID
		if share > 0 {
			payouts = append(payouts, Payout{AccountID: acct, Kind: string(ledger.KindWin), Amount: share, Key: winKey(s.ID, acct)})
		}
	}
	if len(out.Winners) == 1 {
		s.WinnerID = s.Players[out.Winners[0]].AccountID
	}
	return payouts, nil
}

// foldPayouts paga o pote líquido a quem sobrou na mesa
func (m *Manager) foldPayouts(s *Session) []Payout {
	c := s.Contenders()
	if len(c) != 1 {
		return nil
	}
	acct := s.Players[c[0]].AccountID
	s.WinnerID = acct
	return []Payout{{AccountID: acct, Kind: string(ledger.KindWin), Amount: s.NetPot(), Key: winKey(s.ID, acct)}}
}

// finish grava o resultado (status resolving) antes de qualquer crédito
func (m *Manager) finish(ctx context.Context, s *Session, reason string, payouts []Payout) error {
	s.Status, s.Reason, s.Payouts = StatusResolving, reason, payouts
	if err := m.store.Save(ctx, s); err != nil {
		return err
	}
	return m.pay(ctx, s)
}

// pay credita os prêmios pendentes. As chaves de idempotência tornam a
// repetição segura depois de uma queda no meio do pagamento.
func (m *Manager) pay(ctx context.Context, s *Session) error {
	for i := range s.Payouts {
		p := &s.Payouts[i]
		if p.Paid {
			continue
		}
		e, err := m.wallet.Credit(ctx, ledger.Request{
			AccountID:      p.AccountID,
			Kind:           ledger.Kind(p.Kind),
			Amount:         p.Amount,
			IdempotencyKey: p.Key,
			SessionID:      s.ID,
			Description:    string(s.Game) + " " + p.Kind,
		})
		if err != nil {
			m.log.Error("session payout failed", zap.String("sessionId", s.ID), zap.String("key", p.Key), zap.Error(err))
			return fmt.Errorf("credit %s: %w", p.Key, err)
		}
		p.EntryID, p.Paid = e.ID, true
	}

	now := m.clock.Now()
	s.Status, s.CompletedAt = StatusCompleted, &now
	if err := m.store.Save(ctx, s); err != nil {
		return err
	}
	m.log.Info("session resolved",
		zap.String("sessionId", s.ID),
		zap.String("game", string(s.Game)),
		zap.String("reason", s.Reason),
		zap.String("winner", s.WinnerID),
		zap.Int64("pot", s.Pot()))
	m.publish(ctx, s, "resolved", s.WinnerID)
	return nil
}

// ResumeResolving conclui os pagamentos de sessões que ficaram em resolving
func (m *Manager) ResumeResolving(ctx context.Context) (int, error) {
	pending, err := m.store.ListByStatus(ctx, StatusResolving)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, snap := range pending {
		if err := m.resume(ctx, snap.ID); err != nil {
			m.log.Warn("resume resolving failed", zap.String("sessionId", snap.ID), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}

func (m *Manager) resume(ctx context.Context, id string) error {
	unlock := m.lock(id)
	defer unlock()
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.Status != StatusResolving {
		return nil
	}
	return m.pay(ctx, s)
}

// Restore é chamado no boot: termina pagamentos interrompidos e informa
// quantas sessões seguem abertas.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	resumed, err := m.ResumeResolving(ctx)
	if err != nil {
		return 0, err
	}
	if _, err := m.SettleVoidBets(ctx); err != nil {
		return 0, err
	}
	open, err := m.store.ListByStatus(ctx, StatusWaiting, StatusActive)
	if err != nil {
		return 0, err
	}
	m.log.Info("sessions restored", zap.Int("open", len(open)), zap.Int("resumed", resumed))
	return len(open), nil
}
