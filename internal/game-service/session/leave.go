package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

// Leave tira o jogador da sessão:
//   - aguardando: a aposta é estornada;
//   - ativa contra a banca: aplica a jogada padrão ou perde a aposta;
//   - ativa multijogador: abandono; o último que resta leva o pote menos a penalidade.
//
// Sair de uma sessão encerrada não faz nada.
func (m *Manager) Leave(ctx context.Context, sessionID, accountID string) (*Session, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status.Terminal() || s.Status == StatusResolving {
		return s.Clone(), nil
	}
	i := s.Seat(accountID)
	if i < 0 {
		return nil, ErrNotSeated
	}

	switch {
	case s.Status == StatusWaiting:
		err = m.leaveWaiting(ctx, s, i)
	case !s.Players[i].Contending():
		return s.Clone(), nil
	case s.Game.HouseBanked():
		err = m.abandon(ctx, s, i, false)
	default:
		err = m.forfeit(ctx, s, i, ReasonForfeit)
	}
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

func (m *Manager) leaveWaiting(ctx context.Context, s *Session, i int) error {
	seat := s.Players[i]
	if _, err := m.wallet.Credit(ctx, ledger.Request{
		AccountID:      seat.AccountID,
		Kind:           ledger.KindRefund,
		Amount:         s.BetAmount,
		IdempotencyKey: refundKey(s.ID, seat.AccountID),
		SessionID:      s.ID,
		RelatedEntryID: seat.BetEntryID,
		Description:    "bet refund",
	}); err != nil {
		return err
	}
	s.Players = append(s.Players[:i], s.Players[i+1:]...)
	if len(s.Players) == 0 {
		now := m.clock.Now()
		s.Status, s.Reason, s.CompletedAt = StatusCancelled, ReasonLeft, &now
	}
	if err := m.store.Save(ctx, s); err != nil {
		m.log.Error("refunded player still seated", zap.String("sessionId", s.ID), zap.String("accountId", seat.AccountID), zap.Error(err))
		return err
	}
	m.publish(ctx, s, "left", seat.AccountID)
	return nil
}

// abandon encerra a rodada contra a banca com a jogada padrão; sem jogada
// padrão a aposta fica com a casa.
func (m *Manager) abandon(ctx context.Context, s *Session, i int, timeout bool) error {
	seat := s.Players[i]
	if in, ok := m.defaults.DefaultAction(s, seat.AccountID); ok {
		_, err := m.applyMove(ctx, s, seat.AccountID, seat.LastSeq+1, in, true)
		return err
	}
	reason := ReasonForfeit
	if timeout {
		reason = ReasonTimeout
	}
	s.Players[i].Forfeited = true
	return m.finish(ctx, s, reason, nil)
}

// forfeit marca o abandono numa mesa multijogador. Com um único jogador
// restante, ele recebe o pote menos ForfeitPenaltyBps (sem rake).
func (m *Manager) forfeit(ctx context.Context, s *Session, i int, reason string) error {
	s.Players[i].Forfeited = true
	acct := s.Players[i].AccountID
	m.log.Info("player forfeited", zap.String("sessionId", s.ID), zap.String("accountId", acct), zap.String("reason", reason))

	rest := s.Contenders()
	switch len(rest) {
	case 0:
		return m.finish(ctx, s, reason, nil)
	case 1:
		pot := s.Pot()
		winner := s.Players[rest[0]].AccountID
		s.WinnerID = winner
		return m.finish(ctx, s, reason, []Payout{{
			AccountID: winner,
			Kind:      string(ledger.KindWin),
			Amount:    pot - pot*m.policy.ForfeitPenaltyBps/10_000,
			Key:       winKey(s.ID, winner),
		}})
	}

	if s.Turn == i {
		s.advanceTurn()
	}
	if err := m.store.Save(ctx, s); err != nil {
		return err
	}
	m.publish(ctx, s, "forfeited", acct)
	return nil
}

// ExpireIdle aplica a política de timeout às sessões ativas paradas há mais
// de MoveTimeout. Devolve quantas sessões foram afetadas.
func (m *Manager) ExpireIdle(ctx context.Context) (int, error) {
	if m.policy.MoveTimeout <= 0 {
		return 0, nil
	}
	active, err := m.store.ListByStatus(ctx, StatusActive)
	if err != nil {
		return 0, err
	}
	now := m.clock.Now()
	n := 0
	for _, snap := range active {
		if now.Sub(snap.LastMoveAt) < m.policy.MoveTimeout {
			continue
		}
		ok, err := m.expire(ctx, snap.ID, now)
		if err != nil {
			if !isConflict(err) {
				m.log.Warn("expire idle session failed", zap.String("sessionId", snap.ID), zap.Error(err))
			}
			continue
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (m *Manager) expire(ctx context.Context, id string, now time.Time) (bool, error) {
	unlock := m.lock(id)
	defer unlock()

	s, err := m.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	// pode ter mudado entre a listagem e o lock
	if s.Status != StatusActive || now.Sub(s.LastMoveAt) < m.policy.MoveTimeout {
		return false, nil
	}
	i := s.Turn % len(s.Players)
	m.log.Info("move timeout", zap.String("sessionId", id), zap.String("accountId", s.Players[i].AccountID))

	if s.Game.HouseBanked() {
		return true, m.abandon(ctx, s, i, true)
	}
	seat := s.Players[i]
	if in, ok := m.defaults.DefaultAction(s, seat.AccountID); ok {
		_, err := m.applyMove(ctx, s, seat.AccountID, seat.LastSeq+1, in, true)
		return true, err
	}
	return true, m.forfeit(ctx, s, i, ReasonTimeout)
}
