package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

// SweepReport resume uma passada da varredura periódica
type SweepReport struct {
	Expired int // sessões paradas que receberam a jogada automática ou o abandono
	Resumed int // sessões em resolving que terminaram de pagar
	Voided  int // apostas incertas estornadas
}

// Sweep é o trabalho periódico do game-service: aplica os timeouts, conclui
// pagamentos que falharam e estorna apostas cujo débito ficou sem resposta.
func (m *Manager) Sweep(ctx context.Context) (SweepReport, error) {
	var (
		r    SweepReport
		errs []error
		err  error
	)
	if r.Expired, err = m.ExpireIdle(ctx); err != nil {
		errs = append(errs, err)
	}
	if r.Resumed, err = m.ResumeResolving(ctx); err != nil {
		errs = append(errs, err)
	}
	if r.Voided, err = m.SettleVoidBets(ctx); err != nil {
		errs = append(errs, err)
	}
	return r, errors.Join(errs...)
}

// SettleVoidBets estorna as apostas incertas. O débito é reenviado pela mesma
// chave (o ledger devolve o lançamento gravado ou lança agora) e então volta
// como refund; o saldo fica igual nos dois casos. Se o ledger recusar o
// débito, nada foi lançado e não há o que estornar.
func (m *Manager) SettleVoidBets(ctx context.Context) (int, error) {
	pending, err := m.store.ListWithVoidBets(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, snap := range pending {
		done, err := m.settleVoids(ctx, snap.ID)
		if err != nil && !isConflict(err) {
			m.log.Warn("void bet refund failed", zap.String("sessionId", snap.ID), zap.Error(err))
		}
		n += done
	}
	return n, nil
}

func (m *Manager) settleVoids(ctx context.Context, id string) (int, error) {
	unlock := m.lock(id)
	defer unlock()

	s, err := m.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	var (
		left     []VoidBet
		done     int
		firstErr error
	)
	for _, v := range s.VoidBets {
		if err := m.refundVoid(ctx, s, v); err != nil {
			left = append(left, v)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		done++
	}
	if done == 0 {
		return 0, firstErr
	}
	s.VoidBets = left
	if err := m.store.Save(ctx, s); err != nil {
		// os lançamentos são idempotentes; a próxima passada repete sem efeito
		return 0, err
	}
	return done, firstErr
}

func (m *Manager) refundVoid(ctx context.Context, s *Session, v VoidBet) error {
	bet, err := m.wallet.Debit(ctx, m.betRequest(s, v.AccountID))
	if answered(err) {
		m.log.Info("void bet was never debited", zap.String("sessionId", s.ID), zap.String("accountId", v.AccountID), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}
	_, err = m.wallet.Credit(ctx, ledger.Request{
		AccountID:      v.AccountID,
		Kind:           ledger.KindRefund,
		Amount:         s.BetAmount,
		IdempotencyKey: voidKey(s.ID, v.AccountID),
		SessionID:      s.ID,
		RelatedEntryID: bet.ID,
		Description:    "void bet refund",
	})
	if err != nil {
		return err
	}
	m.log.Info("void bet refunded", zap.String("sessionId", s.ID), zap.String("accountId", v.AccountID), zap.Int64("amount", s.BetAmount))
	return nil
}
