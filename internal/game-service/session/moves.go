package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/game-service/odds"
)

// SubmitMove aplica a jogada do jogador. Seq menor ou igual ao último aceito
// daquele jogador é descartado sem erro (MoveIgnored).
func (m *Manager) SubmitMove(ctx context.Context, sessionID, accountID string, seq int64, in MoveInput) (MoveResult, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return MoveResult{}, err
	}
	res, err := m.applyMove(ctx, s, accountID, seq, in, false)
	if errors.Is(err, ErrStaleMove) {
		m.log.Debug("stale move ignored", zap.String("sessionId", sessionID), zap.String("accountId", accountID), zap.Int64("seq", seq))
		return MoveResult{Status: MoveIgnored, Session: s.Clone()}, nil
	}
	return res, err
}

// decision é o efeito de uma jogada válida, aplicado depois de registrá-la
type decision struct {
	end    bool
	fold   bool
	reason string
	view   *odds.BlackjackView
}

// applyMove roda sob o lock da sessão; auto marca jogadas da política de timeout
func (m *Manager) applyMove(ctx context.Context, s *Session, accountID string, seq int64, in MoveInput, auto bool) (MoveResult, error) {
	if s.Status.Terminal() {
		return MoveResult{}, ErrSessionClosed
	}
	if s.Status != StatusActive {
		return MoveResult{}, ErrSessionNotActive
	}
	i := s.Seat(accountID)
	if i < 0 {
		return MoveResult{}, ErrNotSeated
	}
	if seq <= s.Players[i].LastSeq {
		return MoveResult{}, ErrStaleMove
	}
	if !s.Players[i].Contending() {
		return MoveResult{}, ErrPlayerOut
	}
	if !s.Game.HouseBanked() && s.Turn != i {
		return MoveResult{}, ErrNotYourTurn
	}

	in.Action = strings.ToLower(strings.TrimSpace(in.Action))
	d, err := m.decide(s, in)
	if err != nil {
		return MoveResult{}, err
	}
	if s.Game == odds.Roulette && in.Selection == "" {
		in.Selection = s.Selection
	}

	now := m.clock.Now()
	s.Players[i].LastSeq = seq
	s.Moves = append(s.Moves, Move{AccountID: accountID, Seq: seq, Action: in.Action, Selection: in.Selection, Auto: auto, At: now})
	s.LastMoveAt = now

	if d.fold {
		s.Players[i].Folded = true
		if len(s.Contenders()) <= 1 {
			d.end, d.reason = true, ReasonFold
		}
	}
	if !d.end && m.policy.MaxMoves > 0 && len(s.Moves) >= m.policy.MaxMoves {
		d.end, d.reason = true, ReasonCeiling
	}
	if d.end && auto && d.reason == ReasonPlayed {
		d.reason = ReasonTimeout
	}

	if !d.end {
		if !s.Game.HouseBanked() {
			s.advanceTurn()
		}
		if err := m.store.Save(ctx, s); err != nil {
			return MoveResult{}, err
		}
		m.publish(ctx, s, "move", accountID)
		return MoveResult{Status: MoveAccepted, Session: s.Clone(), View: d.view}, nil
	}

	var payouts []Payout
	if d.reason == ReasonFold {
		payouts = m.foldPayouts(s)
	} else if payouts, err = m.play(s); err != nil {
		return MoveResult{}, err
	}
	if err := m.finish(ctx, s, d.reason, payouts); err != nil {
		return MoveResult{}, err
	}
	return MoveResult{Status: MoveResolved, Session: s.Clone(), View: d.view}, nil
}

// decide valida a ação para o jogo e diz se ela encerra a rodada
func (m *Manager) decide(s *Session, in MoveInput) (decision, error) {
	played := decision{end: true, reason: ReasonPlayed}
	switch s.Game {
	case odds.Slots:
		if in.Action != ActionSpin {
			break
		}
		return played, nil
	case odds.Roulette:
		sel := in.Selection
		if sel == "" {
			sel = s.Selection
		}
		if in.Action != ActionSpin || !odds.ValidSelection(sel) {
			break
		}
		return played, nil
	case odds.Blackjack:
		if in.Action != ActionHit && in.Action != ActionStand {
			break
		}
		view, err := odds.PeekBlackjack(append(blackjackMoves(s), in.Action), odds.NewSeededSource(s.Seed))
		if err != nil {
			return decision{}, fmt.Errorf("%w: %v", ErrInvalidMove, err)
		}
		return decision{end: view.Done, reason: ReasonPlayed, view: &view}, nil
	case odds.Poker:
		switch in.Action {
		case ActionCheck:
			return decision{}, nil
		case ActionFold:
			return decision{fold: true}, nil
		case ActionShowdown:
			return played, nil
		}
	}
	return decision{}, fmt.Errorf("%w: %q for %s", ErrInvalidMove, in.Action, s.Game)
}

func blackjackMoves(s *Session) []string {
	out := make([]string, 0, len(s.Moves))
	for _, mv := range s.Moves {
		out = append(out, mv.Action)
	}
	return out
}
