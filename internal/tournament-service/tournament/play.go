package tournament

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

// Eliminate tira o participante do torneio. A colocação é N menos os já
// eliminados; as fichas vão para quem eliminou ou são divididas entre os
// ativos. Com um ativo ou menos o torneio termina.
func (e *Engine) Eliminate(ctx context.Context, id, accountID, by string) (*Tournament, error) {
	return e.EliminateMany(ctx, id, []string{accountID}, by)
}

// EliminateMany elimina vários participantes de uma vez (mesma mão).
// Quem tem mais fichas fica com a melhor colocação; empate vai para a
// inscrição mais antiga.
func (e *Engine) EliminateMany(ctx context.Context, id string, accounts []string, by string) (*Tournament, error) {
	return e.mutate(ctx, id, func(t *Tournament) error {
		if t.Status != StatusRunning {
			return ErrNotRunning
		}
		if len(accounts) == 0 {
			return fmt.Errorf("%w: nobody to eliminate", ErrInvalidElimination)
		}

		idx := make([]int, 0, len(accounts))
		seen := make(map[string]bool, len(accounts))
		for _, a := range accounts {
			i := t.Participant(a)
			switch {
			case i < 0:
				return ErrNotRegistered
			case !t.Participants[i].Active():
				return ErrNotActive
			case a == by:
				return fmt.Errorf("%w: %s cannot eliminate themselves", ErrInvalidElimination, a)
			case seen[a]:
				return fmt.Errorf("%w: %s listed twice", ErrInvalidElimination, a)
			}
			seen[a] = true
			idx = append(idx, i)
		}
		if len(idx) >= t.ActiveCount() {
			return fmt.Errorf("%w: at least one participant must remain", ErrInvalidElimination)
		}
		byIdx := -1
		if by != "" {
			byIdx = t.Participant(by)
			if byIdx < 0 || !t.Participants[byIdx].Active() {
				return fmt.Errorf("%w: eliminator %s is not active", ErrNotActive, by)
			}
		}

		// do mais fraco para o mais forte: o mais forte sai por último e fica mais bem colocado
		sort.Slice(idx, func(a, b int) bool {
			pa, pb := t.Participants[idx[a]], t.Participants[idx[b]]
			if pa.Chips != pb.Chips {
				return pa.Chips < pb.Chips
			}
			return pa.Order > pb.Order
		})

		now := e.clock.Now()
		n := len(t.Participants)
		chips := make([]int64, len(idx))
		for k, i := range idx {
			p := &t.Participants[i]
			chips[k] = p.Chips
			p.Status = ParticipantEliminated
			p.FinalRank = n - len(t.Eliminations)
			p.EliminatedAt = &now
			p.EliminatedBy = by
			p.Chips = 0
			t.Eliminations = append(t.Eliminations, Elimination{AccountID: p.AccountID, By: by, Rank: p.FinalRank, Chips: chips[k], At: now})
			e.log.Info("participant eliminated", zap.String("tournamentId", t.ID), zap.String("accountId", p.AccountID), zap.Int("rank", p.FinalRank))
		}
		for _, c := range chips {
			e.award(t, byIdx, c)
		}

		if t.ActiveCount() <= 1 {
			return e.complete(ctx, t)
		}
		return nil
	})
}

// award entrega as fichas do eliminado; sem eliminador, divide entre os ativos
// e o resto vai para o ativo inscrito há mais tempo
func (e *Engine) award(t *Tournament, byIdx int, chips int64) {
	if chips <= 0 {
		return
	}
	if byIdx >= 0 {
		t.Participants[byIdx].Chips += chips
		return
	}
	var active []int
	for i, p := range t.Participants {
		if p.Active() {
			active = append(active, i)
		}
	}
	if len(active) == 0 {
		return
	}
	share := chips / int64(len(active))
	rem := chips - share*int64(len(active))
	earliest := active[0]
	for _, i := range active {
		t.Participants[i].Chips += share
		if t.Participants[i].Order < t.Participants[earliest].Order {
			earliest = i
		}
	}
	t.Participants[earliest].Chips += rem
}

// TransferChips move fichas entre dois ativos (resultado de uma mão)
func (e *Engine) TransferChips(ctx context.Context, id, from, to string, amount int64) (*Tournament, error) {
	return e.mutate(ctx, id, func(t *Tournament) error {
		if t.Status != StatusRunning {
			return ErrNotRunning
		}
		if amount <= 0 || from == to {
			return ErrInvalidTransfer
		}
		fi, ti := t.Participant(from), t.Participant(to)
		if fi < 0 || ti < 0 {
			return ErrNotRegistered
		}
		if !t.Participants[fi].Active() || !t.Participants[ti].Active() {
			return ErrNotActive
		}
		if t.Participants[fi].Chips < amount {
			return ErrInsufficientChips
		}
		t.Participants[fi].Chips -= amount
		t.Participants[ti].Chips += amount
		return nil
	})
}

// AddRebuy cobra o rebuy e soma fichas ao participante ativo
func (e *Engine) AddRebuy(ctx context.Context, id, accountID string) (*Tournament, error) {
	return e.mutate(ctx, id, func(t *Tournament) error {
		i, err := activeParticipant(t, accountID)
		if err != nil {
			return err
		}
		p := &t.Participants[i]
		switch {
		case !t.Settings.AllowRebuys:
			return ErrRebuyNotAllowed
		case t.Settings.MaxRebuys > 0 && p.Rebuys >= t.Settings.MaxRebuys:
			return ErrRebuyLimit
		}
		key := "trebuy:" + t.ID + ":" + accountID + ":" + strconv.Itoa(p.Rebuys+1)
		if err := e.charge(ctx, t, accountID, key, t.Settings.RebuyCost, "tournament rebuy"); err != nil {
			return err
		}
		p = &t.Participants[i]
		p.Rebuys++
		p.Chips += t.Settings.RebuyChips
		return nil
	})
}

// AddOn é permitido uma única vez por participante
func (e *Engine) AddOn(ctx context.Context, id, accountID string) (*Tournament, error) {
	return e.mutate(ctx, id, func(t *Tournament) error {
		i, err := activeParticipant(t, accountID)
		if err != nil {
			return err
		}
		switch {
		case !t.Settings.AllowAddOn:
			return ErrAddOnNotAllowed
		case t.Participants[i].AddOn:
			return ErrAddOnUsed
		}
		if err := e.charge(ctx, t, accountID, "taddon:"+t.ID+":"+accountID, t.Settings.AddOnCost, "tournament add-on"); err != nil {
			return err
		}
		t.Participants[i].AddOn = true
		t.Participants[i].Chips += t.Settings.AddOnChips
		return nil
	})
}

func activeParticipant(t *Tournament, accountID string) (int, error) {
	if t.Status != StatusRunning {
		return -1, ErrNotRunning
	}
	i := t.Participant(accountID)
	if i < 0 {
		return -1, ErrNotRegistered
	}
	if !t.Participants[i].Active() {
		return -1, ErrNotActive
	}
	return i, nil
}

// Leaderboard lista os ativos por fichas (desc) e ordem de inscrição
func (e *Engine) Leaderboard(ctx context.Context, id string) ([]Participant, error) {
	t, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rankActive(t), nil
}

func rankActive(t *Tournament) []Participant {
	var out []Participant
	for _, p := range t.Participants {
		if p.Active() {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Chips != out[j].Chips {
			return out[i].Chips > out[j].Chips
		}
		return out[i].Order < out[j].Order
	})
	return out
}

// Complete encerra o torneio em andamento e paga os prêmios
func (e *Engine) Complete(ctx context.Context, id string) (*Tournament, error) {
	return e.mutate(ctx, id, func(t *Tournament) error {
		if t.Status != StatusRunning {
			return ErrNotRunning
		}
		return e.complete(ctx, t)
	})
}

// complete fecha a classificação: ativos recebem 1..k por fichas, eliminados
// mantêm a colocação da eliminação
func (e *Engine) complete(ctx context.Context, t *Tournament) error {
	for r, p := range rankActive(t) {
		i := t.Participant(p.AccountID)
		t.Participants[i].FinalRank = r + 1
	}

	prizes := Prizes(t.PrizePool(), t.PrizeStructure, len(t.Participants))
	t.Standings = make([]Standing, 0, len(t.Participants))
	for _, p := range t.Participants {
		t.Standings = append(t.Standings, Standing{Rank: p.FinalRank, AccountID: p.AccountID, Chips: p.Chips, Prize: prizes[p.FinalRank]})
	}
	sort.Slice(t.Standings, func(i, j int) bool { return t.Standings[i].Rank < t.Standings[j].Rank })

	now := e.clock.Now()
	t.Status, t.CompletedAt = StatusCompleted, &now
	return e.payout(ctx, t)
}

// payout credita um prêmio por colocação paga (tprize:<torneio>:<rank>).
// Falha no meio deixa PayoutsDone == false para ResumePayouts.
func (e *Engine) payout(ctx context.Context, t *Tournament) error {
	for i := range t.Standings {
		s := &t.Standings[i]
		if s.Paid || s.Prize <= 0 {
			continue
		}
		entry, err := e.wallet.Credit(ctx, ledger.Request{
			AccountID:      s.AccountID,
			Kind:           ledger.KindTournamentPrize,
			Amount:         s.Prize,
			IdempotencyKey: "tprize:" + t.ID + ":" + strconv.Itoa(s.Rank),
			TournamentID:   t.ID,
			Description:    fmt.Sprintf("%s prize rank %d", t.Name, s.Rank),
		})
		if err != nil {
			e.log.Error("tournament prize failed", zap.String("tournamentId", t.ID), zap.Int("rank", s.Rank), zap.Error(err))
			return nil
		}
		s.EntryID, s.Paid = entry.ID, true
	}
	t.PayoutsDone = true
	e.log.Info("tournament completed", zap.String("tournamentId", t.ID), zap.Int64("prizePool", t.PrizePool()))
	return nil
}

// ResumePayouts conclui prêmios pendentes de torneios já encerrados
func (e *Engine) ResumePayouts(ctx context.Context) (int, error) {
	done, err := e.store.ListByStatus(ctx, StatusCompleted)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, snap := range done {
		if snap.PayoutsDone {
			continue
		}
		t, err := e.mutate(ctx, snap.ID, func(t *Tournament) error {
			if t.PayoutsDone {
				return nil
			}
			return e.payout(ctx, t)
		})
		if err != nil {
			e.log.Warn("resume payouts failed", zap.String("tournamentId", snap.ID), zap.Error(err))
			continue
		}
		if t.PayoutsDone {
			n++
		}
	}
	return n, nil
}
