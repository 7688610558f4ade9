package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/game-service/odds"
	"github.com/radieske/casino-platform/internal/shared/clock"
	"github.com/radieske/casino-platform/internal/shared/keylock"
	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

// Manager coordena o ciclo de vida das sessões. Toda mutação de uma sessão
// acontece sob o lock dela; o matchmaking tem um lock próprio.
type Manager struct {
	store    Store
	wallet   Wallet
	log      *zap.Logger
	clock    clock.Clock
	policy   Policy
	notifier Notifier
	defaults DefaultActionPolicy
	seeds    func() uint64
	ids      func() string

	locks    *keylock.Map
	matchMu  sync.Mutex
	reserved map[string]int // assentos reservados por mesa, guardados por matchMu
}

type Option func(*Manager)

func WithNotifier(n Notifier) Option { return func(m *Manager) { m.notifier = n } }

func WithDefaultActions(p DefaultActionPolicy) Option { return func(m *Manager) { m.defaults = p } }

// WithSeeds troca a geração de sementes (testes determinísticos)
func WithSeeds(f func() uint64) Option { return func(m *Manager) { m.seeds = f } }

func WithIDs(f func() string) Option { return func(m *Manager) { m.ids = f } }

func NewManager(store Store, wallet Wallet, log *zap.Logger, clk clock.Clock, policy Policy, opts ...Option) *Manager {
	if policy.MultiplayerMin < 2 {
		policy.MultiplayerMin = 2
	}
	if policy.MaxPokerSeats < policy.MultiplayerMin {
		policy.MaxPokerSeats = policy.MultiplayerMin
	}
	if policy.MaxPokerSeats > odds.MaxPokerHands {
		policy.MaxPokerSeats = odds.MaxPokerHands
	}
	if policy.DebitAttempts < 1 {
		policy.DebitAttempts = 1
	}
	m := &Manager{
		store:    store,
		wallet:   wallet,
		log:      log,
		clock:    clk,
		policy:   policy,
		defaults: DefaultActions{},
		seeds:    odds.NewSeed,
		ids:      uuid.NewString,
		locks:    keylock.New(),
		reserved: make(map[string]int),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// lock serializa as operações de uma sessão
func (m *Manager) lock(id string) func() { return m.locks.Lock(id) }

// PlaceBet abre uma sessão contra a banca ou entra numa mesa multijogador
// aberta com a mesma aposta (matchmaking); sem mesa compatível, cria uma.
func (m *Manager) PlaceBet(ctx context.Context, accountID string, game odds.GameType, amount int64, opt BetOptions) (*Session, error) {
	if !game.Valid() {
		return nil, odds.ErrUnknownGame
	}
	if amount <= 0 || accountID == "" {
		return nil, ErrInvalidBet
	}
	if game == odds.Roulette && opt.Selection != "" && !odds.ValidSelection(opt.Selection) {
		return nil, fmt.Errorf("%w: roulette selection %q", ErrInvalidBet, opt.Selection)
	}

	if game.HouseBanked() {
		s, err := m.create(ctx, game, amount, 1, 1, opt.Selection)
		if err != nil {
			return nil, err
		}
		out, err := m.Join(ctx, s.ID, accountID)
		if err != nil {
			m.reject(ctx, s.ID)
			return nil, err
		}
		return out, nil
	}

	for attempt := 1; ; attempt++ {
		id, created, err := m.reserve(ctx, accountID, game, amount, opt.Seats)
		if err != nil {
			return nil, err
		}
		out, err := m.Join(ctx, id, accountID)
		m.release(id)
		if err != nil && created {
			m.reject(ctx, id)
		}
		// outra réplica pode ter lotado ou iniciado a mesa escolhida
		if !created && attempt < matchAttempts && (errors.Is(err, ErrSessionFull) || errors.Is(err, ErrSessionNotJoinable)) {
			continue
		}
		return out, err
	}
}

// matchAttempts limita as novas buscas quando a mesa escolhida deixou de aceitar jogadores
const matchAttempts = 3

// reserve escolhe (ou cria) a mesa e reserva um assento. O lock do matchmaking
// cobre só a busca; o débito da aposta acontece fora dele.
func (m *Manager) reserve(ctx context.Context, accountID string, game odds.GameType, amount int64, seats int) (string, bool, error) {
	m.matchMu.Lock()
	defer m.matchMu.Unlock()

	id, err := m.match(ctx, accountID, game, amount)
	if err != nil {
		return "", false, err
	}
	created := false
	if id == "" {
		if seats < m.policy.MultiplayerMin || seats > m.policy.MaxPokerSeats {
			seats = m.policy.MaxPokerSeats
		}
		s, err := m.create(ctx, game, amount, m.policy.MultiplayerMin, seats, "")
		if err != nil {
			return "", false, err
		}
		id, created = s.ID, true
	}
	m.reserved[id]++
	return id, created, nil
}

func (m *Manager) release(id string) {
	m.matchMu.Lock()
	defer m.matchMu.Unlock()
	if m.reserved[id]--; m.reserved[id] <= 0 {
		delete(m.reserved, id)
	}
}

// match procura uma mesa aguardando jogadores com o mesmo jogo e aposta e
// com assento livre além das reservas em andamento
func (m *Manager) match(ctx context.Context, accountID string, game odds.GameType, amount int64) (string, error) {
	open, err := m.store.ListByStatus(ctx, StatusWaiting)
	if err != nil {
		return "", err
	}
	for _, s := range open {
		if s.Game != game || s.BetAmount != amount || len(s.Players)+m.reserved[s.ID] >= s.MaxPlayers {
			continue
		}
		if s.Seat(accountID) >= 0 {
			continue
		}
		return s.ID, nil
	}
	return "", nil
}

func (m *Manager) create(ctx context.Context, game odds.GameType, amount int64, min, max int, selection string) (*Session, error) {
	now := m.clock.Now()
	s := &Session{
		ID:         m.ids(),
		Game:       game,
		Status:     StatusWaiting,
		MinPlayers: min,
		MaxPlayers: max,
		BetAmount:  amount,
		Selection:  selection,
		Seed:       m.seeds(),
		CreatedAt:  now,
		LastMoveAt: now,
	}
	if !game.HouseBanked() {
		s.RakeBps = m.policy.RakeBps
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	m.log.Debug("session created", zap.String("sessionId", s.ID), zap.String("game", string(game)), zap.Int64("bet", amount))
	return s, nil
}

// reject cancela uma sessão recém-criada cuja primeira aposta foi recusada
func (m *Manager) reject(ctx context.Context, id string) {
	unlock := m.lock(id)
	defer unlock()
	s, err := m.store.Get(ctx, id)
	if err != nil || len(s.Players) > 0 || s.Status != StatusWaiting {
		return
	}
	now := m.clock.Now()
	s.Status, s.Reason, s.CompletedAt = StatusCancelled, ReasonRejected, &now
	if err := m.store.Save(ctx, s); err != nil {
		m.log.Warn("failed to cancel rejected session", zap.String("sessionId", id), zap.Error(err))
	}
}

// Join debita a aposta e senta o jogador. Com o mínimo de jogadores a sessão
// passa a ativa. Se a aposta for recusada, o jogador não entra.
func (m *Manager) Join(ctx context.Context, sessionID, accountID string) (*Session, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch {
	case s.Status != StatusWaiting:
		return nil, ErrSessionNotJoinable
	case s.Seat(accountID) >= 0:
		return nil, ErrAlreadyJoined
	case len(s.Players) >= s.MaxPlayers:
		return nil, ErrSessionFull
	}

	bet, err := m.debit(ctx, m.betRequest(s, accountID))
	if err != nil {
		if !answered(err) {
			m.voidBet(ctx, s, accountID)
		}
		return nil, err
	}

	now := m.clock.Now()
	// um débito confirmado agora substitui um estorno pendente da mesma chave
	s.VoidBets = dropVoid(s.VoidBets, accountID)
	s.Players = append(s.Players, Seat{AccountID: accountID, BetEntryID: bet.ID, JoinedAt: now})
	started := len(s.Players) >= s.MinPlayers
	if started {
		s.Status, s.StartedAt, s.LastMoveAt, s.Turn = StatusActive, &now, now, 0
	}
	if err := m.store.Save(ctx, s); err != nil {
		m.compensate(ctx, s, accountID, bet.ID)
		return nil, err
	}

	m.log.Info("player joined", zap.String("sessionId", s.ID), zap.String("accountId", accountID), zap.Int("players", len(s.Players)))
	m.publish(ctx, s, "joined", accountID)
	if started {
		m.publish(ctx, s, "started", "")
	}
	return s.Clone(), nil
}

func (m *Manager) betRequest(s *Session, accountID string) ledger.Request {
	return ledger.Request{
		AccountID:      accountID,
		Kind:           ledger.KindBet,
		Amount:         s.BetAmount,
		IdempotencyKey: betKey(s.ID, accountID),
		SessionID:      s.ID,
		Description:    string(s.Game) + " bet",
	}
}

// debit reenvia o débito pela mesma chave enquanto o ledger não der uma
// resposta; uma repetição devolve o lançamento já gravado.
func (m *Manager) debit(ctx context.Context, req ledger.Request) (ledger.Entry, error) {
	var err error
	for attempt := 1; ; attempt++ {
		var e ledger.Entry
		e, err = m.wallet.Debit(ctx, req)
		if err == nil || answered(err) || attempt >= m.policy.DebitAttempts {
			return e, err
		}
		m.log.Warn("bet debit without answer, retrying",
			zap.String("key", req.IdempotencyKey), zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ledger.Entry{}, err
		case <-time.After(m.policy.RetryBackoff):
		}
	}
}

// answered indica que o ledger respondeu com um erro de negócio, ou seja,
// nada foi lançado. Qualquer outro erro deixa o débito em aberto.
func answered(err error) bool { return ledger.Code(err) != "" }

// voidBet registra o débito incerto na sessão para o estorno da varredura
func (m *Manager) voidBet(ctx context.Context, s *Session, accountID string) {
	ctx = context.WithoutCancel(ctx)
	s.VoidBets = append(dropVoid(s.VoidBets, accountID), VoidBet{AccountID: accountID, Key: betKey(s.ID, accountID), At: m.clock.Now()})
	if err := m.store.Save(ctx, s); err != nil {
		m.log.Error("uncertain bet not recorded", zap.String("sessionId", s.ID), zap.String("accountId", accountID), zap.Error(err))
		return
	}
	m.log.Warn("bet debit unresolved, refund scheduled", zap.String("sessionId", s.ID), zap.String("accountId", accountID))
}

func dropVoid(v []VoidBet, accountID string) []VoidBet {
	out := v[:0:0]
	for _, b := range v {
		if b.AccountID != accountID {
			out = append(out, b)
		}
	}
	return out
}

// compensate devolve a aposta quando o snapshot não pôde ser gravado
func (m *Manager) compensate(ctx context.Context, s *Session, accountID, betID string) {
	_, err := m.wallet.Credit(ctx, ledger.Request{
		AccountID:      accountID,
		Kind:           ledger.KindRefund,
		Amount:         s.BetAmount,
		IdempotencyKey: refundKey(s.ID, accountID),
		SessionID:      s.ID,
		RelatedEntryID: betID,
		Description:    "bet refund",
	})
	if err != nil {
		m.log.Error("bet compensation failed", zap.String("sessionId", s.ID), zap.String("accountId", accountID), zap.Error(err))
	}
}

func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// ListOpen lista as mesas aguardando jogadores (lobby)
func (m *Manager) ListOpen(ctx context.Context) ([]*Session, error) {
	return m.store.ListByStatus(ctx, StatusWaiting)
}

func (m *Manager) publish(ctx context.Context, s *Session, typ, accountID string) {
	if m.notifier == nil {
		return
	}
	ev := Event{SessionID: s.ID, Type: typ, Status: s.Status, AccountID: accountID, Session: s.Clone(), At: m.clock.Now()}
	if err := m.notifier.Publish(ctx, ev); err != nil {
		m.log.Warn("session event not published", zap.String("sessionId", s.ID), zap.String("type", typ), zap.Error(err))
	}
}

func betKey(sessionID, accountID string) string    { return "bet:" + sessionID + ":" + accountID }
func winKey(sessionID, accountID string) string    { return "win:" + sessionID + ":" + accountID }
func refundKey(sessionID, accountID string) string { return "refund:" + sessionID + ":" + accountID }
func voidKey(sessionID, accountID string) string   { return "void:" + sessionID + ":" + accountID }

// isConflict identifica erros de concorrência entre réplicas
func isConflict(err error) bool { return errors.Is(err, ErrVersionConflict) }
