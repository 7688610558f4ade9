package repo

import (
	"context"
	"sync"
	"time"

	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

// Memory implementa ledger.Store em memória (testes e ambiente local).
// Cada conta tem seu mutex; mudanças de uma transação só são aplicadas no commit.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]*memAccount
	entries  map[string]ledger.Entry
	byAcct   map[string][]string // ids em ordem de seq
}

type memAccount struct {
	lock sync.Mutex
	acct ledger.Account
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]*memAccount),
		entries:  make(map[string]ledger.Entry),
		byAcct:   make(map[string][]string),
	}
}

func (m *Memory) CreateAccount(_ context.Context, a ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; ok {
		return ledger.ErrAccountExists
	}
	a.Version = 1
	m.accounts[a.ID] = &memAccount{acct: a}
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id string) (ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return ledger.Account{}, ledger.ErrNotFound
	}
	return a.acct, nil
}

func (m *Memory) FindEntry(_ context.Context, id string) (ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return ledger.Entry{}, ledger.ErrNotFound
	}
	return e, nil
}

func (m *Memory) ListEntries(_ context.Context, accountID string, q ledger.Query) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Entry
	for _, id := range m.byAcct[accountID] {
		e := m.entries[id]
		if e.Seq <= q.AfterSeq || !matches(e, q) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) WithAccount(ctx context.Context, accountID string, fn func(tx ledger.Tx) error) error {
	m.mu.RLock()
	ma, ok := m.accounts[accountID]
	m.mu.RUnlock()
	if !ok {
		return ledger.ErrNotFound
	}

	ma.lock.Lock()
	defer ma.lock.Unlock()

	m.mu.RLock()
	snapshot := ma.acct
	m.mu.RUnlock()

	tx := &memTx{m: m, acct: snapshot, updates: make(map[string]ledger.Entry)}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return m.commit(ma, tx)
}

func (m *Memory) commit(ma *memAccount, tx *memTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range tx.inserts {
		if _, dup := m.entries[e.ID]; dup {
			return ledger.ErrDuplicateEntry
		}
	}
	for _, e := range tx.inserts {
		m.entries[e.ID] = e
		m.byAcct[e.AccountID] = append(m.byAcct[e.AccountID], e.ID)
	}
	for id, e := range tx.updates {
		m.entries[id] = e
	}
	if tx.saved {
		tx.acct.Version = ma.acct.Version + 1
		ma.acct = tx.acct
	}
	return nil
}

type memTx struct {
	m       *Memory
	acct    ledger.Account
	saved   bool
	inserts []ledger.Entry
	updates map[string]ledger.Entry
}

func (t *memTx) Account() ledger.Account { return t.acct }

func (t *memTx) SaveAccount(_ context.Context, a ledger.Account) error {
	t.acct = a
	t.saved = true
	return nil
}

func (t *memTx) Entry(_ context.Context, id string) (ledger.Entry, bool, error) {
	for _, e := range t.inserts {
		if e.ID == id {
			return e, true, nil
		}
	}
	if e, ok := t.updates[id]; ok {
		return e, true, nil
	}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	e, ok := t.m.entries[id]
	return e, ok, nil
}

func (t *memTx) InsertEntry(ctx context.Context, e ledger.Entry) error {
	if _, ok, _ := t.Entry(ctx, e.ID); ok {
		return ledger.ErrDuplicateEntry
	}
	t.inserts = append(t.inserts, e)
	return nil
}

func (t *memTx) UpdateEntry(_ context.Context, e ledger.Entry) error {
	for i := range t.inserts {
		if t.inserts[i].ID == e.ID {
			t.inserts[i] = e
			return nil
		}
	}
	t.m.mu.RLock()
	prev, ok := t.m.entries[e.ID]
	t.m.mu.RUnlock()
	if !ok {
		return ledger.ErrNotFound
	}
	if prev.Status.Terminal() {
		return ledger.ErrInvalidTransition
	}
	t.updates[e.ID] = e
	return nil
}

func (t *memTx) SumAmounts(_ context.Context, kinds []ledger.Kind, since time.Time) (int64, error) {
	var sum int64
	for _, e := range t.all() {
		if e.Status == ledger.StatusFailed || e.Status == ledger.StatusCancelled {
			continue
		}
		if e.CreatedAt.Before(since) || !containsKind(kinds, e.Kind) {
			continue
		}
		sum += e.Amount
	}
	return sum, nil
}

func (t *memTx) PostedBalance(_ context.Context) (int64, error) {
	var sum int64
	for _, e := range t.all() {
		if e.Posted {
			sum += e.Signed()
		}
	}
	return sum, nil
}

// all devolve os lançamentos da conta com as mudanças da transação aplicadas
func (t *memTx) all() []ledger.Entry {
	t.m.mu.RLock()
	ids := t.m.byAcct[t.acct.ID]
	out := make([]ledger.Entry, 0, len(ids)+len(t.inserts))
	for _, id := range ids {
		e := t.m.entries[id]
		if u, ok := t.updates[id]; ok {
			e = u
		}
		out = append(out, e)
	}
	t.m.mu.RUnlock()
	return append(out, t.inserts...)
}

func matches(e ledger.Entry, q ledger.Query) bool {
	if len(q.Kinds) > 0 && !containsKind(q.Kinds, e.Kind) {
		return false
	}
	if len(q.Statuses) > 0 {
		found := false
		for _, s := range q.Statuses {
			if s == e.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !q.From.IsZero() && e.CreatedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !e.CreatedAt.Before(q.To) {
		return false
	}
	return true
}

func containsKind(kinds []ledger.Kind, k ledger.Kind) bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}
