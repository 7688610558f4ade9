package ledger

import (
	"context"
	"time"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Filter restringe o histórico. After é o cursor (seq do último item já lido).
type Filter struct {
	Kinds    []Kind
	Statuses []Status
	From     time.Time
	To       time.Time
	After    int64
	PageSize int
}

// HistoryPager lê o histórico de uma conta página a página, em ordem de criação.
// O cursor é o seq por conta, então páginas seguintes nunca repetem itens.
type HistoryPager struct {
	store     Store
	accountID string
	filter    Filter
	cursor    int64
	done      bool
}

// History abre a leitura paginada do histórico (getLedgerHistory)
func (l *Ledger) History(ctx context.Context, accountID string, f Filter) (*HistoryPager, error) {
	if _, err := l.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	switch {
	case f.PageSize <= 0:
		f.PageSize = defaultPageSize
	case f.PageSize > maxPageSize:
		f.PageSize = maxPageSize
	}
	return &HistoryPager{store: l.store, accountID: accountID, filter: f, cursor: f.After}, nil
}

// Next devolve a próxima página; página vazia com Done() == true indica o fim
func (p *HistoryPager) Next(ctx context.Context) ([]Entry, error) {
	if p.done {
		return nil, nil
	}
	// pede um a mais para saber se existe próxima página
	rows, err := p.store.ListEntries(ctx, p.accountID, Query{
		Kinds:    p.filter.Kinds,
		Statuses: p.filter.Statuses,
		From:     p.filter.From,
		To:       p.filter.To,
		AfterSeq: p.cursor,
		Limit:    p.filter.PageSize + 1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) <= p.filter.PageSize {
		p.done = true
	} else {
		rows = rows[:p.filter.PageSize]
	}
	if len(rows) > 0 {
		p.cursor = rows[len(rows)-1].Seq
	}
	return rows, nil
}

func (p *HistoryPager) Done() bool { return p.done }

// Cursor é o valor a repassar em Filter.After para continuar a leitura
func (p *HistoryPager) Cursor() int64 { return p.cursor }
