package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

// Postgres implementa ledger.Store em banco
// A conta é bloqueada com SELECT ... FOR UPDATE durante toda a transação
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

const accountCols = `id, balance_cents, status, daily_deposit_limit_cents, daily_wager_limit_cents,
	self_exclusion_until, frozen, last_seq, version, created_at`

const entryCols = `id, account_id, seq, kind, amount_cents, status, reference, session_id, tournament_id,
	related_entry_id, method, description, provider_ref, failure_reason, requires_review, posted,
	created_at, completed_at`

// pgUniqueViolation é o SQLSTATE de chave duplicada
const pgUniqueViolation = "23505"

type scanner interface {
	Scan(dest ...any) error
}

// CreateAccount insere a conta; conta existente devolve ErrAccountExists
func (p *Postgres) CreateAccount(ctx context.Context, a ledger.Account) error {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO accounts (id, balance_cents, status, daily_deposit_limit_cents, daily_wager_limit_cents,
			self_exclusion_until, frozen, last_seq, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, 0, 1, $7)
		ON CONFLICT (id) DO NOTHING`,
		a.ID, a.Balance, string(a.Status), a.DailyDepositLimit, a.DailyWagerLimit,
		nullTime(a.SelfExclusionUntil), a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrAccountExists
	}
	return nil
}

func (p *Postgres) GetAccount(ctx context.Context, id string) (ledger.Account, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (p *Postgres) FindEntry(ctx context.Context, id string) (ledger.Entry, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+entryCols+` FROM ledger_entries WHERE id = $1`, id)
	return scanEntry(row)
}

// ListEntries pagina por seq (keyset); filtros nulos são ignorados
func (p *Postgres) ListEntries(ctx context.Context, accountID string, q ledger.Query) ([]ledger.Entry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+entryCols+` FROM ledger_entries
		WHERE account_id = $1 AND seq > $2
			AND ($3::text[] IS NULL OR kind = ANY($3))
			AND ($4::text[] IS NULL OR status = ANY($4))
			AND ($5::timestamptz IS NULL OR created_at >= $5)
			AND ($6::timestamptz IS NULL OR created_at < $6)
		ORDER BY seq
		LIMIT $7`,
		accountID, q.AfterSeq, pq.Array(kindStrings(q.Kinds)), pq.Array(statusStrings(q.Statuses)),
		zeroTimeNull(q.From), zeroTimeNull(q.To), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// WithAccount abre a transação, trava a linha da conta e aplica fn.
// O UPDATE final confere a versão lida (lock otimista como segunda barreira).
func (p *Postgres) WithAccount(ctx context.Context, accountID string, fn func(tx ledger.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE id = $1 FOR UPDATE`, accountID)
	acct, err := scanAccount(row)
	if err != nil {
		return err
	}

	ptx := &pgTx{tx: tx, acct: acct, readVersion: acct.Version}
	if err := fn(ptx); err != nil {
		return err
	}

	if ptx.saved {
		a := ptx.acct
		res, err := tx.ExecContext(ctx, `
			UPDATE accounts
			SET balance_cents = $1, status = $2, daily_deposit_limit_cents = $3, daily_wager_limit_cents = $4,
				self_exclusion_until = $5, frozen = $6, last_seq = $7, version = version + 1
			WHERE id = $8 AND version = $9`,
			a.Balance, string(a.Status), a.DailyDepositLimit, a.DailyWagerLimit,
			nullTime(a.SelfExclusionUntil), a.Frozen, a.LastSeq, a.ID, ptx.readVersion)
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("optimistic lock failed for account %s", a.ID)
		}
	}

	return tx.Commit()
}

type pgTx struct {
	tx          *sql.Tx
	acct        ledger.Account
	readVersion int64
	saved       bool
}

func (t *pgTx) Account() ledger.Account { return t.acct }

func (t *pgTx) SaveAccount(_ context.Context, a ledger.Account) error {
	t.acct = a
	t.saved = true
	return nil
}

func (t *pgTx) Entry(ctx context.Context, id string) (ledger.Entry, bool, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+entryCols+` FROM ledger_entries WHERE id = $1`, id)
	e, err := scanEntry(row)
	if errors.Is(err, ledger.ErrNotFound) {
		return ledger.Entry{}, false, nil
	}
	if err != nil {
		return ledger.Entry{}, false, err
	}
	return e, true, nil
}

func (t *pgTx) InsertEntry(ctx context.Context, e ledger.Entry) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (`+entryCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		e.ID, e.AccountID, e.Seq, string(e.Kind), e.Amount, string(e.Status), e.Reference,
		nullString(e.SessionID), nullString(e.TournamentID), nullString(e.RelatedEntryID),
		nullString(e.Method), nullString(e.Description), nullString(e.ProviderRef), nullString(e.FailureReason),
		e.RequiresReview, e.Posted, e.CreatedAt, nullTime(e.CompletedAt))
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return ledger.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// UpdateEntry só altera lançamentos pendentes: a transição acontece uma única vez
func (t *pgTx) UpdateEntry(ctx context.Context, e ledger.Entry) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE ledger_entries
		SET status = $2, posted = $3, provider_ref = $4, failure_reason = $5, completed_at = $6
		WHERE id = $1 AND status = 'pending'`,
		e.ID, string(e.Status), e.Posted, nullString(e.ProviderRef), nullString(e.FailureReason), nullTime(e.CompletedAt))
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrInvalidTransition
	}
	return nil
}

func (t *pgTx) SumAmounts(ctx context.Context, kinds []ledger.Kind, since time.Time) (int64, error) {
	var sum int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM ledger_entries
		WHERE account_id = $1 AND kind = ANY($2) AND status NOT IN ('failed', 'cancelled') AND created_at >= $3`,
		t.acct.ID, pq.Array(kindStrings(kinds)), since).Scan(&sum)
	return sum, err
}

func (t *pgTx) PostedBalance(ctx context.Context) (int64, error) {
	var sum int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN kind = ANY($2) THEN amount_cents ELSE -amount_cents END), 0)
		FROM ledger_entries WHERE account_id = $1 AND posted`,
		t.acct.ID, pq.Array(kindStrings(ledger.CreditKinds))).Scan(&sum)
	return sum, err
}

func scanAccount(row scanner) (ledger.Account, error) {
	var (
		a      ledger.Account
		status string
		excl   sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Balance, &status, &a.DailyDepositLimit, &a.DailyWagerLimit,
		&excl, &a.Frozen, &a.LastSeq, &a.Version, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Account{}, err
	}
	a.Status = ledger.AccountStatus(status)
	if excl.Valid {
		t := excl.Time
		a.SelfExclusionUntil = &t
	}
	return a, nil
}

func scanEntry(row scanner) (ledger.Entry, error) {
	var (
		e                                       ledger.Entry
		kind, status                            string
		session, tournament, related, method    sql.NullString
		description, providerRef, failureReason sql.NullString
		completedAt                             sql.NullTime
	)
	err := row.Scan(&e.ID, &e.AccountID, &e.Seq, &kind, &e.Amount, &status, &e.Reference,
		&session, &tournament, &related, &method, &description, &providerRef, &failureReason,
		&e.RequiresReview, &e.Posted, &e.CreatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Entry{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Entry{}, err
	}
	e.Kind = ledger.Kind(kind)
	e.Status = ledger.Status(status)
	e.SessionID = session.String
	e.TournamentID = tournament.String
	e.RelatedEntryID = related.String
	e.Method = method.String
	e.Description = description.String
	e.ProviderRef = providerRef.String
	e.FailureReason = failureReason.String
	if completedAt.Valid {
		t := completedAt.Time
		e.CompletedAt = &t
	}
	return e, nil
}

func kindStrings(kinds []ledger.Kind) []string {
	if len(kinds) == 0 {
		return nil
	}
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func statusStrings(statuses []ledger.Status) []string {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func zeroTimeNull(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
