package projector

import (
	"context"
	"database/sql"
	"time"

	"github.com/radieske/casino-platform/pkg/contracts/events"
)

// PostgresRepo mantém a projeção de saldos e a trilha de auditoria do ledger
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// UpsertBalance só avança a projeção: evento mais antigo que o gravado é ignorado
func (r *PostgresRepo) UpsertBalance(ctx context.Context, e events.LedgerEntryChanged) error {
	const q = `
		INSERT INTO balance_projection (account_id, balance_cents, last_entry_id, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE SET
			balance_cents = EXCLUDED.balance_cents,
			last_entry_id = EXCLUDED.last_entry_id,
			updated_at    = EXCLUDED.updated_at
		WHERE balance_projection.updated_at <= EXCLUDED.updated_at
	`
	_, err := r.DB.ExecContext(ctx, q, e.AccountID, e.BalanceCents, e.EntryID, time.UnixMilli(e.TsUnixMs).UTC())
	return err
}

// InsertAudit registra a mudança de estado do lançamento (entrada + status é única)
func (r *PostgresRepo) InsertAudit(ctx context.Context, e events.LedgerEntryChanged) error {
	const q = `
		INSERT INTO ledger_audit (entry_id, account_id, kind, status, amount_cents, balance_cents, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (entry_id, status) DO NOTHING
	`
	_, err := r.DB.ExecContext(ctx, q,
		e.EntryID, e.AccountID, e.Kind, e.Status, e.AmountCents, e.BalanceCents, e.Reference,
		time.UnixMilli(e.TsUnixMs).UTC(),
	)
	return err
}
