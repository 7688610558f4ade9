package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/radieske/casino-platform/internal/game-service/session"
)

// Postgres grava o snapshot completo da sessão em JSONB; status e versão
// ficam em colunas próprias para filtro e lock otimista.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Save(ctx context.Context, s *session.Session) error {
	next := s.Clone()
	next.Version = s.Version + 1
	snap, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	var res sql.Result
	if s.Version == 0 {
		res, err = p.db.ExecContext(ctx, `
			INSERT INTO game_sessions (id, game, status, bet_amount_cents, snapshot, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 1, $6, NOW())
			ON CONFLICT (id) DO NOTHING`,
			s.ID, string(s.Game), string(s.Status), s.BetAmount, snap, s.CreatedAt)
	} else {
		res, err = p.db.ExecContext(ctx, `
			UPDATE game_sessions
			SET status = $2, snapshot = $3, version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $4`,
			s.ID, string(s.Status), snap, s.Version)
	}
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return session.ErrVersionConflict
	}
	s.Version = next.Version
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*session.Session, error) {
	var snap []byte
	err := p.db.QueryRowContext(ctx, `SELECT snapshot FROM game_sessions WHERE id = $1`, id).Scan(&snap)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(snap)
}

func (p *Postgres) ListByStatus(ctx context.Context, statuses ...session.Status) ([]*session.Session, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return p.list(ctx, `
		SELECT snapshot FROM game_sessions
		WHERE status = ANY($1)
		ORDER BY created_at, id`, pq.Array(names))
}

// ListWithVoidBets usa a chave voidBets do snapshot; ela só existe quando há estornos pendentes
func (p *Postgres) ListWithVoidBets(ctx context.Context) ([]*session.Session, error) {
	return p.list(ctx, `
		SELECT snapshot FROM game_sessions
		WHERE snapshot ? 'voidBets'
		ORDER BY created_at, id`)
}

func (p *Postgres) list(ctx context.Context, query string, args ...any) ([]*session.Session, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*session.Session
	for rows.Next() {
		var snap []byte
		if err := rows.Scan(&snap); err != nil {
			return nil, err
		}
		s, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func decode(snap []byte) (*session.Session, error) {
	var s session.Session
	if err := json.Unmarshal(snap, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}
