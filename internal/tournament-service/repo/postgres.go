package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/radieske/casino-platform/internal/tournament-service/tournament"
)

// Postgres guarda o torneio como snapshot JSONB (mesmo modelo das sessões)
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Save(ctx context.Context, t *tournament.Tournament) error {
	next := t.Clone()
	next.Version = t.Version + 1
	snap, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal tournament: %w", err)
	}

	var res sql.Result
	if t.Version == 0 {
		res, err = p.db.ExecContext(ctx, `
			INSERT INTO tournaments (id, name, status, start_time, snapshot, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 1, $6, NOW())
			ON CONFLICT (id) DO NOTHING`,
			t.ID, t.Name, string(t.Status), t.StartTime, snap, t.CreatedAt)
	} else {
		res, err = p.db.ExecContext(ctx, `
			UPDATE tournaments
			SET status = $2, snapshot = $3, version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $4`,
			t.ID, string(t.Status), snap, t.Version)
	}
	if err != nil {
		return fmt.Errorf("save tournament: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tournament.ErrVersionConflict
	}
	t.Version = next.Version
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*tournament.Tournament, error) {
	var snap []byte
	err := p.db.QueryRowContext(ctx, `SELECT snapshot FROM tournaments WHERE id = $1`, id).Scan(&snap)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tournament.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t tournament.Tournament
	if err := json.Unmarshal(snap, &t); err != nil {
		return nil, fmt.Errorf("decode tournament: %w", err)
	}
	return &t, nil
}

func (p *Postgres) ListByStatus(ctx context.Context, statuses ...tournament.Status) ([]*tournament.Tournament, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT snapshot FROM tournaments
		WHERE status = ANY($1)
		ORDER BY start_time, id`, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	defer rows.Close()

	var out []*tournament.Tournament
	for rows.Next() {
		var snap []byte
		if err := rows.Scan(&snap); err != nil {
			return nil, err
		}
		var t tournament.Tournament
		if err := json.Unmarshal(snap, &t); err != nil {
			return nil, fmt.Errorf("decode tournament: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
