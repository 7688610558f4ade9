package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/radieske/casino-platform/internal/tournament-service/tournament"
)

type Memory struct {
	mu    sync.RWMutex
	items map[string]*tournament.Tournament
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]*tournament.Tournament)}
}

func (m *Memory) Save(_ context.Context, t *tournament.Tournament) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[t.ID]
	if (ok && cur.Version != t.Version) || (!ok && t.Version != 0) {
		return tournament.ErrVersionConflict
	}
	t.Version++
	m.items[t.ID] = t.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*tournament.Tournament, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.items[id]
	if !ok {
		return nil, tournament.ErrNotFound
	}
	return t.Clone(), nil
}

// ListByStatus ordena pelo horário de início
func (m *Memory) ListByStatus(_ context.Context, statuses ...tournament.Status) ([]*tournament.Tournament, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*tournament.Tournament
	for _, t := range m.items {
		for _, st := range statuses {
			if t.Status == st {
				out = append(out, t.Clone())
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}
