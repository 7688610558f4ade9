package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/radieske/casino-platform/internal/game-service/session"
)

// Memory guarda snapshots de sessão em memória (testes e ambiente local)
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*session.Session)}
}

// Save confere a versão lida e incrementa Version no sucesso
func (m *Memory) Save(_ context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if (ok && cur.Version != s.Version) || (!ok && s.Version != 0) {
		return session.ErrVersionConflict
	}
	s.Version++
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return s.Clone(), nil
}

// ListByStatus devolve em ordem de criação
func (m *Memory) ListByStatus(_ context.Context, statuses ...session.Status) ([]*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*session.Session
	for _, s := range m.sessions {
		for _, st := range statuses {
			if s.Status == st {
				out = append(out, s.Clone())
				break
			}
		}
	}
	byCreation(out)
	return out, nil
}

func (m *Memory) ListWithVoidBets(_ context.Context) ([]*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*session.Session
	for _, s := range m.sessions {
		if len(s.VoidBets) > 0 {
			out = append(out, s.Clone())
		}
	}
	byCreation(out)
	return out, nil
}

func byCreation(out []*session.Session) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
}
