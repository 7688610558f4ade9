package clock

import (
	"sync"
	"time"
)

// Clock abstrai a fonte de tempo para bônus diários, timeouts e torneios
type Clock interface {
	Now() time.Time
}

// Real usa o relógio do sistema (UTC)
type Real struct{}

func (Real) Now() time.Time { return time.Now().UTC() }

// Manual é um relógio controlado pelos testes
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(t time.Time) *Manual { return &Manual{now: t.UTC()} }

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t.UTC()
	m.mu.Unlock()
}

// StartOfDay devolve 00:00 UTC do dia de t
func StartOfDay(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
