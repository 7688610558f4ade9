package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/casino-platform/internal/game-service/session"
)

func TestMemoryOptimisticVersion(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := sample()
	require.NoError(t, m.Save(ctx, s))

	a, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	b, err := m.Get(ctx, "s1")
	require.NoError(t, err)

	a.Status = session.StatusActive
	require.NoError(t, m.Save(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	// b foi lido antes da gravação de a
	b.Status = session.StatusCancelled
	assert.ErrorIs(t, m.Save(ctx, b), session.ErrVersionConflict)

	got, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, got.Status)
}

func TestMemoryIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := sample()
	s.Players = []session.Seat{{AccountID: "alice"}}
	require.NoError(t, m.Save(ctx, s))

	// mutar o objeto do chamador não altera o que foi gravado
	s.Players[0].AccountID = "mallory"
	got, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Players[0].AccountID)
}

func TestMemoryListByStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	for i, st := range []session.Status{session.StatusWaiting, session.StatusActive, session.StatusWaiting} {
		s := sample()
		s.ID = []string{"c", "b", "a"}[i]
		s.Status = st
		s.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, m.Save(ctx, s))
	}

	waiting, err := m.ListByStatus(ctx, session.StatusWaiting)
	require.NoError(t, err)
	require.Len(t, waiting, 2)
	assert.Equal(t, "c", waiting[0].ID)
	assert.Equal(t, "a", waiting[1].ID)

	open, err := m.ListByStatus(ctx, session.StatusWaiting, session.StatusActive)
	require.NoError(t, err)
	assert.Len(t, open, 3)
}

func TestMemoryListWithVoidBets(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	clean := sample()
	require.NoError(t, m.Save(ctx, clean))
	voided := sample()
	voided.ID = "s2"
	voided.Status = session.StatusCancelled
	voided.VoidBets = []session.VoidBet{{AccountID: "alice", Key: "bet:s2:alice"}}
	require.NoError(t, m.Save(ctx, voided))

	got, err := m.ListWithVoidBets(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s2", got[0].ID)
}
