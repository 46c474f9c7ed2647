package service

import (
	"context"
	"testing"
	"time"

	"tillkeeper/internal/model"
	"tillkeeper/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterExpirer_DefaultWindow(t *testing.T) {
	e := NewRegisterExpirer(memory.New(), 0)
	assert.Equal(t, 20*time.Hour, e.Window())
}

func TestRegisterExpirer_ExpireIsIdempotent(t *testing.T) {
	store := memory.New()
	e := NewRegisterExpirer(store, time.Hour)
	ctx := context.Background()
	id := store.Put(model.CashRegister{DeskID: 1, Status: model.RegisterActive, OpenedAt: time.Now()})

	ok, err := e.Expire(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Expire(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterExpirer_ExpireLeavesClosedAlone(t *testing.T) {
	store := memory.New()
	e := NewRegisterExpirer(store, time.Hour)
	id := store.Put(model.CashRegister{DeskID: 1, Status: model.RegisterClosed, OpenedAt: time.Now()})

	ok, err := e.Expire(context.Background(), id)

	require.NoError(t, err)
	assert.False(t, ok)
	reg, err := store.FindRegisterByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.RegisterClosed, reg.Status)
}

func TestRegisterExpirer_ExpireIfStale(t *testing.T) {
	store := memory.New()
	e := NewRegisterExpirer(store, time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	fresh := &model.CashRegister{Status: model.RegisterActive, OpenedAt: now.Add(-time.Hour)}
	fresh.ID = store.Put(*fresh)
	ok, err := e.ExpireIfStale(context.Background(), fresh, now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, model.RegisterActive, fresh.Status)

	stale := &model.CashRegister{DeskID: 2, Status: model.RegisterActive, OpenedAt: now.Add(-time.Hour - time.Second)}
	stale.ID = store.Put(*stale)
	ok, err = e.ExpireIfStale(context.Background(), stale, now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.RegisterExpired, stale.Status)
}
