package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegisterStatus_Transitions(t *testing.T) {
	all := []RegisterStatus{RegisterActive, RegisterClosed, RegisterExpired, RegisterCancelled}
	allowed := map[RegisterStatus][]RegisterStatus{
		RegisterActive: {RegisterClosed, RegisterExpired},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
		assert.Equal(t, from != RegisterActive, from.IsTerminal(), string(from))
		assert.True(t, from.Valid())
	}
	assert.False(t, RegisterStatus("Open").Valid())
}

func TestCashRegister_IsStale(t *testing.T) {
	now := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)
	window := 20 * time.Hour

	r := &CashRegister{Status: RegisterActive, OpenedAt: now.Add(-window)}
	assert.False(t, r.IsStale(now, window), "exactly at the window is not stale")

	r.OpenedAt = now.Add(-window - time.Millisecond)
	assert.True(t, r.IsStale(now, window))

	r.Status = RegisterClosed
	assert.False(t, r.IsStale(now, window), "only active registers go stale")
}

func TestTransactionType_Valid(t *testing.T) {
	for _, tt := range []TransactionType{TransactionCashDrop, TransactionExpense, TransactionRefund, TransactionAdjustment} {
		assert.True(t, tt.Valid(), tt)
	}
	assert.False(t, TransactionType("Tip").Valid())
	assert.False(t, TransactionType("").Valid())
}
