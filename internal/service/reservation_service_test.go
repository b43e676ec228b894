package service

import (
	"context"
	"testing"
	"time"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveAndRelease(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.seed(&model.Account{ID: "acc-1", SubscriptionTier: "free"})
	svc := NewReservationService(repo, zerolog.Nop())

	const declared = 5 * 1024 * 1024
	res, err := svc.Reserve(context.Background(), "acc-1", declared)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.NotEmpty(t, res.ReservationID)
	assert.Equal(t, int64(declared), repo.get("acc-1").PendingStorageBytes)
	assert.Equal(t, int64(declared), res.CurrentUsage.StorageBytes)

	require.NoError(t, svc.Release(context.Background(), "acc-1", declared))
	a := repo.get("acc-1")
	assert.Equal(t, int64(0), a.PendingStorageBytes)
	assert.Equal(t, int64(0), a.ConfirmedStorageBytes)
}

func TestReserveDeniedAtStorageLimit(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.seed(&model.Account{
		ID:                    "acc-1",
		SubscriptionTier:      "free",
		ConfirmedStorageBytes: 249 * 1024 * 1024,
	})
	svc := NewReservationService(repo, zerolog.Nop())

	res, err := svc.Reserve(context.Background(), "acc-1", 5*1024*1024)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Empty(t, res.ReservationID)
	assert.Contains(t, res.Reason, "storage limit reached")
	assert.Equal(t, int64(0), repo.get("acc-1").PendingStorageBytes)
}

func TestReserveRejectsNonPositiveSize(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.seed(&model.Account{ID: "acc-1"})
	svc := NewReservationService(repo, zerolog.Nop())

	_, err := svc.Reserve(context.Background(), "acc-1", 0)
	assert.Error(t, err)
	_, err = svc.Reserve(context.Background(), "acc-1", -10)
	assert.Error(t, err)
}

func TestConfirmClearsPendingOnly(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.seed(&model.Account{ID: "acc-1", SubscriptionTier: "free", PendingStorageBytes: 1000})
	svc := NewReservationService(repo, zerolog.Nop())

	require.NoError(t, svc.Confirm(context.Background(), "acc-1", 1000))
	a := repo.get("acc-1")
	assert.Equal(t, int64(0), a.PendingStorageBytes)
	// confirmed bytes are written by the card path, not the reservation
	assert.Equal(t, int64(0), a.ConfirmedStorageBytes)
}

func TestCleanupStaleSweepsOldReservations(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.seed(&model.Account{
		ID:                  "stale",
		PendingStorageBytes: 4096,
		LastStorageSync:     time.Now().Add(-3 * time.Hour),
	})
	repo.seed(&model.Account{
		ID:                  "fresh",
		PendingStorageBytes: 2048,
		LastStorageSync:     time.Now(),
	})
	svc := NewReservationService(repo, zerolog.Nop())

	swept, err := svc.CleanupStale(context.Background(), 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)
	assert.Equal(t, int64(0), repo.get("stale").PendingStorageBytes)
	assert.Equal(t, int64(2048), repo.get("fresh").PendingStorageBytes)
}
