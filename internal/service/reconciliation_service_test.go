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

func TestReconcileAccountConvergesDriftedCounters(t *testing.T) {
	accounts := newFakeAccountRepo()
	boards := newFakeBoardRepo()
	cards := newFakeCardRepo()

	// counters drifted high: a crashed compensation path never decremented
	accounts.seed(&model.Account{
		ID:                    "acc-1",
		SubscriptionTier:      "free",
		BoardCount:            5,
		CardCount:             9,
		ConfirmedStorageBytes: 999_999,
	})

	ctx := context.Background()
	_, err := boards.CreateBoard(ctx, &model.Board{AccountID: "acc-1", Title: "a"})
	require.NoError(t, err)
	b2, err := boards.CreateBoard(ctx, &model.Board{AccountID: "acc-1", Title: "b"})
	require.NoError(t, err)
	_, err = boards.SoftDeleteBoard(ctx, b2.ID, "acc-1")
	require.NoError(t, err)

	_, err = cards.CreateCard(ctx, &model.Card{
		AccountID: "acc-1", BoardID: "board-1", Kind: model.CardKindText,
		Content: model.CardContent{Kind: model.CardKindText, Text: &model.TextContent{Body: "x"}},
	})
	require.NoError(t, err)
	_, err = cards.CreateCard(ctx, &model.Card{
		AccountID: "acc-1", BoardID: "board-1", Kind: model.CardKindFile,
		Content: model.CardContent{
			Kind: model.CardKindFile,
			File: &model.FileContent{StorageKey: "k", SizeBytes: 4096, Filename: "f.bin"},
		},
	})
	require.NoError(t, err)

	svc := NewReconciliationService(accounts, boards, cards, zerolog.Nop())
	require.NoError(t, svc.ReconcileAccount(ctx, "acc-1"))

	a := accounts.get("acc-1")
	assert.Equal(t, int64(1), a.BoardCount)
	assert.Equal(t, int64(2), a.CardCount)
	assert.Equal(t, int64(4096), a.ConfirmedStorageBytes)
	assert.NotNil(t, a.CountersLastReconciled)
}

func TestReconcileStaleSkipsRecentlyReconciled(t *testing.T) {
	accounts := newFakeAccountRepo()
	boards := newFakeBoardRepo()
	cards := newFakeCardRepo()

	recent := time.Now()
	accounts.seed(&model.Account{ID: "fresh", CountersLastReconciled: &recent, BoardCount: 3})
	accounts.seed(&model.Account{ID: "stale", BoardCount: 7})

	svc := NewReconciliationService(accounts, boards, cards, zerolog.Nop())
	summary, err := svc.ReconcileStale(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Reconciled)

	// the stale account converged to zero live rows, the fresh one kept its count
	assert.Equal(t, int64(0), accounts.get("stale").BoardCount)
	assert.Equal(t, int64(3), accounts.get("fresh").BoardCount)
}
