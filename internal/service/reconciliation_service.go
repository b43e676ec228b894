package service

import (
	"context"
	"time"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/repository"

	"github.com/rs/zerolog"
)

// reconcileBatchSize bounds one scheduled pass; the next run picks up the rest.
const reconcileBatchSize = 500

// ReconcileSummary reports a batch reconciliation outcome.
type ReconcileSummary struct {
	Reconciled int `json:"reconciled"`
	Total      int `json:"total"`
}

// ReconciliationService recomputes counters from the authoritative record set
// and overwrites whatever drift the optimistic fast path accumulated. Runs
// are idempotent and safe alongside live traffic: they only move counters
// toward ground truth.
type ReconciliationService interface {
	// ReconcileAccount overwrites board/card counts and confirmed storage
	// bytes with values recomputed from live records, then stamps
	// counters_last_reconciled.
	ReconcileAccount(ctx context.Context, accountID string) error
	// ReconcileStale reconciles every account whose last reconciliation is
	// missing or older than the cutoff. Individual failures are logged and
	// skipped, never aborting the batch.
	ReconcileStale(ctx context.Context, olderThan time.Duration) (*ReconcileSummary, error)
}

type reconciliationService struct {
	accounts repository.AccountRepository
	boards   repository.BoardRepository
	cards    repository.CardRepository
	logger   zerolog.Logger
}

// NewReconciliationService creates a new ReconciliationService with a scoped logger.
func NewReconciliationService(
	accounts repository.AccountRepository,
	boards repository.BoardRepository,
	cards repository.CardRepository,
	logger zerolog.Logger,
) ReconciliationService {
	return &reconciliationService{
		accounts: accounts,
		boards:   boards,
		cards:    cards,
		logger:   logger.With().Str("service", "ReconciliationService").Logger(),
	}
}

func (s *reconciliationService) ReconcileAccount(ctx context.Context, accountID string) error {
	boardCount, err := s.boards.CountBoards(ctx, accountID)
	if err != nil {
		return err
	}
	cardCount, err := s.cards.CountCards(ctx, accountID)
	if err != nil {
		return err
	}
	storageBytes, err := s.cards.SumStorageBytes(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.accounts.SetReconciledCounters(ctx, accountID, boardCount, cardCount, storageBytes); err != nil {
		return err
	}
	s.logger.Debug().
		Str("account_id", accountID).
		Int64("boards", boardCount).
		Int64("cards", cardCount).
		Int64("storage_bytes", storageBytes).
		Msg("Account counters reconciled")
	return nil
}

func (s *reconciliationService) ReconcileStale(ctx context.Context, olderThan time.Duration) (*ReconcileSummary, error) {
	cutoff := time.Now().Add(-olderThan)
	ids, err := s.accounts.ListStaleReconciled(ctx, cutoff, reconcileBatchSize)
	if err != nil {
		return nil, err
	}

	summary := &ReconcileSummary{Total: len(ids)}
	for _, id := range ids {
		if err := s.ReconcileAccount(ctx, id); err != nil {
			s.logger.Error().Err(err).Str("account_id", id).Msg("Failed to reconcile account, continuing batch")
			continue
		}
		summary.Reconciled++
	}
	s.logger.Info().
		Int("reconciled", summary.Reconciled).
		Int("total", summary.Total).
		Msg("Reconciliation batch finished")
	return summary, nil
}
