package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/quota"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReserveResult is the outcome of a storage reservation attempt.
type ReserveResult struct {
	Allowed       bool         `json:"allowed"`
	ReservationID string       `json:"reservation_id,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	CurrentUsage  Usage        `json:"current_usage"`
	Limits        quota.Limits `json:"limits"`
}

// ReservationService implements the two-phase storage protocol: bytes are
// pre-allocated against the tier limit before an upload starts, then either
// confirmed into the account's durable footprint or released. Reservations are
// optimistic pre-allocations on the account row, not locks; a client that
// walks away is recovered by CleanupStale.
type ReservationService interface {
	// Reserve claims declaredBytes of the account's storage quota and returns
	// an opaque reservation id for the upload flow to carry.
	Reserve(ctx context.Context, accountID string, declaredBytes int64) (*ReserveResult, error)
	// Confirm clears the pending side after the blob is verified present and
	// sized. The actual size enters confirmed_storage_bytes through the
	// record-creation path, not here.
	Confirm(ctx context.Context, accountID string, declaredBytes int64) error
	// Release clears the pending side for an abandoned or rejected upload.
	Release(ctx context.Context, accountID string, declaredBytes int64) error
	// CleanupStale zeroes pending bytes on accounts whose last storage
	// activity predates maxAge. Returns the number of accounts swept.
	CleanupStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

type reservationService struct {
	accounts repository.AccountRepository
	logger   zerolog.Logger
}

// NewReservationService creates a new ReservationService with a scoped logger.
func NewReservationService(accounts repository.AccountRepository, logger zerolog.Logger) ReservationService {
	return &reservationService{
		accounts: accounts,
		logger:   logger.With().Str("service", "ReservationService").Logger(),
	}
}

// newReservationID derives an opaque id from time plus randomness. The id is
// only a correlation handle; the reserved bytes live on the account row.
func newReservationID() string {
	return fmt.Sprintf("res_%d_%s", time.Now().Unix(), uuid.NewString()[:8])
}

func (s *reservationService) Reserve(ctx context.Context, accountID string, declaredBytes int64) (*ReserveResult, error) {
	if declaredBytes <= 0 {
		return nil, fmt.Errorf("declared size must be positive, got %d", declaredBytes)
	}
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	limits := quota.ForTier(EffectiveTier(account, time.Now()))
	limit := limits.For(quota.ResourceStorage)

	err = s.accounts.AddPendingStorage(ctx, accountID, declaredBytes, limit)
	if err != nil {
		if errors.Is(err, repository.ErrLimitReached) {
			s.logger.Info().
				Str("account_id", accountID).
				Int64("declared_bytes", declaredBytes).
				Int64("limit", limit).
				Msg("Storage reservation denied by tier limit")
			return &ReserveResult{
				Allowed: false,
				Reason: fmt.Sprintf("storage limit reached: %d of %d bytes used, %d more requested",
					account.StorageUsed(), limit, declaredBytes),
				CurrentUsage: usageOf(account),
				Limits:       limits,
			}, nil
		}
		return nil, err
	}

	usage := usageOf(account)
	usage.StorageBytes += declaredBytes
	return &ReserveResult{
		Allowed:       true,
		ReservationID: newReservationID(),
		CurrentUsage:  usage,
		Limits:        limits,
	}, nil
}

func (s *reservationService) Confirm(ctx context.Context, accountID string, declaredBytes int64) error {
	if err := s.accounts.SubtractPendingStorage(ctx, accountID, declaredBytes); err != nil {
		s.logger.Error().Err(err).
			Str("account_id", accountID).
			Int64("declared_bytes", declaredBytes).
			Msg("Failed to clear pending bytes on confirm")
		return err
	}
	return nil
}

func (s *reservationService) Release(ctx context.Context, accountID string, declaredBytes int64) error {
	if err := s.accounts.SubtractPendingStorage(ctx, accountID, declaredBytes); err != nil {
		// Stale-reservation cleanup will zero the pending side eventually.
		s.logger.Error().Err(err).
			Str("account_id", accountID).
			Int64("declared_bytes", declaredBytes).
			Msg("Failed to release reservation, pending bytes will drift until cleanup")
		return err
	}
	return nil
}

func (s *reservationService) CleanupStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	swept, err := s.accounts.SweepStalePending(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("Stale reservation sweep failed")
		return 0, err
	}
	if swept > 0 {
		s.logger.Info().Int64("accounts_swept", swept).Time("cutoff", cutoff).Msg("Cleared stale storage reservations")
	}
	return swept, nil
}
