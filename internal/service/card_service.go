package service

import (
	"context"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/model"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/quota"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/repository"

	"github.com/rs/zerolog"
)

// CardService defines card operations with quota and storage accounting.
type CardService interface {
	// CreateCard validates the content union, increments the card counter
	// against the tier limit, inserts the record, and for storage-backed
	// kinds adds the payload size to confirmed_storage_bytes.
	CreateCard(ctx context.Context, accountID, boardID string, content model.CardContent) (*model.Card, error)
	GetCard(ctx context.Context, cardID, accountID string) (*model.Card, error)
	// DeleteCard soft-deletes the card, decrements the counter, subtracts any
	// storage footprint, and best-effort deletes the backing blob.
	DeleteCard(ctx context.Context, cardID, accountID string) error
}

type cardService struct {
	cards    repository.CardRepository
	accounts repository.AccountRepository
	quotas   QuotaService
	blobs    BlobStore
	logger   zerolog.Logger
}

// NewCardService creates a new CardService with a scoped logger.
func NewCardService(
	cards repository.CardRepository,
	accounts repository.AccountRepository,
	quotas QuotaService,
	blobs BlobStore,
	logger zerolog.Logger,
) CardService {
	return &cardService{
		cards:    cards,
		accounts: accounts,
		quotas:   quotas,
		blobs:    blobs,
		logger:   logger.With().Str("service", "CardService").Logger(),
	}
}

func (s *cardService) CreateCard(ctx context.Context, accountID, boardID string, content model.CardContent) (*model.Card, error) {
	if err := content.Validate(); err != nil {
		return nil, err
	}

	check, err := s.quotas.IncrementWithCheck(ctx, accountID, quota.ResourceCards, 1)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		return nil, &QuotaExceededError{Result: check}
	}

	card, err := s.cards.CreateCard(ctx, &model.Card{
		BoardID:   boardID,
		AccountID: accountID,
		Kind:      content.Kind,
		Content:   content,
	})
	if err != nil {
		_ = s.quotas.Decrement(ctx, accountID, quota.ResourceCards, 1)
		s.logger.Error().Err(err).Str("account_id", accountID).Str("board_id", boardID).Msg("Failed to create card after counter increment")
		return nil, err
	}

	if bytes := content.StorageBytes(); bytes > 0 {
		if err := s.accounts.AddConfirmedStorage(ctx, accountID, bytes); err != nil {
			// The card exists and the counter is right; only the storage
			// figure lags until reconciliation recomputes it.
			s.logger.Error().Err(err).
				Str("account_id", accountID).
				Int64("bytes", bytes).
				Msg("Failed to record confirmed storage for new card")
		}
	}
	return card, nil
}

func (s *cardService) GetCard(ctx context.Context, cardID, accountID string) (*model.Card, error) {
	card, err := s.cards.GetCardByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil || card.AccountID != accountID {
		return nil, ErrCardNotFound
	}
	return card, nil
}

func (s *cardService) DeleteCard(ctx context.Context, cardID, accountID string) error {
	card, err := s.cards.SoftDeleteCard(ctx, cardID, accountID)
	if err != nil {
		return err
	}
	if card == nil {
		return ErrCardNotFound
	}

	_ = s.quotas.Decrement(ctx, accountID, quota.ResourceCards, 1)

	if bytes := card.Content.StorageBytes(); bytes > 0 {
		if err := s.accounts.SubtractConfirmedStorage(ctx, accountID, bytes); err != nil {
			s.logger.Error().Err(err).Str("account_id", accountID).Int64("bytes", bytes).Msg("Failed to subtract storage for deleted card")
		}
		if key := card.Content.StorageKey(); key != "" {
			if err := s.blobs.Delete(ctx, key); err != nil {
				s.logger.Warn().Err(err).Str("storage_key", key).Msg("Failed to delete blob for deleted card")
			}
		}
	}
	return nil
}
