package service

import (
	"context"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/model"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/quota"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/repository"

	"github.com/rs/zerolog"
)

// BoardService defines board operations with quota enforcement.
type BoardService interface {
	// CreateBoard increments the board counter against the tier limit, then
	// inserts the record. A failed insert is compensated with a decrement.
	CreateBoard(ctx context.Context, accountID, title string) (*model.Board, error)
	GetBoard(ctx context.Context, boardID, accountID string) (*model.Board, error)
	// DeleteBoard soft-deletes the board and decrements the counter.
	DeleteBoard(ctx context.Context, boardID, accountID string) error
}

type boardService struct {
	boards repository.BoardRepository
	quotas QuotaService
	logger zerolog.Logger
}

// NewBoardService creates a new BoardService with a scoped logger.
func NewBoardService(boards repository.BoardRepository, quotas QuotaService, logger zerolog.Logger) BoardService {
	return &boardService{
		boards: boards,
		quotas: quotas,
		logger: logger.With().Str("service", "BoardService").Logger(),
	}
}

func (s *boardService) CreateBoard(ctx context.Context, accountID, title string) (*model.Board, error) {
	check, err := s.quotas.IncrementWithCheck(ctx, accountID, quota.ResourceBoards, 1)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		return nil, &QuotaExceededError{Result: check}
	}

	board, err := s.boards.CreateBoard(ctx, &model.Board{AccountID: accountID, Title: title})
	if err != nil {
		// The counter was already bumped; undo it so the account is not
		// charged for a board that does not exist.
		_ = s.quotas.Decrement(ctx, accountID, quota.ResourceBoards, 1)
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to create board after counter increment")
		return nil, err
	}
	return board, nil
}

func (s *boardService) GetBoard(ctx context.Context, boardID, accountID string) (*model.Board, error) {
	board, err := s.boards.GetBoardByID(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board == nil || board.AccountID != accountID {
		return nil, ErrBoardNotFound
	}
	return board, nil
}

func (s *boardService) DeleteBoard(ctx context.Context, boardID, accountID string) error {
	deleted, err := s.boards.SoftDeleteBoard(ctx, boardID, accountID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrBoardNotFound
	}
	// Best effort: a failed decrement leaves the counter high until the next
	// reconciliation pass, which is safe.
	_ = s.quotas.Decrement(ctx, accountID, quota.ResourceBoards, 1)
	return nil
}
