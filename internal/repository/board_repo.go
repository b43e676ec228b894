package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BoardRepository defines access to board records.
type BoardRepository interface {
	CreateBoard(ctx context.Context, b *model.Board) (*model.Board, error)
	GetBoardByID(ctx context.Context, boardID string) (*model.Board, error)
	// SoftDeleteBoard marks the board deleted if it is owned by accountID.
	// Returns false when no live board matched.
	SoftDeleteBoard(ctx context.Context, boardID, accountID string) (bool, error)
	// CountBoards counts non-deleted boards owned by the account. This is the
	// ground truth reconciliation converges board_count to.
	CountBoards(ctx context.Context, accountID string) (int64, error)
}

type boardRepo struct {
	pool *pgxpool.Pool
}

// NewBoardRepo creates a new BoardRepository.
func NewBoardRepo(pool *pgxpool.Pool) BoardRepository {
	return &boardRepo{pool: pool}
}

func (r *boardRepo) CreateBoard(ctx context.Context, b *model.Board) (*model.Board, error) {
	const q = `
        INSERT INTO boards (id, account_id, title, created_at, updated_at)
        VALUES (gen_random_uuid(), $1, $2, NOW(), NOW())
        RETURNING id, account_id, title, deleted_at, created_at, updated_at
    `
	var created model.Board
	err := r.pool.QueryRow(ctx, q, b.AccountID, b.Title).Scan(
		&created.ID,
		&created.AccountID,
		&created.Title,
		&created.DeletedAt,
		&created.CreatedAt,
		&created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create board for account %s: %w", b.AccountID, err)
	}
	return &created, nil
}

func (r *boardRepo) GetBoardByID(ctx context.Context, boardID string) (*model.Board, error) {
	const q = `
        SELECT id, account_id, title, deleted_at, created_at, updated_at
        FROM boards
        WHERE id = $1 AND deleted_at IS NULL
    `
	var b model.Board
	err := r.pool.QueryRow(ctx, q, boardID).Scan(
		&b.ID,
		&b.AccountID,
		&b.Title,
		&b.DeletedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch board %s: %w", boardID, err)
	}
	return &b, nil
}

func (r *boardRepo) SoftDeleteBoard(ctx context.Context, boardID, accountID string) (bool, error) {
	const q = `
        UPDATE boards
        SET deleted_at = NOW(), updated_at = NOW()
        WHERE id = $1 AND account_id = $2 AND deleted_at IS NULL
    `
	tag, err := r.pool.Exec(ctx, q, boardID, accountID)
	if err != nil {
		return false, fmt.Errorf("delete board %s: %w", boardID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *boardRepo) CountBoards(ctx context.Context, accountID string) (int64, error) {
	const q = `SELECT COUNT(*) FROM boards WHERE account_id = $1 AND deleted_at IS NULL`
	var count int64
	if err := r.pool.QueryRow(ctx, q, accountID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count boards for account %s: %w", accountID, err)
	}
	return count, nil
}
