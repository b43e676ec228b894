package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CardRepository defines access to card records.
type CardRepository interface {
	CreateCard(ctx context.Context, c *model.Card) (*model.Card, error)
	GetCardByID(ctx context.Context, cardID string) (*model.Card, error)
	// SoftDeleteCard marks the card deleted if owned by accountID and returns
	// the deleted card so the caller can adjust storage accounting.
	SoftDeleteCard(ctx context.Context, cardID, accountID string) (*model.Card, error)
	// CountCards counts non-deleted cards owned by the account.
	CountCards(ctx context.Context, accountID string) (int64, error)
	// SumStorageBytes sums the blob footprint of the account's live cards.
	// This is the ground truth confirmed_storage_bytes converges to.
	SumStorageBytes(ctx context.Context, accountID string) (int64, error)
}

type cardRepo struct {
	pool *pgxpool.Pool
}

// NewCardRepo creates a new CardRepository.
func NewCardRepo(pool *pgxpool.Pool) CardRepository {
	return &cardRepo{pool: pool}
}

func (r *cardRepo) CreateCard(ctx context.Context, c *model.Card) (*model.Card, error) {
	content, err := model.MarshalContent(c.Content)
	if err != nil {
		return nil, err
	}
	const q = `
        INSERT INTO cards (id, board_id, account_id, kind, content, created_at, updated_at)
        VALUES (gen_random_uuid(), $1, $2, $3, $4, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	created := *c
	err = r.pool.QueryRow(ctx, q, c.BoardID, c.AccountID, c.Kind, content).Scan(
		&created.ID,
		&created.CreatedAt,
		&created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create %s card on board %s: %w", c.Kind, c.BoardID, err)
	}
	return &created, nil
}

func (r *cardRepo) GetCardByID(ctx context.Context, cardID string) (*model.Card, error) {
	const q = `
        SELECT id, board_id, account_id, kind, content, deleted_at, created_at, updated_at
        FROM cards
        WHERE id = $1 AND deleted_at IS NULL
    `
	c, err := scanCard(r.pool.QueryRow(ctx, q, cardID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch card %s: %w", cardID, err)
	}
	return c, nil
}

func (r *cardRepo) SoftDeleteCard(ctx context.Context, cardID, accountID string) (*model.Card, error) {
	const q = `
        UPDATE cards
        SET deleted_at = NOW(), updated_at = NOW()
        WHERE id = $1 AND account_id = $2 AND deleted_at IS NULL
        RETURNING id, board_id, account_id, kind, content, deleted_at, created_at, updated_at
    `
	c, err := scanCard(r.pool.QueryRow(ctx, q, cardID, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("delete card %s: %w", cardID, err)
	}
	return c, nil
}

func (r *cardRepo) CountCards(ctx context.Context, accountID string) (int64, error) {
	const q = `SELECT COUNT(*) FROM cards WHERE account_id = $1 AND deleted_at IS NULL`
	var count int64
	if err := r.pool.QueryRow(ctx, q, accountID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count cards for account %s: %w", accountID, err)
	}
	return count, nil
}

// SumStorageBytes reads size_bytes out of the content union for the two
// storage-backed variants. Text and link cards contribute nothing.
func (r *cardRepo) SumStorageBytes(ctx context.Context, accountID string) (int64, error) {
	const q = `
        SELECT COALESCE(SUM(
            COALESCE((content->'image'->>'size_bytes')::bigint, 0) +
            COALESCE((content->'file'->>'size_bytes')::bigint, 0)
        ), 0)
        FROM cards
        WHERE account_id = $1 AND deleted_at IS NULL
    `
	var total int64
	if err := r.pool.QueryRow(ctx, q, accountID).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum storage bytes for account %s: %w", accountID, err)
	}
	return total, nil
}

func scanCard(row pgx.Row) (*model.Card, error) {
	var c model.Card
	var content []byte
	err := row.Scan(
		&c.ID,
		&c.BoardID,
		&c.AccountID,
		&c.Kind,
		&content,
		&c.DeletedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Content, err = model.UnmarshalContent(content)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
