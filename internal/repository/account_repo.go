package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAccountNotFound is returned when no account row matches the lookup.
var ErrAccountNotFound = errors.New("account_not_found")

// ErrLimitReached is returned by conditional counter updates when the write
// would push usage past the tier ceiling. The row is left unchanged.
var ErrLimitReached = errors.New("limit_reached")

// ErrUnknownCounter is returned when a counter name is not one of the
// whitelisted account columns.
var ErrUnknownCounter = errors.New("unknown_counter")

// Counter names accepted by the counter operations. Mapped to column names
// explicitly so caller input never reaches SQL as an identifier.
const (
	CounterBoards = "board_count"
	CounterCards  = "card_count"
)

var counterColumns = map[string]string{
	CounterBoards: "board_count",
	CounterCards:  "card_count",
}

// SubscriptionUpdate carries the absolute subscription field values a webhook
// handler resolved for an account. Handlers set values, never deltas, so
// reapplying the same update is harmless.
type SubscriptionUpdate struct {
	Tier                 string
	Status               string
	StripeSubscriptionID string
	CurrentPeriodEnd     time.Time
	CancelAtPeriodEnd    bool
	ClearGracePeriod     bool
}

// AccountRepository defines access to the tenant account row, the single
// shared mutable resource of the quota system.
type AccountRepository interface {
	CreateAccount(ctx context.Context, id, email, name string) error
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByStripeCustomerID(ctx context.Context, customerID string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	UpdateStripeCustomerID(ctx context.Context, accountID, customerID string) error

	// IncrementCounterWithLimit adds delta to the named counter only if the
	// result stays within limit (limit < 0 means unlimited). Returns the new
	// value, or ErrLimitReached with no write performed.
	IncrementCounterWithLimit(ctx context.Context, accountID, counter string, delta, limit int64) (int64, error)
	// DecrementCounter subtracts delta from the named counter, floored at 0.
	DecrementCounter(ctx context.Context, accountID, counter string, delta int64) error
	// SetReconciledCounters overwrites all counters with recomputed ground
	// truth and stamps counters_last_reconciled.
	SetReconciledCounters(ctx context.Context, accountID string, boards, cards, confirmedBytes int64) error
	// ListStaleReconciled returns ids of accounts never reconciled or last
	// reconciled before the cutoff.
	ListStaleReconciled(ctx context.Context, cutoff time.Time, limit int) ([]string, error)

	// AddPendingStorage reserves bytes against the storage limit
	// (confirmed + pending + bytes must stay within limit unless unlimited)
	// and stamps last_storage_sync. Returns ErrLimitReached with no write if
	// the reservation would not fit.
	AddPendingStorage(ctx context.Context, accountID string, bytes, limit int64) error
	// SubtractPendingStorage releases reserved bytes, floored at 0.
	SubtractPendingStorage(ctx context.Context, accountID string, bytes int64) error
	// AddConfirmedStorage records bytes that are verified present in the blob store.
	AddConfirmedStorage(ctx context.Context, accountID string, bytes int64) error
	// SubtractConfirmedStorage removes bytes for deleted objects, floored at 0.
	SubtractConfirmedStorage(ctx context.Context, accountID string, bytes int64) error
	// SweepStalePending zeroes pending_storage_bytes on every account whose
	// last storage activity predates the cutoff. Returns the number of
	// accounts swept.
	SweepStalePending(ctx context.Context, cutoff time.Time) (int64, error)

	// ApplySubscription writes the resolved tier/status/period fields for
	// checkout completions and subscription updates.
	ApplySubscription(ctx context.Context, accountID string, up SubscriptionUpdate) error
	// ClearSubscription resets the account to the free tier after a
	// subscription is deleted at the provider.
	ClearSubscription(ctx context.Context, accountID string) error
	// MarkPastDue flags a failed payment and starts the grace period.
	MarkPastDue(ctx context.Context, accountID string, graceEnd time.Time) error
	// MarkActive records a recovered payment and clears the grace period.
	MarkActive(ctx context.Context, accountID string) error
}

type accountRepo struct {
	pool *pgxpool.Pool
}

// NewAccountRepo creates a new AccountRepository.
func NewAccountRepo(pool *pgxpool.Pool) AccountRepository {
	return &accountRepo{pool: pool}
}

const accountColumns = `
        id, email, name, stripe_customer_id, stripe_subscription_id,
        subscription_tier, subscription_status, current_period_end,
        cancel_at_period_end, grace_period_end,
        board_count, card_count, confirmed_storage_bytes, pending_storage_bytes,
        last_storage_sync, counters_last_reconciled, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Name,
		&a.StripeCustomerID,
		&a.StripeSubscriptionID,
		&a.SubscriptionTier,
		&a.SubscriptionStatus,
		&a.CurrentPeriodEnd,
		&a.CancelAtPeriodEnd,
		&a.GracePeriodEnd,
		&a.BoardCount,
		&a.CardCount,
		&a.ConfirmedStorageBytes,
		&a.PendingStorageBytes,
		&a.LastStorageSync,
		&a.CountersLastReconciled,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CreateAccount inserts a free-tier account row if none exists for the id.
func (r *accountRepo) CreateAccount(ctx context.Context, id, email, name string) error {
	const q = `
        INSERT INTO accounts (id, email, name, subscription_tier, last_storage_sync, created_at, updated_at)
        VALUES ($1, $2, $3, 'free', NOW(), NOW(), NOW())
        ON CONFLICT (id) DO NOTHING
    `
	if _, err := r.pool.Exec(ctx, q, id, email, name); err != nil {
		return fmt.Errorf("create account %s: %w", id, err)
	}
	return nil
}

func (r *accountRepo) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	q := `SELECT` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch account %s: %w", id, err)
	}
	return a, nil
}

func (r *accountRepo) GetAccountByStripeCustomerID(ctx context.Context, customerID string) (*model.Account, error) {
	q := `SELECT` + accountColumns + ` FROM accounts WHERE stripe_customer_id = $1`
	a, err := scanAccount(r.pool.QueryRow(ctx, q, customerID))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch account by customer %s: %w", customerID, err)
	}
	return a, nil
}

func (r *accountRepo) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	q := `SELECT` + accountColumns + ` FROM accounts WHERE email = $1`
	a, err := scanAccount(r.pool.QueryRow(ctx, q, email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch account by email: %w", err)
	}
	return a, nil
}

func (r *accountRepo) UpdateStripeCustomerID(ctx context.Context, accountID, customerID string) error {
	const q = `UPDATE accounts SET stripe_customer_id = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, accountID, customerID); err != nil {
		return fmt.Errorf("link stripe customer for account %s: %w", accountID, err)
	}
	return nil
}

// IncrementCounterWithLimit relies on the row-level atomicity of a single
// UPDATE: the limit check and the write happen in one statement, so two
// concurrent callers cannot both pass the check and overshoot.
func (r *accountRepo) IncrementCounterWithLimit(ctx context.Context, accountID, counter string, delta, limit int64) (int64, error) {
	col, ok := counterColumns[counter]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCounter, counter)
	}
	q := fmt.Sprintf(`
        UPDATE accounts
        SET %[1]s = %[1]s + $2, updated_at = NOW()
        WHERE id = $1 AND ($3 < 0 OR %[1]s + $2 <= $3)
        RETURNING %[1]s
    `, col)
	var newValue int64
	err := r.pool.QueryRow(ctx, q, accountID, delta, limit).Scan(&newValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Zero rows means either the limit condition failed or the account
			// row does not exist; keep the sentinels distinct.
			var exists bool
			if checkErr := r.pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID,
			).Scan(&exists); checkErr != nil {
				return 0, fmt.Errorf("increment %s for account %s: %w", counter, accountID, checkErr)
			}
			if !exists {
				return 0, ErrAccountNotFound
			}
			return 0, ErrLimitReached
		}
		return 0, fmt.Errorf("increment %s for account %s: %w", counter, accountID, err)
	}
	return newValue, nil
}

func (r *accountRepo) DecrementCounter(ctx context.Context, accountID, counter string, delta int64) error {
	col, ok := counterColumns[counter]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCounter, counter)
	}
	q := fmt.Sprintf(`
        UPDATE accounts
        SET %[1]s = GREATEST(0, %[1]s - $2), updated_at = NOW()
        WHERE id = $1
    `, col)
	if _, err := r.pool.Exec(ctx, q, accountID, delta); err != nil {
		return fmt.Errorf("decrement %s for account %s: %w", counter, accountID, err)
	}
	return nil
}

func (r *accountRepo) SetReconciledCounters(ctx context.Context, accountID string, boards, cards, confirmedBytes int64) error {
	const q = `
        UPDATE accounts
        SET board_count = $2,
            card_count = $3,
            confirmed_storage_bytes = $4,
            counters_last_reconciled = NOW(),
            updated_at = NOW()
        WHERE id = $1
    `
	if _, err := r.pool.Exec(ctx, q, accountID, boards, cards, confirmedBytes); err != nil {
		return fmt.Errorf("write reconciled counters for account %s: %w", accountID, err)
	}
	return nil
}

func (r *accountRepo) ListStaleReconciled(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	const q = `
        SELECT id
        FROM accounts
        WHERE counters_last_reconciled IS NULL OR counters_last_reconciled < $1
        ORDER BY counters_last_reconciled ASC NULLS FIRST
        LIMIT $2
    `
	rows, err := r.pool.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale-reconciled accounts: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale-reconciled account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale-reconciled accounts: %w", err)
	}
	return ids, nil
}

func (r *accountRepo) AddPendingStorage(ctx context.Context, accountID string, bytes, limit int64) error {
	const q = `
        UPDATE accounts
        SET pending_storage_bytes = pending_storage_bytes + $2,
            last_storage_sync = NOW(),
            updated_at = NOW()
        WHERE id = $1
          AND ($3 < 0 OR confirmed_storage_bytes + pending_storage_bytes + $2 <= $3)
        RETURNING pending_storage_bytes
    `
	var pending int64
	err := r.pool.QueryRow(ctx, q, accountID, bytes, limit).Scan(&pending)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if checkErr := r.pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID,
			).Scan(&exists); checkErr != nil {
				return fmt.Errorf("reserve %d bytes for account %s: %w", bytes, accountID, checkErr)
			}
			if !exists {
				return ErrAccountNotFound
			}
			return ErrLimitReached
		}
		return fmt.Errorf("reserve %d bytes for account %s: %w", bytes, accountID, err)
	}
	return nil
}

func (r *accountRepo) SubtractPendingStorage(ctx context.Context, accountID string, bytes int64) error {
	const q = `
        UPDATE accounts
        SET pending_storage_bytes = GREATEST(0, pending_storage_bytes - $2),
            last_storage_sync = NOW(),
            updated_at = NOW()
        WHERE id = $1
    `
	if _, err := r.pool.Exec(ctx, q, accountID, bytes); err != nil {
		return fmt.Errorf("release %d pending bytes for account %s: %w", bytes, accountID, err)
	}
	return nil
}

func (r *accountRepo) AddConfirmedStorage(ctx context.Context, accountID string, bytes int64) error {
	const q = `
        UPDATE accounts
        SET confirmed_storage_bytes = confirmed_storage_bytes + $2,
            last_storage_sync = NOW(),
            updated_at = NOW()
        WHERE id = $1
    `
	if _, err := r.pool.Exec(ctx, q, accountID, bytes); err != nil {
		return fmt.Errorf("add %d confirmed bytes for account %s: %w", bytes, accountID, err)
	}
	return nil
}

func (r *accountRepo) SubtractConfirmedStorage(ctx context.Context, accountID string, bytes int64) error {
	const q = `
        UPDATE accounts
        SET confirmed_storage_bytes = GREATEST(0, confirmed_storage_bytes - $2),
            last_storage_sync = NOW(),
            updated_at = NOW()
        WHERE id = $1
    `
	if _, err := r.pool.Exec(ctx, q, accountID, bytes); err != nil {
		return fmt.Errorf("subtract %d confirmed bytes for account %s: %w", bytes, accountID, err)
	}
	return nil
}

// SweepStalePending assumes any reservation older than the cutoff is dead.
// The cutoff must exceed the longest legitimate upload-plus-validation window.
func (r *accountRepo) SweepStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
        UPDATE accounts
        SET pending_storage_bytes = 0,
            last_storage_sync = NOW(),
            updated_at = NOW()
        WHERE pending_storage_bytes > 0 AND last_storage_sync < $1
    `
	tag, err := r.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep stale pending storage: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *accountRepo) ApplySubscription(ctx context.Context, accountID string, up SubscriptionUpdate) error {
	const q = `
        UPDATE accounts
        SET subscription_tier = $2,
            subscription_status = $3,
            stripe_subscription_id = $4,
            current_period_end = $5,
            cancel_at_period_end = $6,
            grace_period_end = CASE WHEN $7 THEN NULL ELSE grace_period_end END,
            updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.pool.Exec(ctx, q,
		accountID,
		up.Tier,
		up.Status,
		up.StripeSubscriptionID,
		up.CurrentPeriodEnd,
		up.CancelAtPeriodEnd,
		up.ClearGracePeriod,
	)
	if err != nil {
		return fmt.Errorf("apply subscription for account %s: %w", accountID, err)
	}
	return nil
}

func (r *accountRepo) ClearSubscription(ctx context.Context, accountID string) error {
	const q = `
        UPDATE accounts
        SET subscription_tier = 'free',
            subscription_status = 'canceled',
            stripe_subscription_id = NULL,
            current_period_end = NULL,
            cancel_at_period_end = FALSE,
            grace_period_end = NULL,
            updated_at = NOW()
        WHERE id = $1
    `
	if _, err := r.pool.Exec(ctx, q, accountID); err != nil {
		return fmt.Errorf("clear subscription for account %s: %w", accountID, err)
	}
	return nil
}

func (r *accountRepo) MarkPastDue(ctx context.Context, accountID string, graceEnd time.Time) error {
	const q = `
        UPDATE accounts
        SET subscription_status = 'past_due',
            grace_period_end = $2,
            updated_at = NOW()
        WHERE id = $1
    `
	if _, err := r.pool.Exec(ctx, q, accountID, graceEnd); err != nil {
		return fmt.Errorf("mark account %s past_due: %w", accountID, err)
	}
	return nil
}

func (r *accountRepo) MarkActive(ctx context.Context, accountID string) error {
	const q = `
        UPDATE accounts
        SET subscription_status = 'active',
            grace_period_end = NULL,
            updated_at = NOW()
        WHERE id = $1
    `
	if _, err := r.pool.Exec(ctx, q, accountID); err != nil {
		return fmt.Errorf("mark account %s active: %w", accountID, err)
	}
	return nil
}
