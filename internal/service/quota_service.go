package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/model"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/quota"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/repository"

	"github.com/rs/zerolog"
)

// Usage is a point-in-time snapshot of an account's consumption.
type Usage struct {
	Boards       int64 `json:"boards"`
	Cards        int64 `json:"cards"`
	StorageBytes int64 `json:"storageBytes"`
}

// CheckResult is the outcome of an entitlement check or a checked increment.
// Allowed=false is an expected condition, not an error.
type CheckResult struct {
	Allowed      bool         `json:"allowed"`
	Reason       string       `json:"reason,omitempty"`
	NewValue     int64        `json:"-"`
	CurrentUsage Usage        `json:"current_usage"`
	Limits       quota.Limits `json:"limits"`
}

// UsageSummary is the payload of the usage query endpoint.
type UsageSummary struct {
	Usage  Usage        `json:"usage"`
	Limits quota.Limits `json:"limits"`
	Tier   quota.Tier   `json:"tier"`
}

// QuotaService enforces per-account resource ceilings. Increments are checked
// against the tier limit in a single conditional store write, so concurrent
// callers cannot overshoot; drift from crashed compensation paths is repaired
// by the reconciliation job.
type QuotaService interface {
	// IncrementWithCheck bumps the counter for a count-based resource if the
	// result stays within the account's tier limit. A denied increment
	// returns Allowed=false with a nil error and performs no write.
	IncrementWithCheck(ctx context.Context, accountID string, res quota.Resource, delta int64) (*CheckResult, error)
	// Decrement compensates a partially-failed operation that already
	// incremented. Floored at zero, never checked against a limit.
	Decrement(ctx context.Context, accountID string, res quota.Resource, delta int64) error
	// CheckLimit is the read-only entitlement check: current usage plus extra
	// compared against the tier limit. Safe to call arbitrarily often.
	CheckLimit(ctx context.Context, accountID string, res quota.Resource, extra int64) (*CheckResult, error)
	// Usage returns the account's usage snapshot with its limits and tier.
	Usage(ctx context.Context, accountID string) (*UsageSummary, error)
}

type quotaService struct {
	accounts repository.AccountRepository
	logger   zerolog.Logger
}

// NewQuotaService creates a new QuotaService with a scoped logger.
func NewQuotaService(accounts repository.AccountRepository, logger zerolog.Logger) QuotaService {
	return &quotaService{
		accounts: accounts,
		logger:   logger.With().Str("service", "QuotaService").Logger(),
	}
}

func counterFor(res quota.Resource) (string, error) {
	switch res {
	case quota.ResourceBoards:
		return repository.CounterBoards, nil
	case quota.ResourceCards:
		return repository.CounterCards, nil
	}
	return "", fmt.Errorf("resource %q has no counter", res)
}

// EffectiveTier resolves the tier whose limits apply right now. An account
// whose payment failed keeps its paid limits while the grace period runs and
// falls back to free limits once it lapses.
func EffectiveTier(a *model.Account, now time.Time) quota.Tier {
	tier := quota.Tier(a.SubscriptionTier)
	if !quota.ValidTier(tier) {
		return quota.TierFree
	}
	if a.SubscriptionStatus != nil && *a.SubscriptionStatus == "past_due" &&
		a.GracePeriodEnd != nil && now.After(*a.GracePeriodEnd) {
		return quota.TierFree
	}
	return tier
}

func usageOf(a *model.Account) Usage {
	return Usage{
		Boards:       a.BoardCount,
		Cards:        a.CardCount,
		StorageBytes: a.StorageUsed(),
	}
}

func currentFor(a *model.Account, res quota.Resource) int64 {
	switch res {
	case quota.ResourceBoards:
		return a.BoardCount
	case quota.ResourceCards:
		return a.CardCount
	case quota.ResourceStorage:
		return a.StorageUsed()
	}
	return 0
}

func (s *quotaService) IncrementWithCheck(ctx context.Context, accountID string, res quota.Resource, delta int64) (*CheckResult, error) {
	counter, err := counterFor(res)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	limits := quota.ForTier(EffectiveTier(account, time.Now()))
	limit := limits.For(res)

	newValue, err := s.accounts.IncrementCounterWithLimit(ctx, accountID, counter, delta, limit)
	if err != nil {
		if errors.Is(err, repository.ErrLimitReached) {
			result := &CheckResult{
				Allowed:      false,
				Reason:       fmt.Sprintf("%s limit reached: %d of %d used", res, currentFor(account, res), limit),
				CurrentUsage: usageOf(account),
				Limits:       limits,
			}
			s.logger.Info().
				Str("account_id", accountID).
				Str("resource", string(res)).
				Int64("limit", limit).
				Msg("Increment denied by tier limit")
			return result, nil
		}
		return nil, err
	}
	usage := usageOf(account)
	switch res {
	case quota.ResourceBoards:
		usage.Boards = newValue
	case quota.ResourceCards:
		usage.Cards = newValue
	}
	return &CheckResult{Allowed: true, NewValue: newValue, CurrentUsage: usage, Limits: limits}, nil
}

func (s *quotaService) Decrement(ctx context.Context, accountID string, res quota.Resource, delta int64) error {
	counter, err := counterFor(res)
	if err != nil {
		return err
	}
	if err := s.accounts.DecrementCounter(ctx, accountID, counter, delta); err != nil {
		// Left for the next reconciliation pass rather than retried inline.
		s.logger.Error().Err(err).
			Str("account_id", accountID).
			Str("resource", string(res)).
			Int64("delta", delta).
			Msg("Compensating decrement failed, counter will drift until reconciliation")
		return err
	}
	return nil
}

func (s *quotaService) CheckLimit(ctx context.Context, accountID string, res quota.Resource, extra int64) (*CheckResult, error) {
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	limits := quota.ForTier(EffectiveTier(account, time.Now()))
	limit := limits.For(res)
	current := currentFor(account, res)

	result := &CheckResult{
		Allowed:      true,
		CurrentUsage: usageOf(account),
		Limits:       limits,
	}
	if !quota.IsUnlimited(limit) && current+extra > limit {
		result.Allowed = false
		result.Reason = fmt.Sprintf("%s limit reached: %d of %d used", res, current, limit)
	}
	return result, nil
}

func (s *quotaService) Usage(ctx context.Context, accountID string) (*UsageSummary, error) {
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to fetch account for usage query")
		return nil, err
	}
	tier := EffectiveTier(account, time.Now())
	return &UsageSummary{
		Usage:  usageOf(account),
		Limits: quota.ForTier(tier),
		Tier:   tier,
	}, nil
}
