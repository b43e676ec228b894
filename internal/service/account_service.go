package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/model"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/repository"

	"github.com/rs/zerolog"
)

// AccountService manages the tenant account row.
type AccountService interface {
	// EnsureAccount provisions a free-tier account for the identity if one
	// does not exist yet, and returns the current row either way.
	EnsureAccount(ctx context.Context, id, email, name string) (*model.Account, error)
	GetAccount(ctx context.Context, id string) (*model.Account, error)
}

type accountService struct {
	accounts repository.AccountRepository
	logger   zerolog.Logger
}

func NewAccountService(accounts repository.AccountRepository, logger zerolog.Logger) AccountService {
	return &accountService{
		accounts: accounts,
		logger:   logger.With().Str("service", "account").Logger(),
	}
}

func (s *accountService) EnsureAccount(ctx context.Context, id, email, name string) (*model.Account, error) {
	if err := s.accounts.CreateAccount(ctx, id, email, name); err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	account, err := s.accounts.GetAccountByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	return account, nil
}

func (s *accountService) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.accounts.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, repository.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	return account, nil
}
