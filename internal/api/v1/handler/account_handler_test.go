package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/model"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/quota"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAccountService struct {
	account *model.Account
}

func (s *stubAccountService) EnsureAccount(ctx context.Context, id, email, name string) (*model.Account, error) {
	return s.account, nil
}

func (s *stubAccountService) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return s.account, nil
}

type stubQuotaService struct {
	summary *service.UsageSummary
}

func (s *stubQuotaService) IncrementWithCheck(ctx context.Context, accountID string, res quota.Resource, delta int64) (*service.CheckResult, error) {
	return nil, nil
}

func (s *stubQuotaService) Decrement(ctx context.Context, accountID string, res quota.Resource, delta int64) error {
	return nil
}

func (s *stubQuotaService) CheckLimit(ctx context.Context, accountID string, res quota.Resource, extra int64) (*service.CheckResult, error) {
	return nil, nil
}

func (s *stubQuotaService) Usage(ctx context.Context, accountID string) (*service.UsageSummary, error) {
	return s.summary, nil
}

func TestGetUsage(t *testing.T) {
	h := NewAccountHandler(
		&stubAccountService{},
		&stubQuotaService{summary: &service.UsageSummary{
			Usage:  service.Usage{Boards: 4, Cards: 120, StorageBytes: 2048},
			Limits: quota.ForTier(quota.TierStandard),
			Tier:   quota.TierStandard,
		}},
		validator.New(),
	)

	req := authedRequest(http.MethodGet, "/accounts/me/usage", "")
	rec := httptest.NewRecorder()
	h.getUsage(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body service.UsageSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(4), body.Usage.Boards)
	assert.Equal(t, quota.TierStandard, body.Tier)
	assert.Equal(t, int64(100), body.Limits.MaxBoards)
}

func TestCreateAccountIdempotent(t *testing.T) {
	h := NewAccountHandler(
		&stubAccountService{account: &model.Account{ID: "acc-1", Email: "a@b.test", Name: "Ada", SubscriptionTier: "free"}},
		&stubQuotaService{},
		validator.New(),
	)

	req := authedRequest(http.MethodPost, "/accounts/me", `{"name":"Ada"}`)
	rec := httptest.NewRecorder()
	h.handleAccount(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subscription_tier":"free"`)
}
