package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReconciliationService struct {
	summary service.ReconcileSummary
}

func (s *stubReconciliationService) ReconcileAccount(ctx context.Context, accountID string) error {
	return nil
}

func (s *stubReconciliationService) ReconcileStale(ctx context.Context, olderThan time.Duration) (*service.ReconcileSummary, error) {
	sum := s.summary
	return &sum, nil
}

type stubReservationService struct {
	swept int64
}

func (s *stubReservationService) Reserve(ctx context.Context, accountID string, declaredBytes int64) (*service.ReserveResult, error) {
	return nil, nil
}

func (s *stubReservationService) Confirm(ctx context.Context, accountID string, declaredBytes int64) error {
	return nil
}

func (s *stubReservationService) Release(ctx context.Context, accountID string, declaredBytes int64) error {
	return nil
}

func (s *stubReservationService) CleanupStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	return s.swept, nil
}

func newAdminHandlerFixture() *AdminHandler {
	return NewAdminHandler(
		&stubReconciliationService{summary: service.ReconcileSummary{Reconciled: 7, Total: 9}},
		&stubReservationService{swept: 3},
		24*time.Hour,
		2*time.Hour,
		zerolog.Nop(),
	)
}

func TestReconcileTrigger(t *testing.T) {
	h := newAdminHandlerFixture()

	req := httptest.NewRequest(http.MethodPost, "/internal/reconcile", nil)
	rec := httptest.NewRecorder()
	h.reconcile(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 7, body["reconciled"])
	assert.Equal(t, 9, body["total"])
}

func TestReconcileTriggerRejectsGet(t *testing.T) {
	h := newAdminHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/internal/reconcile", nil)
	rec := httptest.NewRecorder()
	h.reconcile(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCleanupReservationsTrigger(t *testing.T) {
	h := newAdminHandlerFixture()

	req := httptest.NewRequest(http.MethodPost, "/internal/cleanup-reservations", nil)
	rec := httptest.NewRecorder()
	h.cleanupReservations(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(3), body["swept"])
}
