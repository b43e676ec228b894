package handler

import (
	"net/http"
	"time"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/api/v1/dto"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/service"

	"github.com/rs/zerolog"
)

// AdminHandler exposes the scheduled maintenance jobs as HTTP triggers. The
// routes sit behind the cron bearer-token middleware, not user auth.
type AdminHandler struct {
	reconciliation service.ReconciliationService
	reservations   service.ReservationService
	stalenessAge   time.Duration
	cleanupAge     time.Duration
	logger         zerolog.Logger
}

func NewAdminHandler(
	reconciliation service.ReconciliationService,
	reservations service.ReservationService,
	stalenessAge, cleanupAge time.Duration,
	logger zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		reconciliation: reconciliation,
		reservations:   reservations,
		stalenessAge:   stalenessAge,
		cleanupAge:     cleanupAge,
		logger:         logger.With().Str("handler", "admin").Logger(),
	}
}

// RegisterRoutes mounts the internal cron endpoints.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, cronMw func(http.Handler) http.Handler) {
	mux.Handle("/internal/reconcile", cronMw(http.HandlerFunc(h.reconcile)))
	mux.Handle("/internal/cleanup-reservations", cronMw(http.HandlerFunc(h.cleanupReservations)))
}

// reconcile godoc
// @Summary Reconcile stale account counters
// @Description Recomputes counters from live rows for accounts not reconciled recently.
// @Tags internal
// @Produce json
// @Success 200 {object} dto.ReconcileResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Router /internal/reconcile [post]
func (h *AdminHandler) reconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	summary, err := h.reconciliation.ReconcileStale(r.Context(), h.stalenessAge)
	if err != nil {
		h.logger.Error().Err(err).Msg("reconciliation sweep failed")
		http.Error(w, "reconciliation failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info().
		Int("reconciled", summary.Reconciled).
		Int("total", summary.Total).
		Msg("reconciliation sweep finished")
	writeJSON(w, http.StatusOK, dto.ReconcileResponseDTO{
		Reconciled: summary.Reconciled,
		Total:      summary.Total,
	})
}

// cleanupReservations godoc
// @Summary Release stale storage reservations
// @Description Zeroes pending storage on accounts whose uploads went quiet past the cleanup age.
// @Tags internal
// @Produce json
// @Success 200 {object} dto.CleanupResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Router /internal/cleanup-reservations [post]
func (h *AdminHandler) cleanupReservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	swept, err := h.reservations.CleanupStale(r.Context(), h.cleanupAge)
	if err != nil {
		h.logger.Error().Err(err).Msg("reservation cleanup failed")
		http.Error(w, "cleanup failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info().Int64("swept", swept).Msg("stale reservation sweep finished")
	writeJSON(w, http.StatusOK, dto.CleanupResponseDTO{Swept: swept})
}
