package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/api/v1/dto"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/middleware"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/model"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/repository"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/service"

	"github.com/go-playground/validator/v10"
)

// AccountHandler handles account profile and usage endpoints.
type AccountHandler struct {
	accountService service.AccountService
	quotaService   service.QuotaService
	validate       *validator.Validate
}

func NewAccountHandler(accountService service.AccountService, quotaService service.QuotaService, v *validator.Validate) *AccountHandler {
	return &AccountHandler{accountService: accountService, quotaService: quotaService, validate: v}
}

// RegisterRoutes mounts v1 account routes.
func (h *AccountHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/accounts/me", authMw(http.HandlerFunc(h.handleAccount)))
	mux.Handle("/accounts/me/usage", authMw(http.HandlerFunc(h.getUsage)))
	mux.Handle("/usage", authMw(http.HandlerFunc(h.getUsage)))
}

func (h *AccountHandler) handleAccount(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createAccount(w, r)
	case http.MethodGet:
		h.getAccount(w, r)
	default:
		http.NotFound(w, r)
	}
}

// createAccount godoc
// @Summary Provision the authenticated account
// @Description Creates a free-tier account for the token's identity if none exists. Idempotent.
// @Tags accounts
// @Accept json
// @Produce json
// @Param account body dto.AccountCreateDTO true "Account profile"
// @Success 201 {object} dto.AccountResponseDTO
// @Failure 400 {string} string "invalid request payload"
// @Router /accounts/me [post]
func (h *AccountHandler) createAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	email, _ := r.Context().Value(middleware.EmailContextKey).(string)

	var req dto.AccountCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	account, err := h.accountService.EnsureAccount(r.Context(), accountID, email, req.Name)
	if err != nil {
		http.Error(w, "Failed to create account: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

// getAccount godoc
// @Summary Get the authenticated account
// @Tags accounts
// @Produce json
// @Success 200 {object} dto.AccountResponseDTO
// @Failure 404 {string} string "account not found"
// @Router /accounts/me [get]
func (h *AccountHandler) getAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

// getUsage godoc
// @Summary Get the account's usage and limits
// @Description Returns the current counters alongside the effective tier's limits.
// @Tags accounts
// @Produce json
// @Success 200 {object} service.UsageSummary
// @Failure 404 {string} string "account not found"
// @Router /accounts/me/usage [get]
func (h *AccountHandler) getUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	summary, err := h.quotaService.Usage(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func toAccountDTO(a *model.Account) dto.AccountResponseDTO {
	status := ""
	if a.SubscriptionStatus != nil {
		status = *a.SubscriptionStatus
	}
	return dto.AccountResponseDTO{
		AccountID:          a.ID,
		Email:              a.Email,
		Name:               a.Name,
		SubscriptionTier:   a.SubscriptionTier,
		SubscriptionStatus: status,
		GracePeriodEnd:     a.GracePeriodEnd,
		CreatedAt:          a.CreatedAt,
	}
}
