package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/api/v1/dto"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/middleware"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/model"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/service"

	"github.com/go-playground/validator/v10"
)

// CardHandler handles card CRUD endpoints. Storage-backed cards (image, file)
// are created through the upload flow, not here.
type CardHandler struct {
	cardService service.CardService
	validate    *validator.Validate
}

func NewCardHandler(cardService service.CardService, v *validator.Validate) *CardHandler {
	return &CardHandler{cardService: cardService, validate: v}
}

// RegisterRoutes mounts v1 card routes.
func (h *CardHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/cards", authMw(http.HandlerFunc(h.createCard)))
	mux.Handle("/cards/", authMw(http.HandlerFunc(h.handleCardByID)))
}

// createCard godoc
// @Summary Create a text or link card
// @Tags cards
// @Accept json
// @Produce json
// @Param card body dto.CardCreateDTO true "Card to create"
// @Success 201 {object} dto.CardResponseDTO
// @Failure 400 {string} string "invalid request payload"
// @Failure 403 {object} dto.QuotaExceededDTO "card limit reached"
// @Router /cards [post]
func (h *CardHandler) createCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.CardCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	// Storage-backed kinds must go through the reservation protocol.
	if req.Content.Kind == model.CardKindImage || req.Content.Kind == model.CardKindFile {
		http.Error(w, "image and file cards are created via the upload endpoints", http.StatusBadRequest)
		return
	}

	card, err := h.cardService.CreateCard(r.Context(), accountID, req.BoardID, req.Content)
	if err != nil {
		var qe *service.QuotaExceededError
		switch {
		case errors.As(err, &qe):
			writeQuotaExceeded(w, qe.Result)
		case errors.Is(err, service.ErrBoardNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to create card: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, toCardDTO(card))
}

func (h *CardHandler) handleCardByID(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getCard(w, r)
	case http.MethodDelete:
		h.deleteCard(w, r)
	default:
		http.NotFound(w, r)
	}
}

// getCard godoc
// @Summary Get a card
// @Tags cards
// @Produce json
// @Param id path string true "Card ID"
// @Success 200 {object} dto.CardResponseDTO
// @Failure 404 {string} string "card not found"
// @Router /cards/{id} [get]
func (h *CardHandler) getCard(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	cardID := strings.TrimPrefix(r.URL.Path, "/cards/")
	if cardID == "" {
		http.Error(w, "card id required", http.StatusBadRequest)
		return
	}

	card, err := h.cardService.GetCard(r.Context(), cardID, accountID)
	if err != nil {
		if errors.Is(err, service.ErrCardNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toCardDTO(card))
}

// deleteCard godoc
// @Summary Delete a card
// @Description Soft-deletes the card, returns its slot to the quota, and for storage-backed kinds releases the bytes and deletes the blob.
// @Tags cards
// @Param id path string true "Card ID"
// @Success 204 {string} string "deleted"
// @Failure 404 {string} string "card not found"
// @Router /cards/{id} [delete]
func (h *CardHandler) deleteCard(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	cardID := strings.TrimPrefix(r.URL.Path, "/cards/")
	if cardID == "" {
		http.Error(w, "card id required", http.StatusBadRequest)
		return
	}

	if err := h.cardService.DeleteCard(r.Context(), cardID, accountID); err != nil {
		if errors.Is(err, service.ErrCardNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toCardDTO(c *model.Card) dto.CardResponseDTO {
	return dto.CardResponseDTO{
		CardID:    c.ID,
		BoardID:   c.BoardID,
		Kind:      c.Kind,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
