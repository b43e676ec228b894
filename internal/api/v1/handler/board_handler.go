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

// BoardHandler handles board CRUD endpoints.
type BoardHandler struct {
	boardService service.BoardService
	validate     *validator.Validate
}

func NewBoardHandler(boardService service.BoardService, v *validator.Validate) *BoardHandler {
	return &BoardHandler{boardService: boardService, validate: v}
}

// RegisterRoutes mounts v1 board routes.
func (h *BoardHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/boards", authMw(http.HandlerFunc(h.createBoard)))
	mux.Handle("/boards/", authMw(http.HandlerFunc(h.handleBoardByID)))
}

// createBoard godoc
// @Summary Create a board
// @Description Creates a board for the authenticated account, subject to the tier's board limit.
// @Tags boards
// @Accept json
// @Produce json
// @Param board body dto.BoardCreateDTO true "Board to create"
// @Success 201 {object} dto.BoardResponseDTO
// @Failure 400 {string} string "invalid request payload"
// @Failure 403 {object} dto.QuotaExceededDTO "board limit reached"
// @Router /boards [post]
func (h *BoardHandler) createBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.BoardCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	board, err := h.boardService.CreateBoard(r.Context(), accountID, req.Title)
	if err != nil {
		var qe *service.QuotaExceededError
		if errors.As(err, &qe) {
			writeQuotaExceeded(w, qe.Result)
			return
		}
		http.Error(w, "Failed to create board: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toBoardDTO(board))
}

func (h *BoardHandler) handleBoardByID(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getBoard(w, r)
	case http.MethodDelete:
		h.deleteBoard(w, r)
	default:
		http.NotFound(w, r)
	}
}

// getBoard godoc
// @Summary Get a board
// @Tags boards
// @Produce json
// @Param id path string true "Board ID"
// @Success 200 {object} dto.BoardResponseDTO
// @Failure 404 {string} string "board not found"
// @Router /boards/{id} [get]
func (h *BoardHandler) getBoard(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	boardID := strings.TrimPrefix(r.URL.Path, "/boards/")
	if boardID == "" {
		http.Error(w, "board id required", http.StatusBadRequest)
		return
	}

	board, err := h.boardService.GetBoard(r.Context(), boardID, accountID)
	if err != nil {
		if errors.Is(err, service.ErrBoardNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toBoardDTO(board))
}

// deleteBoard godoc
// @Summary Delete a board
// @Description Soft-deletes the board and returns its slot to the account's quota.
// @Tags boards
// @Param id path string true "Board ID"
// @Success 204 {string} string "deleted"
// @Failure 404 {string} string "board not found"
// @Router /boards/{id} [delete]
func (h *BoardHandler) deleteBoard(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	boardID := strings.TrimPrefix(r.URL.Path, "/boards/")
	if boardID == "" {
		http.Error(w, "board id required", http.StatusBadRequest)
		return
	}

	if err := h.boardService.DeleteBoard(r.Context(), boardID, accountID); err != nil {
		if errors.Is(err, service.ErrBoardNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toBoardDTO(b *model.Board) dto.BoardResponseDTO {
	return dto.BoardResponseDTO{
		BoardID:   b.ID,
		Title:     b.Title,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}
