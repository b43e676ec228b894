package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/api/v1/dto"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/middleware"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// UploadHandler drives the two-phase upload flow: initiate reserves quota and
// returns a presigned URL, complete validates the landed object.
type UploadHandler struct {
	uploadService service.UploadService
	validate      *validator.Validate
	logger        zerolog.Logger
}

func NewUploadHandler(uploadService service.UploadService, v *validator.Validate, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		validate:      v,
		logger:        logger.With().Str("handler", "upload").Logger(),
	}
}

// RegisterRoutes mounts v1 upload routes.
func (h *UploadHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/uploads", authMw(http.HandlerFunc(h.initiateUpload)))
	mux.Handle("/uploads/complete", authMw(http.HandlerFunc(h.completeUpload)))
}

// initiateUpload godoc
// @Summary Initiate an upload
// @Description Reserves the declared bytes against the storage quota and returns a presigned PUT URL.
// @Tags uploads
// @Accept json
// @Produce json
// @Param upload body dto.UploadInitiateDTO true "Upload declaration"
// @Success 200 {object} service.UploadIntent
// @Failure 400 {string} string "invalid request payload"
// @Failure 403 {object} dto.QuotaExceededDTO "storage limit reached"
// @Router /uploads [post]
func (h *UploadHandler) initiateUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.UploadInitiateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	intent, err := h.uploadService.InitiateUpload(r.Context(), accountID, req.Filename, req.DeclaredBytes)
	if err != nil {
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to initiate upload")
		http.Error(w, "failed to initiate upload", http.StatusInternalServerError)
		return
	}
	if !intent.Allowed {
		writeJSON(w, http.StatusForbidden, dto.QuotaExceededDTO{
			Error:           intent.Reason,
			UpgradeRequired: true,
			CurrentUsage:    intent.CurrentUsage,
			Limits:          intent.Limits,
		})
		return
	}

	writeJSON(w, http.StatusOK, intent)
}

// completeUpload godoc
// @Summary Complete an upload
// @Description Validates the uploaded object against its declared size, then creates the card and settles the reservation.
// @Tags uploads
// @Accept json
// @Produce json
// @Param upload body dto.UploadCompleteDTO true "Completed upload"
// @Success 201 {object} dto.CardResponseDTO
// @Failure 400 {string} string "object missing or size violation"
// @Failure 403 {object} dto.QuotaExceededDTO "actual size exceeds quota"
// @Router /uploads/complete [post]
func (h *UploadHandler) completeUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	accountID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.UploadCompleteDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	card, err := h.uploadService.CompleteUpload(r.Context(), accountID, service.CompleteUploadParams{
		BoardID:       req.BoardID,
		ReservationID: req.ReservationID,
		StorageKey:    req.StorageKey,
		Filename:      req.Filename,
		MimeType:      req.MimeType,
		Kind:          req.Kind,
		DeclaredBytes: req.DeclaredBytes,
	})
	if err != nil {
		var qe *service.QuotaExceededError
		switch {
		case errors.As(err, &qe):
			writeQuotaExceeded(w, qe.Result)
		case errors.Is(err, service.ErrObjectMissing), errors.Is(err, service.ErrSizeMismatch):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, service.ErrBoardNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			h.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to complete upload")
			http.Error(w, "failed to complete upload", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, toCardDTO(card))
}
