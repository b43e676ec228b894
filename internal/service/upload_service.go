package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/model"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/quota"

	"github.com/rs/zerolog"
)

// Post-upload validation thresholds. An actual size within the tolerance of
// the declared size is accepted as-is; between tolerance and the violation
// threshold the entitlement check is re-run with the real number; past the
// violation threshold the upload is treated as a security event.
const (
	sizeTolerancePercent = 5
	sizeViolationPercent = 50
)

// UploadIntent is the response to an upload initiation: either a denial with
// the usage snapshot, or a presigned PUT URL carrying the reservation.
type UploadIntent struct {
	Allowed       bool         `json:"allowed"`
	Reason        string       `json:"reason,omitempty"`
	CurrentUsage  Usage        `json:"current_usage"`
	Limits        quota.Limits `json:"limits"`
	ReservationID string       `json:"reservation_id,omitempty"`
	StorageKey    string       `json:"storage_key,omitempty"`
	UploadURL     string       `json:"upload_url,omitempty"`
	ExpiresAt     time.Time    `json:"expires_at,omitempty"`
}

// CompleteUploadParams identifies the finished upload to validate.
type CompleteUploadParams struct {
	BoardID       string
	ReservationID string
	StorageKey    string
	Filename      string
	MimeType      string
	Kind          string
	DeclaredBytes int64
}

// UploadService runs the upload flow on top of the reservation protocol:
// reserve quota, hand out a presigned URL, then validate the landed object and
// confirm or reject it.
type UploadService interface {
	InitiateUpload(ctx context.Context, accountID, filename string, declaredBytes int64) (*UploadIntent, error)
	// CompleteUpload validates the object against the declared size, re-checks
	// entitlement with the actual size when it drifted, and on success creates
	// the file/image card and settles the reservation.
	CompleteUpload(ctx context.Context, accountID string, params CompleteUploadParams) (*model.Card, error)
}

type uploadService struct {
	reservations  ReservationService
	quotas        QuotaService
	cards         CardService
	blobs         BlobStore
	presignExpiry time.Duration
	logger        zerolog.Logger
}

// NewUploadService creates a new UploadService with a scoped logger.
func NewUploadService(
	reservations ReservationService,
	quotas QuotaService,
	cards CardService,
	blobs BlobStore,
	presignExpiry time.Duration,
	logger zerolog.Logger,
) UploadService {
	return &uploadService{
		reservations:  reservations,
		quotas:        quotas,
		cards:         cards,
		blobs:         blobs,
		presignExpiry: presignExpiry,
		logger:        logger.With().Str("service", "UploadService").Logger(),
	}
}

func (s *uploadService) InitiateUpload(ctx context.Context, accountID, filename string, declaredBytes int64) (*UploadIntent, error) {
	reserved, err := s.reservations.Reserve(ctx, accountID, declaredBytes)
	if err != nil {
		return nil, err
	}
	if !reserved.Allowed {
		return &UploadIntent{
			Allowed:      false,
			Reason:       reserved.Reason,
			CurrentUsage: reserved.CurrentUsage,
			Limits:       reserved.Limits,
		}, nil
	}

	key := fmt.Sprintf("uploads/%s/%s/%s", accountID, reserved.ReservationID, filename)
	url, err := s.blobs.PresignPut(ctx, key, s.presignExpiry)
	if err != nil {
		// No credential was handed out, so hand the reserved bytes back now
		// instead of waiting for the stale sweep.
		_ = s.reservations.Release(ctx, accountID, declaredBytes)
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to presign upload URL")
		return nil, err
	}

	return &UploadIntent{
		Allowed:       true,
		CurrentUsage:  reserved.CurrentUsage,
		Limits:        reserved.Limits,
		ReservationID: reserved.ReservationID,
		StorageKey:    key,
		UploadURL:     url,
		ExpiresAt:     time.Now().Add(s.presignExpiry),
	}, nil
}

func (s *uploadService) CompleteUpload(ctx context.Context, accountID string, params CompleteUploadParams) (*model.Card, error) {
	actual, err := s.blobs.ObjectSize(ctx, params.StorageKey)
	if err != nil {
		if errors.Is(err, ErrObjectMissing) {
			_ = s.reservations.Release(ctx, accountID, params.DeclaredBytes)
			return nil, ErrObjectMissing
		}
		return nil, err
	}

	declared := params.DeclaredBytes
	if actual > declared+declared*sizeViolationPercent/100 {
		// A client that uploaded far more than it declared is treated as
		// hostile regardless of whether the tier limit would still fit it.
		s.logger.Warn().
			Str("account_id", accountID).
			Str("storage_key", params.StorageKey).
			Int64("declared_bytes", declared).
			Int64("actual_bytes", actual).
			Msg("Upload rejected: actual size far exceeds declared size")
		_ = s.blobs.Delete(ctx, params.StorageKey)
		_ = s.reservations.Release(ctx, accountID, declared)
		return nil, ErrSizeMismatch
	}

	if actual > declared+declared*sizeTolerancePercent/100 {
		// The reservation already holds declared bytes, so only the overrun
		// needs to fit.
		check, err := s.quotas.CheckLimit(ctx, accountID, quota.ResourceStorage, actual-declared)
		if err != nil {
			return nil, err
		}
		if !check.Allowed {
			_ = s.blobs.Delete(ctx, params.StorageKey)
			_ = s.reservations.Release(ctx, accountID, declared)
			return nil, &QuotaExceededError{Result: check}
		}
	}

	content := buildUploadContent(params, actual)
	card, err := s.cards.CreateCard(ctx, accountID, params.BoardID, content)
	if err != nil {
		_ = s.blobs.Delete(ctx, params.StorageKey)
		_ = s.reservations.Release(ctx, accountID, declared)
		return nil, err
	}

	if err := s.reservations.Confirm(ctx, accountID, declared); err != nil {
		// The card exists and its bytes are confirmed; a lingering pending
		// figure is cleared by the stale sweep.
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to confirm reservation after card creation")
	}
	return card, nil
}

func buildUploadContent(params CompleteUploadParams, actual int64) model.CardContent {
	if params.Kind == model.CardKindImage {
		return model.CardContent{
			Kind: model.CardKindImage,
			Image: &model.ImageContent{
				StorageKey: params.StorageKey,
				SizeBytes:  actual,
			},
		}
	}
	return model.CardContent{
		Kind: model.CardKindFile,
		File: &model.FileContent{
			StorageKey: params.StorageKey,
			SizeBytes:  actual,
			Filename:   params.Filename,
			MimeType:   params.MimeType,
		},
	}
}
