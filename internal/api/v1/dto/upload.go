package dto

// UploadInitiateDTO declares an upload before any bytes move.
type UploadInitiateDTO struct {
	Filename      string `json:"filename" validate:"required,max=255"`
	DeclaredBytes int64  `json:"declared_size_bytes" validate:"required,gt=0"`
}

// UploadCompleteDTO reports a finished upload for validation.
type UploadCompleteDTO struct {
	BoardID       string `json:"board_id" validate:"required,uuid4"`
	ReservationID string `json:"reservation_id" validate:"required"`
	StorageKey    string `json:"storage_key" validate:"required"`
	Filename      string `json:"filename" validate:"required,max=255"`
	MimeType      string `json:"mime_type" validate:"required,max=127"`
	Kind          string `json:"kind" validate:"required,oneof=image file"`
	DeclaredBytes int64  `json:"declared_size_bytes" validate:"required,gt=0"`
}
