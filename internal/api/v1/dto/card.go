package dto

import (
	"time"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/model"
)

// CardCreateDTO is the payload for creating a text or link card.
// Image and file cards go through the upload flow instead.
type CardCreateDTO struct {
	BoardID string            `json:"board_id" validate:"required,uuid4"`
	Content model.CardContent `json:"content" validate:"required"`
}

// CardResponseDTO is the API shape of a card.
type CardResponseDTO struct {
	CardID    string            `json:"card_id"`
	BoardID   string            `json:"board_id"`
	Kind      string            `json:"kind"`
	Content   model.CardContent `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
