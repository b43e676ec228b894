package dto

import "time"

// BoardCreateDTO is the payload for creating a board.
type BoardCreateDTO struct {
	Title string `json:"title" validate:"required,max=200"`
}

// BoardResponseDTO is the API shape of a board.
type BoardResponseDTO struct {
	BoardID   string    `json:"board_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
