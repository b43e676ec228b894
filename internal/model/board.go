package model

import "time"

// Board is a workspace canvas owned by an account. Boards are soft-deleted;
// reconciliation only counts rows where deleted_at is null.
type Board struct {
	ID        string     `db:"id" json:"id"`
	AccountID string     `db:"account_id" json:"account_id"`
	Title     string     `db:"title" json:"title"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
