package dto

import "time"

// AccountCreateDTO provisions the profile of the authenticated identity.
// The id and email come from the token, not the body.
type AccountCreateDTO struct {
	Name string `json:"name" validate:"required,max=200"`
}

// AccountResponseDTO is the API shape of an account.
type AccountResponseDTO struct {
	AccountID          string     `json:"account_id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	SubscriptionTier   string     `json:"subscription_tier"`
	SubscriptionStatus string     `json:"subscription_status,omitempty"`
	GracePeriodEnd     *time.Time `json:"grace_period_end,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}
