package model

import "time"

// Account is the billing and quota unit, one row per user.
type Account struct {
	ID                     string     `db:"id" json:"id"`
	Email                  string     `db:"email" json:"email"`
	Name                   string     `db:"name" json:"name"`
	StripeCustomerID       *string    `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID   *string    `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	SubscriptionTier       string     `db:"subscription_tier" json:"subscription_tier"`
	SubscriptionStatus     *string    `db:"subscription_status" json:"subscription_status,omitempty"`
	CurrentPeriodEnd       *time.Time `db:"current_period_end" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd      bool       `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	GracePeriodEnd         *time.Time `db:"grace_period_end" json:"grace_period_end,omitempty"`
	BoardCount             int64      `db:"board_count" json:"board_count"`
	CardCount              int64      `db:"card_count" json:"card_count"`
	ConfirmedStorageBytes  int64      `db:"confirmed_storage_bytes" json:"confirmed_storage_bytes"`
	PendingStorageBytes    int64      `db:"pending_storage_bytes" json:"pending_storage_bytes"`
	LastStorageSync        time.Time  `db:"last_storage_sync" json:"last_storage_sync"`
	CountersLastReconciled *time.Time `db:"counters_last_reconciled" json:"counters_last_reconciled,omitempty"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

// StorageUsed is the storage figure entitlement checks compare against the
// tier limit: bytes already accounted for plus bytes reserved by in-flight
// uploads.
func (a *Account) StorageUsed() int64 {
	return a.ConfirmedStorageBytes + a.PendingStorageBytes
}
