package dto

// SubscriptionCheckoutRequest selects the plan for a Stripe Checkout session.
type SubscriptionCheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=standard_monthly standard_annual pro_monthly pro_annual"`
}
