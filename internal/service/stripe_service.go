package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/config"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/model"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/pubsub"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/quota"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	billingsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	customerpkg "github.com/stripe/stripe-go/v82/customer"
	subscriptionpkg "github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

// gracePeriod is how long a past_due account keeps its paid limits after a
// failed payment.
const gracePeriod = 7 * 24 * time.Hour

// StripeService manages the Stripe integration: checkout and portal sessions
// outbound, and the webhook-driven subscription state machine inbound.
//
// Webhook processing is idempotent per event id: a delivered event mutates the
// account at most once no matter how many times the provider redelivers it.
// The processed marker is written only after the handler succeeds, so a failed
// handler leaves the event unrecorded and the provider's retry runs it again
// from scratch. Handlers write absolute field values, never deltas, which
// makes the rerun harmless.
type StripeService struct {
	cfg       *config.Config
	accounts  repository.AccountRepository
	events    repository.WebhookEventRepository
	publisher pubsub.Publisher
	logger    zerolog.Logger

	// fetchSubscription resolves a subscription id against the provider.
	// Checkout sessions carry only the id, not the full object.
	fetchSubscription func(id string) (*stripe.Subscription, error)
}

// NewStripeService initializes the Stripe key and returns the service with a
// scoped logger.
func NewStripeService(
	cfg *config.Config,
	accounts repository.AccountRepository,
	events repository.WebhookEventRepository,
	publisher pubsub.Publisher,
	logger zerolog.Logger,
) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	return &StripeService{
		cfg:       cfg,
		accounts:  accounts,
		events:    events,
		publisher: publisher,
		logger:    logger.With().Str("service", "StripeService").Logger(),
		fetchSubscription: func(id string) (*stripe.Subscription, error) {
			return subscriptionpkg.Get(id, nil)
		},
	}
}

// resolveAccount finds the account for a billing event via the Stripe
// customer link, falling back to the account email and backfilling the
// customer id so the next event resolves directly. A customer that matches
// neither is terminal for the event: retries cannot fix a missing join.
func (s *StripeService) resolveAccount(ctx context.Context, metadata map[string]string, customerID, email string) (*model.Account, error) {
	if accountID, ok := metadata["account_id"]; ok && accountID != "" {
		account, err := s.accounts.GetAccountByID(ctx, accountID)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return nil, err
		}
	}
	if customerID != "" {
		account, err := s.accounts.GetAccountByStripeCustomerID(ctx, customerID)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return nil, err
		}
	}
	if email != "" {
		s.logger.Warn().Str("stripe_customer_id", customerID).Msg("No account linked to customer, falling back to email lookup")
		account, err := s.accounts.GetAccountByEmail(ctx, email)
		if err == nil {
			if customerID != "" {
				if err := s.accounts.UpdateStripeCustomerID(ctx, account.ID, customerID); err != nil {
					s.logger.Error().Err(err).Str("account_id", account.ID).Msg("Failed to backfill stripe customer id")
				}
			}
			return account, nil
		}
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: customer %s", ErrUnknownCustomer, customerID)
}

// resolveTier maps a Stripe price to a subscription tier, preferring the
// price's own metadata over the configured price-id table.
func (s *StripeService) resolveTier(price *stripe.Price) (quota.Tier, error) {
	if price == nil {
		return "", errors.New("subscription item has no price")
	}
	if t, ok := price.Metadata["tier"]; ok && quota.ValidTier(quota.Tier(t)) {
		return quota.Tier(t), nil
	}
	switch price.ID {
	case s.cfg.StripePriceStandardMonthly, s.cfg.StripePriceStandardAnnual:
		return quota.TierStandard, nil
	case s.cfg.StripePriceProMonthly, s.cfg.StripePriceProAnnual:
		return quota.TierPro, nil
	}
	return "", fmt.Errorf("price %s maps to no known tier", price.ID)
}

// GetOrCreateCustomer ensures a Stripe customer exists for an account.
func (s *StripeService) GetOrCreateCustomer(ctx context.Context, account *model.Account) (string, error) {
	if account.StripeCustomerID != nil && *account.StripeCustomerID != "" {
		return *account.StripeCustomerID, nil
	}
	s.logger.Warn().Str("account_id", account.ID).Msg("No Stripe customer ID found, creating customer as fallback")
	params := &stripe.CustomerParams{
		Email:    stripe.String(account.Email),
		Name:     stripe.String(account.Name),
		Metadata: map[string]string{"account_id": account.ID},
	}
	cust, err := customerpkg.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", account.ID).Msg("Failed to create Stripe customer")
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	if err := s.accounts.UpdateStripeCustomerID(ctx, account.ID, cust.ID); err != nil {
		s.logger.Error().Err(err).Str("account_id", account.ID).Msg("Failed to store stripe customer id")
		return "", fmt.Errorf("store stripe customer id: %w", err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession creates a Stripe Checkout session for a plan upgrade.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, accountID, plan string) (string, error) {
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to fetch account for checkout session")
		return "", fmt.Errorf("fetch account: %w", err)
	}
	customerID, err := s.GetOrCreateCustomer(ctx, account)
	if err != nil {
		return "", err
	}
	var priceID string
	switch plan {
	case "standard_monthly":
		priceID = s.cfg.StripePriceStandardMonthly
	case "standard_annual":
		priceID = s.cfg.StripePriceStandardAnnual
	case "pro_monthly":
		priceID = s.cfg.StripePriceProMonthly
	case "pro_annual":
		priceID = s.cfg.StripePriceProAnnual
	default:
		return "", fmt.Errorf("invalid plan: %s", plan)
	}
	sessParams := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{{Price: stripe.String(priceID), Quantity: stripe.Int64(1)}},
		Mode:               stripe.String(stripe.CheckoutSessionModeSubscription),
		SuccessURL:         stripe.String(s.cfg.StripePortalReturnURL + "?status=success"),
		CancelURL:          stripe.String(s.cfg.StripePortalReturnURL + "?status=cancel"),
		Metadata:           map[string]string{"account_id": accountID},
	}
	sess, err := checkoutsession.New(sessParams)
	if err != nil {
		s.logger.Error().Err(err).Str("plan", plan).Msg("Failed to create Stripe checkout session")
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortalSession creates a Stripe Customer Portal session.
func (s *StripeService) CreatePortalSession(ctx context.Context, accountID string) (string, error) {
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to fetch account for portal session")
		return "", fmt.Errorf("fetch account: %w", err)
	}
	if account.StripeCustomerID == nil || *account.StripeCustomerID == "" {
		return "", fmt.Errorf("no stripe customer for account: %s", accountID)
	}
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*account.StripeCustomerID),
		ReturnURL: stripe.String(s.cfg.StripePortalReturnURL),
	}
	sess, err := billingsession.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to create Stripe billing portal session")
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return sess.URL, nil
}

// HandleWebhook verifies and processes an inbound Stripe event. Success is
// returned only once the event is durably recorded as processed, so the
// provider stops retrying.
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sig, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}
	s.logger.Info().Str("event_id", event.ID).Str("event_type", string(event.Type)).Msg("Stripe webhook received")

	if err := s.ProcessEvent(r.Context(), event); err != nil {
		if errors.Is(err, ErrUnknownCustomer) {
			// A retry can never create the missing account link; tell the
			// provider to stop redelivering.
			s.logger.Error().Err(err).Str("event_id", event.ID).Msg("Webhook event references an unknown customer")
			http.Error(w, "unknown customer", http.StatusBadRequest)
			return
		}
		s.logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to process webhook event")
		http.Error(w, "failed to process event", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ProcessEvent runs one event through the idempotency guard, the state
// machine dispatch, and the durable processed marker, in that order.
func (s *StripeService) ProcessEvent(ctx context.Context, event stripe.Event) error {
	processed, err := s.events.IsProcessed(ctx, event.ID)
	if err != nil {
		return err
	}
	if processed {
		s.logger.Info().Str("event_id", event.ID).Msg("Skipping already-processed webhook event")
		return nil
	}

	accountID, err := s.dispatchEvent(ctx, event)
	if err != nil {
		return err
	}

	if err := s.events.Record(ctx, event.ID, string(event.Type), event.Data.Raw); err != nil {
		// The mutation happened but the marker did not stick; the provider
		// will redeliver and the handler will rewrite the same values.
		return err
	}
	s.publishAudit(ctx, event, accountID)
	return nil
}

// dispatchEvent routes the event to its field-effect handler and returns the
// affected account id. Unhandled event types are acknowledged without effect.
func (s *StripeService) dispatchEvent(ctx context.Context, event stripe.Event) (string, error) {
	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return "", fmt.Errorf("invalid checkout.session payload: %w", err)
		}
		return s.handleCheckoutCompleted(ctx, &cs)
	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return "", fmt.Errorf("invalid subscription payload: %w", err)
		}
		return s.handleSubscriptionUpdated(ctx, &sub)
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return "", fmt.Errorf("invalid subscription payload: %w", err)
		}
		return s.handleSubscriptionDeleted(ctx, &sub)
	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return "", fmt.Errorf("invalid invoice payload: %w", err)
		}
		return s.handlePaymentFailed(ctx, &inv)
	case "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return "", fmt.Errorf("invalid invoice payload: %w", err)
		}
		return s.handlePaymentSucceeded(ctx, &inv)
	default:
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Unhandled Stripe webhook event")
		return "", nil
	}
}

// handleCheckoutCompleted applies a new subscription: tier resolved from the
// price, status from the provider, grace period cleared.
func (s *StripeService) handleCheckoutCompleted(ctx context.Context, cs *stripe.CheckoutSession) (string, error) {
	customerID := ""
	if cs.Customer != nil {
		customerID = cs.Customer.ID
	}
	email := ""
	if cs.CustomerDetails != nil {
		email = cs.CustomerDetails.Email
	}
	account, err := s.resolveAccount(ctx, cs.Metadata, customerID, email)
	if err != nil {
		return "", err
	}

	if cs.Subscription == nil || cs.Subscription.ID == "" {
		return "", errors.New("checkout session has no subscription")
	}
	sub, err := s.fetchSubscription(cs.Subscription.ID)
	if err != nil {
		return "", fmt.Errorf("fetch subscription %s: %w", cs.Subscription.ID, err)
	}
	return account.ID, s.applySubscriptionState(ctx, account.ID, sub, true)
}

// handleSubscriptionUpdated re-applies tier and status from the provider's
// current subscription object. The grace period is left as-is; only payment
// outcomes move it.
func (s *StripeService) handleSubscriptionUpdated(ctx context.Context, sub *stripe.Subscription) (string, error) {
	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}
	account, err := s.resolveAccount(ctx, sub.Metadata, customerID, "")
	if err != nil {
		return "", err
	}
	return account.ID, s.applySubscriptionState(ctx, account.ID, sub, false)
}

// handleSubscriptionDeleted returns the account to the free tier.
func (s *StripeService) handleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) (string, error) {
	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}
	account, err := s.resolveAccount(ctx, sub.Metadata, customerID, "")
	if err != nil {
		return "", err
	}
	return account.ID, s.accounts.ClearSubscription(ctx, account.ID)
}

// handlePaymentFailed marks the account past_due and starts the grace period.
// Tier is unchanged: service continues until the grace period lapses.
func (s *StripeService) handlePaymentFailed(ctx context.Context, inv *stripe.Invoice) (string, error) {
	customerID := ""
	if inv.Customer != nil {
		customerID = inv.Customer.ID
	}
	account, err := s.resolveAccount(ctx, inv.Metadata, customerID, inv.CustomerEmail)
	if err != nil {
		return "", err
	}
	return account.ID, s.accounts.MarkPastDue(ctx, account.ID, time.Now().Add(gracePeriod))
}

// handlePaymentSucceeded marks the account active and clears the grace period.
func (s *StripeService) handlePaymentSucceeded(ctx context.Context, inv *stripe.Invoice) (string, error) {
	customerID := ""
	if inv.Customer != nil {
		customerID = inv.Customer.ID
	}
	account, err := s.resolveAccount(ctx, inv.Metadata, customerID, inv.CustomerEmail)
	if err != nil {
		return "", err
	}
	return account.ID, s.accounts.MarkActive(ctx, account.ID)
}

// applySubscriptionState writes the absolute tier/status/period fields
// resolved from a provider subscription object.
func (s *StripeService) applySubscriptionState(ctx context.Context, accountID string, sub *stripe.Subscription, clearGrace bool) error {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return fmt.Errorf("subscription %s has no items", sub.ID)
	}
	item := sub.Items.Data[0]
	tier, err := s.resolveTier(item.Price)
	if err != nil {
		return err
	}
	return s.accounts.ApplySubscription(ctx, accountID, repository.SubscriptionUpdate{
		Tier:                 string(tier),
		Status:               string(sub.Status),
		StripeSubscriptionID: sub.ID,
		CurrentPeriodEnd:     time.Unix(item.CurrentPeriodEnd, 0),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		ClearGracePeriod:     clearGrace,
	})
}

// publishAudit emits a billing audit message. Best effort: a publish failure
// never fails the webhook response.
func (s *StripeService) publishAudit(ctx context.Context, event stripe.Event, accountID string) {
	if s.publisher == nil || s.cfg.PubSubBillingTopic == "" {
		return
	}
	payload, err := json.Marshal(struct {
		EventID   string `json:"event_id"`
		EventType string `json:"event_type"`
		AccountID string `json:"account_id,omitempty"`
	}{
		EventID:   event.ID,
		EventType: string(event.Type),
		AccountID: accountID,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to marshal billing audit payload")
		return
	}
	if _, err := s.publisher.Publish(ctx, s.cfg.PubSubBillingTopic, payload); err != nil {
		s.logger.Error().Err(err).Str("topic", s.cfg.PubSubBillingTopic).Msg("Failed to publish billing audit event")
	}
}
