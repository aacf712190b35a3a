package payments

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fredbanda/phangelam-api/config"
	"github.com/fredbanda/phangelam-api/models"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

// ErrIgnoredEvent marks a verified Stripe event the reconciliation flow does
// not act on. The webhook handler acknowledges it with 200 so Stripe stops
// redelivering.
var ErrIgnoredEvent = errors.New("stripe event type is not handled")

// Metadata keys attached to Checkout sessions at creation and read back from
// webhook events.
const (
	metadataOrderReference = "order_reference"
	metadataCheckout       = "checkout"
)

type StripeGateway struct {
	api           *client.API
	webhookSecret string
	baseURL       string
}

func NewStripeGateway(cfg config.StripeConfig, baseURL string) *StripeGateway {
	return &StripeGateway{
		api:           client.New(cfg.SecretKey, nil),
		webhookSecret: cfg.WebhookSecret,
		baseURL:       baseURL,
	}
}

// CreateCheckoutSession opens a Stripe Checkout session for an order and
// returns the session id and the URL the client must be redirected to. The
// order reference travels in session metadata so the webhook can resolve the
// order directly.
func (g *StripeGateway) CreateCheckoutSession(order *models.ConsultationOrder) (string, string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(g.baseURL + "/payment/success?order=" + order.Reference),
		CancelURL:     stripe.String(g.baseURL + "/payment/cancelled?order=" + order.Reference),
		CustomerEmail: stripe.String(order.ClientEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(order.Currency),
					UnitAmount: stripe.Int64(int64(order.Amount * 100)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(order.Package),
					},
				},
			},
		},
	}
	params.AddMetadata(metadataOrderReference, order.Reference)
	if order.UserID != nil {
		params.ClientReferenceID = stripe.String(fmt.Sprint(*order.UserID))
	}

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return session.ID, session.URL, nil
}

// VerifyNotification reconstructs the webhook event from the raw request body
// and the Stripe-Signature header. Any signature mismatch fails closed; the
// payload is not inspected before verification succeeds.
func (g *StripeGateway) VerifyNotification(payload []byte, sigHeader string) (Notification, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return Notification{}, fmt.Errorf("stripe signature verification failed: %w", err)
	}

	if string(event.Type) != "checkout.session.completed" {
		return Notification{}, ErrIgnoredEvent
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return Notification{}, fmt.Errorf("failed to parse checkout session payload: %w", err)
	}

	notification := Notification{
		Gateway:      "stripe",
		PaymentID:    session.ID,
		Outcome:      OutcomeComplete,
		AmountGross:  float64(session.AmountTotal) / 100,
		Currency:     string(session.Currency),
		OrderRef:     session.Metadata[metadataOrderReference],
		CheckoutJSON: session.Metadata[metadataCheckout],
		UserRef:      session.ClientReferenceID,
		ClientEmail:  session.CustomerEmail,
	}
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		notification.PaymentID = session.PaymentIntent.ID
	}
	if session.CustomerDetails != nil {
		notification.ClientName = session.CustomerDetails.Name
		if notification.ClientEmail == "" {
			notification.ClientEmail = session.CustomerDetails.Email
		}
	}
	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		notification.Outcome = OutcomePending
	}

	return notification, nil
}
