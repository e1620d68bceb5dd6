package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/webhook"
)

// IntentRequest describes a charge for an order total.
type IntentRequest struct {
	AmountMinor    int64
	Currency       string
	ReceiptEmail   string
	IdempotencyKey string
	Metadata       map[string]string
}

// Intent is the part of a payment intent the storefront needs.
type Intent struct {
	Reference    string
	ClientSecret string
	Status       string
}

// IntentStatusCanceled is the status of an intent that can no longer be paid.
const IntentStatusCanceled = string(stripe.PaymentIntentStatusCanceled)

type (
	intentCreator   func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	intentCanceller func(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
	intentFetcher   func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
)

// PaymentGateway opens and abandons the payment intents behind storefront orders.
type PaymentGateway struct {
	client *Client
	create intentCreator
	cancel intentCanceller
	fetch  intentFetcher
}

// NewPaymentGateway binds the gateway to an initialized client.
func NewPaymentGateway(client *Client) (*PaymentGateway, error) {
	if client == nil {
		return nil, errors.New("stripe client is required")
	}
	return &PaymentGateway{
		client: client,
		create: paymentintent.New,
		cancel: paymentintent.Cancel,
		fetch:  paymentintent.Get,
	}, nil
}

func (g *PaymentGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if req.AmountMinor <= 0 {
		return nil, errors.New("payment amount must be positive")
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		return nil, errors.New("payment currency is required")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if email := strings.TrimSpace(req.ReceiptEmail); email != "" {
		params.ReceiptEmail = stripe.String(email)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.create(params)
	if err != nil {
		return nil, err
	}
	return &Intent{Reference: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

// CancelIntent abandons an unpaid intent so a stale checkout page can no longer charge
// the shopper. When Stripe refuses because the intent already moved on (processing,
// succeeded or cancelled earlier) the current intent is returned without an error and
// the caller decides from its Status.
func (g *PaymentGateway) CancelIntent(ctx context.Context, reference string) (*Intent, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, errors.New("payment reference is required")
	}
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	pi, err := g.cancel(reference, params)
	if err != nil {
		var stripeErr *stripe.Error
		if !errors.As(err, &stripeErr) || stripeErr.Code != stripe.ErrorCodePaymentIntentUnexpectedState {
			return nil, err
		}
		getParams := &stripe.PaymentIntentParams{}
		getParams.Context = ctx
		if pi, err = g.fetch(reference, getParams); err != nil {
			return nil, err
		}
	}
	return &Intent{Reference: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

// ParseEvent verifies the Stripe-Signature header and decodes the event.
func (c *Client) ParseEvent(payload []byte, signature string) (stripe.Event, error) {
	if c == nil || c.signingSecret == "" {
		return stripe.Event{}, errSecretRequired
	}
	return webhook.ConstructEvent(payload, signature, c.signingSecret)
}
