package stripe

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/alexandria-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
)

func TestNewClientValidatesKeys(t *testing.T) {
	_, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_live_x", Secret: "whsec", Env: "test"}, nil)
	assert.Error(t, err)

	_, err = NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_x", Env: "test"}, nil)
	assert.ErrorIs(t, err, errSecretRequired)

	_, err = NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_x", Secret: "whsec", Env: "staging"}, nil)
	assert.ErrorIs(t, err, errInvalidStripeEnv)

	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_x", Secret: "whsec", Env: " TEST "}, nil)
	require.NoError(t, err)
	assert.Equal(t, "test", client.Environment())
	assert.Equal(t, "whsec", client.SigningSecret())
}

func TestNewClientNamesExpectedKeyForMode(t *testing.T) {
	_, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_x", Secret: "whsec", Env: "live"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sk_live or rk_live")

	_, err = NewClient(context.Background(), config.StripeConfig{Secret: "whsec", Env: "test"}, nil)
	assert.ErrorIs(t, err, errAPIKeyRequired)

	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "rk_test_x", Secret: "whsec"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "test", client.Environment())
}

func TestCreateIntentBuildsParams(t *testing.T) {
	var captured *stripe.PaymentIntentParams
	gateway := &PaymentGateway{client: &Client{}, create: func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		captured = params
		return &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret", Status: stripe.PaymentIntentStatusRequiresPaymentMethod}, nil
	}}

	intent, err := gateway.CreateIntent(context.Background(), IntentRequest{
		AmountMinor:    6721,
		Currency:       "USD",
		ReceiptEmail:   "reader@example.com",
		IdempotencyKey: "idem",
		Metadata:       map[string]string{"order_id": "AL-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.Reference)
	assert.Equal(t, "pi_123_secret", intent.ClientSecret)
	require.NotNil(t, captured)
	assert.Equal(t, int64(6721), *captured.Amount)
	assert.Equal(t, "usd", *captured.Currency)
	assert.Equal(t, "idem", *captured.IdempotencyKey)
	assert.Equal(t, "AL-1", captured.Metadata["order_id"])
}

func TestCreateIntentRejectsBadInput(t *testing.T) {
	gateway := &PaymentGateway{client: &Client{}, create: func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		return nil, errors.New("should not be called")
	}}
	_, err := gateway.CreateIntent(context.Background(), IntentRequest{AmountMinor: 0, Currency: "usd"})
	assert.Error(t, err)
	_, err = gateway.CreateIntent(context.Background(), IntentRequest{AmountMinor: 100})
	assert.Error(t, err)
}

func TestCancelIntentAbandonsOpenIntent(t *testing.T) {
	var cancelled string
	var reason string
	gateway := &PaymentGateway{client: &Client{},
		cancel: func(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
			cancelled = id
			reason = *params.CancellationReason
			return &stripe.PaymentIntent{ID: id, Status: stripe.PaymentIntentStatusCanceled}, nil
		},
		fetch: func(string, *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			return nil, errors.New("should not be called")
		},
	}

	intent, err := gateway.CancelIntent(context.Background(), " pi_123 ")
	require.NoError(t, err)
	assert.Equal(t, "pi_123", cancelled)
	assert.Equal(t, "abandoned", reason)
	assert.Equal(t, IntentStatusCanceled, intent.Status)
}

func TestCancelIntentReportsIntentThatAlreadyMovedOn(t *testing.T) {
	gateway := &PaymentGateway{client: &Client{},
		cancel: func(string, *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
			return nil, &stripe.Error{Code: stripe.ErrorCodePaymentIntentUnexpectedState, Msg: "already succeeded"}
		},
		fetch: func(id string, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			return &stripe.PaymentIntent{ID: id, Status: stripe.PaymentIntentStatusSucceeded}, nil
		},
	}

	intent, err := gateway.CancelIntent(context.Background(), "pi_paid")
	require.NoError(t, err)
	assert.Equal(t, string(stripe.PaymentIntentStatusSucceeded), intent.Status)
}

func TestCancelIntentPropagatesOtherFailures(t *testing.T) {
	gateway := &PaymentGateway{client: &Client{},
		cancel: func(string, *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
			return nil, errors.New("network down")
		},
	}
	_, err := gateway.CancelIntent(context.Background(), "pi_1")
	assert.Error(t, err)
	_, err = gateway.CancelIntent(context.Background(), " ")
	assert.Error(t, err)
}

func TestParseEventRequiresSecret(t *testing.T) {
	var client *Client
	_, err := client.ParseEvent([]byte("{}"), "t=1,v1=x")
	assert.ErrorIs(t, err, errSecretRequired)
}
