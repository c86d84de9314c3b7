package stripegateway

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v79"
	stripeclient "github.com/stripe/stripe-go/v79/client"
)

// Client обертка над Stripe PaymentIntents
type Client struct {
	api *stripeclient.API
	log Logger
}

// NewClient создает новый экземпляр клиента Stripe
func NewClient(secretKey string, timeout time.Duration, log Logger) *Client {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: timeout},
	})
	backends := &stripe.Backends{API: backend, Connect: backend, Uploads: backend}

	return &Client{
		api: stripeclient.New(secretKey, backends),
		log: log,
	}
}

// Charge создает и подтверждает PaymentIntent.
//
// Исход не бинарный: кроме успеха и отказа возможен requiresAction, когда
// платеж ждет подтверждения клиента (3DS). В этом случае бронирование
// остается pending, а клиенту возвращается client secret
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.Amount < 0 {
		return nil, fmt.Errorf("%w: amount=%.2f", ErrNegativeAmount, req.Amount)
	}

	params := &stripe.PaymentIntentParams{
		Params:        stripe.Params{Context: ctx},
		Amount:        stripe.Int64(toMinorUnits(req.Amount)),
		Currency:      stripe.String(req.Currency),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Description:   stripe.String(req.Description),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String(string(stripe.PaymentIntentAutomaticPaymentMethodsAllowRedirectsNever)),
		},
	}
	params.SetIdempotencyKey(req.IdempotencyKey)

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			c.log.Warn("Stripe declined charge: code=%s message=%s", stripeErr.Code, stripeErr.Msg)
			return &ChargeResult{Status: ChargeFailed}, fmt.Errorf("%w: %s", ErrChargeDeclined, stripeErr.Code)
		}
		return nil, fmt.Errorf("%w: create payment intent: %v", ErrInternal, err)
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return &ChargeResult{Status: ChargeSucceeded, IntentID: intent.ID}, nil
	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation:
		return &ChargeResult{
			Status:       ChargeRequiresAction,
			IntentID:     intent.ID,
			ClientSecret: intent.ClientSecret,
		}, nil
	default:
		c.log.Warn("Stripe charge finished in unexpected status: intent=%s status=%s", intent.ID, intent.Status)
		return &ChargeResult{Status: ChargeFailed, IntentID: intent.ID},
			fmt.Errorf("%w: intent status %s", ErrChargeDeclined, intent.Status)
	}
}

// toMinorUnits переводит сумму в минимальные единицы валюты
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
