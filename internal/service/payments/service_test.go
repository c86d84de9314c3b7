package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/internal/integrations/stripegateway"
	"github.com/kirillmaftuljak/WPKHK/internal/service/payments/models"
)

type fakePaymentRepo struct {
	created []*domain.Payment
	err     error
}

func (f *fakePaymentRepo) Create(_ context.Context, p *domain.Payment) (*domain.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	saved := *p
	saved.ID = int64(len(f.created) + 1)
	f.created = append(f.created, &saved)
	return &saved, nil
}

type fakeGateway struct {
	result *stripegateway.ChargeResult
	err    error

	lastReq stripegateway.ChargeRequest
}

func (f *fakeGateway) Charge(_ context.Context, req stripegateway.ChargeRequest) (*stripegateway.ChargeResult, error) {
	f.lastReq = req
	return f.result, f.err
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func testReservation() *domain.Reservation {
	return &domain.Reservation{
		Type:    domain.ReservationAppointment,
		Service: &domain.Service{Price: 100},
		Booking: &domain.CustomerBooking{ID: 7, Persons: 1, Token: "tok-7f3a"},
	}
}

func TestProcess_OnSiteStoresZeroPendingPayment(t *testing.T) {
	repo := &fakePaymentRepo{}
	svc := NewService(repo, &fakeGateway{}, nopLogger{})

	outcome, err := svc.Process(context.Background(), testReservation(), models.PaymentData{
		Gateway: domain.GatewayOnSite,
	})
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	assert.Equal(t, 0.0, repo.created[0].Amount)
	assert.Equal(t, domain.PaymentStatusPending, repo.created[0].Status)
	assert.False(t, outcome.RequiresAction)
}

func TestProcess_ExternalStoresPaidPayment(t *testing.T) {
	repo := &fakePaymentRepo{}
	svc := NewService(repo, &fakeGateway{}, nopLogger{})

	outcome, err := svc.Process(context.Background(), testReservation(), models.PaymentData{
		Gateway: domain.GatewayExternal,
	})
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	assert.Equal(t, 100.0, repo.created[0].Amount)
	assert.Equal(t, domain.PaymentStatusPaid, repo.created[0].Status)
	assert.False(t, outcome.RequiresAction)
}

func TestProcess_StripeSuccess(t *testing.T) {
	repo := &fakePaymentRepo{}
	gateway := &fakeGateway{result: &stripegateway.ChargeResult{
		Status:   stripegateway.ChargeSucceeded,
		IntentID: "pi_1",
	}}
	svc := NewService(repo, gateway, nopLogger{})

	outcome, err := svc.Process(context.Background(), testReservation(), models.PaymentData{
		Gateway:         domain.GatewayStripe,
		Currency:        "EUR",
		PaymentMethodID: "pm_1",
	})
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	assert.Equal(t, domain.PaymentStatusPaid, repo.created[0].Status)
	assert.False(t, outcome.RequiresAction)

	// ключ идемпотентности передается шлюзу и сохраняется в платеже
	assert.NotEmpty(t, gateway.lastReq.IdempotencyKey)
	assert.Equal(t, gateway.lastReq.IdempotencyKey, repo.created[0].IdempotencyKey)
}

func TestProcess_StripeRetryKeepsIdempotencyKey(t *testing.T) {
	repo := &fakePaymentRepo{}
	gateway := &fakeGateway{result: &stripegateway.ChargeResult{
		Status:   stripegateway.ChargeSucceeded,
		IntentID: "pi_1",
	}}
	svc := NewService(repo, gateway, nopLogger{})

	reservation := testReservation()
	data := models.PaymentData{
		Gateway:         domain.GatewayStripe,
		Currency:        "EUR",
		PaymentMethodID: "pm_1",
	}

	_, err := svc.Process(context.Background(), reservation, data)
	require.NoError(t, err)
	firstKey := gateway.lastReq.IdempotencyKey
	require.NotEmpty(t, firstKey)

	// Повтор сериализуемой транзакции вызывает Process заново;
	// ключ выводится из токена бронирования и не меняется между попытками
	_, err = svc.Process(context.Background(), reservation, data)
	require.NoError(t, err)
	assert.Equal(t, firstKey, gateway.lastReq.IdempotencyKey)

	// Другая попытка бронирования получает новый токен и новый ключ
	other := testReservation()
	other.Booking.Token = "tok-9c11"
	_, err = svc.Process(context.Background(), other, data)
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, gateway.lastReq.IdempotencyKey)
}

func TestProcess_StripeRequiresAction(t *testing.T) {
	repo := &fakePaymentRepo{}
	gateway := &fakeGateway{result: &stripegateway.ChargeResult{
		Status:       stripegateway.ChargeRequiresAction,
		IntentID:     "pi_2",
		ClientSecret: "pi_2_secret",
	}}
	svc := NewService(repo, gateway, nopLogger{})

	outcome, err := svc.Process(context.Background(), testReservation(), models.PaymentData{
		Gateway:         domain.GatewayStripe,
		Currency:        "EUR",
		PaymentMethodID: "pm_2",
	})
	require.NoError(t, err)

	assert.True(t, outcome.RequiresAction)
	assert.Equal(t, "pi_2_secret", outcome.ActionToken)
	require.Len(t, repo.created, 1)
	assert.Equal(t, domain.PaymentStatusPending, repo.created[0].Status)
}

func TestProcess_StripeDeclinedSavesNothing(t *testing.T) {
	repo := &fakePaymentRepo{}
	gateway := &fakeGateway{err: stripegateway.ErrChargeDeclined}
	svc := NewService(repo, gateway, nopLogger{})

	_, err := svc.Process(context.Background(), testReservation(), models.PaymentData{
		Gateway:         domain.GatewayStripe,
		Currency:        "EUR",
		PaymentMethodID: "pm_3",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPaymentFailed))
	assert.Empty(t, repo.created)
}

func TestProcess_UnknownGateway(t *testing.T) {
	svc := NewService(&fakePaymentRepo{}, &fakeGateway{}, nopLogger{})

	_, err := svc.Process(context.Background(), testReservation(), models.PaymentData{
		Gateway: domain.PaymentGateway("paypal"),
	})
	assert.True(t, errors.Is(err, ErrUnknownGateway))
}
