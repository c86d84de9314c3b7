package domain

import "time"

// PaymentStatus статус платежа
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// PaymentGateway способ оплаты
type PaymentGateway string

const (
	// GatewayOnSite оплата на месте: к моменту бронирования деньги не списываются
	GatewayOnSite PaymentGateway = "onSite"

	// GatewayStripe оплата картой через Stripe PaymentIntent
	GatewayStripe PaymentGateway = "stripe"

	// GatewayExternal оплата, завершенная во внешнем checkout-е до вызова core
	GatewayExternal PaymentGateway = "external"
)

// IsValid returns true for a known gateway value
func (g PaymentGateway) IsValid() bool {
	switch g {
	case GatewayOnSite, GatewayStripe, GatewayExternal:
		return true
	}
	return false
}

// Payment платеж, привязанный к клиентскому бронированию
type Payment struct {
	ID                int64
	CustomerBookingID int64

	Amount  float64
	Status  PaymentStatus
	Gateway PaymentGateway

	GatewayTitle string

	// IdempotencyKey ключ дедупликации запросов к платежному шлюзу
	IdempotencyKey string

	DateTime  time.Time
	CreatedAt time.Time
}
