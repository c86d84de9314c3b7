package models

import "github.com/kirillmaftuljak/WPKHK/internal/domain"

// PaymentData платежные данные запроса на бронирование
type PaymentData struct {
	Gateway      domain.PaymentGateway `json:"gateway"`
	GatewayTitle string                `json:"gatewayTitle,omitempty"`

	// Currency / PaymentMethodID обязательны только для карточных шлюзов
	Currency        string `json:"currency,omitempty"`
	PaymentMethodID string `json:"paymentMethodId,omitempty"`
}

// ProcessOutcome исход обработки платежа
type ProcessOutcome struct {
	Payment *domain.Payment

	// RequiresAction платеж ждет подтверждения клиента (3DS)
	RequiresAction bool

	// ActionToken client secret для завершения оплаты на стороне клиента
	ActionToken string
}
