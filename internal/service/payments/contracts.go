package payments

import (
	"context"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/internal/integrations/stripegateway"
)

// PaymentRepository интерфейс репозитория платежей
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
}

// GatewayClient интерфейс платежного шлюза
type GatewayClient interface {
	Charge(ctx context.Context, req stripegateway.ChargeRequest) (*stripegateway.ChargeResult, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
