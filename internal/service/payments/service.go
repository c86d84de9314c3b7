package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/internal/integrations/stripegateway"
	"github.com/kirillmaftuljak/WPKHK/internal/service/payments/models"
)

// Service сервис обработки платежей при бронировании
type Service struct {
	paymentRepo PaymentRepository
	gateway     GatewayClient
	logger      Logger
}

// NewService создает новый экземпляр сервиса платежей
func NewService(paymentRepo PaymentRepository, gateway GatewayClient, logger Logger) *Service {
	return &Service{
		paymentRepo: paymentRepo,
		gateway:     gateway,
		logger:      logger,
	}
}

// Process проводит оплату бронирования и сохраняет платеж.
//
// Три исхода: успех (платеж сохранен), requiresAction (платеж сохранен как
// pending, клиенту возвращается токен подтверждения) и ошибка — в последнем
// случае вызывающая транзакция откатывается целиком.
// Вызывается внутри транзакции бронирования
func (s *Service) Process(ctx context.Context, reservation *domain.Reservation, data models.PaymentData) (*models.ProcessOutcome, error) {
	amount := Amount(reservation)

	payment := &domain.Payment{
		CustomerBookingID: reservation.Booking.ID,
		Amount:            amount,
		Gateway:           data.Gateway,
		GatewayTitle:      data.GatewayTitle,
		IdempotencyKey:    idempotencyKey(reservation.Booking),
		DateTime:          time.Now().UTC(),
	}

	switch data.Gateway {
	case domain.GatewayOnSite:
		// Оплата на месте: деньги не списываются, фиксируется нулевой платеж
		payment.Amount = 0
		payment.Status = domain.PaymentStatusPending

	case domain.GatewayExternal:
		// Оплата завершена внешним checkout-ом до обращения к core
		payment.Status = domain.PaymentStatusPaid

	case domain.GatewayStripe:
		result, err := s.gateway.Charge(ctx, stripegateway.ChargeRequest{
			Amount:          amount,
			Currency:        data.Currency,
			PaymentMethodID: data.PaymentMethodID,
			IdempotencyKey:  payment.IdempotencyKey,
			Description:     fmt.Sprintf("booking #%d", reservation.Booking.ID),
		})
		if err != nil {
			s.logger.Warn("Process: charge failed for booking=%d amount=%.2f: %v", reservation.Booking.ID, amount, err)
			return nil, fmt.Errorf("%w: booking=%d: %v", ErrPaymentFailed, reservation.Booking.ID, err)
		}

		switch result.Status {
		case stripegateway.ChargeSucceeded:
			payment.Status = domain.PaymentStatusPaid
		case stripegateway.ChargeRequiresAction:
			payment.Status = domain.PaymentStatusPending
		default:
			return nil, fmt.Errorf("%w: booking=%d: gateway status %s", ErrPaymentFailed, reservation.Booking.ID, result.Status)
		}

		created, err := s.paymentRepo.Create(ctx, payment)
		if err != nil {
			return nil, fmt.Errorf("%w: Process - save payment: %v", ErrInternal, err)
		}

		s.logger.Info("Process: payment saved id=%d booking=%d gateway=%s status=%s amount=%.2f",
			created.ID, reservation.Booking.ID, payment.Gateway, payment.Status, payment.Amount)

		return &models.ProcessOutcome{
			Payment:        created,
			RequiresAction: result.Status == stripegateway.ChargeRequiresAction,
			ActionToken:    result.ClientSecret,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGateway, data.Gateway)
	}

	created, err := s.paymentRepo.Create(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("%w: Process - save payment: %v", ErrInternal, err)
	}

	s.logger.Info("Process: payment saved id=%d booking=%d gateway=%s status=%s amount=%.2f",
		created.ID, reservation.Booking.ID, payment.Gateway, payment.Status, payment.Amount)

	return &models.ProcessOutcome{Payment: created}, nil
}

// idempotencyKey детерминированно выводит ключ из токена бронирования.
// При повторе сериализуемой транзакции ключ не меняется, поэтому шлюз
// не спишет деньги второй раз за одну и ту же попытку бронирования
func idempotencyKey(booking *domain.CustomerBooking) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("payment:"+booking.Token)).String()
}
