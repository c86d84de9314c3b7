package book_reservation

import (
	"fmt"
	"strings"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	switch domain.ReservationType(req.Type) {
	case domain.ReservationAppointment:
		if req.ServiceID <= 0 {
			return fmt.Errorf("%w: serviceID must be positive", ErrInvalidInput)
		}
		if req.ProviderID <= 0 {
			return fmt.Errorf("%w: providerID must be positive", ErrInvalidInput)
		}
		if req.BookingStart.IsZero() {
			return fmt.Errorf("%w: bookingStart is required", ErrInvalidInput)
		}
	case domain.ReservationEvent:
		if req.EventID <= 0 {
			return fmt.Errorf("%w: eventID must be positive", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown reservation type %q", ErrInvalidInput, req.Type)
	}

	if req.Persons <= 0 {
		return fmt.Errorf("%w: persons must be positive", ErrInvalidInput)
	}

	for _, extra := range req.Extras {
		if extra.ExtraID <= 0 || extra.Quantity <= 0 {
			return fmt.Errorf("%w: extras must have positive id and quantity", ErrInvalidInput)
		}
	}

	if strings.TrimSpace(req.Customer.Email) == "" && req.Customer.AccountUserID == nil {
		return ErrCustomerEmail
	}

	if !req.Payment.Gateway.IsValid() {
		return fmt.Errorf("%w: unknown payment gateway %q", ErrInvalidInput, req.Payment.Gateway)
	}

	return nil
}
