package book_reservation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
)

// buildBooking собирает бронирование из запроса. Цены опций фиксируются
// из каталога на момент бронирования: последующее изменение каталога
// не меняет уже созданные бронирования
func buildBooking(req *Request, service *domain.Service, customer *domain.Customer, defaultStatus domain.BookingStatus) (*domain.CustomerBooking, error) {
	booking := &domain.CustomerBooking{
		CustomerID:   customer.ID,
		Customer:     customer,
		Status:       defaultStatus,
		Persons:      req.Persons,
		CustomFields: req.CustomFields,
		UTCOffset:    req.UTCOffset,
		Token:        uuid.NewString(),
	}

	for _, selected := range req.Extras {
		if service == nil {
			return nil, fmt.Errorf("%w: extras are not supported for this reservation", ErrInvalidInput)
		}
		extra := service.FindExtra(selected.ExtraID)
		if extra == nil {
			return nil, fmt.Errorf("%w: unknown extra id=%d", ErrInvalidInput, selected.ExtraID)
		}
		if extra.MaxQuantity > 0 && selected.Quantity > extra.MaxQuantity {
			return nil, fmt.Errorf("%w: extra id=%d quantity %d exceeds maximum %d",
				ErrInvalidInput, selected.ExtraID, selected.Quantity, extra.MaxQuantity)
		}
		booking.Extras = append(booking.Extras, domain.CustomerBookingExtra{
			ExtraID:         extra.ID,
			Quantity:        selected.Quantity,
			Price:           extra.Price,
			AggregatedPrice: extra.AggregatedPrice,
		})
	}

	return booking, nil
}

// buildAppointment собирает скелет новой записи: конец вычисляется из
// длительности услуги и выбранных опций
func buildAppointment(req *Request, service *domain.Service, status domain.BookingStatus) *domain.Appointment {
	return &domain.Appointment{
		ServiceID:    req.ServiceID,
		ProviderID:   req.ProviderID,
		LocationID:   req.LocationID,
		BookingStart: req.BookingStart,
		BookingEnd:   req.BookingStart.Add(requiredDuration(req, service)),
		Status:       status,
	}
}

// requiredDuration возвращает длительность записи: услуга плюс опции
func requiredDuration(req *Request, service *domain.Service) time.Duration {
	required := service.DurationTime()
	for _, selected := range req.Extras {
		if extra := service.FindExtra(selected.ExtraID); extra != nil {
			required += time.Duration(extra.Duration*selected.Quantity) * time.Second
		}
	}
	return required
}
