package book_reservation

import (
	"fmt"
	"time"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	paymentModels "github.com/kirillmaftuljak/WPKHK/internal/service/payments/models"
	bookReservation "github.com/kirillmaftuljak/WPKHK/internal/usecase/book_reservation"
)

// BookReservationRequest HTTP request model. Время начала принимается
// строкой "YYYY-MM-DD HH:MM:SS" или "YYYY-MM-DD HH:MM"
type BookReservationRequest struct {
	Type string `json:"type"`

	ServiceID    int64  `json:"serviceId,omitempty"`
	ProviderID   int64  `json:"providerId,omitempty"`
	LocationID   *int64 `json:"locationId,omitempty"`
	BookingStart string `json:"bookingStart,omitempty"`

	EventID int64 `json:"eventId,omitempty"`

	Persons int                          `json:"persons"`
	Extras  []bookReservation.BookedExtra `json:"extras,omitempty"`

	Customer bookReservation.CustomerInfo `json:"customer"`

	CustomFields map[string]domain.CustomFieldValue `json:"customFields,omitempty"`

	UTCOffset *int `json:"utcOffset,omitempty"`

	CouponCode string `json:"couponCode,omitempty"`

	Payment paymentModels.PaymentData `json:"payment"`

	// Preview рассчитать цену без записи
	Preview bool `json:"preview,omitempty"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *BookReservationRequest) ToUseCaseRequest(isBackend bool) (*bookReservation.Request, error) {
	req := &bookReservation.Request{
		Type:         r.Type,
		ServiceID:    r.ServiceID,
		ProviderID:   r.ProviderID,
		LocationID:   r.LocationID,
		EventID:      r.EventID,
		Persons:      r.Persons,
		Extras:       r.Extras,
		Customer:     r.Customer,
		CustomFields: r.CustomFields,
		UTCOffset:    r.UTCOffset,
		CouponCode:   r.CouponCode,
		Payment:      r.Payment,
		Preview:      r.Preview,
		IsBackend:    isBackend,
	}

	if r.BookingStart != "" {
		start, err := time.Parse(domain.DateTimeFormat, r.BookingStart)
		if err != nil {
			start, err = time.Parse(domain.DateFormat+" "+domain.TimeFormat, r.BookingStart)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid bookingStart: %v", err)
		}
		req.BookingStart = start
	}

	return req, nil
}
