package models

import (
	"time"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
)

// UpdateAppointmentRequest запрос на изменение записи (backend-операция)
type UpdateAppointmentRequest struct {
	AppointmentID int64 `json:"appointmentId"`

	// BookingStart новое время начала; nil = без переноса
	BookingStart *time.Time `json:"bookingStart,omitempty"`

	// Status новый статус записи; nil = без изменения
	Status *string `json:"status,omitempty"`

	InternalNotes *string `json:"internalNotes,omitempty"`
}

// CancelBookingRequest запрос клиента на отмену своего бронирования
type CancelBookingRequest struct {
	BookingID int64 `json:"bookingId"`

	// Token capability-токен из письма подтверждения
	Token string `json:"token"`
}

// BookingChange изменение статуса одного бронирования
type BookingChange struct {
	BookingID  int64  `json:"bookingId"`
	CustomerID int64  `json:"customerId"`
	Status     string `json:"status"`
}

// AppointmentResponse ответ операций над записью
type AppointmentResponse struct {
	ID           int64     `json:"id"`
	ServiceID    int64     `json:"serviceId"`
	ProviderID   int64     `json:"providerId"`
	BookingStart time.Time `json:"bookingStart"`
	BookingEnd   time.Time `json:"bookingEnd"`
	Status       string    `json:"status"`

	Rescheduled bool `json:"rescheduled,omitempty"`

	// ChangedBookings бронирования, чей статус изменила операция
	ChangedBookings []BookingChange `json:"changedBookings,omitempty"`
}

// FromDomainAppointment собирает ответ из доменной записи
func FromDomainAppointment(appt *domain.Appointment, rescheduled bool, changed []*domain.CustomerBooking) *AppointmentResponse {
	resp := &AppointmentResponse{
		ID:           appt.ID,
		ServiceID:    appt.ServiceID,
		ProviderID:   appt.ProviderID,
		BookingStart: appt.BookingStart,
		BookingEnd:   appt.BookingEnd,
		Status:       string(appt.Status),
		Rescheduled:  rescheduled,
	}
	for _, b := range changed {
		resp.ChangedBookings = append(resp.ChangedBookings, BookingChange{
			BookingID:  b.ID,
			CustomerID: b.CustomerID,
			Status:     string(b.Status),
		})
	}
	return resp
}
