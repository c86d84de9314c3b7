package update_appointment

import (
	"fmt"
	"time"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/internal/service/appointments/models"
)

// UpdateAppointmentRequest HTTP request model
type UpdateAppointmentRequest struct {
	// BookingStart новое время начала "YYYY-MM-DD HH:MM:SS"; пустая строка = без переноса
	BookingStart string `json:"bookingStart,omitempty"`

	Status *string `json:"status,omitempty"`

	InternalNotes *string `json:"internalNotes,omitempty"`
}

// ToServiceRequest конвертирует HTTP запрос в модель сервиса
func (r *UpdateAppointmentRequest) ToServiceRequest(appointmentID int64) (*models.UpdateAppointmentRequest, error) {
	req := &models.UpdateAppointmentRequest{
		AppointmentID: appointmentID,
		Status:        r.Status,
		InternalNotes: r.InternalNotes,
	}

	if r.BookingStart != "" {
		start, err := time.Parse(domain.DateTimeFormat, r.BookingStart)
		if err != nil {
			return nil, fmt.Errorf("invalid bookingStart: %v", err)
		}
		req.BookingStart = &start
	}

	return req, nil
}
