package cancel_booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kirillmaftuljak/WPKHK/internal/api/handlers"
	appointmentsService "github.com/kirillmaftuljak/WPKHK/internal/service/appointments"
	"github.com/kirillmaftuljak/WPKHK/internal/service/appointments/models"
)

const (
	msgInvalidBookingID  = "некорректный ID бронирования"
	msgMissingToken      = "отсутствует токен бронирования"
	msgBookingNotFound   = "бронирование не найдено"
	msgAccessDenied      = "неверный токен бронирования"
	msgCancelTooLate     = "срок отмены бронирования истек"
	msgInvalidTransition = "бронирование нельзя отменить в текущем статусе"
)

type Handler struct {
	service AppointmentsService
	logger  Logger
}

func NewHandler(service AppointmentsService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle POST /api/v1/bookings/{bookingId}/cancel?token=...
// Публичный маршрут: доступ контролируется capability-токеном из письма
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	bookingID, err := strconv.ParseInt(vars["bookingId"], 10, 64)
	if err != nil {
		h.logger.Warn("POST /bookings/{id}/cancel - Invalid booking ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		h.logger.Warn("POST /bookings/{id}/cancel - Missing token: booking_id=%d", bookingID)
		handlers.RespondBadRequest(w, msgMissingToken)
		return
	}

	result, err := h.service.Cancel(r.Context(), &models.CancelBookingRequest{
		BookingID: bookingID,
		Token:     token,
	})
	if err != nil {
		switch {
		case errors.Is(err, appointmentsService.ErrBookingNotFound),
			errors.Is(err, appointmentsService.ErrAppointmentNotFound):
			h.logger.Warn("POST /bookings/{id}/cancel - Booking not found: booking_id=%d", bookingID)
			handlers.RespondNotFound(w, msgBookingNotFound)

		case errors.Is(err, appointmentsService.ErrAccessDenied):
			h.logger.Warn("POST /bookings/{id}/cancel - Access denied: booking_id=%d", bookingID)
			handlers.RespondForbidden(w, msgAccessDenied)

		case errors.Is(err, appointmentsService.ErrCancelTooLate):
			h.logger.Warn("POST /bookings/{id}/cancel - Too late to cancel: booking_id=%d", bookingID)
			handlers.RespondBadRequest(w, msgCancelTooLate)

		case errors.Is(err, appointmentsService.ErrInvalidStatus):
			h.logger.Warn("POST /bookings/{id}/cancel - Invalid status transition: booking_id=%d", bookingID)
			handlers.RespondBadRequest(w, msgInvalidTransition)

		default:
			h.logger.Error("POST /bookings/{id}/cancel - Failed to cancel: booking_id=%d, error=%v", bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /bookings/{id}/cancel - Booking canceled: booking_id=%d, appointment_id=%d",
		bookingID, result.ID)
	handlers.RespondJSON(w, http.StatusOK, result)
}
