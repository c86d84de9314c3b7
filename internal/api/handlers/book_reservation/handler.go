package book_reservation

import (
	"errors"
	"net/http"

	"github.com/kirillmaftuljak/WPKHK/internal/api/handlers"
	bookReservation "github.com/kirillmaftuljak/WPKHK/internal/usecase/book_reservation"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgServiceNotFound    = "услуга не найдена"
	msgEventNotFound      = "событие не найдено"
	msgBookingUnavailable = "выбранный временной слот недоступен"
	msgAlreadyBooked      = "у клиента уже есть бронирование на это время"
	msgCouponUnknown      = "купон не существует"
	msgCouponInvalid      = "купон неприменим к этому бронированию"
	msgCustomerEmail      = "не указан email клиента"
	msgPaymentFailed      = "платеж отклонен"
	msgBookingTooSoon     = "до начала осталось меньше минимального интервала бронирования"
)

type Handler struct {
	useCase BookReservationUseCase
	logger  Logger
}

func NewHandler(useCase BookReservationUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/reservations
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, false)
}

// HandleBackend POST /api/v1/admin/reservations
// Бэкенд-вариант: без минимального интервала до начала
func (h *Handler) HandleBackend(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, true)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, isBackend bool) {
	var req BookReservationRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /reservations - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(isBackend)
	if err != nil {
		h.logger.Warn("POST /reservations - Failed to parse request: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, bookReservation.ErrBookingUnavailable):
			h.logger.Warn("POST /reservations - Slot unavailable: service_id=%d, start=%s",
				req.ServiceID, req.BookingStart)
			handlers.RespondError(w, http.StatusConflict, msgBookingUnavailable)

		case errors.Is(err, bookReservation.ErrCustomerAlreadyBooked):
			h.logger.Warn("POST /reservations - Customer already booked: email=%s", req.Customer.Email)
			handlers.RespondError(w, http.StatusConflict, msgAlreadyBooked)

		case errors.Is(err, bookReservation.ErrServiceNotFound):
			h.logger.Warn("POST /reservations - Service not found: service_id=%d", req.ServiceID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, bookReservation.ErrEventNotFound):
			h.logger.Warn("POST /reservations - Event not found: event_id=%d", req.EventID)
			handlers.RespondNotFound(w, msgEventNotFound)

		case errors.Is(err, bookReservation.ErrCouponUnknown):
			h.logger.Warn("POST /reservations - Unknown coupon: code=%q", req.CouponCode)
			handlers.RespondBadRequest(w, msgCouponUnknown)

		case errors.Is(err, bookReservation.ErrCouponInvalid):
			h.logger.Warn("POST /reservations - Invalid coupon: code=%q", req.CouponCode)
			handlers.RespondBadRequest(w, msgCouponInvalid)

		case errors.Is(err, bookReservation.ErrCustomerEmail):
			h.logger.Warn("POST /reservations - Missing customer email")
			handlers.RespondBadRequest(w, msgCustomerEmail)

		case errors.Is(err, bookReservation.ErrPaymentFailed):
			h.logger.Warn("POST /reservations - Payment failed: service_id=%d, gateway=%s",
				req.ServiceID, req.Payment.Gateway)
			handlers.RespondError(w, http.StatusPaymentRequired, msgPaymentFailed)

		case errors.Is(err, bookReservation.ErrBookingTooSoon):
			h.logger.Warn("POST /reservations - Booking too soon: start=%s", req.BookingStart)
			handlers.RespondBadRequest(w, msgBookingTooSoon)

		case errors.Is(err, bookReservation.ErrInvalidInput):
			h.logger.Warn("POST /reservations - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidRequestBody)

		default:
			h.logger.Error("POST /reservations - Failed to book: type=%s, service_id=%d, event_id=%d, error=%v",
				req.Type, req.ServiceID, req.EventID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	// Предпросмотр ничего не создает
	if useCaseReq.Preview {
		h.logger.Info("POST /reservations - Reservation previewed: type=%s, price=%.2f",
			result.Type, result.Price)
		handlers.RespondJSON(w, http.StatusOK, result)
		return
	}

	h.logger.Info("POST /reservations - Reservation booked: type=%s, booking_id=%d, status=%s",
		result.Type, result.BookingID, result.Status)
	handlers.RespondJSON(w, http.StatusCreated, result)
}
