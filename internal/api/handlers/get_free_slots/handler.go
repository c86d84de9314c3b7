package get_free_slots

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kirillmaftuljak/WPKHK/internal/api/handlers"
	getFreeSlots "github.com/kirillmaftuljak/WPKHK/internal/usecase/get_free_slots"
)

const (
	msgInvalidServiceID = "некорректный ID услуги"
	msgInvalidParams    = "некорректные параметры запроса"
	msgServiceNotFound  = "услуга не найдена"
	msgNoProviders      = "на услугу не назначен ни один сотрудник"
	msgInvalidDateRange = "некорректный диапазон дат"
)

type Handler struct {
	useCase GetFreeSlotsUseCase
	logger  Logger
}

func NewHandler(useCase GetFreeSlotsUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle GET /api/v1/services/{serviceId}/free-slots
// Query params: dateFrom, dateTo (обязательные, YYYY-MM-DD), providerId,
// locationId, persons, extras, excludeAppointmentId
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, false)
}

// HandleBackend GET /api/v1/admin/services/{serviceId}/free-slots
// Бэкенд-вариант: расширенный горизонт, без минимального интервала до начала
func (h *Handler) HandleBackend(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, true)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, isBackend bool) {
	vars := mux.Vars(r)

	serviceID, err := strconv.ParseInt(vars["serviceId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /services/{id}/free-slots - Invalid service ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidServiceID)
		return
	}

	useCaseReq, err := ToUseCaseRequest(serviceID, r.URL.Query(), isBackend)
	if err != nil {
		h.logger.Warn("GET /services/{id}/free-slots - Failed to parse request: %v", err)
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, getFreeSlots.ErrServiceNotFound):
			h.logger.Warn("GET /services/{id}/free-slots - Service not found: service_id=%d", serviceID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, getFreeSlots.ErrNoProviders):
			h.logger.Warn("GET /services/{id}/free-slots - No providers: service_id=%d", serviceID)
			handlers.RespondNotFound(w, msgNoProviders)

		case errors.Is(err, getFreeSlots.ErrInvalidDateRange):
			h.logger.Warn("GET /services/{id}/free-slots - Invalid date range: service_id=%d", serviceID)
			handlers.RespondBadRequest(w, msgInvalidDateRange)

		case errors.Is(err, getFreeSlots.ErrInvalidInput):
			h.logger.Warn("GET /services/{id}/free-slots - Invalid input: service_id=%d, error=%v", serviceID, err)
			handlers.RespondBadRequest(w, msgInvalidParams)

		default:
			h.logger.Error("GET /services/{id}/free-slots - Failed to get slots: service_id=%d, error=%v", serviceID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /services/{id}/free-slots - Slots retrieved: service_id=%d, days=%d",
		serviceID, len(result.Slots))
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
