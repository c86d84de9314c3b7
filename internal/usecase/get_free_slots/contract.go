package get_free_slots

import (
	"context"
	"time"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/internal/integrations/googlecalendar"
	"github.com/kirillmaftuljak/WPKHK/internal/timeslot"
)

// BookableRepository интерфейс репозитория услуг
type BookableRepository interface {
	GetByIDWithExtras(ctx context.Context, id int64) (*domain.Service, error)
}

// ProviderRepository интерфейс репозитория сотрудников
type ProviderRepository interface {
	GetByServiceID(ctx context.Context, serviceID int64, providerID int64) ([]*domain.Provider, error)
	GetGlobalDaysOff(ctx context.Context) ([]domain.DayOff, error)
}

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	GetFutureAppointments(ctx context.Context, providerIDs []int64, excludeID int64, statuses []domain.BookingStatus, from, to time.Time) ([]*domain.Appointment, error)
}

// CalendarClient клиент внешнего календаря сотрудников
type CalendarClient interface {
	GetBusyIntervalsWithGracefulDegradation(ctx context.Context, calendarID string, from, to time.Time) []googlecalendar.BusyInterval
}

// SlotCache кэш рассчитанных слотов
type SlotCache interface {
	Get(ctx context.Context, key string) (timeslot.SlotMap, error)
	Set(ctx context.Context, key string, slots timeslot.SlotMap) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}

// Settings настройки расчета слотов (глобальная конфигурация)
type Settings struct {
	// SlotLength длина слота; 0 = длительность услуги
	SlotLength time.Duration

	// UseServiceDurationAsSlot шаг дискретизации равен требуемой длительности
	UseServiceDurationAsSlot bool

	// MinimumTimeBeforeBooking запрет бронирования раньше, чем через интервал
	MinimumTimeBeforeBooking time.Duration

	// DaysAvailableForBooking горизонт бронирования для клиентов, дни
	DaysAvailableForBooking int

	// BackendDaysAvailable расширенный горизонт для backend-запросов, дни
	BackendDaysAvailable int

	AllowBookingIfPending        bool
	AllowBookingIfNotMinCapacity bool
}
