package appointments

import (
	"context"
	"time"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/internal/infra/broker/bookingevents"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	GetFutureAppointments(ctx context.Context, providerIDs []int64, excludeID int64, statuses []domain.BookingStatus, from, to time.Time) ([]*domain.Appointment, error)
	Update(ctx context.Context, appt *domain.Appointment) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status domain.BookingStatus) error
	UpdateBookingStatuses(ctx context.Context, appt *domain.Appointment) error
	GetBookingByID(ctx context.Context, id int64) (*domain.CustomerBooking, error)
}

// BookableRepository интерфейс репозитория услуг
type BookableRepository interface {
	GetByIDWithExtras(ctx context.Context, id int64) (*domain.Service, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// SlotCache кэш рассчитанных слотов
type SlotCache interface {
	InvalidateService(ctx context.Context, serviceID int64) error
}

// EventProducer публикует доменные события для подсистемы уведомлений
type EventProducer interface {
	Publish(ctx context.Context, msg bookingevents.Message) error
}

// CalendarClient клиент внешнего календаря сотрудников
type CalendarClient interface {
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// ProviderResolver доступ к данным сотрудника для синхронизации календаря
type ProviderResolver interface {
	GetByServiceID(ctx context.Context, serviceID int64, providerID int64) ([]*domain.Provider, error)
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
