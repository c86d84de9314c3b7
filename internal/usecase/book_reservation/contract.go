package book_reservation

import (
	"context"
	"time"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/internal/infra/broker/bookingevents"
	paymentModels "github.com/kirillmaftuljak/WPKHK/internal/service/payments/models"
	"github.com/kirillmaftuljak/WPKHK/internal/usecase/get_free_slots"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	Create(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error)
	CreateBooking(ctx context.Context, booking *domain.CustomerBooking) (*domain.CustomerBooking, error)
	FindAtTime(ctx context.Context, providerID, serviceID int64, start time.Time) (*domain.Appointment, error)
	Update(ctx context.Context, appt *domain.Appointment) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status domain.BookingStatus) error
}

// EventRepository интерфейс репозитория событий
type EventRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Event, error)
}

// BookableRepository интерфейс репозитория услуг
type BookableRepository interface {
	GetByIDWithExtras(ctx context.Context, id int64) (*domain.Service, error)
}

// CustomerService сервис разрешения клиента
type CustomerService interface {
	GetOrCreate(ctx context.Context, info *domain.Customer) (*domain.Customer, bool, error)
}

// CouponService сервис проверки купонов
type CouponService interface {
	Validate(ctx context.Context, code string, entityType string, entityID int64, customerID int64) (*domain.Coupon, error)
}

// PaymentService сервис обработки платежей
type PaymentService interface {
	Process(ctx context.Context, reservation *domain.Reservation, data paymentModels.PaymentData) (*paymentModels.ProcessOutcome, error)
}

// SlotChecker авторитетная проверка существования слота
type SlotChecker interface {
	IsSlotFree(ctx context.Context, req *get_free_slots.Request, at time.Time) (bool, error)
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
	CreateEvent(ctx context.Context, calendarID, summary string, start, end time.Time) (string, error)
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

// Settings настройки конвейера бронирования
type Settings struct {
	// DefaultStatus статус новой записи: pending или approved
	DefaultStatus domain.BookingStatus

	// MinimumTimeBeforeBooking запрет бронирования раньше, чем через интервал
	MinimumTimeBeforeBooking time.Duration

	// DisplayLocation часовой пояс компании. Если задан, клиентское время
	// в UTC переводится в него перед проверками расписания; nil означает,
	// что время уже приходит в местном времени компании
	DisplayLocation *time.Location
}
