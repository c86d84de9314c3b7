package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/internal/infra/broker/bookingevents"
	apptRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/appointment"
	"github.com/kirillmaftuljak/WPKHK/internal/service/appointments/models"
	"github.com/kirillmaftuljak/WPKHK/internal/timeslot"
)

// Service сервис управления существующими записями: изменение, перенос,
// удаление и клиентская отмена
type Service struct {
	appointmentRepo AppointmentRepository
	bookableRepo    BookableRepository
	txManager       TransactionManager
	slotCache       SlotCache
	producer        EventProducer
	calendar        CalendarClient
	providerRepo    ProviderResolver
	timeProvider    TimeProvider
	logger          Logger

	// minTimeBeforeCanceling минимальный интервал до начала записи,
	// после которого клиентская отмена запрещена
	minTimeBeforeCanceling time.Duration
}

// NewService создает новый экземпляр сервиса записей
func NewService(
	appointmentRepo AppointmentRepository,
	bookableRepo BookableRepository,
	txManager TransactionManager,
	slotCache SlotCache,
	producer EventProducer,
	calendar CalendarClient,
	providerRepo ProviderResolver,
	timeProvider TimeProvider,
	minTimeBeforeCanceling time.Duration,
	logger Logger,
) *Service {
	return &Service{
		appointmentRepo:        appointmentRepo,
		bookableRepo:           bookableRepo,
		txManager:              txManager,
		slotCache:              slotCache,
		producer:               producer,
		calendar:               calendar,
		providerRepo:           providerRepo,
		timeProvider:           timeProvider,
		minTimeBeforeCanceling: minTimeBeforeCanceling,
		logger:                 logger,
	}
}

// Update изменяет запись: статус, время, заметки.
//
// Выполняется в сериализуемой транзакции: строка записи блокируется, при
// переносе коллизии с другими записями сотрудника проверяются авторитетно.
// Конфликт откатывает транзакцию целиком — запись остается нетронутой.
// Backend-операция: рабочие часы сотрудника при переносе не проверяются,
// администратор может назначить запись вне расписания
func (s *Service) Update(ctx context.Context, req *models.UpdateAppointmentRequest) (*models.AppointmentResponse, error) {
	s.logger.Info("Update: appointment=%d", req.AppointmentID)

	var (
		updated     *domain.Appointment
		changed     []*domain.CustomerBooking
		rescheduled bool
	)

	err := s.txManager.DoSerializable(ctx, func(ctx context.Context) error {
		appt, err := s.appointmentRepo.GetByID(ctx, req.AppointmentID)
		if err != nil {
			if errors.Is(err, apptRepo.ErrAppointmentNotFound) {
				return ErrAppointmentNotFound
			}
			return fmt.Errorf("%w: Update - load appointment: %v", ErrInternal, err)
		}
		previous := snapshot(appt)

		if req.Status != nil {
			next := domain.BookingStatus(*req.Status)
			if !next.IsValid() {
				return fmt.Errorf("%w: status %q", ErrInvalidInput, *req.Status)
			}
			if !appt.Status.CanTransitionTo(next) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, appt.Status, next)
			}
			ApplyStatus(appt, next)
		}
		if req.InternalNotes != nil {
			appt.InternalNotes = req.InternalNotes
		}

		if req.BookingStart != nil && !req.BookingStart.Equal(appt.BookingStart) {
			duration := appt.BookingEnd.Sub(appt.BookingStart)
			appt.BookingStart = *req.BookingStart
			appt.BookingEnd = req.BookingStart.Add(duration)

			if err := s.checkCollision(ctx, appt); err != nil {
				return err
			}
		}
		rescheduled = appt.IsRescheduled(previous)

		if err := s.appointmentRepo.Update(ctx, appt); err != nil {
			return fmt.Errorf("%w: Update - save appointment: %v", ErrInternal, err)
		}

		changed = ChangedBookings(appt, previous)
		for _, booking := range changed {
			if _, stillThere := appt.Bookings[booking.ID]; !stillThere {
				continue
			}
			if err := s.appointmentRepo.UpdateBookingStatus(ctx, booking.ID, booking.Status); err != nil {
				return fmt.Errorf("%w: Update - save booking status: %v", ErrInternal, err)
			}
		}

		updated = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, updated, bookingevents.Message{
		Type:          bookingevents.EventAppointmentUpdated,
		AppointmentID: updated.ID,
		Bookings:      bookingevents.BookingRefs(changed),
	})

	s.logger.Info("Update: appointment=%d saved, rescheduled=%t, changed bookings=%d",
		updated.ID, rescheduled, len(changed))
	return models.FromDomainAppointment(updated, rescheduled, changed), nil
}

// Delete выполняет "удаление" записи: принудительный перевод в Rejected.
// История и платежи сохраняются, строка физически не удаляется
func (s *Service) Delete(ctx context.Context, id int64) (*models.AppointmentResponse, error) {
	s.logger.Info("Delete: appointment=%d", id)

	var (
		deleted *domain.Appointment
		changed []*domain.CustomerBooking
	)

	err := s.txManager.DoSerializable(ctx, func(ctx context.Context) error {
		appt, err := s.appointmentRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, apptRepo.ErrAppointmentNotFound) {
				return ErrAppointmentNotFound
			}
			return fmt.Errorf("%w: Delete - load appointment: %v", ErrInternal, err)
		}
		previous := snapshot(appt)

		appt.Reject()

		if err := s.appointmentRepo.Update(ctx, appt); err != nil {
			return fmt.Errorf("%w: Delete - save appointment: %v", ErrInternal, err)
		}
		if err := s.appointmentRepo.UpdateBookingStatuses(ctx, appt); err != nil {
			return fmt.Errorf("%w: Delete - save booking statuses: %v", ErrInternal, err)
		}

		changed = ChangedBookings(appt, previous)
		deleted = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, deleted, bookingevents.Message{
		Type:          bookingevents.EventAppointmentDeleted,
		AppointmentID: deleted.ID,
		Bookings:      bookingevents.BookingRefs(changed),
	})

	s.logger.Info("Delete: appointment=%d rejected, notified bookings=%d", deleted.ID, len(changed))
	return models.FromDomainAppointment(deleted, false, changed), nil
}

// Cancel отменяет одно клиентское бронирование по capability-токену.
//
// Токен выдан при создании бронирования; проверка минимального интервала
// отмены защищает сотрудника от отмен в последний момент
func (s *Service) Cancel(ctx context.Context, req *models.CancelBookingRequest) (*models.AppointmentResponse, error) {
	s.logger.Info("Cancel: booking=%d", req.BookingID)

	var (
		appt    *domain.Appointment
		changed []*domain.CustomerBooking
	)

	err := s.txManager.DoSerializable(ctx, func(ctx context.Context) error {
		booking, err := s.appointmentRepo.GetBookingByID(ctx, req.BookingID)
		if err != nil {
			if errors.Is(err, apptRepo.ErrBookingNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("%w: Cancel - load booking: %v", ErrInternal, err)
		}
		if booking.Token == "" || booking.Token != req.Token {
			return ErrAccessDenied
		}
		if booking.AppointmentID == nil {
			return fmt.Errorf("%w: booking=%d is not an appointment booking", ErrInvalidInput, booking.ID)
		}

		appt, err = s.appointmentRepo.GetByID(ctx, *booking.AppointmentID)
		if err != nil {
			return fmt.Errorf("%w: Cancel - load appointment: %v", ErrInternal, err)
		}
		previous := snapshot(appt)

		if err := s.inspectMinimumCancellationTime(appt.BookingStart); err != nil {
			return err
		}

		current, ok := appt.Bookings[booking.ID]
		if !ok {
			return ErrBookingNotFound
		}
		if !current.Status.CanTransitionTo(domain.StatusCanceled) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, current.Status, domain.StatusCanceled)
		}
		current.Status = domain.StatusCanceled
		current.ChangedStatus = true

		if err := s.appointmentRepo.UpdateBookingStatus(ctx, current.ID, current.Status); err != nil {
			return fmt.Errorf("%w: Cancel - save booking status: %v", ErrInternal, err)
		}

		// Последнее активное бронирование отменяет и саму запись
		if appt.ActivePersons() == 0 && appt.Status.IsActive() {
			appt.Status = domain.StatusCanceled
			if err := s.appointmentRepo.Update(ctx, appt); err != nil {
				return fmt.Errorf("%w: Cancel - save appointment: %v", ErrInternal, err)
			}
		}

		changed = ChangedBookings(appt, previous)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, appt, bookingevents.Message{
		Type:          bookingevents.EventBookingCanceled,
		AppointmentID: appt.ID,
		Bookings:      bookingevents.BookingRefs(changed),
	})

	s.logger.Info("Cancel: booking=%d canceled, appointment=%d status=%s", req.BookingID, appt.ID, appt.Status)
	return models.FromDomainAppointment(appt, false, changed), nil
}

// checkCollision проверяет новое время записи на пересечения с другими
// записями сотрудника. Запись на ту же услугу с совпадающим началом и
// свободной вместимостью коллизией не считается
func (s *Service) checkCollision(ctx context.Context, appt *domain.Appointment) error {
	service, err := s.bookableRepo.GetByIDWithExtras(ctx, appt.ServiceID)
	if err != nil {
		return fmt.Errorf("%w: checkCollision - load service: %v", ErrInternal, err)
	}

	others, err := s.appointmentRepo.GetFutureAppointments(
		ctx,
		[]int64{appt.ProviderID},
		appt.ID,
		[]domain.BookingStatus{domain.StatusPending, domain.StatusApproved},
		appt.BookingStart,
		appt.BookingEnd,
	)
	if err != nil {
		return fmt.Errorf("%w: checkCollision - load appointments: %v", ErrInternal, err)
	}

	window := timeslot.Interval{Start: appt.BookingStart, End: appt.BookingEnd}
	for _, other := range others {
		otherWindow := timeslot.Interval{Start: other.BookingStart, End: other.BookingEnd}
		if !window.Overlaps(otherWindow) {
			continue
		}
		if other.ServiceID == appt.ServiceID &&
			other.BookingStart.Equal(appt.BookingStart) &&
			other.ActivePersons()+appt.ActivePersons() <= service.MaxCapacity {
			continue
		}
		return fmt.Errorf("%w: collides with appointment=%d", ErrSlotNotAvailable, other.ID)
	}

	return nil
}

// inspectMinimumCancellationTime проверяет, что до начала записи осталось
// больше минимального интервала отмены
func (s *Service) inspectMinimumCancellationTime(bookingStart time.Time) error {
	deadline := bookingStart.Add(-s.minTimeBeforeCanceling)
	if s.timeProvider.Now().After(deadline) {
		return ErrCancelTooLate
	}
	return nil
}

// afterChange пост-транзакционные побочные эффекты: сброс кэша слотов,
// удаление события во внешнем календаре и публикация события.
// Все операции best-effort и не влияют на результат
func (s *Service) afterChange(ctx context.Context, appt *domain.Appointment, msg bookingevents.Message) {
	if s.slotCache != nil {
		if err := s.slotCache.InvalidateService(ctx, appt.ServiceID); err != nil {
			s.logger.Warn("afterChange: slot cache invalidation failed for service=%d: %v", appt.ServiceID, err)
		}
	}
	if !appt.Status.IsActive() {
		s.dropCalendarEvent(ctx, appt)
	}
	if s.producer != nil {
		if err := s.producer.Publish(ctx, msg); err != nil {
			s.logger.Warn("afterChange: event publish failed for appointment=%d: %v", msg.AppointmentID, err)
		}
	}
}

// dropCalendarEvent удаляет событие отмененной записи из календаря сотрудника
func (s *Service) dropCalendarEvent(ctx context.Context, appt *domain.Appointment) {
	if s.calendar == nil || appt.GoogleCalendarEventID == nil {
		return
	}

	providers, err := s.providerRepo.GetByServiceID(ctx, appt.ServiceID, appt.ProviderID)
	if err != nil || len(providers) == 0 {
		s.logger.Warn("afterChange: failed to resolve provider=%d for calendar cleanup: %v", appt.ProviderID, err)
		return
	}
	provider := providers[0]
	if provider.GoogleCalendarID == nil {
		return
	}

	if err := s.calendar.DeleteEvent(ctx, *provider.GoogleCalendarID, *appt.GoogleCalendarEventID); err != nil {
		s.logger.Warn("afterChange: calendar event delete failed for appointment=%d: %v", appt.ID, err)
		return
	}
	appt.GoogleCalendarEventID = nil
}

// snapshot делает глубокую копию записи для вычисления диффа статусов
func snapshot(appt *domain.Appointment) *domain.Appointment {
	copied := *appt
	copied.Bookings = make(map[int64]*domain.CustomerBooking, len(appt.Bookings))
	for id, booking := range appt.Bookings {
		b := *booking
		copied.Bookings[id] = &b
	}
	return &copied
}
