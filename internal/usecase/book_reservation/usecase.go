package book_reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/internal/infra/broker/bookingevents"
	appointmentRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/appointment"
	bookableRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/bookable"
	eventRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/event"
	"github.com/kirillmaftuljak/WPKHK/internal/service/coupons"
	"github.com/kirillmaftuljak/WPKHK/internal/service/customers"
	"github.com/kirillmaftuljak/WPKHK/internal/service/customfields"
	"github.com/kirillmaftuljak/WPKHK/internal/service/payments"
	paymentModels "github.com/kirillmaftuljak/WPKHK/internal/service/payments/models"
	"github.com/kirillmaftuljak/WPKHK/internal/usecase/get_free_slots"
)

// UseCase use case конвейера бронирования записи или события
type UseCase struct {
	appointmentRepo AppointmentRepository
	eventRepo       EventRepository
	bookableRepo    BookableRepository
	customerService CustomerService
	couponService   CouponService
	paymentService  PaymentService
	slotChecker     SlotChecker
	txManager       TransactionManager
	slotCache       SlotCache
	producer        EventProducer
	calendar        CalendarClient
	providerRepo    ProviderResolver
	timeProvider    TimeProvider
	logger          Logger
	settings        Settings
}

// NewUseCase создает новый экземпляр use case.
// slotCache, producer и calendar опциональны: nil отключает соответствующий шаг
func NewUseCase(
	appointmentRepo AppointmentRepository,
	eventRepo EventRepository,
	bookableRepo BookableRepository,
	customerService CustomerService,
	couponService CouponService,
	paymentService PaymentService,
	slotChecker SlotChecker,
	txManager TransactionManager,
	slotCache SlotCache,
	producer EventProducer,
	calendar CalendarClient,
	providerRepo ProviderResolver,
	logger Logger,
	settings Settings,
) *UseCase {
	return &UseCase{
		appointmentRepo: appointmentRepo,
		eventRepo:       eventRepo,
		bookableRepo:    bookableRepo,
		customerService: customerService,
		couponService:   couponService,
		paymentService:  paymentService,
		slotChecker:     slotChecker,
		txManager:       txManager,
		slotCache:       slotCache,
		producer:        producer,
		calendar:        calendar,
		providerRepo:    providerRepo,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
		settings:        settings,
	}
}

// Execute выполняет конвейер бронирования.
// Проверка доступности и запись выполняются в сериализуемой транзакции:
// две конкурирующие брони одного слота не могут закоммититься обе
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("BookReservation: type=%s service=%d provider=%d event=%d persons=%d email=%s",
		req.Type, req.ServiceID, req.ProviderID, req.EventID, req.Persons, req.Customer.Email)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("BookReservation: validation failed: %v", err)
		return nil, err
	}

	// 2. Нормализуем время: клиент присылает UTC, расписание сотрудников
	// задано в часовом поясе компании
	if uc.settings.DisplayLocation != nil && !req.BookingStart.IsZero() {
		req.BookingStart = req.BookingStart.In(uc.settings.DisplayLocation)
	}

	// 3. Получаем текущее время
	now := uc.timeProvider.Now()

	// 4. Для записей: минимальный интервал до начала (кроме панели администратора)
	if domain.ReservationType(req.Type) == domain.ReservationAppointment && !req.IsBackend {
		if req.BookingStart.Before(now.Add(uc.settings.MinimumTimeBeforeBooking)) {
			uc.logger.Warn("BookReservation: start %s violates minimum booking time", req.BookingStart)
			return nil, ErrBookingTooSoon
		}
	}

	// 5. Разрешаем клиента: находим по email или создаем нового.
	// Предпросмотр клиента не создает: бронирование не сохраняется
	customer := &domain.Customer{
		FirstName:     req.Customer.FirstName,
		LastName:      req.Customer.LastName,
		Email:         req.Customer.Email,
		Phone:         req.Customer.Phone,
		AccountUserID: req.Customer.AccountUserID,
	}
	var isNew bool
	var err error
	if !req.Preview {
		customer, isNew, err = uc.customerService.GetOrCreate(ctx, customer)
		if err != nil {
			if errors.Is(err, customers.ErrEmailRequired) {
				return nil, ErrCustomerEmail
			}
			uc.logger.Error("BookReservation: failed to resolve customer: %v", err)
			return nil, fmt.Errorf("%w: failed to resolve customer: %v", ErrInternal, err)
		}
	}

	// 6. Для записей: загружаем услугу с опциями
	var service *domain.Service
	if domain.ReservationType(req.Type) == domain.ReservationAppointment {
		service, err = uc.bookableRepo.GetByIDWithExtras(ctx, req.ServiceID)
		if err != nil {
			if errors.Is(err, bookableRepo.ErrServiceNotFound) {
				uc.logger.Warn("BookReservation: service id=%d not found", req.ServiceID)
				return nil, ErrServiceNotFound
			}
			uc.logger.Error("BookReservation: failed to get service id=%d: %v", req.ServiceID, err)
			return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
		}
	}

	// 7. Собираем бронирование
	booking, err := buildBooking(req, service, customer, uc.settings.DefaultStatus)
	if err != nil {
		return nil, err
	}

	// 8. Обрабатываем пользовательские поля: файловые поля раскрываются
	// в метаданные, в значении остаются имена файлов
	uploadedFiles, err := customfields.Process(booking)
	if err != nil {
		uc.logger.Warn("BookReservation: custom fields rejected: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// 9. Проверяем купон. Для нового клиента лимит использований не проверяется
	if req.CouponCode != "" {
		entityType, entityID := domain.EntityAppointment, req.ServiceID
		if domain.ReservationType(req.Type) == domain.ReservationEvent {
			entityType, entityID = domain.EntityEvent, req.EventID
		}
		customerID := customer.ID
		if isNew {
			customerID = 0
		}
		coupon, err := uc.couponService.Validate(ctx, req.CouponCode, entityType, entityID, customerID)
		if err != nil {
			switch {
			case errors.Is(err, coupons.ErrCouponUnknown):
				return nil, ErrCouponUnknown
			case errors.Is(err, coupons.ErrCouponInvalid):
				return nil, ErrCouponInvalid
			}
			uc.logger.Error("BookReservation: coupon validation error: %v", err)
			return nil, fmt.Errorf("%w: coupon validation error: %v", ErrInternal, err)
		}
		booking.CouponID = &coupon.ID
		booking.Coupon = coupon
	}

	reservation := &domain.Reservation{
		Type:                     domain.ReservationType(req.Type),
		Service:                  service,
		Booking:                  booking,
		IsNewUser:                isNew,
		UploadedCustomFieldFiles: uploadedFiles,
	}

	// 10. Для записей: оптимистичная проверка слота до транзакции, чтобы не
	// держать сериализуемую транзакцию на заведомо занятом слоте.
	// Авторитетная проверка повторяется внутри транзакции
	if reservation.Type == domain.ReservationAppointment {
		free, err := uc.slotChecker.IsSlotFree(ctx, uc.slotRequest(req), req.BookingStart)
		if err != nil {
			uc.logger.Error("BookReservation: optimistic slot check failed: %v", err)
			return nil, fmt.Errorf("%w: slot check failed: %v", ErrInternal, err)
		}
		if !free {
			uc.logger.Warn("BookReservation: slot %s not available (optimistic check)", req.BookingStart)
			return nil, ErrBookingUnavailable
		}
	}

	// 11. Предпросмотр: возвращаем рассчитанную цену, ничего не сохраняя
	if req.Preview {
		if reservation.Type == domain.ReservationEvent {
			event, err := uc.eventRepo.GetByID(ctx, req.EventID)
			if err != nil {
				if errors.Is(err, eventRepo.ErrEventNotFound) {
					return nil, ErrEventNotFound
				}
				return nil, fmt.Errorf("%w: failed to get event: %v", ErrInternal, err)
			}
			reservation.Event = event
		}
		booking.Price = payments.Amount(reservation)
		uc.logger.Info("BookReservation: preview %s price=%.2f", req.Type, booking.Price)
		return &Response{
			Type:   req.Type,
			Status: string(booking.Status),
			Price:  booking.Price,
		}, nil
	}

	var (
		outcome *paymentModels.ProcessOutcome
		joined  bool
	)

	// 12. Выполняем запись и платеж в сериализуемой транзакции: отклоненный
	// платеж откатывает бронирование целиком
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		switch reservation.Type {
		case domain.ReservationAppointment:
			joined, err = uc.bookAppointment(txCtx, req, reservation)
		case domain.ReservationEvent:
			err = uc.bookEvent(txCtx, req, reservation, now)
		}
		if err != nil {
			return err
		}

		outcome, err = uc.paymentService.Process(txCtx, reservation, req.Payment)
		if err != nil {
			if errors.Is(err, payments.ErrPaymentFailed) {
				uc.logger.Warn("BookReservation: payment declined, rolling back booking: %v", err)
				return ErrPaymentFailed
			}
			return fmt.Errorf("%w: payment processing error: %v", ErrInternal, err)
		}

		// Платеж ждет подтверждения клиента: бронирование остается pending
		// до завершения 3DS
		if outcome.RequiresAction && reservation.Booking.Status != domain.StatusPending {
			reservation.Booking.Status = domain.StatusPending
			if err := uc.appointmentRepo.UpdateBookingStatus(txCtx, reservation.Booking.ID, domain.StatusPending); err != nil {
				return fmt.Errorf("%w: failed to hold booking for payment action: %v", ErrInternal, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// 13. Пост-обработка после коммита: инвалидация кэша слотов, доменное
	// событие для уведомлений, синхронизация внешнего календаря.
	// Все шаги best-effort: бронирование уже закоммичено
	uc.afterCommit(ctx, req, reservation, joined)

	resp := &Response{
		Type:                  req.Type,
		BookingID:             reservation.Booking.ID,
		Status:                string(reservation.Booking.Status),
		Price:                 reservation.Booking.Price,
		Token:                 reservation.Booking.Token,
		JoinedExisting:        joined,
		IsNewCustomer:         isNew,
		PaymentRequiresAction: outcome.RequiresAction,
		PaymentActionToken:    outcome.ActionToken,
	}
	if reservation.Appointment != nil {
		resp.AppointmentID = reservation.Appointment.ID
	}
	if reservation.Event != nil {
		resp.EventID = reservation.Event.ID
	}

	uc.logger.Info("BookReservation: booked %s booking=%d status=%s price=%.2f joined=%t",
		req.Type, resp.BookingID, resp.Status, resp.Price, joined)

	return resp, nil
}

// bookAppointment записывает клиента к сотруднику: присоединяет бронирование
// к существующей групповой записи на тот же слот или создает новую запись.
// Вызывается внутри сериализуемой транзакции
func (uc *UseCase) bookAppointment(txCtx context.Context, req *Request, reservation *domain.Reservation) (bool, error) {
	booking := reservation.Booking

	// Авторитетная проверка слота внутри транзакции
	free, err := uc.slotChecker.IsSlotFree(txCtx, uc.slotRequest(req), req.BookingStart)
	if err != nil {
		return false, fmt.Errorf("%w: slot check failed: %v", ErrInternal, err)
	}
	if !free {
		uc.logger.Warn("BookReservation: slot %s lost to a concurrent booking", req.BookingStart)
		return false, ErrBookingUnavailable
	}

	// Ищем существующую запись на тот же слот (FOR UPDATE)
	existing, err := uc.appointmentRepo.FindAtTime(txCtx, req.ProviderID, req.ServiceID, req.BookingStart)
	if err != nil && !errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
		return false, fmt.Errorf("%w: failed to look up appointment: %v", ErrInternal, err)
	}

	if existing != nil {
		if existing.HasActiveBookingForCustomer(booking.CustomerID) {
			uc.logger.Warn("BookReservation: customer=%d already booked appointment=%d",
				booking.CustomerID, existing.ID)
			return false, ErrCustomerAlreadyBooked
		}
		if existing.ActivePersons()+booking.Persons > reservation.Service.MaxCapacity {
			uc.logger.Warn("BookReservation: appointment=%d capacity exceeded: %d+%d > %d",
				existing.ID, existing.ActivePersons(), booking.Persons, reservation.Service.MaxCapacity)
			return false, ErrBookingUnavailable
		}

		reservation.Appointment = existing
		booking.AppointmentID = &existing.ID
		booking.Price = payments.Amount(reservation)

		created, err := uc.appointmentRepo.CreateBooking(txCtx, booking)
		if err != nil {
			return false, fmt.Errorf("%w: failed to create booking: %v", ErrInternal, err)
		}
		*booking = *created
		existing.AddBooking(booking)

		return true, nil
	}

	// Существующей записи нет: создаем новую вместе с бронированием
	appt := buildAppointment(req, reservation.Service, uc.settings.DefaultStatus)
	reservation.Appointment = appt
	booking.Price = payments.Amount(reservation)
	appt.AddBooking(booking)

	created, err := uc.appointmentRepo.Create(txCtx, appt)
	if err != nil {
		return false, fmt.Errorf("%w: failed to create appointment: %v", ErrInternal, err)
	}

	reservation.Appointment = created
	reservation.Booking = created.SortedBookings()[0]

	return false, nil
}

// bookEvent записывает клиента на событие. Событие блокируется FOR UPDATE,
// вместимость проверяется по активным бронированиям.
// Вызывается внутри сериализуемой транзакции
func (uc *UseCase) bookEvent(txCtx context.Context, req *Request, reservation *domain.Reservation, now time.Time) error {
	event, err := uc.eventRepo.GetByID(txCtx, req.EventID)
	if err != nil {
		if errors.Is(err, eventRepo.ErrEventNotFound) {
			uc.logger.Warn("BookReservation: event id=%d not found", req.EventID)
			return ErrEventNotFound
		}
		return fmt.Errorf("%w: failed to get event: %v", ErrInternal, err)
	}

	if !event.Status.IsActive() {
		uc.logger.Warn("BookReservation: event id=%d is not open for booking (status=%s)", event.ID, event.Status)
		return ErrBookingUnavailable
	}

	start := event.FirstPeriodStart()
	if !req.IsBackend && start.Before(now.Add(uc.settings.MinimumTimeBeforeBooking)) {
		uc.logger.Warn("BookReservation: event id=%d starts at %s, too soon", event.ID, start)
		return ErrBookingTooSoon
	}

	booking := reservation.Booking

	if event.HasActiveBookingForCustomer(booking.CustomerID) {
		uc.logger.Warn("BookReservation: customer=%d already booked event=%d", booking.CustomerID, event.ID)
		return ErrCustomerAlreadyBooked
	}

	if event.ActivePersons()+booking.Persons > event.MaxCapacity {
		uc.logger.Warn("BookReservation: event=%d capacity exceeded: %d+%d > %d",
			event.ID, event.ActivePersons(), booking.Persons, event.MaxCapacity)
		return ErrBookingUnavailable
	}

	reservation.Event = event
	booking.EventID = &event.ID
	booking.Price = payments.Amount(reservation)

	created, err := uc.appointmentRepo.CreateBooking(txCtx, booking)
	if err != nil {
		return fmt.Errorf("%w: failed to create booking: %v", ErrInternal, err)
	}
	*booking = *created
	event.AddBooking(booking)

	return nil
}

// afterCommit выполняет пост-обработку закоммиченного бронирования.
// Ошибки логируются и не влияют на результат
func (uc *UseCase) afterCommit(ctx context.Context, req *Request, reservation *domain.Reservation, joined bool) {
	msg := bookingevents.Message{
		Type:          bookingevents.EventReservationCreated,
		Bookings:      bookingevents.BookingRefs([]*domain.CustomerBooking{reservation.Booking}),
		UploadedFiles: bookingevents.UploadedFiles(reservation.UploadedCustomFieldFiles),
	}

	if reservation.Appointment != nil {
		msg.AppointmentID = reservation.Appointment.ID

		if uc.slotCache != nil {
			if err := uc.slotCache.InvalidateService(ctx, req.ServiceID); err != nil {
				uc.logger.Warn("BookReservation: failed to invalidate slot cache for service=%d: %v", req.ServiceID, err)
			}
		}

		// Внешний календарь синхронизируется только для новой записи:
		// у групповой записи событие календаря уже существует
		if !joined {
			uc.syncCalendar(ctx, req, reservation.Appointment)
		}
	}
	if reservation.Event != nil {
		msg.EventID = reservation.Event.ID
	}

	if uc.producer != nil {
		if err := uc.producer.Publish(ctx, msg); err != nil {
			uc.logger.Warn("BookReservation: failed to publish %s: %v", msg.Type, err)
		}
	}
}

// syncCalendar создает событие в календаре сотрудника и сохраняет его id
func (uc *UseCase) syncCalendar(ctx context.Context, req *Request, appt *domain.Appointment) {
	if uc.calendar == nil {
		return
	}

	providers, err := uc.providerRepo.GetByServiceID(ctx, req.ServiceID, req.ProviderID)
	if err != nil || len(providers) == 0 {
		uc.logger.Warn("BookReservation: failed to resolve provider=%d for calendar sync: %v", req.ProviderID, err)
		return
	}
	provider := providers[0]
	if provider.GoogleCalendarID == nil {
		return
	}

	summary := fmt.Sprintf("Appointment #%d", appt.ID)
	eventID, err := uc.calendar.CreateEvent(ctx, *provider.GoogleCalendarID, summary, appt.BookingStart, appt.BookingEnd)
	if err != nil {
		uc.logger.Warn("BookReservation: calendar sync failed for appointment=%d: %v", appt.ID, err)
		return
	}

	appt.GoogleCalendarEventID = &eventID
	if err := uc.appointmentRepo.Update(ctx, appt); err != nil {
		uc.logger.Warn("BookReservation: failed to store calendar event id for appointment=%d: %v", appt.ID, err)
	}
}

// slotRequest собирает запрос авторитетной проверки слота из запроса бронирования
func (uc *UseCase) slotRequest(req *Request) *get_free_slots.Request {
	extras := make([]get_free_slots.SelectedExtra, 0, len(req.Extras))
	for _, e := range req.Extras {
		extras = append(extras, get_free_slots.SelectedExtra{ExtraID: e.ExtraID, Quantity: e.Quantity})
	}

	y, m, d := req.BookingStart.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, req.BookingStart.Location())
	return &get_free_slots.Request{
		ServiceID:    req.ServiceID,
		ProviderID:   req.ProviderID,
		LocationID:   req.LocationID,
		PersonsCount: req.Persons,
		Extras:       extras,
		DateFrom:     day,
		DateTo:       day,
		IsBackend:    req.IsBackend,
	}
}
