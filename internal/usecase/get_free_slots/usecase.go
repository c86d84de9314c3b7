package get_free_slots

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/internal/infra/cache/slotcache"
	bookableRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/bookable"
	"github.com/kirillmaftuljak/WPKHK/internal/timeslot"
)

// UseCase use case для получения свободных слотов
type UseCase struct {
	bookableRepo    BookableRepository
	providerRepo    ProviderRepository
	appointmentRepo AppointmentRepository
	calendar        CalendarClient
	cache           SlotCache
	settings        Settings
	timeProvider    TimeProvider
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookableRepo BookableRepository,
	providerRepo ProviderRepository,
	appointmentRepo AppointmentRepository,
	calendar CalendarClient,
	cache SlotCache,
	settings Settings,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookableRepo:    bookableRepo,
		providerRepo:    providerRepo,
		appointmentRepo: appointmentRepo,
		calendar:        calendar,
		cache:           cache,
		settings:        settings,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// Execute выполняет use case получения свободных слотов.
// Результат кэшируется с коротким TTL: авторитетная проверка все равно
// выполняется в транзакции бронирования
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetFreeSlots: service=%d, provider=%d, persons=%d, from=%s, to=%s",
		req.ServiceID, req.ProviderID, req.PersonsCount,
		req.DateFrom.Format(domain.DateFormat), req.DateTo.Format(domain.DateFormat))

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetFreeSlots: validation failed: %v", err)
		return nil, err
	}

	// 2. Кэш: backend-запросы и переносы не кэшируются
	cacheable := uc.cache != nil && !req.IsBackend && req.ExcludeAppointmentID == 0
	var locationID int64
	if req.LocationID != nil {
		locationID = *req.LocationID
	}
	cacheKey := slotcache.Key(req.ServiceID, req.ProviderID, locationID,
		req.DateFrom.Format(domain.DateFormat), req.DateTo.Format(domain.DateFormat),
		req.PersonsCount, extrasKey(req.Extras))
	if cacheable {
		cached, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			uc.logger.Warn("GetFreeSlots: cache read failed: %v", err)
		} else if cached != nil {
			uc.logger.Info("GetFreeSlots: cache hit key=%s", cacheKey)
			return &Response{ServiceID: req.ServiceID, Slots: cached}, nil
		}
	}

	// 3. Полный расчет
	slots, err := uc.Compute(ctx, req)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := uc.cache.Set(ctx, cacheKey, slots); err != nil {
			uc.logger.Warn("GetFreeSlots: cache write failed: %v", err)
		}
	}

	uc.logger.Info("GetFreeSlots: computed %d days with slots for service=%d", len(slots), req.ServiceID)
	return &Response{ServiceID: req.ServiceID, Slots: slots}, nil
}

// Compute рассчитывает карту слотов без кэша. Вызывается также из конвейера
// бронирования внутри сериализуемой транзакции, где занятость читается
// заново под блокировкой
func (uc *UseCase) Compute(ctx context.Context, req *Request) (timeslot.SlotMap, error) {
	now := uc.timeProvider.Now()

	// 1. Услуга и требуемая длительность
	service, err := uc.bookableRepo.GetByIDWithExtras(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, bookableRepo.ErrServiceNotFound) {
			uc.logger.Warn("GetFreeSlots: service id=%d not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("GetFreeSlots: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}
	required, err := requiredDuration(service, req.Extras)
	if err != nil {
		return nil, err
	}

	// 2. Сотрудники услуги
	providers, err := uc.providerRepo.GetByServiceID(ctx, req.ServiceID, req.ProviderID)
	if err != nil {
		uc.logger.Error("GetFreeSlots: failed to get providers for service=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get providers: %v", ErrInternal, err)
	}
	if len(providers) == 0 {
		uc.logger.Warn("GetFreeSlots: no providers for service=%d provider=%d", req.ServiceID, req.ProviderID)
		return nil, ErrNoProviders
	}

	// 3. Окно расчета: границы запроса, обрезанные горизонтом бронирования
	window, slotOpts := uc.bookingWindow(req, now)

	// 4. Занятость: существующие записи сотрудников
	providerIDs := make([]int64, 0, len(providers))
	for _, p := range providers {
		providerIDs = append(providerIDs, p.ID)
	}
	appointments, err := uc.appointmentRepo.GetFutureAppointments(
		ctx,
		providerIDs,
		req.ExcludeAppointmentID,
		[]domain.BookingStatus{domain.StatusPending, domain.StatusApproved},
		window.Start, window.End,
	)
	if err != nil {
		uc.logger.Error("GetFreeSlots: failed to get appointments: %v", err)
		return nil, fmt.Errorf("%w: failed to get appointments: %v", ErrInternal, err)
	}
	attachAppointments(providers, appointments)

	// 5. Нерабочие дни компании
	globalDaysOff, err := uc.providerRepo.GetGlobalDaysOff(ctx)
	if err != nil {
		uc.logger.Error("GetFreeSlots: failed to get global days off: %v", err)
		return nil, fmt.Errorf("%w: failed to get global days off: %v", ErrInternal, err)
	}

	// 6. Внешняя занятость календарей (best-effort)
	externalBusy := uc.externalBusy(ctx, providers, window)

	// 7. Свободные интервалы и дискретизация
	freeTime := timeslot.FreeTime(service, providers, globalDaysOff, externalBusy, window, timeslot.Options{
		LocationID:                   req.LocationID,
		ExcludeAppointmentID:         req.ExcludeAppointmentID,
		PersonsCount:                 req.PersonsCount,
		AllowBookingIfPending:        uc.settings.AllowBookingIfPending,
		AllowBookingIfNotMinCapacity: uc.settings.AllowBookingIfNotMinCapacity,
	})
	slots := timeslot.Slots(freeTime, required, uc.settings.SlotLength, slotOpts)

	// 8. Финальная фильтрация: в каждом слоте остаются только сотрудники,
	// подходящие по назначению на услугу и остатку вместимости
	pruneIneligible(slots, service, providers, req.PersonsCount)

	return slots, nil
}

// pruneIneligible убирает из слотов неподходящих сотрудников; слот без
// единого подходящего сотрудника удаляется целиком
func pruneIneligible(slots timeslot.SlotMap, service *domain.Service, providers []*domain.Provider, personsCount int) {
	byID := make(map[int64]*domain.Provider, len(providers))
	for _, p := range providers {
		byID[p.ID] = p
	}

	for date, times := range slots {
		for clock, candidates := range times {
			at, err := time.Parse(domain.DateFormat+" "+domain.TimeFormat, date+" "+clock)
			if err != nil {
				continue
			}
			eligible := timeslot.EligibleProviders(candidates, service, byID, at, personsCount)
			if len(eligible) == 0 {
				delete(times, clock)
				continue
			}
			times[clock] = eligible
		}
		if len(times) == 0 {
			delete(slots, date)
		}
	}
}

// IsSlotFree проверяет существование конкретного слота. Используется
// конвейером бронирования как авторитетная проверка внутри транзакции
func (uc *UseCase) IsSlotFree(ctx context.Context, req *Request, at time.Time) (bool, error) {
	slots, err := uc.Compute(ctx, req)
	if err != nil {
		return false, err
	}
	date := at.Format(domain.DateFormat)
	clock := at.Format(domain.TimeFormat)
	return slots.Has(date, clock), nil
}

// bookingWindow обрезает запрошенный диапазон горизонтом бронирования и
// собирает ограничения дискретизации
func (uc *UseCase) bookingWindow(req *Request, now time.Time) (timeslot.Interval, timeslot.SlotOptions) {
	horizonDays := uc.settings.DaysAvailableForBooking
	if req.IsBackend && uc.settings.BackendDaysAvailable > horizonDays {
		horizonDays = uc.settings.BackendDaysAvailable
	}
	horizon := now.AddDate(0, 0, horizonDays)

	start := req.DateFrom
	if start.Before(now) {
		start = now
	}
	end := req.DateTo.AddDate(0, 0, 1) // DateTo включительно
	if end.After(horizon) {
		end = horizon
	}

	opts := timeslot.SlotOptions{
		UseServiceDurationAsSlot: uc.settings.UseServiceDurationAsSlot,
		MaximumBookingTime:       horizon,
	}
	// Минимальный интервал до начала действует только для клиентов
	if !req.IsBackend {
		opts.MinimumBookingTime = now.Add(uc.settings.MinimumTimeBeforeBooking)
	}

	return timeslot.Interval{Start: start, End: end}, opts
}

// externalBusy собирает занятость внешних календарей сотрудников.
// Недоступность календаря не блокирует расчет
func (uc *UseCase) externalBusy(ctx context.Context, providers []*domain.Provider, window timeslot.Interval) map[int64][]timeslot.Interval {
	if uc.calendar == nil {
		return nil
	}

	busy := make(map[int64][]timeslot.Interval)
	for _, p := range providers {
		if p.GoogleCalendarID == nil {
			continue
		}
		for _, interval := range uc.calendar.GetBusyIntervalsWithGracefulDegradation(ctx, *p.GoogleCalendarID, window.Start, window.End) {
			busy[p.ID] = append(busy[p.ID], timeslot.Interval{Start: interval.Start, End: interval.End})
		}
	}

	return busy
}

// requiredDuration длительность услуги плюс длительности выбранных опций
// extrasKey каноническое представление выбранных опций для ключа кэша:
// пары "id:количество" через запятую, отсортированные по id
func extrasKey(extras []SelectedExtra) string {
	if len(extras) == 0 {
		return ""
	}

	sorted := make([]SelectedExtra, len(extras))
	copy(sorted, extras)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ExtraID < sorted[j].ExtraID })

	parts := make([]string, 0, len(sorted))
	for _, e := range sorted {
		parts = append(parts, fmt.Sprintf("%d:%d", e.ExtraID, e.Quantity))
	}
	return strings.Join(parts, ",")
}

func requiredDuration(service *domain.Service, extras []SelectedExtra) (time.Duration, error) {
	total := service.DurationTime()
	for _, selected := range extras {
		extra := service.FindExtra(selected.ExtraID)
		if extra == nil {
			return 0, fmt.Errorf("%w: extra %d does not belong to service %d", ErrInvalidInput, selected.ExtraID, service.ID)
		}
		if extra.MaxQuantity > 0 && selected.Quantity > extra.MaxQuantity {
			return 0, fmt.Errorf("%w: extra %d quantity %d exceeds maximum %d",
				ErrInvalidInput, extra.ID, selected.Quantity, extra.MaxQuantity)
		}
		total += time.Duration(extra.Duration) * time.Second * time.Duration(selected.Quantity)
	}
	return total, nil
}

// attachAppointments раскладывает записи по сотрудникам
func attachAppointments(providers []*domain.Provider, appointments []*domain.Appointment) {
	byProvider := make(map[int64]*domain.Provider, len(providers))
	for _, p := range providers {
		p.Appointments = nil
		byProvider[p.ID] = p
	}
	for _, appt := range appointments {
		if p, ok := byProvider[appt.ProviderID]; ok {
			p.Appointments = append(p.Appointments, appt)
		}
	}
}
