package get_free_slots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/internal/integrations/googlecalendar"
	"github.com/kirillmaftuljak/WPKHK/internal/timeslot"
	"github.com/kirillmaftuljak/WPKHK/pkg/ptr"
)

type fakeBookableRepo struct {
	service *domain.Service
}

func (f *fakeBookableRepo) GetByIDWithExtras(_ context.Context, _ int64) (*domain.Service, error) {
	return f.service, nil
}

type fakeProviderRepo struct {
	providers []*domain.Provider
	daysOff   []domain.DayOff

	calls int
}

func (f *fakeProviderRepo) GetByServiceID(_ context.Context, _ int64, providerID int64) ([]*domain.Provider, error) {
	f.calls++
	if providerID == 0 {
		return f.providers, nil
	}
	for _, p := range f.providers {
		if p.ID == providerID {
			return []*domain.Provider{p}, nil
		}
	}
	return nil, nil
}

func (f *fakeProviderRepo) GetGlobalDaysOff(_ context.Context) ([]domain.DayOff, error) {
	return f.daysOff, nil
}

type fakeApptRepo struct {
	appointments []*domain.Appointment
}

func (f *fakeApptRepo) GetFutureAppointments(_ context.Context, _ []int64, excludeID int64, _ []domain.BookingStatus, _, _ time.Time) ([]*domain.Appointment, error) {
	var result []*domain.Appointment
	for _, a := range f.appointments {
		if a.ID != excludeID {
			result = append(result, a)
		}
	}
	return result, nil
}

type fakeCalendar struct {
	busy []googlecalendar.BusyInterval
}

func (f *fakeCalendar) GetBusyIntervalsWithGracefulDegradation(_ context.Context, _ string, _, _ time.Time) []googlecalendar.BusyInterval {
	return f.busy
}

type fakeCache struct {
	stored map[string]timeslot.SlotMap

	hits   int
	writes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{stored: make(map[string]timeslot.SlotMap)}
}

func (f *fakeCache) Get(_ context.Context, key string) (timeslot.SlotMap, error) {
	slots, ok := f.stored[key]
	if !ok {
		return nil, nil
	}
	f.hits++
	return slots, nil
}

func (f *fakeCache) Set(_ context.Context, key string, slots timeslot.SlotMap) error {
	f.writes++
	f.stored[key] = slots
	return nil
}

type fixedNow struct{ now time.Time }

func (f fixedNow) Now() time.Time { return f.now }

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(domain.DateFormat+" "+domain.TimeFormat, value)
	require.NoError(t, err)
	return parsed
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(domain.DateFormat, value)
	require.NoError(t, err)
	return parsed
}

// testProvider работает в среду 09:00-17:00; 2025-10-15 — среда
func testProvider() *domain.Provider {
	return &domain.Provider{
		ID:         1,
		ServiceIDs: []int64{10},
		WeekDays: []domain.WeekDaySchedule{
			{DayIndex: 3, Start: "09:00", End: "17:00"},
		},
	}
}

type fixture struct {
	providerRepo *fakeProviderRepo
	apptRepo     *fakeApptRepo
	calendar     *fakeCalendar
	cache        *fakeCache
	uc           *UseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		providerRepo: &fakeProviderRepo{providers: []*domain.Provider{testProvider()}},
		apptRepo:     &fakeApptRepo{},
		calendar:     &fakeCalendar{},
		cache:        newFakeCache(),
	}
	f.uc = NewUseCase(
		&fakeBookableRepo{service: &domain.Service{
			ID: 10, Duration: 3600, MinCapacity: 1, MaxCapacity: 1,
			Extras: []domain.Extra{{ID: 1, Duration: 1800, MaxQuantity: 2}},
		}},
		f.providerRepo,
		f.apptRepo,
		f.calendar,
		f.cache,
		Settings{
			SlotLength:              30 * time.Minute,
			DaysAvailableForBooking: 30,
			BackendDaysAvailable:    60,
		},
		nopLogger{},
	)
	f.uc.timeProvider = fixedNow{mustTime(t, "2025-10-01 00:00")}
	return f
}

func request(t *testing.T) *Request {
	t.Helper()
	return &Request{
		ServiceID:    10,
		PersonsCount: 1,
		DateFrom:     mustDate(t, "2025-10-15"),
		DateTo:       mustDate(t, "2025-10-15"),
	}
}

func TestExecute_WorkingDaySlots(t *testing.T) {
	f := newFixture(t)

	resp, err := f.uc.Execute(context.Background(), request(t))
	require.NoError(t, err)

	assert.True(t, resp.Slots.Has("2025-10-15", "09:00"))
	// последний старт часовой услуги при конце дня 17:00
	assert.True(t, resp.Slots.Has("2025-10-15", "16:00"))
	assert.False(t, resp.Slots.Has("2025-10-15", "16:30"))
	assert.Equal(t, []int64{1}, resp.Slots.Providers("2025-10-15", "09:00"))
}

func TestExecute_BusyAppointmentRemovesSlots(t *testing.T) {
	f := newFixture(t)
	appt := &domain.Appointment{
		ID:           5,
		ServiceID:    10,
		ProviderID:   1,
		BookingStart: mustTime(t, "2025-10-15 10:00"),
		BookingEnd:   mustTime(t, "2025-10-15 11:00"),
		Status:       domain.StatusApproved,
	}
	appt.AddBooking(&domain.CustomerBooking{ID: 1, Status: domain.StatusApproved, Persons: 1})
	f.apptRepo.appointments = []*domain.Appointment{appt}

	resp, err := f.uc.Execute(context.Background(), request(t))
	require.NoError(t, err)

	assert.False(t, resp.Slots.Has("2025-10-15", "10:00"))
	assert.False(t, resp.Slots.Has("2025-10-15", "09:30")) // часовая услуга не помещается до 10:00
	assert.True(t, resp.Slots.Has("2025-10-15", "09:00"))
	assert.True(t, resp.Slots.Has("2025-10-15", "11:00"))
}

func TestExecute_ExternalCalendarBusyBlocks(t *testing.T) {
	f := newFixture(t)
	f.providerRepo.providers[0].GoogleCalendarID = ptr.Ptr("provider-cal")
	f.calendar.busy = []googlecalendar.BusyInterval{
		{Start: mustTime(t, "2025-10-15 09:00"), End: mustTime(t, "2025-10-15 12:00")},
	}

	resp, err := f.uc.Execute(context.Background(), request(t))
	require.NoError(t, err)

	assert.False(t, resp.Slots.Has("2025-10-15", "09:00"))
	assert.True(t, resp.Slots.Has("2025-10-15", "12:00"))
}

func TestExecute_CacheRoundTrip(t *testing.T) {
	f := newFixture(t)

	first, err := f.uc.Execute(context.Background(), request(t))
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.writes)

	// повторный запрос обслуживается из кэша без обращения к репозиториям
	providerCalls := f.providerRepo.calls
	second, err := f.uc.Execute(context.Background(), request(t))
	require.NoError(t, err)

	assert.Equal(t, 1, f.cache.hits)
	assert.Equal(t, providerCalls, f.providerRepo.calls)
	assert.Equal(t, first.Slots, second.Slots)
}

func TestExecute_BackendBypassesCache(t *testing.T) {
	f := newFixture(t)
	req := request(t)
	req.IsBackend = true

	_, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, f.cache.writes)
}

func TestExecute_RescheduleBypassesCache(t *testing.T) {
	f := newFixture(t)
	req := request(t)
	req.ExcludeAppointmentID = 5

	_, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, f.cache.writes)
}

func TestExecute_ExtrasAndLocationSplitCacheEntries(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Execute(context.Background(), request(t))
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.writes)

	// опции удлиняют требуемую длительность, результат кэшируется отдельно
	withExtra := request(t)
	withExtra.Extras = []SelectedExtra{{ExtraID: 1, Quantity: 1}}
	resp, err := f.uc.Execute(context.Background(), withExtra)
	require.NoError(t, err)

	assert.Zero(t, f.cache.hits)
	assert.Equal(t, 2, f.cache.writes)
	// час услуги + 30 минут опции: последний старт 15:30
	assert.True(t, resp.Slots.Has("2025-10-15", "15:30"))
	assert.False(t, resp.Slots.Has("2025-10-15", "16:00"))

	// запрос с локацией не переиспользует запись без локации
	withLocation := request(t)
	withLocation.LocationID = ptr.Ptr(int64(7))
	_, err = f.uc.Execute(context.Background(), withLocation)
	require.NoError(t, err)

	assert.Zero(t, f.cache.hits)
	assert.Equal(t, 3, f.cache.writes)
}

func TestExecute_AggregatedCapacityPrunesSlot(t *testing.T) {
	f := newFixture(t)
	f.uc.bookableRepo = &fakeBookableRepo{service: &domain.Service{
		ID: 10, Duration: 3600, MinCapacity: 1, MaxCapacity: 2,
	}}

	// две групповые записи стартуют в 10:00, суммарно вместимость исчерпана,
	// хотя к каждой по отдельности присоединение выглядит возможным
	for i := int64(0); i < 2; i++ {
		appt := &domain.Appointment{
			ID:           5 + i,
			ServiceID:    10,
			ProviderID:   1,
			BookingStart: mustTime(t, "2025-10-15 10:00"),
			BookingEnd:   mustTime(t, "2025-10-15 11:00"),
			Status:       domain.StatusApproved,
		}
		appt.AddBooking(&domain.CustomerBooking{ID: 1 + i, Status: domain.StatusApproved, Persons: 1})
		f.apptRepo.appointments = append(f.apptRepo.appointments, appt)
	}

	resp, err := f.uc.Execute(context.Background(), request(t))
	require.NoError(t, err)

	assert.False(t, resp.Slots.Has("2025-10-15", "10:00"))
	assert.True(t, resp.Slots.Has("2025-10-15", "09:00"))
	assert.True(t, resp.Slots.Has("2025-10-15", "11:00"))
}

func TestExecute_HorizonClipsWindow(t *testing.T) {
	f := newFixture(t)
	// 2025-11-05 — среда за горизонтом 30 дней от 2025-10-01
	req := request(t)
	req.DateFrom = mustDate(t, "2025-11-05")
	req.DateTo = mustDate(t, "2025-11-05")

	resp, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Empty(t, resp.Slots)
}

func TestExecute_BackendExtendsHorizon(t *testing.T) {
	f := newFixture(t)
	req := request(t)
	req.DateFrom = mustDate(t, "2025-11-05")
	req.DateTo = mustDate(t, "2025-11-05")
	req.IsBackend = true

	resp, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, resp.Slots.Has("2025-11-05", "09:00"))
}

func TestExecute_MinimumBookingTimeHidesNearSlots(t *testing.T) {
	f := newFixture(t)
	f.uc.settings.MinimumTimeBeforeBooking = 14 * 24 * time.Hour
	f.uc.settings.DaysAvailableForBooking = 30

	// 2025-10-15 ближе чем за 14+0 дней? нет: 14 дней от 2025-10-01 — это
	// 2025-10-15 00:00, слоты дня начинаются позже и остаются доступны
	resp, err := f.uc.Execute(context.Background(), request(t))
	require.NoError(t, err)
	assert.True(t, resp.Slots.Has("2025-10-15", "09:00"))

	// сдвигаем "сейчас" на день позже: весь день уходит под минимальный интервал
	f.uc.timeProvider = fixedNow{mustTime(t, "2025-10-02 00:00")}
	f.cache.stored = make(map[string]timeslot.SlotMap)
	resp, err = f.uc.Execute(context.Background(), request(t))
	require.NoError(t, err)
	assert.Empty(t, resp.Slots)
}

func TestExecute_NoProviders(t *testing.T) {
	f := newFixture(t)
	f.providerRepo.providers = nil

	_, err := f.uc.Execute(context.Background(), request(t))
	assert.True(t, errors.Is(err, ErrNoProviders))
}

func TestExecute_InvalidDateRange(t *testing.T) {
	f := newFixture(t)
	req := request(t)
	req.DateFrom = mustDate(t, "2025-10-20")
	req.DateTo = mustDate(t, "2025-10-15")

	_, err := f.uc.Execute(context.Background(), req)
	assert.True(t, errors.Is(err, ErrInvalidDateRange))
}

func TestExecute_UnknownExtra(t *testing.T) {
	f := newFixture(t)
	req := request(t)
	req.Extras = []SelectedExtra{{ExtraID: 99, Quantity: 1}}

	_, err := f.uc.Execute(context.Background(), req)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestIsSlotFree(t *testing.T) {
	f := newFixture(t)

	free, err := f.uc.IsSlotFree(context.Background(), request(t), mustTime(t, "2025-10-15 09:00"))
	require.NoError(t, err)
	assert.True(t, free)

	// вне расписания среды
	free, err = f.uc.IsSlotFree(context.Background(), request(t), mustTime(t, "2025-10-15 08:00"))
	require.NoError(t, err)
	assert.False(t, free)
}
