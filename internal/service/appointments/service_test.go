package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/internal/infra/broker/bookingevents"
	apptRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/appointment"
	"github.com/kirillmaftuljak/WPKHK/internal/service/appointments/models"
	"github.com/kirillmaftuljak/WPKHK/pkg/ptr"
)

type fakeApptRepo struct {
	appointments map[int64]*domain.Appointment
	future       []*domain.Appointment

	updated        []*domain.Appointment
	bookingUpdates map[int64]domain.BookingStatus
}

func newFakeApptRepo(appts ...*domain.Appointment) *fakeApptRepo {
	repo := &fakeApptRepo{
		appointments:   make(map[int64]*domain.Appointment),
		bookingUpdates: make(map[int64]domain.BookingStatus),
	}
	for _, a := range appts {
		repo.appointments[a.ID] = a
	}
	return repo
}

func (f *fakeApptRepo) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	appt, ok := f.appointments[id]
	if !ok {
		return nil, apptRepo.ErrAppointmentNotFound
	}
	return appt, nil
}

func (f *fakeApptRepo) GetFutureAppointments(_ context.Context, _ []int64, excludeID int64, _ []domain.BookingStatus, _, _ time.Time) ([]*domain.Appointment, error) {
	var result []*domain.Appointment
	for _, a := range f.future {
		if a.ID != excludeID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (f *fakeApptRepo) Update(_ context.Context, appt *domain.Appointment) error {
	f.updated = append(f.updated, appt)
	return nil
}

func (f *fakeApptRepo) UpdateBookingStatus(_ context.Context, bookingID int64, status domain.BookingStatus) error {
	f.bookingUpdates[bookingID] = status
	return nil
}

func (f *fakeApptRepo) UpdateBookingStatuses(_ context.Context, appt *domain.Appointment) error {
	for id, b := range appt.Bookings {
		f.bookingUpdates[id] = b.Status
	}
	return nil
}

func (f *fakeApptRepo) GetBookingByID(_ context.Context, id int64) (*domain.CustomerBooking, error) {
	for _, a := range f.appointments {
		if b, ok := a.Bookings[id]; ok {
			return b, nil
		}
	}
	return nil, apptRepo.ErrBookingNotFound
}

type fakeBookableRepo struct {
	service *domain.Service
}

func (f *fakeBookableRepo) GetByIDWithExtras(_ context.Context, _ int64) (*domain.Service, error) {
	return f.service, nil
}

type passthroughTx struct{}

func (passthroughTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeProducer struct {
	messages []bookingevents.Message
}

func (f *fakeProducer) Publish(_ context.Context, msg bookingevents.Message) error {
	f.messages = append(f.messages, msg)
	return nil
}

type deletedCalendarEvent struct {
	calendarID string
	eventID    string
}

type fakeCalendar struct {
	deleted []deletedCalendarEvent
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, calendarID, eventID string) error {
	f.deleted = append(f.deleted, deletedCalendarEvent{calendarID: calendarID, eventID: eventID})
	return nil
}

type fakeProviderResolver struct {
	provider *domain.Provider
}

func (f *fakeProviderResolver) GetByServiceID(_ context.Context, _ int64, _ int64) ([]*domain.Provider, error) {
	if f.provider == nil {
		return nil, nil
	}
	return []*domain.Provider{f.provider}, nil
}

type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time { return f.now }

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(domain.DateTimeFormat, value)
	require.NoError(t, err)
	return parsed
}

func storedAppointment(t *testing.T) *domain.Appointment {
	t.Helper()
	appt := &domain.Appointment{
		ID:           1,
		ServiceID:    10,
		ProviderID:   1,
		BookingStart: mustTime(t, "2025-10-15 10:00:00"),
		BookingEnd:   mustTime(t, "2025-10-15 11:00:00"),
		Status:       domain.StatusApproved,
	}
	appt.AddBooking(&domain.CustomerBooking{
		ID:            100,
		AppointmentID: &appt.ID,
		CustomerID:    50,
		Status:        domain.StatusApproved,
		Persons:       1,
		Token:         "secret-token",
	})
	return appt
}

func newTestService(repo *fakeApptRepo, producer *fakeProducer, now time.Time, minCancel time.Duration) *Service {
	return NewService(
		repo,
		&fakeBookableRepo{service: &domain.Service{ID: 10, Duration: 3600, MinCapacity: 1, MaxCapacity: 2}},
		passthroughTx{},
		nil,
		producer,
		nil,
		nil,
		fixedTime{now: now},
		minCancel,
		nopLogger{},
	)
}

func TestUpdate_StatusTransitionPropagates(t *testing.T) {
	repo := newFakeApptRepo(storedAppointment(t))
	producer := &fakeProducer{}
	svc := newTestService(repo, producer, mustTime(t, "2025-10-14 09:00:00"), 0)

	resp, err := svc.Update(context.Background(), &models.UpdateAppointmentRequest{
		AppointmentID: 1,
		Status:        ptr.Ptr("canceled"),
	})
	require.NoError(t, err)

	assert.Equal(t, "canceled", resp.Status)
	require.Len(t, resp.ChangedBookings, 1)
	assert.Equal(t, "canceled", resp.ChangedBookings[0].Status)
	assert.Equal(t, domain.StatusCanceled, repo.bookingUpdates[100])

	require.Len(t, producer.messages, 1)
	assert.Equal(t, bookingevents.EventAppointmentUpdated, producer.messages[0].Type)
}

func TestUpdate_InvalidStatusTransition(t *testing.T) {
	appt := storedAppointment(t)
	appt.Status = domain.StatusRejected
	repo := newFakeApptRepo(appt)
	svc := newTestService(repo, &fakeProducer{}, mustTime(t, "2025-10-14 09:00:00"), 0)

	// rejected -> pending запрещен, разрешен только возврат в approved
	_, err := svc.Update(context.Background(), &models.UpdateAppointmentRequest{
		AppointmentID: 1,
		Status:        ptr.Ptr("pending"),
	})
	assert.True(t, errors.Is(err, ErrInvalidStatus))
	assert.Empty(t, repo.updated)
}

func TestUpdate_RescheduleRecomputesEnd(t *testing.T) {
	repo := newFakeApptRepo(storedAppointment(t))
	svc := newTestService(repo, &fakeProducer{}, mustTime(t, "2025-10-14 09:00:00"), 0)

	newStart := mustTime(t, "2025-10-15 14:00:00")
	resp, err := svc.Update(context.Background(), &models.UpdateAppointmentRequest{
		AppointmentID: 1,
		BookingStart:  &newStart,
	})
	require.NoError(t, err)

	assert.True(t, resp.Rescheduled)
	// длительность записи сохраняется
	assert.Equal(t, newStart.Add(time.Hour), resp.BookingEnd)
	assert.Empty(t, resp.ChangedBookings)
}

func TestUpdate_RescheduleCollision(t *testing.T) {
	repo := newFakeApptRepo(storedAppointment(t))
	repo.future = []*domain.Appointment{
		{
			ID:           2,
			ServiceID:    99, // другая услуга: присоединение невозможно
			ProviderID:   1,
			BookingStart: mustTime(t, "2025-10-15 14:00:00"),
			BookingEnd:   mustTime(t, "2025-10-15 15:00:00"),
			Status:       domain.StatusApproved,
		},
	}
	svc := newTestService(repo, &fakeProducer{}, mustTime(t, "2025-10-14 09:00:00"), 0)

	newStart := mustTime(t, "2025-10-15 14:00:00")
	_, err := svc.Update(context.Background(), &models.UpdateAppointmentRequest{
		AppointmentID: 1,
		BookingStart:  &newStart,
	})
	assert.True(t, errors.Is(err, ErrSlotNotAvailable))
}

func TestUpdate_RescheduleJoinSameServiceSameStartAllowed(t *testing.T) {
	repo := newFakeApptRepo(storedAppointment(t))
	other := &domain.Appointment{
		ID:           2,
		ServiceID:    10,
		ProviderID:   1,
		BookingStart: mustTime(t, "2025-10-15 14:00:00"),
		BookingEnd:   mustTime(t, "2025-10-15 15:00:00"),
		Status:       domain.StatusApproved,
	}
	other.AddBooking(&domain.CustomerBooking{ID: 200, Status: domain.StatusApproved, Persons: 1})
	repo.future = []*domain.Appointment{other}
	svc := newTestService(repo, &fakeProducer{}, mustTime(t, "2025-10-14 09:00:00"), 0)

	// та же услуга, то же начало, 1+1 <= MaxCapacity 2
	newStart := mustTime(t, "2025-10-15 14:00:00")
	_, err := svc.Update(context.Background(), &models.UpdateAppointmentRequest{
		AppointmentID: 1,
		BookingStart:  &newStart,
	})
	assert.NoError(t, err)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newTestService(newFakeApptRepo(), &fakeProducer{}, mustTime(t, "2025-10-14 09:00:00"), 0)

	_, err := svc.Update(context.Background(), &models.UpdateAppointmentRequest{AppointmentID: 404})
	assert.True(t, errors.Is(err, ErrAppointmentNotFound))
}

func TestDelete_RejectsAppointmentAndBookings(t *testing.T) {
	repo := newFakeApptRepo(storedAppointment(t))
	producer := &fakeProducer{}
	svc := newTestService(repo, producer, mustTime(t, "2025-10-14 09:00:00"), 0)

	resp, err := svc.Delete(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "rejected", resp.Status)
	require.Len(t, resp.ChangedBookings, 1)
	assert.Equal(t, "rejected", resp.ChangedBookings[0].Status)
	assert.Equal(t, domain.StatusRejected, repo.bookingUpdates[100])

	require.Len(t, producer.messages, 1)
	assert.Equal(t, bookingevents.EventAppointmentDeleted, producer.messages[0].Type)
}

func TestDelete_RemovesExternalCalendarEvent(t *testing.T) {
	appt := storedAppointment(t)
	appt.GoogleCalendarEventID = ptr.Ptr("ev-9")
	repo := newFakeApptRepo(appt)
	calendar := &fakeCalendar{}
	svc := newTestService(repo, &fakeProducer{}, mustTime(t, "2025-10-14 09:00:00"), 0)
	svc.calendar = calendar
	svc.providerRepo = &fakeProviderResolver{provider: &domain.Provider{
		ID: 1, GoogleCalendarID: ptr.Ptr("cal-provider-1"),
	}}

	_, err := svc.Delete(context.Background(), 1)
	require.NoError(t, err)

	// запись отклонена, событие удаляется из календаря сотрудника
	require.Len(t, calendar.deleted, 1)
	assert.Equal(t, "cal-provider-1", calendar.deleted[0].calendarID)
	assert.Equal(t, "ev-9", calendar.deleted[0].eventID)
	assert.Nil(t, appt.GoogleCalendarEventID)
}

func TestUpdate_ActiveAppointmentKeepsCalendarEvent(t *testing.T) {
	appt := storedAppointment(t)
	appt.GoogleCalendarEventID = ptr.Ptr("ev-9")
	repo := newFakeApptRepo(appt)
	calendar := &fakeCalendar{}
	svc := newTestService(repo, &fakeProducer{}, mustTime(t, "2025-10-14 09:00:00"), 0)
	svc.calendar = calendar
	svc.providerRepo = &fakeProviderResolver{provider: &domain.Provider{
		ID: 1, GoogleCalendarID: ptr.Ptr("cal-provider-1"),
	}}

	newStart := mustTime(t, "2025-10-15 14:00:00")
	_, err := svc.Update(context.Background(), &models.UpdateAppointmentRequest{
		AppointmentID: 1,
		BookingStart:  &newStart,
	})
	require.NoError(t, err)

	assert.Empty(t, calendar.deleted)
	assert.Equal(t, "ev-9", *appt.GoogleCalendarEventID)
}

func TestCancel_LastBookingCancelsAppointment(t *testing.T) {
	repo := newFakeApptRepo(storedAppointment(t))
	producer := &fakeProducer{}
	svc := newTestService(repo, producer, mustTime(t, "2025-10-14 09:00:00"), 0)

	resp, err := svc.Cancel(context.Background(), &models.CancelBookingRequest{
		BookingID: 100,
		Token:     "secret-token",
	})
	require.NoError(t, err)

	assert.Equal(t, "canceled", resp.Status)
	assert.Equal(t, domain.StatusCanceled, repo.bookingUpdates[100])
	require.Len(t, producer.messages, 1)
	assert.Equal(t, bookingevents.EventBookingCanceled, producer.messages[0].Type)
}

func TestCancel_WrongToken(t *testing.T) {
	repo := newFakeApptRepo(storedAppointment(t))
	svc := newTestService(repo, &fakeProducer{}, mustTime(t, "2025-10-14 09:00:00"), 0)

	_, err := svc.Cancel(context.Background(), &models.CancelBookingRequest{
		BookingID: 100,
		Token:     "stolen",
	})
	assert.True(t, errors.Is(err, ErrAccessDenied))
	assert.Empty(t, repo.bookingUpdates)
}

func TestCancel_EmptyStoredTokenDenied(t *testing.T) {
	appt := storedAppointment(t)
	appt.Bookings[100].Token = ""
	repo := newFakeApptRepo(appt)
	svc := newTestService(repo, &fakeProducer{}, mustTime(t, "2025-10-14 09:00:00"), 0)

	_, err := svc.Cancel(context.Background(), &models.CancelBookingRequest{
		BookingID: 100,
		Token:     "",
	})
	assert.True(t, errors.Is(err, ErrAccessDenied))
}

func TestCancel_TooLate(t *testing.T) {
	repo := newFakeApptRepo(storedAppointment(t))
	// запись начинается 10:00, минимальный интервал отмены 2 часа,
	// сейчас 09:00 того же дня
	svc := newTestService(repo, &fakeProducer{}, mustTime(t, "2025-10-15 09:00:00"), 2*time.Hour)

	_, err := svc.Cancel(context.Background(), &models.CancelBookingRequest{
		BookingID: 100,
		Token:     "secret-token",
	})
	assert.True(t, errors.Is(err, ErrCancelTooLate))
}

func TestCancel_BookingNotFound(t *testing.T) {
	svc := newTestService(newFakeApptRepo(), &fakeProducer{}, mustTime(t, "2025-10-14 09:00:00"), 0)

	_, err := svc.Cancel(context.Background(), &models.CancelBookingRequest{BookingID: 404, Token: "x"})
	assert.True(t, errors.Is(err, ErrBookingNotFound))
}
