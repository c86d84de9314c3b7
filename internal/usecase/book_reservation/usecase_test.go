package book_reservation

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
	eventRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/event"
	couponsService "github.com/kirillmaftuljak/WPKHK/internal/service/coupons"
	"github.com/kirillmaftuljak/WPKHK/internal/service/payments"
	paymentModels "github.com/kirillmaftuljak/WPKHK/internal/service/payments/models"
	"github.com/kirillmaftuljak/WPKHK/internal/usecase/get_free_slots"
)

type fakeApptRepo struct {
	existing *domain.Appointment

	createdAppointments []*domain.Appointment
	createdBookings     []*domain.CustomerBooking
	nextBookingID       int64
}

func (f *fakeApptRepo) Create(_ context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	appt.ID = int64(len(f.createdAppointments) + 1)
	f.createdAppointments = append(f.createdAppointments, appt)

	rekeyed := make(map[int64]*domain.CustomerBooking, len(appt.Bookings))
	for _, b := range appt.SortedBookings() {
		f.nextBookingID++
		b.ID = f.nextBookingID
		b.AppointmentID = &appt.ID
		f.createdBookings = append(f.createdBookings, b)
		rekeyed[b.ID] = b
	}
	appt.Bookings = rekeyed
	return appt, nil
}

func (f *fakeApptRepo) CreateBooking(_ context.Context, booking *domain.CustomerBooking) (*domain.CustomerBooking, error) {
	f.nextBookingID++
	booking.ID = f.nextBookingID
	f.createdBookings = append(f.createdBookings, booking)
	return booking, nil
}

func (f *fakeApptRepo) FindAtTime(_ context.Context, providerID, serviceID int64, start time.Time) (*domain.Appointment, error) {
	if f.existing != nil &&
		f.existing.ProviderID == providerID &&
		f.existing.ServiceID == serviceID &&
		f.existing.BookingStart.Equal(start) {
		return f.existing, nil
	}
	return nil, apptRepo.ErrAppointmentNotFound
}

func (f *fakeApptRepo) Update(_ context.Context, _ *domain.Appointment) error { return nil }

func (f *fakeApptRepo) UpdateBookingStatus(_ context.Context, _ int64, _ domain.BookingStatus) error {
	return nil
}

type fakeEventRepo struct {
	event *domain.Event
}

func (f *fakeEventRepo) GetByID(_ context.Context, id int64) (*domain.Event, error) {
	if f.event == nil || f.event.ID != id {
		return nil, eventRepo.ErrEventNotFound
	}
	return f.event, nil
}

type fakeBookableRepo struct {
	service *domain.Service
}

func (f *fakeBookableRepo) GetByIDWithExtras(_ context.Context, _ int64) (*domain.Service, error) {
	return f.service, nil
}

type fakeCustomerService struct {
	customer *domain.Customer
	isNew    bool
}

func (f *fakeCustomerService) GetOrCreate(_ context.Context, _ *domain.Customer) (*domain.Customer, bool, error) {
	return f.customer, f.isNew, nil
}

type fakeCouponService struct {
	coupon *domain.Coupon
	err    error
}

func (f *fakeCouponService) Validate(_ context.Context, _ string, _ string, _ int64, _ int64) (*domain.Coupon, error) {
	return f.coupon, f.err
}

type fakePaymentService struct {
	outcome *paymentModels.ProcessOutcome
	err     error
}

func (f *fakePaymentService) Process(_ context.Context, reservation *domain.Reservation, _ paymentModels.PaymentData) (*paymentModels.ProcessOutcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.outcome != nil {
		return f.outcome, nil
	}
	return &paymentModels.ProcessOutcome{
		Payment: &domain.Payment{ID: 1, CustomerBookingID: reservation.Booking.ID},
	}, nil
}

type fakeSlotChecker struct {
	free  bool
	calls int
}

func (f *fakeSlotChecker) IsSlotFree(_ context.Context, _ *get_free_slots.Request, _ time.Time) (bool, error) {
	f.calls++
	return f.free, nil
}

type passthroughTx struct{}

func (passthroughTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeProducer struct {
	published []bookingevents.Message
}

func (f *fakeProducer) Publish(_ context.Context, msg bookingevents.Message) error {
	f.published = append(f.published, msg)
	return nil
}

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

type fixture struct {
	apptRepo    *fakeApptRepo
	eventRepo   *fakeEventRepo
	slotChecker *fakeSlotChecker
	payments    *fakePaymentService
	coupons     *fakeCouponService
	uc          *UseCase
}

func newFixture() *fixture {
	f := &fixture{
		apptRepo:    &fakeApptRepo{},
		eventRepo:   &fakeEventRepo{},
		slotChecker: &fakeSlotChecker{free: true},
		payments:    &fakePaymentService{},
		coupons:     &fakeCouponService{},
	}
	f.uc = NewUseCase(
		f.apptRepo,
		f.eventRepo,
		&fakeBookableRepo{service: &domain.Service{
			ID: 10, Duration: 3600, Price: 100, MinCapacity: 1, MaxCapacity: 3,
			Extras: []domain.Extra{{ID: 1, Price: 10, Duration: 600, MaxQuantity: 2}},
		}},
		&fakeCustomerService{customer: &domain.Customer{ID: 50, Email: "jane@example.com"}},
		f.coupons,
		f.payments,
		f.slotChecker,
		passthroughTx{},
		nil,
		nil,
		nil,
		nil,
		nopLogger{},
		Settings{DefaultStatus: domain.StatusApproved},
	)
	f.uc.timeProvider = fixedNow{time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)}
	return f
}

func appointmentRequest(t *testing.T) *Request {
	t.Helper()
	return &Request{
		Type:         "appointment",
		ServiceID:    10,
		ProviderID:   1,
		BookingStart: mustTime(t, "2025-10-15 10:00:00"),
		Persons:      1,
		Customer:     CustomerInfo{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"},
		Payment:      paymentModels.PaymentData{Gateway: domain.GatewayOnSite},
	}
}

func TestExecute_CreatesNewAppointment(t *testing.T) {
	f := newFixture()

	resp, err := f.uc.Execute(context.Background(), appointmentRequest(t))
	require.NoError(t, err)

	assert.Equal(t, int64(1), resp.AppointmentID)
	assert.Equal(t, int64(1), resp.BookingID)
	assert.Equal(t, "approved", resp.Status)
	assert.False(t, resp.JoinedExisting)
	assert.NotEmpty(t, resp.Token)
	assert.InDelta(t, 100.0, resp.Price, 1e-9)

	require.Len(t, f.apptRepo.createdAppointments, 1)
	created := f.apptRepo.createdAppointments[0]
	// конец = начало + длительность услуги
	assert.Equal(t, mustTime(t, "2025-10-15 11:00:00"), created.BookingEnd)

	// проверка слота: оптимистичная до транзакции и авторитетная внутри
	assert.Equal(t, 2, f.slotChecker.calls)
}

func TestExecute_ExtrasExtendDurationAndPrice(t *testing.T) {
	f := newFixture()
	req := appointmentRequest(t)
	req.Extras = []BookedExtra{{ExtraID: 1, Quantity: 2}}

	resp, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	// 100 + 10*2 = 120
	assert.InDelta(t, 120.0, resp.Price, 1e-9)
	// 60 минут услуги + 2 * 10 минут опции
	created := f.apptRepo.createdAppointments[0]
	assert.Equal(t, mustTime(t, "2025-10-15 11:20:00"), created.BookingEnd)
}

func TestExecute_ExtraQuantityOverMaximum(t *testing.T) {
	f := newFixture()
	req := appointmentRequest(t)
	req.Extras = []BookedExtra{{ExtraID: 1, Quantity: 5}}

	_, err := f.uc.Execute(context.Background(), req)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestExecute_JoinsExistingGroupAppointment(t *testing.T) {
	f := newFixture()
	existing := &domain.Appointment{
		ID:           7,
		ServiceID:    10,
		ProviderID:   1,
		BookingStart: mustTime(t, "2025-10-15 10:00:00"),
		BookingEnd:   mustTime(t, "2025-10-15 11:00:00"),
		Status:       domain.StatusApproved,
	}
	existing.AddBooking(&domain.CustomerBooking{ID: 1, CustomerID: 99, Status: domain.StatusApproved, Persons: 2})
	f.apptRepo.existing = existing
	f.apptRepo.nextBookingID = 1

	resp, err := f.uc.Execute(context.Background(), appointmentRequest(t))
	require.NoError(t, err)

	assert.True(t, resp.JoinedExisting)
	assert.Equal(t, int64(7), resp.AppointmentID)
	assert.Empty(t, f.apptRepo.createdAppointments)
	require.Len(t, f.apptRepo.createdBookings, 1)
	assert.Equal(t, int64(7), *f.apptRepo.createdBookings[0].AppointmentID)
}

func TestExecute_JoinOverCapacity(t *testing.T) {
	f := newFixture()
	existing := &domain.Appointment{
		ID:           7,
		ServiceID:    10,
		ProviderID:   1,
		BookingStart: mustTime(t, "2025-10-15 10:00:00"),
		Status:       domain.StatusApproved,
	}
	existing.AddBooking(&domain.CustomerBooking{ID: 1, CustomerID: 99, Status: domain.StatusApproved, Persons: 3})
	f.apptRepo.existing = existing

	// 3 + 1 > MaxCapacity 3
	_, err := f.uc.Execute(context.Background(), appointmentRequest(t))
	assert.True(t, errors.Is(err, ErrBookingUnavailable))
}

func TestExecute_CustomerAlreadyBooked(t *testing.T) {
	f := newFixture()
	existing := &domain.Appointment{
		ID:           7,
		ServiceID:    10,
		ProviderID:   1,
		BookingStart: mustTime(t, "2025-10-15 10:00:00"),
		Status:       domain.StatusApproved,
	}
	existing.AddBooking(&domain.CustomerBooking{ID: 1, CustomerID: 50, Status: domain.StatusApproved, Persons: 1})
	f.apptRepo.existing = existing

	_, err := f.uc.Execute(context.Background(), appointmentRequest(t))
	assert.True(t, errors.Is(err, ErrCustomerAlreadyBooked))
}

func TestExecute_SlotLostToConcurrentBooking(t *testing.T) {
	f := newFixture()
	f.slotChecker.free = false

	_, err := f.uc.Execute(context.Background(), appointmentRequest(t))
	assert.True(t, errors.Is(err, ErrBookingUnavailable))
	assert.Empty(t, f.apptRepo.createdAppointments)
}

func TestExecute_PaymentFailureAbortsBooking(t *testing.T) {
	f := newFixture()
	f.payments.err = payments.ErrPaymentFailed

	_, err := f.uc.Execute(context.Background(), appointmentRequest(t))
	assert.True(t, errors.Is(err, ErrPaymentFailed))
}

func TestExecute_RequiresActionHoldsBookingPending(t *testing.T) {
	f := newFixture()
	f.payments.outcome = &paymentModels.ProcessOutcome{
		Payment:        &domain.Payment{ID: 1},
		RequiresAction: true,
		ActionToken:    "pi_secret",
	}

	resp, err := f.uc.Execute(context.Background(), appointmentRequest(t))
	require.NoError(t, err)

	assert.True(t, resp.PaymentRequiresAction)
	assert.Equal(t, "pi_secret", resp.PaymentActionToken)
	assert.Equal(t, "pending", resp.Status)
}

func TestExecute_UploadedFilesReachPublishedEvent(t *testing.T) {
	f := newFixture()
	producer := &fakeProducer{}
	f.uc.producer = producer

	req := appointmentRequest(t)
	req.CustomFields = map[string]domain.CustomFieldValue{
		"3": {Label: "Attachment", Type: "file", Value: []interface{}{
			map[string]interface{}{"fileName": "scan.pdf", "tmpPath": "/tmp/uploads/scan.pdf"},
		}},
	}

	_, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	// метаданные файлов уходят подсистеме уведомлений вместе с событием
	require.Len(t, producer.published, 1)
	msg := producer.published[0]
	assert.Equal(t, bookingevents.EventReservationCreated, msg.Type)
	require.Len(t, msg.UploadedFiles, 1)
	assert.Equal(t, "3", msg.UploadedFiles[0].FieldID)
	assert.Equal(t, "scan.pdf", msg.UploadedFiles[0].FileName)
	assert.Equal(t, "/tmp/uploads/scan.pdf", msg.UploadedFiles[0].TmpPath)
}

func TestExecute_BookingTooSoon(t *testing.T) {
	f := newFixture()
	f.uc.settings.MinimumTimeBeforeBooking = time.Hour
	f.uc.timeProvider = fixedNow{mustTime(t, "2025-10-15 09:30:00")}

	_, err := f.uc.Execute(context.Background(), appointmentRequest(t))
	assert.True(t, errors.Is(err, ErrBookingTooSoon))
}

func TestExecute_BackendSkipsMinimumBookingTime(t *testing.T) {
	f := newFixture()
	f.uc.settings.MinimumTimeBeforeBooking = time.Hour
	f.uc.timeProvider = fixedNow{mustTime(t, "2025-10-15 09:30:00")}

	req := appointmentRequest(t)
	req.IsBackend = true

	_, err := f.uc.Execute(context.Background(), req)
	assert.NoError(t, err)
}

func TestExecute_CouponApplied(t *testing.T) {
	f := newFixture()
	f.coupons.coupon = &domain.Coupon{ID: 3, Code: "SPRING10", Discount: 10, ServiceIDs: []int64{10}}

	req := appointmentRequest(t)
	req.CouponCode = "SPRING10"

	resp, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.InDelta(t, 90.0, resp.Price, 1e-9)
	require.Len(t, f.apptRepo.createdBookings, 1)
	require.NotNil(t, f.apptRepo.createdBookings[0].CouponID)
	assert.Equal(t, int64(3), *f.apptRepo.createdBookings[0].CouponID)
}

func TestExecute_UnknownCoupon(t *testing.T) {
	f := newFixture()
	f.coupons.err = couponsService.ErrCouponUnknown

	req := appointmentRequest(t)
	req.CouponCode = "NOPE"

	_, err := f.uc.Execute(context.Background(), req)
	assert.True(t, errors.Is(err, ErrCouponUnknown))
}

func TestExecute_EventBooking(t *testing.T) {
	f := newFixture()
	f.eventRepo.event = &domain.Event{
		ID:          20,
		Name:        "Yoga class",
		Status:      domain.StatusApproved,
		Price:       40,
		MaxCapacity: 10,
		Periods: []domain.EventPeriod{
			{Start: mustTime(t, "2025-11-01 10:00:00"), End: mustTime(t, "2025-11-01 12:00:00")},
		},
	}

	resp, err := f.uc.Execute(context.Background(), &Request{
		Type:     "event",
		EventID:  20,
		Persons:  2,
		Customer: CustomerInfo{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"},
		Payment:  paymentModels.PaymentData{Gateway: domain.GatewayOnSite},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(20), resp.EventID)
	assert.Zero(t, resp.AppointmentID)
	require.Len(t, f.apptRepo.createdBookings, 1)
	assert.Equal(t, int64(20), *f.apptRepo.createdBookings[0].EventID)
	// проверки слотов для событий не выполняются
	assert.Zero(t, f.slotChecker.calls)
}

func TestExecute_EventOverCapacity(t *testing.T) {
	f := newFixture()
	event := &domain.Event{
		ID:          20,
		Status:      domain.StatusApproved,
		Price:       40,
		MaxCapacity: 2,
		Periods: []domain.EventPeriod{
			{Start: mustTime(t, "2025-11-01 10:00:00"), End: mustTime(t, "2025-11-01 12:00:00")},
		},
	}
	event.AddBooking(&domain.CustomerBooking{ID: 1, CustomerID: 99, Status: domain.StatusApproved, Persons: 2})
	f.eventRepo.event = event

	_, err := f.uc.Execute(context.Background(), &Request{
		Type:     "event",
		EventID:  20,
		Persons:  1,
		Customer: CustomerInfo{Email: "jane@example.com"},
		Payment:  paymentModels.PaymentData{Gateway: domain.GatewayOnSite},
	})
	assert.True(t, errors.Is(err, ErrBookingUnavailable))
}

func TestExecute_EventNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.uc.Execute(context.Background(), &Request{
		Type:     "event",
		EventID:  404,
		Persons:  1,
		Customer: CustomerInfo{Email: "jane@example.com"},
		Payment:  paymentModels.PaymentData{Gateway: domain.GatewayOnSite},
	})
	assert.True(t, errors.Is(err, ErrEventNotFound))
}

func TestExecute_ValidationRejectsUnknownType(t *testing.T) {
	f := newFixture()

	_, err := f.uc.Execute(context.Background(), &Request{
		Type:     "membership",
		Persons:  1,
		Customer: CustomerInfo{Email: "jane@example.com"},
		Payment:  paymentModels.PaymentData{Gateway: domain.GatewayOnSite},
	})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestExecute_PreviewComputesPriceWithoutBooking(t *testing.T) {
	f := newFixture()
	req := appointmentRequest(t)
	req.Preview = true
	req.Extras = []BookedExtra{{ExtraID: 1, Quantity: 2}}

	resp, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	// 100 + 10*2 = 120
	assert.InDelta(t, 120.0, resp.Price, 1e-9)
	assert.Zero(t, resp.BookingID)

	// ничего не сохранено
	assert.Empty(t, f.apptRepo.createdAppointments)
	assert.Empty(t, f.apptRepo.createdBookings)
}

func TestExecute_PreviewRejectsUnavailableSlot(t *testing.T) {
	f := newFixture()
	f.slotChecker.free = false
	req := appointmentRequest(t)
	req.Preview = true

	_, err := f.uc.Execute(context.Background(), req)
	assert.True(t, errors.Is(err, ErrBookingUnavailable))
}

func TestExecute_DisplayLocationNormalizesClientTime(t *testing.T) {
	f := newFixture()
	f.uc.settings.DisplayLocation = time.FixedZone("UTC+2", 2*3600)

	req := appointmentRequest(t)
	// клиент присылает 10:00 UTC, по местному времени компании это 12:00
	resp, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.BookingID)

	created := f.apptRepo.createdAppointments[0]
	assert.Equal(t, 12, created.BookingStart.Hour())
	assert.Equal(t, 13, created.BookingEnd.Hour())
}

type fixedNow struct{ now time.Time }

func (f fixedNow) Now() time.Time { return f.now }
