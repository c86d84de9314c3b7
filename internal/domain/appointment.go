package domain

import (
	"sort"
	"time"
)

// BookingStatus represents the status of an appointment or a customer booking
type BookingStatus string

const (
	StatusPending  BookingStatus = "pending"
	StatusApproved BookingStatus = "approved"
	StatusCanceled BookingStatus = "canceled"
	StatusRejected BookingStatus = "rejected"
)

// IsValid returns true for a known status value
func (s BookingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusCanceled, StatusRejected:
		return true
	}
	return false
}

// IsActive returns true if the status still occupies capacity
func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusApproved
}

// CanTransitionTo reports whether the status machine allows the transition.
// Pending -> Approved -> (Canceled | Rejected); Pending -> Rejected;
// Approved -> Canceled; из терминальных статусов разрешен только явный возврат в Approved
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected || next == StatusCanceled
	case StatusApproved:
		return next == StatusCanceled || next == StatusRejected || next == StatusPending
	case StatusCanceled, StatusRejected:
		return next == StatusApproved
	}
	return false
}

// Appointment aggregate root: одна запись у сотрудника на услугу,
// может содержать несколько клиентских бронирований (групповые записи)
type Appointment struct {
	ID         int64
	ServiceID  int64
	ProviderID int64
	LocationID *int64

	BookingStart time.Time
	BookingEnd   time.Time

	Status        BookingStatus
	InternalNotes *string

	GoogleCalendarEventID *string

	// Bookings клиентские бронирования, ключ — id бронирования
	Bookings map[int64]*CustomerBooking

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddBooking attaches a booking to the appointment, keyed by its id
func (a *Appointment) AddBooking(b *CustomerBooking) {
	if a.Bookings == nil {
		a.Bookings = make(map[int64]*CustomerBooking)
	}
	a.Bookings[b.ID] = b
}

// SortedBookings returns the bookings ordered by id (deterministic iteration)
func (a *Appointment) SortedBookings() []*CustomerBooking {
	bookings := make([]*CustomerBooking, 0, len(a.Bookings))
	for _, b := range a.Bookings {
		bookings = append(bookings, b)
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	return bookings
}

// ActivePersons returns the aggregate persons count over active bookings
func (a *Appointment) ActivePersons() int {
	persons := 0
	for _, b := range a.Bookings {
		if b.Status.IsActive() {
			persons += b.Persons
		}
	}
	return persons
}

// HasActiveBookingForCustomer reports whether the customer already holds an active booking
func (a *Appointment) HasActiveBookingForCustomer(customerID int64) bool {
	for _, b := range a.Bookings {
		if b.CustomerID == customerID && b.Status.IsActive() {
			return true
		}
	}
	return false
}

// Reject выполняет принудительный перевод записи в Rejected ("удаление" без
// физического удаления истории): бронирования, бывшие Approved/Pending,
// помечаются как изменившие статус для последующих уведомлений
func (a *Appointment) Reject() {
	a.Status = StatusRejected

	for _, b := range a.Bookings {
		if b.Status.IsActive() {
			b.ChangedStatus = true
		}
		b.Status = StatusRejected
	}
}

// IsRescheduled reports whether the appointment time differs from old
func (a *Appointment) IsRescheduled(old *Appointment) bool {
	return !a.BookingStart.Equal(old.BookingStart) || !a.BookingEnd.Equal(old.BookingEnd)
}

// CustomFieldValue значение пользовательского поля формы бронирования
type CustomFieldValue struct {
	Label string      `json:"label"`
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// CustomerBookingExtra выбранная опция в составе бронирования
type CustomerBookingExtra struct {
	ID       int64
	ExtraID  int64
	Quantity int
	Price    float64

	// AggregatedPrice nil = наследуется от опции/услуги
	AggregatedPrice *bool
}

// CustomerBooking одно клиентское бронирование внутри записи или события
type CustomerBooking struct {
	ID int64

	// Ровно одно из двух должно быть установлено
	AppointmentID *int64
	EventID       *int64

	CustomerID int64
	Customer   *Customer // подгружается лениво

	Status BookingStatus

	Price           float64
	AggregatedPrice bool
	Persons         int

	CouponID *int64
	Coupon   *Coupon

	Extras []CustomerBookingExtra

	CustomFields map[string]CustomFieldValue

	UTCOffset *int

	// Token capability-секрет для анонимного доступа к бронированию
	Token string

	// ChangedStatus выставляется детектором изменений для уведомлений
	ChangedStatus bool
}
