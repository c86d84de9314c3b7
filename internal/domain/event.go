package domain

import (
	"sort"
	"time"
)

// EventPeriod один временной отрезок события
type EventPeriod struct {
	ID    int64
	Start time.Time
	End   time.Time
}

// Event бронируемое событие с фиксированными периодами и несколькими сотрудниками
type Event struct {
	ID   int64
	Name string

	Periods []EventPeriod

	ProviderIDs []int64

	// Bookings та же модель бронирований, что и у Appointment
	Bookings map[int64]*CustomerBooking

	Tags []string

	Price           float64
	AggregatedPrice bool
	MaxCapacity     int

	Status BookingStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddBooking attaches a booking to the event, keyed by its id
func (e *Event) AddBooking(b *CustomerBooking) {
	if e.Bookings == nil {
		e.Bookings = make(map[int64]*CustomerBooking)
	}
	e.Bookings[b.ID] = b
}

// SortedBookings returns the bookings ordered by id
func (e *Event) SortedBookings() []*CustomerBooking {
	bookings := make([]*CustomerBooking, 0, len(e.Bookings))
	for _, b := range e.Bookings {
		bookings = append(bookings, b)
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	return bookings
}

// ActivePersons returns the aggregate persons count over active bookings
func (e *Event) ActivePersons() int {
	persons := 0
	for _, b := range e.Bookings {
		if b.Status.IsActive() {
			persons += b.Persons
		}
	}
	return persons
}

// HasActiveBookingForCustomer reports whether the customer already holds an active booking
func (e *Event) HasActiveBookingForCustomer(customerID int64) bool {
	for _, b := range e.Bookings {
		if b.CustomerID == customerID && b.Status.IsActive() {
			return true
		}
	}
	return false
}

// FirstPeriodStart returns the start of the earliest period
func (e *Event) FirstPeriodStart() time.Time {
	if len(e.Periods) == 0 {
		return time.Time{}
	}
	start := e.Periods[0].Start
	for _, p := range e.Periods[1:] {
		if p.Start.Before(start) {
			start = p.Start
		}
	}
	return start
}
