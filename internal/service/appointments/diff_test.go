package appointments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
)

func apptWithBookings(status domain.BookingStatus, bookings ...*domain.CustomerBooking) *domain.Appointment {
	appt := &domain.Appointment{ID: 1, Status: status}
	for _, b := range bookings {
		appt.AddBooking(b)
	}
	return appt
}

func TestChangedBookings_StatusChangeFromActive(t *testing.T) {
	previous := apptWithBookings(domain.StatusApproved,
		&domain.CustomerBooking{ID: 1, CustomerID: 10, Status: domain.StatusApproved},
		&domain.CustomerBooking{ID: 2, CustomerID: 20, Status: domain.StatusPending},
	)
	current := apptWithBookings(domain.StatusApproved,
		&domain.CustomerBooking{ID: 1, CustomerID: 10, Status: domain.StatusCanceled},
		&domain.CustomerBooking{ID: 2, CustomerID: 20, Status: domain.StatusPending},
	)

	changed := ChangedBookings(current, previous)
	require.Len(t, changed, 1)
	assert.Equal(t, int64(1), changed[0].ID)
	assert.Equal(t, domain.StatusCanceled, changed[0].Status)
	assert.True(t, changed[0].ChangedStatus)
}

func TestChangedBookings_InactivePreviousStatusIgnored(t *testing.T) {
	// Rejected -> Canceled клиенту не интересен
	previous := apptWithBookings(domain.StatusApproved,
		&domain.CustomerBooking{ID: 1, Status: domain.StatusRejected},
	)
	current := apptWithBookings(domain.StatusApproved,
		&domain.CustomerBooking{ID: 1, Status: domain.StatusCanceled},
	)

	assert.Empty(t, ChangedBookings(current, previous))
}

func TestChangedBookings_MissingBookingSynthesizedAsRejected(t *testing.T) {
	previous := apptWithBookings(domain.StatusApproved,
		&domain.CustomerBooking{ID: 1, CustomerID: 10, Status: domain.StatusApproved},
		&domain.CustomerBooking{ID: 2, CustomerID: 20, Status: domain.StatusCanceled},
	)
	current := apptWithBookings(domain.StatusApproved)

	changed := ChangedBookings(current, previous)
	require.Len(t, changed, 1)
	assert.Equal(t, int64(1), changed[0].ID)
	assert.Equal(t, domain.StatusRejected, changed[0].Status)
}

func TestChangedBookings_NoChanges(t *testing.T) {
	previous := apptWithBookings(domain.StatusApproved,
		&domain.CustomerBooking{ID: 1, Status: domain.StatusApproved},
	)
	current := apptWithBookings(domain.StatusApproved,
		&domain.CustomerBooking{ID: 1, Status: domain.StatusApproved},
	)

	assert.Empty(t, ChangedBookings(current, previous))
}

func TestApplyStatus_PropagatesToActiveBookings(t *testing.T) {
	appt := apptWithBookings(domain.StatusApproved,
		&domain.CustomerBooking{ID: 1, Status: domain.StatusApproved},
		&domain.CustomerBooking{ID: 2, Status: domain.StatusPending},
		&domain.CustomerBooking{ID: 3, Status: domain.StatusRejected},
	)

	changed := ApplyStatus(appt, domain.StatusCanceled)

	assert.Equal(t, domain.StatusCanceled, appt.Status)
	// rejected остается rejected: оба статуса неактивны
	assert.Equal(t, domain.StatusRejected, appt.Bookings[3].Status)
	require.Len(t, changed, 2)
	assert.Equal(t, domain.StatusCanceled, appt.Bookings[1].Status)
	assert.Equal(t, domain.StatusCanceled, appt.Bookings[2].Status)
}

func TestApplyStatus_ReactivationTouchesInactive(t *testing.T) {
	appt := apptWithBookings(domain.StatusCanceled,
		&domain.CustomerBooking{ID: 1, Status: domain.StatusCanceled},
	)

	changed := ApplyStatus(appt, domain.StatusApproved)

	require.Len(t, changed, 1)
	assert.Equal(t, domain.StatusApproved, appt.Bookings[1].Status)
}
