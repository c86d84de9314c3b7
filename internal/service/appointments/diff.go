package appointments

import "github.com/kirillmaftuljak/WPKHK/internal/domain"

// ChangedBookings вычисляет бронирования, чей статус изменился относительно
// предыдущего состояния записи. Результат идет подсистеме уведомлений.
//
// Изменение засчитывается только если бронирование было активным (Approved
// или Pending): переходы вида Rejected -> Canceled клиенту не интересны.
// Бронирования, исчезнувшие из нового состояния, считаются отклоненными и
// попадают в результат с синтезированным статусом Rejected
func ChangedBookings(current, previous *domain.Appointment) []*domain.CustomerBooking {
	var changed []*domain.CustomerBooking

	for _, booking := range current.SortedBookings() {
		old, existed := previous.Bookings[booking.ID]
		if !existed {
			continue
		}
		if booking.Status != old.Status && old.Status.IsActive() {
			booking.ChangedStatus = true
			changed = append(changed, booking)
		}
	}

	for _, old := range previous.SortedBookings() {
		if _, stillThere := current.Bookings[old.ID]; stillThere {
			continue
		}
		if !old.Status.IsActive() {
			continue
		}
		removed := *old
		removed.Status = domain.StatusRejected
		removed.ChangedStatus = true
		changed = append(changed, &removed)
	}

	return changed
}

// ApplyStatus переводит запись и все активные бронирования в новый статус.
// Возвращает бронирования, чей статус при этом изменился
func ApplyStatus(appt *domain.Appointment, status domain.BookingStatus) []*domain.CustomerBooking {
	var changed []*domain.CustomerBooking

	appt.Status = status
	for _, booking := range appt.SortedBookings() {
		if booking.Status == status {
			continue
		}
		if !booking.Status.IsActive() && !status.IsActive() {
			continue
		}
		booking.Status = status
		booking.ChangedStatus = true
		changed = append(changed, booking)
	}

	return changed
}
