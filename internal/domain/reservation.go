package domain

// ReservationType тип бронируемой сущности
type ReservationType string

const (
	ReservationAppointment ReservationType = EntityAppointment
	ReservationEvent       ReservationType = EntityEvent
)

// UploadedFileInfo метаданные файла, загруженного через пользовательское поле
type UploadedFileInfo struct {
	FieldID  string
	FileName string
	TmpPath  string
}

// Reservation транзитный агрегат конвейера бронирования.
// Живет только в рамках одного запроса на бронирование и не персистится
// как отдельная сущность
type Reservation struct {
	Type ReservationType

	// Ровно одно из двух установлено, в зависимости от Type
	Appointment *Appointment
	Event       *Event

	// Service bookable для типа appointment (для event bookable — сам Event)
	Service *Service

	Booking *CustomerBooking

	IsNewUser bool

	UploadedCustomFieldFiles []UploadedFileInfo
}

// Price returns the base price of the underlying bookable
func (r *Reservation) Price() float64 {
	if r.Type == ReservationEvent {
		return r.Event.Price
	}
	return r.Service.Price
}

// AggregatedPrice reports the pricing mode of the underlying bookable
func (r *Reservation) AggregatedPrice() bool {
	if r.Type == ReservationEvent {
		return r.Event.AggregatedPrice
	}
	return r.Service.AggregatedPrice
}

// EntityID returns the id the coupon binding is checked against
func (r *Reservation) EntityID() int64 {
	if r.Type == ReservationEvent {
		return r.Event.ID
	}
	return r.Service.ID
}
