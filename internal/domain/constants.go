package domain

// Default scheduling settings
const (
	DefaultTimeSlotLengthSeconds      = 1800 // 30 минут
	DefaultMinimumTimeBeforeBooking   = 0
	DefaultMinimumTimeBeforeCanceling = 0

	// DefaultDaysAvailableForBooking горизонт бронирования для фронтенда по умолчанию
	DefaultDaysAvailableForBooking = 365

	// BackendDaysAvailableForBooking фиксированный горизонт для бэкенд-бронирований
	BackendDaysAvailableForBooking = 730
)

// Business validation constants
const (
	MinServiceDurationSeconds = 60
	MaxPersonsPerBooking      = 100
	MaxExtraQuantity          = 100
)

// Time format constants
const (
	TimeFormat     = "15:04"               // HH:MM
	DateFormat     = "2006-01-02"          // YYYY-MM-DD
	DateTimeFormat = "2006-01-02 15:04:05" // YYYY-MM-DD HH:MM:SS
)

// Entity type names, используются для привязки купонов и в payload-ах
const (
	EntityAppointment = "appointment"
	EntityEvent       = "event"
	EntityBooking     = "booking"
)
